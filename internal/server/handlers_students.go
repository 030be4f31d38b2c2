package server

import (
	"net/http"
	"strconv"
	"strings"

	"guidance-desk/internal/db"

	"github.com/gin-gonic/gin"
)

type studentRequest struct {
	StudentID     string `json:"studentId" binding:"required,max=32"`
	FirstName     string `json:"firstName" binding:"required,max=64,safetext"`
	MiddleName    string `json:"middleName" binding:"max=64,safetext"`
	LastName      string `json:"lastName" binding:"required,max=64,safetext"`
	Level         string `json:"level" binding:"required,level"`
	Grade         string `json:"grade" binding:"required,max=16"`
	Section       string `json:"section" binding:"max=64"`
	ContactNumber string `json:"contactNumber" binding:"max=32"`
	AdviserID     *uint  `json:"adviserId"`
}

var studentMessages = bindMessages{
	"StudentID": {"required": "student id is required"},
	"FirstName": {"required": "first name is required", "safetext": "first name contains unsupported characters"},
	"LastName":  {"required": "last name is required", "safetext": "last name contains unsupported characters"},
	"Level":     {"required": "level is required", "level": "level must be Elementary, JHS or SHS"},
	"Grade":     {"required": "grade is required"},
}

func (req studentRequest) apply(student *db.Student) {
	student.StudentID = strings.TrimSpace(req.StudentID)
	student.FirstName = normalizeText(req.FirstName)
	student.MiddleName = normalizeText(req.MiddleName)
	student.LastName = normalizeText(req.LastName)
	student.Level = req.Level
	student.Grade = strings.TrimSpace(req.Grade)
	student.Section = strings.TrimSpace(req.Section)
	student.ContactNumber = strings.TrimSpace(req.ContactNumber)
	student.AdviserID = req.AdviserID
}

func (s *Server) handleListStudents(c *gin.Context) {
	query := s.db.WithContext(c.Request.Context()).Model(&db.Student{})
	if user := currentUser(c); user.Role == db.RoleAdviser {
		query = query.Where("adviser_id = ?", user.ID)
	} else if raw := strings.TrimSpace(c.Query("adviserId")); raw != "" {
		adviserID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, http.StatusBadRequest, "adviserId must be numeric")
			return
		}
		query = query.Where("adviser_id = ?", adviserID)
	}
	if level := strings.TrimSpace(c.Query("level")); level != "" {
		query = query.Where("level = ?", level)
	}
	if grade := strings.TrimSpace(c.Query("grade")); grade != "" {
		query = query.Where("grade = ?", grade)
	}
	if q := strings.ToLower(strings.TrimSpace(c.Query("q"))); q != "" {
		like := "%" + q + "%"
		query = query.Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(student_id) LIKE ?", like, like, like)
	}
	query, page, err := paginate(c, query)
	if err != nil {
		s.respondStoreError(c, err, "students")
		return
	}
	var students []db.Student
	if err := query.Order("last_name, first_name, id").Find(&students).Error; err != nil {
		s.respondStoreError(c, err, "students")
		return
	}
	respondList(c, students, page)
}

func (s *Server) loadStudent(c *gin.Context) (*db.Student, bool) {
	id, ok := bindID(c)
	if !ok {
		return nil, false
	}
	query := s.db.WithContext(c.Request.Context())
	if user := currentUser(c); user.Role == db.RoleAdviser {
		query = query.Where("adviser_id = ?", user.ID)
	}
	var student db.Student
	if err := query.Take(&student, id).Error; err != nil {
		s.respondStoreError(c, err, "student")
		return nil, false
	}
	return &student, true
}

func (s *Server) handleGetStudent(c *gin.Context) {
	student, ok := s.loadStudent(c)
	if !ok {
		return
	}
	respondData(c, http.StatusOK, student)
}

func (s *Server) adviserExists(c *gin.Context, id *uint) bool {
	if id == nil {
		return true
	}
	var count int64
	err := s.db.WithContext(c.Request.Context()).Model(&db.User{}).
		Where("id = ? AND role = ?", *id, db.RoleAdviser).Count(&count).Error
	if err != nil {
		s.respondStoreError(c, err, "adviser")
		return false
	}
	if count == 0 {
		respondError(c, http.StatusBadRequest, "adviser does not exist")
		return false
	}
	return true
}

func (s *Server) handleCreateStudent(c *gin.Context) {
	var req studentRequest
	if !bindJSON(c, &req, studentMessages, "invalid student") {
		return
	}
	if !s.adviserExists(c, req.AdviserID) {
		return
	}
	var student db.Student
	req.apply(&student)
	if err := s.db.WithContext(c.Request.Context()).Create(&student).Error; err != nil {
		s.respondStoreError(c, err, "student")
		return
	}
	respondData(c, http.StatusCreated, student)
}

func (s *Server) handleUpdateStudent(c *gin.Context) {
	var req studentRequest
	if !bindJSON(c, &req, studentMessages, "invalid student") {
		return
	}
	student, ok := s.loadStudent(c)
	if !ok {
		return
	}
	if !s.adviserExists(c, req.AdviserID) {
		return
	}
	req.apply(student)
	if err := s.db.WithContext(c.Request.Context()).Save(student).Error; err != nil {
		s.respondStoreError(c, err, "student")
		return
	}
	respondData(c, http.StatusOK, student)
}

func (s *Server) handleDeleteStudent(c *gin.Context) {
	student, ok := s.loadStudent(c)
	if !ok {
		return
	}
	if err := s.db.WithContext(c.Request.Context()).Delete(student).Error; err != nil {
		s.respondStoreError(c, err, "student")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
