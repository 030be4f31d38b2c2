package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"guidance-desk/internal/db"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

type createReferralRequest struct {
	StudentID    string `json:"studentId" binding:"max=32"`
	StudentName  string `json:"studentName" binding:"max=128"`
	Level        string `json:"level" binding:"omitempty,level"`
	Grade        string `json:"grade" binding:"max=16"`
	ReferralDate string `json:"referralDate"`
	Reason       string `json:"reason" binding:"required,max=280,safetext"`
	Description  string `json:"description" binding:"max=4000"`
	CategoryID   *uint  `json:"categoryId"`
	Severity     string `json:"severity" binding:"required,severity"`
	Notes        string `json:"notes" binding:"max=4000"`
}

var createReferralMessages = bindMessages{
	"Reason": {
		"required": "reason is required",
		"max":      "reason must be 280 characters or fewer",
		"safetext": "reason contains unsupported characters",
	},
	"Severity": {
		"required": "severity is required",
		"severity": "severity must be Low, Medium or High",
	},
	"Level": {"level": "level must be Elementary, JHS or SHS"},
}

type updateReferralRequest struct {
	StudentID   *string `json:"studentId" binding:"omitempty,max=32"`
	StudentName *string `json:"studentName" binding:"omitempty,max=128,safetext"`
	Level       *string `json:"level" binding:"omitempty,level"`
	Grade       *string `json:"grade" binding:"omitempty,max=16"`
	Reason      *string `json:"reason" binding:"omitempty,max=280,safetext"`
	Description *string `json:"description" binding:"omitempty,max=4000"`
	CategoryID  *uint   `json:"categoryId"`
	Severity    *string `json:"severity" binding:"omitempty,severity"`
	Status      *string `json:"status" binding:"omitempty,referralstatus"`
	Notes       *string `json:"notes" binding:"omitempty,max=4000"`
}

var updateReferralMessages = bindMessages{
	"Severity": {"severity": "severity must be Low, Medium or High"},
	"Status":   {"referralstatus": "status must be Pending, Under Review, For Consultation or Complete"},
	"Level":    {"level": "level must be Elementary, JHS or SHS"},
	"Reason":   {"max": "reason must be 280 characters or fewer"},
}

// scopeReferrals restricts advisers to the referrals they filed.
func scopeReferrals(query *gorm.DB, user *db.User) *gorm.DB {
	if user != nil && user.Role == db.RoleAdviser {
		return query.Where("referrals.created_by_id = ?", user.ID)
	}
	return query
}

func (s *Server) handleListReferrals(c *gin.Context) {
	query := scopeReferrals(s.db.WithContext(c.Request.Context()).Model(&db.Referral{}), currentUser(c))
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		query = query.Where("status = ?", status)
	}
	if severity := strings.TrimSpace(c.Query("severity")); severity != "" {
		query = query.Where("severity = ?", severity)
	}
	if level := strings.TrimSpace(c.Query("level")); level != "" {
		query = query.Where("level = ?", level)
	}
	if raw := strings.TrimSpace(c.Query("category")); raw != "" {
		categoryID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, http.StatusBadRequest, "category must be a numeric id")
			return
		}
		query = query.Where("category_id = ?", categoryID)
	}
	if q := strings.ToLower(strings.TrimSpace(c.Query("q"))); q != "" {
		like := "%" + q + "%"
		query = query.Where("LOWER(student_name) LIKE ? OR LOWER(reason) LIKE ? OR LOWER(referral_id) LIKE ? OR LOWER(student_id) LIKE ?", like, like, like, like)
	}
	if raw := strings.TrimSpace(c.Query("from")); raw != "" {
		from, err := time.ParseInLocation(dateLayout, raw, s.loc)
		if err != nil {
			respondError(c, http.StatusBadRequest, "from must be YYYY-MM-DD")
			return
		}
		query = query.Where("referral_date >= ?", from.UTC())
	}
	if raw := strings.TrimSpace(c.Query("to")); raw != "" {
		to, err := time.ParseInLocation(dateLayout, raw, s.loc)
		if err != nil {
			respondError(c, http.StatusBadRequest, "to must be YYYY-MM-DD")
			return
		}
		query = query.Where("referral_date < ?", to.AddDate(0, 0, 1).UTC())
	}
	query, page, err := paginate(c, query)
	if err != nil {
		s.respondStoreError(c, err, "referrals")
		return
	}
	var referrals []db.Referral
	if err := query.Preload("Category").Order("referral_date desc, id desc").Find(&referrals).Error; err != nil {
		s.respondStoreError(c, err, "referrals")
		return
	}
	respondList(c, referrals, page)
}

func (s *Server) handleCreateReferral(c *gin.Context) {
	var req createReferralRequest
	if !bindJSON(c, &req, createReferralMessages, "invalid referral") {
		return
	}
	ctx := c.Request.Context()
	user := currentUser(c)
	referral := db.Referral{
		StudentID:   strings.TrimSpace(req.StudentID),
		StudentName: normalizeText(req.StudentName),
		Level:       req.Level,
		Grade:       strings.TrimSpace(req.Grade),
		Reason:      normalizeText(req.Reason),
		Description: strings.TrimSpace(req.Description),
		CategoryID:  req.CategoryID,
		Severity:    req.Severity,
		Status:      db.ReferralPending,
		ReferredBy:  user.FullName,
		Notes:       strings.TrimSpace(req.Notes),
		CreatedByID: &user.ID,
	}
	if referral.StudentID == "" {
		referral.StudentID = db.PendingStudentID
	} else {
		var student db.Student
		err := s.db.WithContext(ctx).Where("student_id = ?", referral.StudentID).Take(&student).Error
		switch {
		case err == nil:
			if referral.StudentName == "" {
				referral.StudentName = student.FullName()
			}
			if referral.Level == "" {
				referral.Level = student.Level
			}
			if referral.Grade == "" {
				referral.Grade = student.Grade
			}
		case !db.IsNotFound(err):
			s.respondStoreError(c, err, "student")
			return
		}
	}
	switch {
	case referral.StudentName == "":
		respondError(c, http.StatusBadRequest, "student name is required")
		return
	case referral.Level == "":
		respondError(c, http.StatusBadRequest, "level is required")
		return
	case referral.Grade == "":
		respondError(c, http.StatusBadRequest, "grade is required")
		return
	case referral.Reason == "":
		respondError(c, http.StatusBadRequest, "reason is required")
		return
	}
	now := s.now()
	referral.ReferralDate = now.UTC()
	if raw := strings.TrimSpace(req.ReferralDate); raw != "" {
		date, err := time.ParseInLocation(dateLayout, raw, s.loc)
		if err != nil {
			respondError(c, http.StatusBadRequest, "referralDate must be YYYY-MM-DD")
			return
		}
		referral.ReferralDate = date.UTC()
	}
	if req.CategoryID != nil && !s.categoryExists(c, *req.CategoryID) {
		return
	}
	referralID, err := db.DailyID(ctx, s.db, "REF", now.In(s.loc))
	if err != nil {
		s.respondStoreError(c, err, "referral")
		return
	}
	referral.ReferralID = referralID
	if err := s.db.WithContext(ctx).Create(&referral).Error; err != nil {
		s.respondStoreError(c, err, "referral")
		return
	}
	s.logger.Info("referral created", zap.String("referral_id", referralID), zap.Uint("user_id", user.ID))
	s.publish(DashboardEvent{
		Type:      eventReferralCreated,
		ID:        referral.ReferralID,
		Summary:   referral.Reason,
		Severity:  referral.Severity,
		Status:    referral.Status,
		CreatedBy: user.ID,
	})
	respondData(c, http.StatusCreated, referral)
}

func (s *Server) categoryExists(c *gin.Context, id uint) bool {
	var count int64
	if err := s.db.WithContext(c.Request.Context()).Model(&db.Category{}).Where("id = ?", id).Count(&count).Error; err != nil {
		s.respondStoreError(c, err, "category")
		return false
	}
	if count == 0 {
		respondError(c, http.StatusBadRequest, "category does not exist")
		return false
	}
	return true
}

// loadReferral accepts either the numeric row id or the REF-... identifier.
func (s *Server) loadReferral(c *gin.Context) (*db.Referral, bool) {
	raw := strings.TrimSpace(c.Param("id"))
	query := scopeReferrals(s.db.WithContext(c.Request.Context()).Preload("Category"), currentUser(c))
	if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
		query = query.Where("referrals.id = ?", id)
	} else {
		query = query.Where("referrals.referral_id = ?", raw)
	}
	var referral db.Referral
	if err := query.Take(&referral).Error; err != nil {
		s.respondStoreError(c, err, "referral")
		return nil, false
	}
	return &referral, true
}

func (s *Server) handleGetReferral(c *gin.Context) {
	referral, ok := s.loadReferral(c)
	if !ok {
		return
	}
	respondData(c, http.StatusOK, referral)
}

func (s *Server) handleUpdateReferral(c *gin.Context) {
	var req updateReferralRequest
	if !bindJSON(c, &req, updateReferralMessages, "invalid referral update") {
		return
	}
	user := currentUser(c)
	if req.Status != nil && !isCounselingStaff(user) {
		respondError(c, http.StatusForbidden, "only counselors can change referral status")
		return
	}
	referral, ok := s.loadReferral(c)
	if !ok {
		return
	}
	updates := map[string]any{}
	setString := func(column string, value *string, normalize func(string) string) {
		if value != nil {
			updates[column] = normalize(*value)
		}
	}
	setString("student_id", req.StudentID, strings.TrimSpace)
	setString("student_name", req.StudentName, normalizeText)
	setString("level", req.Level, strings.TrimSpace)
	setString("grade", req.Grade, strings.TrimSpace)
	setString("reason", req.Reason, normalizeText)
	setString("description", req.Description, strings.TrimSpace)
	setString("severity", req.Severity, strings.TrimSpace)
	setString("status", req.Status, strings.TrimSpace)
	setString("notes", req.Notes, strings.TrimSpace)
	if req.CategoryID != nil {
		if !s.categoryExists(c, *req.CategoryID) {
			return
		}
		updates["category_id"] = *req.CategoryID
	}
	if value, ok := updates["reason"]; ok && value == "" {
		respondError(c, http.StatusBadRequest, "reason is required")
		return
	}
	if value, ok := updates["student_name"]; ok && value == "" {
		respondError(c, http.StatusBadRequest, "student name is required")
		return
	}
	if len(updates) == 0 {
		respondError(c, http.StatusBadRequest, "nothing to update")
		return
	}
	if err := s.db.WithContext(c.Request.Context()).Model(referral).Updates(updates).Error; err != nil {
		s.respondStoreError(c, err, "referral")
		return
	}
	s.publish(DashboardEvent{
		Type:      eventReferralUpdated,
		ID:        referral.ReferralID,
		Summary:   referral.Reason,
		Severity:  referral.Severity,
		Status:    referral.Status,
		CreatedBy: derefUint(referral.CreatedByID),
	})
	respondData(c, http.StatusOK, referral)
}

func (s *Server) handleDeleteReferral(c *gin.Context) {
	referral, ok := s.loadReferral(c)
	if !ok {
		return
	}
	err := s.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&db.StudentSubmission{}).Where("referral_id = ?", referral.ID).Update("referral_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(referral).Error
	})
	if err != nil {
		s.respondStoreError(c, err, "referral")
		return
	}
	s.logger.Info("referral deleted", zap.String("referral_id", referral.ReferralID))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func derefUint(value *uint) uint {
	if value == nil {
		return 0
	}
	return *value
}
