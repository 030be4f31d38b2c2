package server

import (
	"errors"
	"net/http"
	"strings"

	"guidance-desk/internal/db"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errConcernRequired  = errors.New("please describe your concern")
	errAlreadyEscalated = errors.New("submission was already escalated")
)

type updateSubmissionRequest struct {
	Status      *string `json:"status" binding:"omitempty,submissionstatus"`
	ReviewNotes *string `json:"reviewNotes" binding:"omitempty,max=4000,safetext"`
}

var updateSubmissionMessages = bindMessages{
	"Status":      {"submissionstatus": "status must be Pending, Reviewed, Resolved or Closed"},
	"ReviewNotes": {"max": "review notes are too long", "safetext": "review notes contain unsupported characters"},
}

type escalateRequest struct {
	StudentID  string `json:"studentId" binding:"max=32"`
	Level      string `json:"level" binding:"omitempty,level"`
	Grade      string `json:"grade" binding:"max=16"`
	Severity   string `json:"severity" binding:"omitempty,severity"`
	CategoryID *uint  `json:"categoryId"`
	Notes      string `json:"notes" binding:"max=4000"`
}

var escalateMessages = bindMessages{
	"Level":    {"level": "level must be Elementary, JHS or SHS"},
	"Severity": {"severity": "severity must be Low, Medium or High"},
}

func (s *Server) handleListSubmissions(c *gin.Context) {
	query := s.db.WithContext(c.Request.Context()).Model(&db.StudentSubmission{})
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		if !db.ValidSubmissionStatus(status) {
			respondError(c, http.StatusBadRequest, "unknown status filter")
			return
		}
		query = query.Where("status = ?", status)
	}
	query, page, err := paginate(c, query)
	if err != nil {
		s.respondStoreError(c, err, "submissions")
		return
	}
	var submissions []db.StudentSubmission
	if err := query.Order("created_at desc, id desc").Find(&submissions).Error; err != nil {
		s.respondStoreError(c, err, "submissions")
		return
	}
	respondList(c, submissions, page)
}

func (s *Server) loadSubmission(c *gin.Context) (*db.StudentSubmission, bool) {
	id, ok := bindID(c)
	if !ok {
		return nil, false
	}
	var submission db.StudentSubmission
	if err := s.db.WithContext(c.Request.Context()).Take(&submission, id).Error; err != nil {
		s.respondStoreError(c, err, "submission")
		return nil, false
	}
	return &submission, true
}

func (s *Server) handleGetSubmission(c *gin.Context) {
	submission, ok := s.loadSubmission(c)
	if !ok {
		return
	}
	respondData(c, http.StatusOK, submission)
}

func (s *Server) handleUpdateSubmission(c *gin.Context) {
	var req updateSubmissionRequest
	if !bindJSON(c, &req, updateSubmissionMessages, "invalid submission update") {
		return
	}
	submission, ok := s.loadSubmission(c)
	if !ok {
		return
	}
	user := currentUser(c)
	now := s.now().UTC()
	updates := map[string]any{
		"reviewed_by_id": user.ID,
		"reviewed_at":    now,
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.ReviewNotes != nil {
		updates["review_notes"] = strings.TrimSpace(*req.ReviewNotes)
	}
	if len(updates) == 2 {
		respondError(c, http.StatusBadRequest, "nothing to update")
		return
	}
	if err := s.db.WithContext(c.Request.Context()).Model(submission).Updates(updates).Error; err != nil {
		s.respondStoreError(c, err, "submission")
		return
	}
	respondData(c, http.StatusOK, submission)
}

func (s *Server) handleDeleteSubmission(c *gin.Context) {
	submission, ok := s.loadSubmission(c)
	if !ok {
		return
	}
	if err := s.db.WithContext(c.Request.Context()).Delete(submission).Error; err != nil {
		s.respondStoreError(c, err, "submission")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleEscalateSubmission turns a student submission into a referral with a
// pending student id. A submission escalates at most once.
func (s *Server) handleEscalateSubmission(c *gin.Context) {
	var req escalateRequest
	if !bindJSON(c, &req, escalateMessages, "invalid escalation") {
		return
	}
	id, ok := bindID(c)
	if !ok {
		return
	}
	user := currentUser(c)
	ctx := c.Request.Context()
	now := s.now()

	var referral db.Referral
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var submission db.StudentSubmission
		if err := tx.Take(&submission, id).Error; err != nil {
			return err
		}
		if submission.ReferralID != nil {
			return errAlreadyEscalated
		}
		referralID, err := db.DailyID(ctx, tx, "REF", now.In(s.loc))
		if err != nil {
			return err
		}
		studentID := strings.TrimSpace(req.StudentID)
		if studentID == "" {
			studentID = db.PendingStudentID
		}
		severity := req.Severity
		if severity == "" {
			severity = db.SeverityMedium
		}
		referral = db.Referral{
			ReferralID:         referralID,
			StudentID:          studentID,
			StudentName:        submission.StudentName,
			Level:              req.Level,
			Grade:              strings.TrimSpace(req.Grade),
			ReferralDate:       now.UTC(),
			Reason:             truncateRunes(normalizeText(submission.Concern), maxReasonLength),
			Description:        submission.Concern,
			CategoryID:         req.CategoryID,
			Severity:           severity,
			Status:             db.ReferralPending,
			ReferredBy:         "Student Self-Report",
			Notes:              strings.TrimSpace(req.Notes),
			IsStudentSubmitted: true,
			SubmissionID:       &submission.ID,
			CreatedByID:        &user.ID,
		}
		// referrals.submission_id is unique; a concurrent escalation that
		// already inserted its referral makes this insert fail.
		if err := tx.Create(&referral).Error; err != nil {
			if db.IsDuplicateKey(err) {
				return errAlreadyEscalated
			}
			return err
		}
		reviewedAt := now.UTC()
		return tx.Model(&submission).Updates(map[string]any{
			"referral_id":    referral.ID,
			"status":         db.SubmissionReviewed,
			"reviewed_by_id": user.ID,
			"reviewed_at":    reviewedAt,
		}).Error
	})
	if errors.Is(err, errAlreadyEscalated) {
		respondError(c, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		s.respondStoreError(c, err, "submission")
		return
	}
	s.logger.Info("submission escalated", zap.Uint("submission", id), zap.String("referral_id", referral.ReferralID))
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
