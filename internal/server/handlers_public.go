package server

import (
	"net/http"
	"strings"

	"guidance-desk/internal/db"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	anonymousName = "Anonymous"
	preferNotName = "Prefer not to say"
)

type publicReferralRequest struct {
	StudentName string `json:"studentName" binding:"max=128"`
	Concern     string `json:"concern" binding:"required"`
	NameOption  string `json:"nameOption" binding:"omitempty,nameoption"`
}

var publicReferralMessages = bindMessages{
	"Concern":     {"required": "please describe your concern"},
	"StudentName": {"max": "name must be 128 characters or fewer"},
	"NameOption":  {"nameoption": "name option must be realName, anonymous or preferNot"},
}

// resolveSubmitterName applies the form's name choice.
func resolveSubmitterName(option, name string) (string, string, error) {
	if option == "" {
		option = db.NameOptionPreferNot
	}
	switch option {
	case db.NameOptionRealName:
		validated, err := validateText("name", name, maxNameLength)
		if err != nil {
			return "", "", err
		}
		return option, validated, nil
	case db.NameOptionAnonymous:
		return option, anonymousName, nil
	default:
		return db.NameOptionPreferNot, preferNotName, nil
	}
}

func (s *Server) handlePublicReferral(c *gin.Context) {
	var req publicReferralRequest
	if !bindJSON(c, &req, publicReferralMessages, "please describe your concern") {
		return
	}
	concern, err := validateOptionalText("concern", req.Concern, maxConcernLength)
	if err == nil && concern == "" {
		err = errConcernRequired
	}
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	option, name, err := resolveSubmitterName(strings.TrimSpace(req.NameOption), req.StudentName)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx := c.Request.Context()
	submissionID, err := db.DailyID(ctx, s.db, "SUB", s.now().In(s.loc))
	if err != nil {
		s.respondStoreError(c, err, "submission")
		return
	}
	submission := db.StudentSubmission{
		SubmissionID: submissionID,
		StudentName:  name,
		Concern:      concern,
		NameOption:   option,
		Status:       db.SubmissionPending,
	}
	if err := s.db.WithContext(ctx).Create(&submission).Error; err != nil {
		s.respondStoreError(c, err, "submission")
		return
	}
	s.metrics.submissions.Inc()
	s.logger.Info("student submission received", zap.String("submission_id", submissionID), zap.String("name_option", option))
	s.publish(DashboardEvent{
		Type:    eventSubmissionCreated,
		ID:      submissionID,
		Summary: truncateRunes(concern, 120),
		Status:  submission.Status,
	})
	c.JSON(http.StatusCreated, gin.H{
		"success":      true,
		"message":      "Your concern was received. A counselor will review it soon.",
		"submissionId": submissionID,
	})
}

func truncateRunes(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return strings.TrimSpace(string(runes[:max-1])) + "…"
}
