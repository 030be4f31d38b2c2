package server

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"guidance-desk/internal/prescription"
	"guidance-desk/internal/weekly"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type prescribeRequest struct {
	Issue   string         `json:"issue" binding:"required,max=500,safetext"`
	Context map[string]any `json:"context"`
}

var prescribeMessages = bindMessages{
	"Issue": {
		"required": "issue description is required",
		"max":      "issue description must be 500 characters or fewer",
		"safetext": "issue description contains unsupported characters",
	},
}

type weekInfo struct {
	Week  int       `json:"week"`
	Year  int       `json:"year"`
	Key   string    `json:"key"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type prescriptionView struct {
	ID         uint                  `json:"id"`
	Issue      string                `json:"issue"`
	Context    map[string]any        `json:"context"`
	Solution   prescription.Solution `json:"solution"`
	WeekInfo   weekInfo              `json:"weekInfo"`
	Provider   string                `json:"provider"`
	Model      string                `json:"model"`
	TokensUsed int                   `json:"tokensUsed"`
	Cost       string                `json:"cost"`
	CreatedBy  *uint                 `json:"createdBy"`
	Timestamp  time.Time             `json:"timestamp"`
}

func newWeekInfo(week weekly.Week) weekInfo {
	return weekInfo{Week: week.Number, Year: week.Year, Key: week.Key(), Start: week.Start, End: week.End()}
}

func (s *Server) viewPrescription(rec prescription.Record) prescriptionView {
	context := rec.Context
	if context == nil {
		context = map[string]any{}
	}
	return prescriptionView{
		ID:         rec.ID,
		Issue:      rec.Issue,
		Context:    context,
		Solution:   rec.Solution,
		WeekInfo:   newWeekInfo(weekly.Week{Year: rec.Year, Number: rec.Week, Start: rec.WeekStart.In(s.loc)}),
		Provider:   rec.Provider,
		Model:      rec.Model,
		TokensUsed: rec.TokensUsed(),
		Cost:       rec.Cost.StringFixed(4),
		CreatedBy:  rec.CreatedBy,
		Timestamp:  rec.CreatedAt.In(s.loc),
	}
}

// denialBody is the payload for a blocked prescription, shared by the prescribe
// and availability endpoints.
func denialBody(decision weekly.Decision) gin.H {
	countdown := decision.Remaining()
	return gin.H{
		"success":              false,
		"allowed":              false,
		"blocked":              true,
		"reason":               "weekly_limit_reached",
		"message":              fmt.Sprintf("This week's prescription was already created. The next one is available in %s.", formatCountdown(countdown)),
		"lastPrescriptionDate": decision.LastActionAt,
		"nextAvailableDate":    decision.NextAvailableAt,
		"timeUntilNext":        countdown,
		"currentWeek": gin.H{
			"key":   decision.Week.Key(),
			"start": decision.WeekStart(),
			"end":   decision.WeekEnd(),
		},
	}
}

func formatCountdown(countdown weekly.Countdown) string {
	switch {
	case countdown.Days > 0:
		return fmt.Sprintf("%dd %dh", countdown.Days, countdown.Hours)
	case countdown.Hours > 0:
		return fmt.Sprintf("%dh %dm", countdown.Hours, countdown.Minutes)
	default:
		return fmt.Sprintf("%dm", countdown.Minutes)
	}
}

func (s *Server) prescriptionsReady(c *gin.Context) bool {
	if s.prescriptions == nil {
		respondError(c, http.StatusServiceUnavailable, "AI prescriptions are not configured")
		return false
	}
	return true
}

func (s *Server) handlePrescribe(c *gin.Context) {
	if !s.prescriptionsReady(c) {
		return
	}
	var req prescribeRequest
	if !bindJSON(c, &req, prescribeMessages, "issue description is required") {
		return
	}
	user := currentUser(c)
	result, err := s.prescriptions.Prescribe(c.Request.Context(), prescription.Request{
		Issue:     normalizeText(req.Issue),
		Context:   req.Context,
		CreatedBy: &user.ID,
	})
	if err != nil {
		s.respondPrescriptionError(c, err)
		return
	}
	s.metrics.prescriptionOutcome("created")
	view := s.viewPrescription(result.Record)
	s.publish(DashboardEvent{
		Type:     eventPrescriptionCreated,
		ID:       view.WeekInfo.Key,
		Summary:  view.Issue,
		Severity: view.Solution.Severity,
	})
	c.JSON(http.StatusOK, gin.H{
		"success":                   true,
		"id":                        view.ID,
		"issue":                     view.Issue,
		"solution":                  view.Solution,
		"timestamp":                 view.Timestamp,
		"weekInfo":                  view.WeekInfo,
		"tokensUsed":                view.TokensUsed,
		"cost":                      view.Cost,
		"nextPrescriptionAvailable": view.WeekInfo.End.Add(time.Nanosecond),
	})
}

func (s *Server) respondPrescriptionError(c *gin.Context, err error) {
	if quota, ok := prescription.IsQuotaExceeded(err); ok {
		s.metrics.prescriptionOutcome("blocked")
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(quota.RetryAfter().Seconds()))))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, denialBody(quota.Decision))
		return
	}
	switch {
	case errors.Is(err, prescription.ErrIssueRequired):
		s.metrics.prescriptionOutcome("invalid")
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, prescription.ErrUpstream):
		s.metrics.prescriptionOutcome("upstream_error")
		s.logger.Warn("prescription upstream failure", zap.Error(err))
		respondError(c, http.StatusBadGateway, "AI generation failed. This week's prescription is still available, please try again.")
	default:
		s.metrics.prescriptionOutcome("persistence_error")
		s.logger.Error("prescription persistence failure", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "internal server error")
	}
}

func (s *Server) handleCheckAvailability(c *gin.Context) {
	if !s.prescriptionsReady(c) {
		return
	}
	decision, err := s.prescriptions.Check(c.Request.Context())
	if err != nil {
		s.respondPrescriptionError(c, err)
		return
	}
	if !decision.Allowed {
		body := denialBody(decision)
		body["success"] = true
		c.JSON(http.StatusOK, body)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"allowed": true,
		"reason":  decision.Reason,
		"currentWeek": gin.H{
			"key":   decision.Week.Key(),
			"start": decision.WeekStart(),
			"end":   decision.WeekEnd(),
		},
	})
}

func (s *Server) handlePrescriptionHistory(c *gin.Context) {
	if !s.prescriptionsReady(c) {
		return
	}
	records, err := s.prescriptions.History(c.Request.Context())
	if err != nil {
		s.respondPrescriptionError(c, err)
		return
	}
	views := make([]prescriptionView, 0, len(records))
	for _, rec := range records {
		views = append(views, s.viewPrescription(rec))
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"prescriptions": views,
		"total":         len(views),
	})
}

func (s *Server) handleThisWeekPrescription(c *gin.Context) {
	if !s.prescriptionsReady(c) {
		return
	}
	rec, err := s.prescriptions.ThisWeek(c.Request.Context())
	if err != nil {
		s.respondPrescriptionError(c, err)
		return
	}
	week := newWeekInfo(weekly.Of(s.now(), s.loc))
	if rec == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "prescription": nil, "weekInfo": week})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "prescription": s.viewPrescription(*rec), "weekInfo": week})
}
