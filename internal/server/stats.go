package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"guidance-desk/internal/db"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type labelCount struct {
	Label string
	Count int64
}

type monthTrend struct {
	Month    string `json:"month"`
	Total    int64  `json:"total"`
	Pending  int64  `json:"pending"`
	Complete int64  `json:"complete"`
}

type referralStats struct {
	Year       int              `json:"year"`
	Total      int64            `json:"total"`
	ByLevel    map[string]int64 `json:"byLevel"`
	ByStatus   map[string]int64 `json:"byStatus"`
	BySeverity map[string]int64 `json:"bySeverity"`
	ByCategory map[string]int64 `json:"byCategory"`
	ByGrade    map[string]int64 `json:"byGrade"`
	Monthly    []monthTrend     `json:"monthly"`
	Quarterly  map[string]int64 `json:"quarterly"`
}

var levelKeys = map[string]string{
	db.LevelElementary: "elementary",
	db.LevelJHS:        "juniorHigh",
	db.LevelSHS:        "seniorHigh",
}

func (s *Server) handleReferralStats(c *gin.Context) {
	year := s.now().In(s.loc).Year()
	if raw := strings.TrimSpace(c.Query("year")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 2000 || parsed > 2100 {
			respondError(c, http.StatusBadRequest, "year must be a four digit year")
			return
		}
		year = parsed
	}
	stats, err := s.collectReferralStats(c.Request.Context(), currentUser(c), year)
	if err != nil {
		s.respondStoreError(c, err, "referral stats")
		return
	}
	respondData(c, http.StatusOK, stats)
}

// collectReferralStats runs the aggregate queries for one calendar year concurrently.
func (s *Server) collectReferralStats(ctx context.Context, user *db.User, year int) (referralStats, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, s.loc)
	end := start.AddDate(1, 0, 0)
	base := func(ctx context.Context) *gorm.DB {
		query := s.db.WithContext(ctx).Model(&db.Referral{}).
			Where("referrals.referral_date >= ? AND referrals.referral_date < ?", start.UTC(), end.UTC())
		return scopeReferrals(query, user)
	}

	stats := referralStats{Year: year}
	var (
		byLevel, byStatus, bySeverity, byGrade, byCategory []labelCount
		dates                                             []struct {
			ReferralDate time.Time
			Status       string
		}
	)
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return base(ctx).Count(&stats.Total).Error
	})
	groupBy := func(column string, dest *[]labelCount) {
		group.Go(func() error {
			return base(ctx).Select(column + " AS label, COUNT(*) AS count").Group(column).Scan(dest).Error
		})
	}
	groupBy("referrals.level", &byLevel)
	groupBy("referrals.status", &byStatus)
	groupBy("referrals.severity", &bySeverity)
	groupBy("referrals.grade", &byGrade)
	group.Go(func() error {
		return base(ctx).
			Select("COALESCE(categories.name, 'Uncategorized') AS label, COUNT(*) AS count").
			Joins("LEFT JOIN categories ON categories.id = referrals.category_id").
			Group("categories.name").
			Scan(&byCategory).Error
	})
	group.Go(func() error {
		return base(ctx).Select("referrals.referral_date, referrals.status").Scan(&dates).Error
	})
	if err := group.Wait(); err != nil {
		return referralStats{}, err
	}

	stats.ByLevel = map[string]int64{"elementary": 0, "juniorHigh": 0, "seniorHigh": 0}
	for _, row := range byLevel {
		if key, ok := levelKeys[row.Label]; ok {
			stats.ByLevel[key] = row.Count
		}
	}
	stats.ByStatus = map[string]int64{
		db.ReferralPending:         0,
		db.ReferralUnderReview:     0,
		db.ReferralForConsultation: 0,
		db.ReferralComplete:        0,
	}
	mergeCounts(stats.ByStatus, byStatus)
	stats.BySeverity = map[string]int64{db.SeverityLow: 0, db.SeverityMedium: 0, db.SeverityHigh: 0}
	mergeCounts(stats.BySeverity, bySeverity)
	stats.ByGrade = map[string]int64{}
	mergeCounts(stats.ByGrade, byGrade)
	stats.ByCategory = map[string]int64{}
	mergeCounts(stats.ByCategory, byCategory)

	stats.Monthly = make([]monthTrend, 12)
	for i := range stats.Monthly {
		stats.Monthly[i].Month = time.Month(i + 1).String()[:3]
	}
	stats.Quarterly = map[string]int64{"Q1": 0, "Q2": 0, "Q3": 0, "Q4": 0}
	for _, row := range dates {
		month := row.ReferralDate.In(s.loc).Month()
		trend := &stats.Monthly[month-1]
		trend.Total++
		switch row.Status {
		case db.ReferralPending:
			trend.Pending++
		case db.ReferralComplete:
			trend.Complete++
		}
		stats.Quarterly["Q"+strconv.Itoa(int(month-1)/3+1)]++
	}
	return stats, nil
}

func mergeCounts(dest map[string]int64, rows []labelCount) {
	for _, row := range rows {
		label := row.Label
		if label == "" {
			label = "Unspecified"
		}
		dest[label] += row.Count
	}
}
