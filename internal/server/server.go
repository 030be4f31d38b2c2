package server

import (
	"context"
	"net/http"
	"time"

	"guidance-desk/internal/config"
	"guidance-desk/internal/db"
	"guidance-desk/internal/logging"
	"guidance-desk/internal/prescription"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Server struct {
	db            *gorm.DB
	cfg           config.Config
	loc           *time.Location
	logger        *zap.Logger
	sessions      *sessionStore
	dashboard     *dashboardHub
	publicLimiter *rateLimiter
	metrics       *metrics
	prescriptions *prescription.Service
	now           func() time.Time
}

// Options carries the collaborators New cannot build from config alone.
type Options struct {
	Prescriptions *prescription.Service
	Logger        *zap.Logger
	Now           func() time.Time
}

func New(conn *gorm.DB, cfg config.Config, opts Options) *Server {
	registerValidators()
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := logging.OrNop(opts.Logger)
	srv := &Server{
		db:            conn,
		cfg:           cfg,
		loc:           cfg.Location(),
		logger:        logger,
		sessions:      newSessionStore(conn, cfg.SessionTTL(), now),
		dashboard:     newDashboardHub(logger),
		publicLimiter: newRateLimiter(cfg.PublicFormRatePerMinute, now),
		metrics:       newMetrics(),
		prescriptions: opts.Prescriptions,
		now:           now,
	}
	srv.dashboard.onSize = func(n int) { srv.metrics.wsClients.Set(float64(n)) }
	return srv
}

// Handler builds the router. gin's mode is process-wide and set by the caller.
func (s *Server) Handler() http.Handler {
	router := gin.New()
	router.Use(s.recoverPanics(), s.logRequests(), s.metrics.middleware())

	router.GET("/", s.handleStudentFormView)
	router.GET("/login", s.handleLoginView)
	router.GET("/staff", s.handleStaffView)
	router.GET("/adviser", s.handleAdviserView)
	router.GET("/admin/users", s.handleAdminUsersView)
	router.Static("/static", "static")
	router.GET("/healthz", s.handleHealth)
	router.GET("/metrics", gin.WrapH(s.metrics.handler()))
	router.GET("/ws/dashboard", s.requireAuth(), s.requireRole(staffRoles...), s.handleDashboardWebsocket)

	api := router.Group("/api")
	api.POST("/auth/login", s.handleLogin)
	api.POST("/public-referrals", s.limitPublicForm(), s.handlePublicReferral)

	authed := api.Group("", s.requireAuth())
	authed.POST("/auth/logout", s.handleLogout)
	authed.GET("/auth/me", s.handleMe)
	authed.PUT("/auth/profile", s.handleUpdateProfile)

	counseling := authed.Group("", s.requireRole(db.RoleAdmin, db.RoleCounselor))
	counseling.GET("/student-submissions", s.handleListSubmissions)
	counseling.GET("/student-submissions/:id", s.handleGetSubmission)
	counseling.PUT("/student-submissions/:id", s.handleUpdateSubmission)
	counseling.DELETE("/student-submissions/:id", s.handleDeleteSubmission)
	counseling.POST("/student-submissions/:id/escalate", s.handleEscalateSubmission)

	counseling.POST("/ai-prescriptions/prescribe", s.handlePrescribe)
	counseling.GET("/ai-prescriptions/check-availability", s.handleCheckAvailability)
	counseling.GET("/ai-prescriptions/history", s.handlePrescriptionHistory)
	counseling.GET("/ai-prescriptions/this-week", s.handleThisWeekPrescription)

	counseling.GET("/advisers", s.handleListAdvisers)
	counseling.DELETE("/referrals/:id", s.handleDeleteReferral)
	counseling.POST("/categories", s.handleCreateCategory)
	counseling.PUT("/categories/:id", s.handleUpdateCategory)
	counseling.DELETE("/categories/:id", s.handleDeleteCategory)
	counseling.POST("/students", s.handleCreateStudent)
	counseling.PUT("/students/:id", s.handleUpdateStudent)

	staff := authed.Group("", s.requireRole(staffRoles...))
	staff.GET("/referrals", s.handleListReferrals)
	staff.GET("/referrals/stats", s.handleReferralStats)
	staff.POST("/referrals", s.handleCreateReferral)
	staff.GET("/referrals/:id", s.handleGetReferral)
	staff.PUT("/referrals/:id", s.handleUpdateReferral)
	staff.GET("/students", s.handleListStudents)
	staff.GET("/students/:id", s.handleGetStudent)
	staff.GET("/categories", s.handleListCategories)

	admin := authed.Group("", s.requireRole(db.RoleAdmin))
	admin.DELETE("/students/:id", s.handleDeleteStudent)
	admin.GET("/users", s.handleListUsers)
	admin.POST("/users", s.handleCreateUser)
	admin.GET("/users/:id", s.handleGetUser)
	admin.PUT("/users/:id", s.handleUpdateUser)
	admin.DELETE("/users/:id", s.handleDeleteUser)

	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	status := http.StatusOK
	database := "ok"
	if s.db == nil {
		database = "unconfigured"
	} else if sqlDB, err := s.db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		status = http.StatusServiceUnavailable
		database = "unreachable"
	}
	c.JSON(status, gin.H{"status": http.StatusText(status), "database": database})
}

// PurgeSessions removes expired sessions every interval until ctx is done.
func (s *Server) PurgeSessions(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.sessions.PurgeExpired(ctx)
			if err != nil {
				s.logger.Warn("session purge failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				s.logger.Info("expired sessions purged", zap.Int64("count", removed))
			}
		}
	}
}
