package server

import (
	"guidance-desk/internal/web"

	"github.com/a-h/templ"
	"github.com/gin-gonic/gin"
)

func (s *Server) handleStudentFormView(c *gin.Context) {
	templ.Handler(web.StudentForm()).ServeHTTP(c.Writer, c.Request)
}

func (s *Server) handleLoginView(c *gin.Context) {
	templ.Handler(web.Login()).ServeHTTP(c.Writer, c.Request)
}

func (s *Server) handleStaffView(c *gin.Context) {
	templ.Handler(web.StaffDashboard()).ServeHTTP(c.Writer, c.Request)
}

func (s *Server) handleAdviserView(c *gin.Context) {
	templ.Handler(web.AdviserDashboard()).ServeHTTP(c.Writer, c.Request)
}

func (s *Server) handleAdminUsersView(c *gin.Context) {
	templ.Handler(web.AdminUsers()).ServeHTTP(c.Writer, c.Request)
}
