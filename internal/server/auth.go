package server

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"guidance-desk/internal/db"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	contextUserKey  = "user"
	contextTokenKey = "token"
)

var staffRoles = []string{db.RoleAdmin, db.RoleCounselor, db.RoleAdviser}

type loginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password" binding:"required"`
}

type profileRequest struct {
	FullName        *string `json:"fullName" binding:"omitempty,max=128,safetext"`
	CurrentPassword string  `json:"currentPassword"`
	NewPassword     string  `json:"newPassword"`
}

var loginMessages = bindMessages{
	"Password": {"required": "password is required"},
}

var profileMessages = bindMessages{
	"FullName": {
		"max":      "full name must be 128 characters or fewer",
		"safetext": "full name contains unsupported characters",
	},
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	// Browsers cannot set headers on websocket upgrades.
	return strings.TrimSpace(c.Query("token"))
}

func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			respondError(c, http.StatusUnauthorized, "authentication required")
			return
		}
		user, err := s.sessions.Lookup(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, errSessionInvalid) {
				s.logger.Error("session lookup failed", zap.Error(err))
				respondError(c, http.StatusInternalServerError, "internal server error")
				return
			}
			respondError(c, http.StatusUnauthorized, "session expired, please sign in again")
			return
		}
		c.Set(contextUserKey, user)
		c.Set(contextTokenKey, token)
		c.Next()
	}
}

func (s *Server) requireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil || !slices.Contains(roles, user.Role) {
			respondError(c, http.StatusForbidden, "you do not have access to this resource")
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *db.User {
	value, ok := c.Get(contextUserKey)
	if !ok {
		return nil
	}
	user, _ := value.(*db.User)
	return user
}

func isCounselingStaff(user *db.User) bool {
	return user != nil && (user.Role == db.RoleAdmin || user.Role == db.RoleCounselor)
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req, loginMessages, "email or username and password are required") {
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.TrimSpace(req.Username)
	if email == "" && username == "" {
		respondError(c, http.StatusBadRequest, "email or username is required")
		return
	}
	query := s.db.WithContext(c.Request.Context())
	if email != "" {
		query = query.Where("email = ?", email)
	} else {
		query = query.Where("username = ?", username)
	}
	var user db.User
	if err := query.Take(&user).Error; err != nil {
		if db.IsNotFound(err) {
			respondError(c, http.StatusUnauthorized, "invalid credentials")
			return
		}
		s.respondStoreError(c, err, "user")
		return
	}
	if !checkPassword(user.PasswordHash, req.Password) {
		s.logger.Info("login rejected", zap.String("user", user.Username))
		respondError(c, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if !user.IsActive {
		respondError(c, http.StatusForbidden, "account is deactivated")
		return
	}
	session, err := s.sessions.Create(c.Request.Context(), user.ID)
	if err != nil {
		s.respondStoreError(c, err, "session")
		return
	}
	s.logger.Info("login", zap.String("user", user.Username), zap.String("role", user.Role))
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"token":     session.Token,
		"expiresAt": session.ExpiresAt,
		"user":      user,
	})
}

func (s *Server) handleLogout(c *gin.Context) {
	if err := s.sessions.Delete(c.Request.Context(), c.GetString(contextTokenKey)); err != nil {
		s.respondStoreError(c, err, "session")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleMe(c *gin.Context) {
	respondData(c, http.StatusOK, currentUser(c))
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	var req profileRequest
	if !bindJSON(c, &req, profileMessages, "invalid profile update") {
		return
	}
	user := currentUser(c)
	updates := map[string]any{}
	if req.FullName != nil {
		name, err := validateText("full name", *req.FullName, maxNameLength)
		if err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		updates["full_name"] = name
	}
	if req.NewPassword != "" {
		if !checkPassword(user.PasswordHash, req.CurrentPassword) {
			respondError(c, http.StatusBadRequest, "current password is incorrect")
			return
		}
		if err := validatePassword(req.NewPassword); err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		hash, err := hashPassword(req.NewPassword)
		if err != nil {
			s.respondStoreError(c, err, "password")
			return
		}
		updates["password_hash"] = hash
	}
	if len(updates) == 0 {
		respondError(c, http.StatusBadRequest, "nothing to update")
		return
	}
	if err := s.db.WithContext(c.Request.Context()).Model(user).Updates(updates).Error; err != nil {
		s.respondStoreError(c, err, "user")
		return
	}
	respondData(c, http.StatusOK, user)
}
