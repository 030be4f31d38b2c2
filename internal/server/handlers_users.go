package server

import (
	"net/http"
	"strings"

	"guidance-desk/internal/db"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type createUserRequest struct {
	Username   string `json:"username" binding:"required,max=64,alphanum"`
	Email      string `json:"email" binding:"required,email,max=128"`
	FullName   string `json:"fullName" binding:"required,max=128,safetext"`
	Password   string `json:"password" binding:"required"`
	Role       string `json:"role" binding:"required,role"`
	Department string `json:"department" binding:"max=128,safetext"`
}

type updateUserRequest struct {
	Email      *string `json:"email" binding:"omitempty,email,max=128"`
	FullName   *string `json:"fullName" binding:"omitempty,max=128,safetext"`
	Password   *string `json:"password"`
	Role       *string `json:"role" binding:"omitempty,role"`
	Department *string `json:"department" binding:"omitempty,max=128,safetext"`
	IsActive   *bool   `json:"isActive"`
}

var userMessages = bindMessages{
	"Username": {"required": "username is required", "alphanum": "username must be letters and digits only"},
	"Email":    {"required": "email is required", "email": "email is not valid"},
	"FullName": {"required": "full name is required", "safetext": "full name contains unsupported characters"},
	"Password": {"required": "password is required"},
	"Role":     {"required": "role is required", "role": "role must be admin, counselor or adviser"},
}

func (s *Server) handleListUsers(c *gin.Context) {
	query := s.db.WithContext(c.Request.Context()).Model(&db.User{})
	if role := strings.TrimSpace(c.Query("role")); role != "" {
		query = query.Where("role = ?", role)
	}
	query, page, err := paginate(c, query)
	if err != nil {
		s.respondStoreError(c, err, "users")
		return
	}
	var users []db.User
	if err := query.Order("full_name, id").Find(&users).Error; err != nil {
		s.respondStoreError(c, err, "users")
		return
	}
	respondList(c, users, page)
}

func (s *Server) handleListAdvisers(c *gin.Context) {
	var advisers []db.User
	err := s.db.WithContext(c.Request.Context()).
		Where("role = ? AND is_active = ?", db.RoleAdviser, true).
		Order("full_name").Find(&advisers).Error
	if err != nil {
		s.respondStoreError(c, err, "advisers")
		return
	}
	respondList(c, advisers, buildPaginationData(c.Request.URL.Path, 1, len(advisers), int64(len(advisers))))
}

func (s *Server) loadUser(c *gin.Context) (*db.User, bool) {
	id, ok := bindID(c)
	if !ok {
		return nil, false
	}
	var user db.User
	if err := s.db.WithContext(c.Request.Context()).Take(&user, id).Error; err != nil {
		s.respondStoreError(c, err, "user")
		return nil, false
	}
	return &user, true
}

func (s *Server) handleGetUser(c *gin.Context) {
	user, ok := s.loadUser(c)
	if !ok {
		return
	}
	respondData(c, http.StatusOK, user)
}

func (s *Server) handleCreateUser(c *gin.Context) {
	var req createUserRequest
	if !bindJSON(c, &req, userMessages, "invalid user") {
		return
	}
	if err := validatePassword(req.Password); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	hash, err := hashPassword(req.Password)
	if err != nil {
		s.respondStoreError(c, err, "user")
		return
	}
	user := db.User{
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		FullName:     normalizeText(req.FullName),
		PasswordHash: hash,
		Role:         req.Role,
		Department:   normalizeText(req.Department),
		IsActive:     true,
	}
	if err := s.db.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		s.respondStoreError(c, err, "user")
		return
	}
	s.logger.Info("user created", zap.String("user", user.Username), zap.String("role", user.Role))
	respondData(c, http.StatusCreated, user)
}

func (s *Server) handleUpdateUser(c *gin.Context) {
	var req updateUserRequest
	if !bindJSON(c, &req, userMessages, "invalid user update") {
		return
	}
	target, ok := s.loadUser(c)
	if !ok {
		return
	}
	actor := currentUser(c)
	updates := map[string]any{}
	if req.Email != nil {
		updates["email"] = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.FullName != nil {
		updates["full_name"] = normalizeText(*req.FullName)
	}
	if req.Department != nil {
		updates["department"] = normalizeText(*req.Department)
	}
	if req.Role != nil {
		if target.ID == actor.ID && *req.Role != db.RoleAdmin {
			respondError(c, http.StatusBadRequest, "you cannot remove your own admin role")
			return
		}
		updates["role"] = *req.Role
	}
	if req.IsActive != nil {
		if target.ID == actor.ID && !*req.IsActive {
			respondError(c, http.StatusBadRequest, "you cannot deactivate your own account")
			return
		}
		updates["is_active"] = *req.IsActive
	}
	if req.Password != nil {
		if err := validatePassword(*req.Password); err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		hash, err := hashPassword(*req.Password)
		if err != nil {
			s.respondStoreError(c, err, "user")
			return
		}
		updates["password_hash"] = hash
	}
	if len(updates) == 0 {
		respondError(c, http.StatusBadRequest, "nothing to update")
		return
	}
	ctx := c.Request.Context()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(target).Updates(updates).Error; err != nil {
			return err
		}
		_, revoke := updates["password_hash"]
		if req.IsActive != nil && !*req.IsActive {
			revoke = true
		}
		if revoke {
			return tx.Where("user_id = ?", target.ID).Delete(&db.Session{}).Error
		}
		return nil
	})
	if err != nil {
		s.respondStoreError(c, err, "user")
		return
	}
	respondData(c, http.StatusOK, target)
}

func (s *Server) handleDeleteUser(c *gin.Context) {
	target, ok := s.loadUser(c)
	if !ok {
		return
	}
	if target.ID == currentUser(c).ID {
		respondError(c, http.StatusBadRequest, "you cannot delete your own account")
		return
	}
	ctx := c.Request.Context()
	if err := s.sessions.DeleteForUser(ctx, target.ID); err != nil {
		s.respondStoreError(c, err, "user")
		return
	}
	if err := s.db.WithContext(ctx).Delete(target).Error; err != nil {
		s.respondStoreError(c, err, "user")
		return
	}
	s.logger.Info("user deleted", zap.String("user", target.Username))
	c.JSON(http.StatusOK, gin.H{"success": true})
}
