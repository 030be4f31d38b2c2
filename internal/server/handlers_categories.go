package server

import (
	"net/http"

	"guidance-desk/internal/db"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type categoryRequest struct {
	Name        string `json:"name" binding:"required,max=64,safetext"`
	Description string `json:"description" binding:"max=280,safetext"`
}

var categoryMessages = bindMessages{
	"Name": {
		"required": "category name is required",
		"max":      "category name must be 64 characters or fewer",
		"safetext": "category name contains unsupported characters",
	},
	"Description": {"max": "description must be 280 characters or fewer"},
}

func (s *Server) handleListCategories(c *gin.Context) {
	var categories []db.Category
	if err := s.db.WithContext(c.Request.Context()).Order("name").Find(&categories).Error; err != nil {
		s.respondStoreError(c, err, "categories")
		return
	}
	respondList(c, categories, buildPaginationData(c.Request.URL.Path, 1, len(categories), int64(len(categories))))
}

func (s *Server) handleCreateCategory(c *gin.Context) {
	var req categoryRequest
	if !bindJSON(c, &req, categoryMessages, "invalid category") {
		return
	}
	name, err := validateText("category name", req.Name, maxCategoryLength)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	category := db.Category{Name: name, Description: normalizeText(req.Description)}
	if err := s.db.WithContext(c.Request.Context()).Create(&category).Error; err != nil {
		s.respondStoreError(c, err, "category")
		return
	}
	respondData(c, http.StatusCreated, category)
}

func (s *Server) handleUpdateCategory(c *gin.Context) {
	var req categoryRequest
	if !bindJSON(c, &req, categoryMessages, "invalid category") {
		return
	}
	id, ok := bindID(c)
	if !ok {
		return
	}
	name, err := validateText("category name", req.Name, maxCategoryLength)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	var category db.Category
	if err := s.db.WithContext(c.Request.Context()).Take(&category, id).Error; err != nil {
		s.respondStoreError(c, err, "category")
		return
	}
	category.Name = name
	category.Description = normalizeText(req.Description)
	if err := s.db.WithContext(c.Request.Context()).Save(&category).Error; err != nil {
		s.respondStoreError(c, err, "category")
		return
	}
	respondData(c, http.StatusOK, category)
}

// handleDeleteCategory detaches referrals before removing the category.
func (s *Server) handleDeleteCategory(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}
	err := s.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var category db.Category
		if err := tx.Take(&category, id).Error; err != nil {
			return err
		}
		if err := tx.Model(&db.Referral{}).Where("category_id = ?", id).Update("category_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&category).Error
	})
	if err != nil {
		s.respondStoreError(c, err, "category")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
