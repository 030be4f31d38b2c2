package server

import (
	"net/http"

	"guidance-desk/internal/db"
	"guidance-desk/internal/web"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   message,
	})
}

func respondData(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondList[T any](c *gin.Context, items []T, page web.PaginationData) {
	if items == nil {
		items = []T{}
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       items,
		"count":      len(items),
		"pagination": page,
	})
}

// respondStoreError maps gorm errors onto 404/409/500. Internal details are
// logged, never returned.
func (s *Server) respondStoreError(c *gin.Context, err error, what string) {
	switch {
	case db.IsNotFound(err):
		respondError(c, http.StatusNotFound, what+" not found")
	case db.IsDuplicateKey(err):
		respondError(c, http.StatusConflict, what+" already exists")
	default:
		s.logger.Error("store error", zap.String("resource", what), zap.String("path", c.FullPath()), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "internal server error")
	}
}
