package server

import (
	"strconv"
	"strings"

	"guidance-desk/internal/web"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// pageRequest is the ?page= and ?limit= pair. per_page is accepted as an
// alias for limit.
type pageRequest struct {
	Page  int
	Limit int
}

func readPageRequest(c *gin.Context) pageRequest {
	req := pageRequest{Page: 1, Limit: defaultPerPage}
	if n := positiveQuery(c, "page"); n > 0 {
		req.Page = n
	}
	for _, key := range []string{"limit", "per_page"} {
		if n := positiveQuery(c, key); n > 0 {
			req.Limit = min(n, maxPerPage)
			break
		}
	}
	return req
}

func positiveQuery(c *gin.Context, key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(c.Query(key)))
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

// buildPaginationData clamps page into [1, totalPages]; an empty result is one
// empty page.
func buildPaginationData(basePath string, page, perPage int, total int64) web.PaginationData {
	perPage = max(perPage, 1)
	totalPages := max(int((total+int64(perPage)-1)/int64(perPage)), 1)
	page = min(max(page, 1), totalPages)
	data := web.PaginationData{
		BasePath:   basePath,
		Page:       page,
		PerPage:    perPage,
		Total:      int(total),
		TotalPages: totalPages,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
	}
	if data.HasPrev {
		data.PrevPage = page - 1
	}
	if data.HasNext {
		data.NextPage = page + 1
	}
	return data
}

// paginate counts query, then applies limit/offset for the requested page.
func paginate(c *gin.Context, query *gorm.DB) (*gorm.DB, web.PaginationData, error) {
	req := readPageRequest(c)
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, web.PaginationData{}, err
	}
	data := buildPaginationData(c.Request.URL.Path, req.Page, req.Limit, total)
	return query.Limit(data.PerPage).Offset((data.Page - 1) * data.PerPage), data, nil
}
