package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

func GetPaginationParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	return page, pageSize
}

// PageMeta is the pagination envelope returned by every list endpoint
type PageMeta struct {
	Total       int64 `json:"total"`
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	TotalPage   int   `json:"total_page"`
}

func NewPageMeta(total int64, page, pageSize int) PageMeta {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return PageMeta{
		Total:       total,
		CurrentPage: page,
		PerPage:     pageSize,
		TotalPage:   totalPages,
	}
}
