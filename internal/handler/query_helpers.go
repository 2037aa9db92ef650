package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

func parseBoolQuery(c *gin.Context, key string) *bool {
	switch strings.ToLower(c.Query(key)) {
	case "true":
		val := true
		return &val
	case "false":
		val := false
		return &val
	}
	return nil
}

func parsePageQuery(c *gin.Context) (page, size int) {
	page = 1
	size = 20
	if parsed, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && parsed > 0 {
		page = parsed
	}
	if parsed, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil && parsed > 0 {
		size = parsed
	}
	return page, size
}
