package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// queryList collects a repeated or comma separated query parameter.
func queryList(c *gin.Context, key string) []string {
	var values []string
	for _, raw := range c.QueryArray(key) {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				values = append(values, part)
			}
		}
	}
	return values
}
