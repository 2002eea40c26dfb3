package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	defaultShipmentLimit = 100
	defaultEmailLimit    = 50
)

// queryInt reads a positive integer query parameter. Missing, malformed or
// non-positive values yield def.
func queryInt(c *gin.Context, key string, def int) int {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}
