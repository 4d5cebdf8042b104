package httpapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"storefront-client/internal/domain/auth"
)

// requestedTTL 讀取 client 透過 header 指定的 token 壽命（秒）。
func requestedTTL(c *gin.Context) auth.TokenTTL {
	return auth.TokenTTL{
		Access:  parseSeconds(c.GetHeader(headerExpireAccessToken)),
		Refresh: parseSeconds(c.GetHeader(headerExpireRefreshToken)),
	}
}

func parseSeconds(v string) time.Duration {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

func parseIntDefault(v string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}
