package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORSConfig はCORSミドルウェアの設定。
type CORSConfig struct {
	// AllowedOrigins はリクエストを許可するオリジン。
	AllowedOrigins []string
	// AllowedMethods は許可するHTTPメソッド。
	AllowedMethods []string
	// AllowedHeaders は許可するリクエストヘッダー。
	AllowedHeaders []string
	// MaxAge はプリフライト結果のキャッシュ秒数。
	MaxAge int
}

// DefaultCORSConfig はフロントエンドのオリジンを1つだけ許可する既定の設定を返す。
func DefaultCORSConfig(frontendURL string) CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{frontendURL},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{HeaderAuthorization, "Content-Type"},
		MaxAge:         86400,
	}
}

// CORS は設定されたオリジンからのクロスオリジンリクエストを許可するGinミドルウェアを返す。
// OPTIONSリクエストはオリジンに関わらず204で終了する。
func CORS(cfg CORSConfig) gin.HandlerFunc {
	originsSet := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		originsSet[o] = struct{}{}
	}
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	maxAge := strconv.Itoa(cfg.MaxAge)

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if _, ok := originsSet[origin]; ok {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", methods)
			c.Header("Access-Control-Allow-Headers", headers)
			c.Header("Access-Control-Max-Age", maxAge)
			c.Header("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
