package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorPage はエラーページのテンプレート名です。
const ErrorPage = "error_template.html"

const genericErrorMessage = "An unexpected error occurred. Please try again later."

// RequestLogger はリクエストごとにアクセスログを出力します。
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}

// ErrorHandler はハンドラーが c.Error で登録したエラーをログに残し、
// 汎用エラーページを 500 で返します。エラー内容は利用者に見せません。
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		for _, e := range c.Errors {
			logger.Error("request failed",
				zap.String("path", c.Request.URL.Path),
				zap.Error(e.Err),
			)
		}
		if c.Writer.Written() {
			return
		}
		c.HTML(http.StatusInternalServerError, ErrorPage, gin.H{
			"error": genericErrorMessage,
		})
	}
}
