package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequireLogin は認証済みセッションを要求するミドルウェアを返します。
// ユーザーがストアに存在するかまでは確認しません。
func (m *Manager) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		record, err := m.currentSession(c)
		if err != nil {
			fail(c, err)
			return
		}
		if !record.Authenticated() {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Set(ContextUserIDKey, record.UserID)
		c.Next()
	}
}

// RequireAdmin は管理者のみを通すミドルウェアを返します。
// ユーザーが見つからない場合も管理者でない場合も同じく /login へ戻します。
func (m *Manager) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		record, err := m.currentSession(c)
		if err != nil {
			fail(c, err)
			return
		}
		if !record.Authenticated() {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}

		user, err := m.users.GetUserByID(c.Request.Context(), record.UserID)
		if err != nil {
			m.logger.Warn("admin check failed", zap.String("userId", record.UserID), zap.Error(err))
		}
		if err != nil || user == nil || !user.IsAdmin {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}

		c.Set(ContextUserIDKey, record.UserID)
		c.Set(ContextUserKey, user)
		c.Next()
	}
}
