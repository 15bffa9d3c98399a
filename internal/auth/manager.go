// Package auth はログイン・サインアップ・ログアウトとアクセス制御を提供します。
package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/goat-portal/internal/config"
	"github.com/yourusername/goat-portal/internal/session"
	"github.com/yourusername/goat-portal/internal/users"
)

const (
	SessionCookieName = "goat_session"
	sessionKeyID      = "sid"
)

// ContextUserIDKey はログイン済みユーザーIDを gin.Context で共有するためのキーです。
const ContextUserIDKey = "auth.userId"

// ContextUserKey は RequireAdmin が取得したユーザーを共有するためのキーです。
const ContextUserKey = "auth.user"

// UserStore はユーザー資格情報の参照と登録を行います。
type UserStore interface {
	GetUserByUsername(ctx context.Context, userName string) (*users.User, error)
	GetUserByID(ctx context.Context, id string) (*users.User, error)
	AddUser(ctx context.Context, in users.NewUser) (*users.User, error)
}

// AllocationScheduler はサインアップしたユーザーの資産配分を予約します。
type AllocationScheduler interface {
	Schedule(ctx context.Context, userID string) error
}

// Manager は認証処理と依存をまとめた構造体です。
type Manager struct {
	users         UserStore
	sessions      session.Store
	allocations   AllocationScheduler
	logger        *zap.Logger
	bcryptCost    int
	genericErrors bool
}

// NewManager は認証マネージャーを作成します。allocations は nil でも構いません。
func NewManager(cfg *config.Config, userStore UserStore, sessionStore session.Store, allocations AllocationScheduler, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Manager{
		users:         userStore,
		sessions:      sessionStore,
		allocations:   allocations,
		logger:        logger,
		bcryptCost:    cost,
		genericErrors: cfg.LoginGenericErrors,
	}
}

// CookieOptions はセッションクッキーのオプションを返します。
func CookieOptions(cfg *config.Config) sessions.Options {
	return sessions.Options{
		Path:     "/",
		MaxAge:   cfg.SessionTTLMinutes * 60,
		HttpOnly: true,
		Secure:   cfg.GinMode == gin.ReleaseMode,
		SameSite: http.SameSiteLaxMode,
	}
}

// currentSession はクッキーのセッションIDに対応するレコードを返します。
// クッキーがない、またはレコードが期限切れの場合は nil を返します。
func (m *Manager) currentSession(c *gin.Context) (*session.Record, error) {
	id, _ := sessions.Default(c).Get(sessionKeyID).(string)
	if id == "" {
		return nil, nil
	}
	record, err := m.sessions.Get(c.Request.Context(), id)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return record, nil
}

// regenerate は既存セッションを破棄して新しいIDを発行し、userID を設定します。
func (m *Manager) regenerate(c *gin.Context, userID string) error {
	ctx := c.Request.Context()
	cookie := sessions.Default(c)

	if old, _ := cookie.Get(sessionKeyID).(string); old != "" {
		if err := m.sessions.Delete(ctx, old); err != nil {
			return err
		}
	}

	id, err := session.NewID()
	if err != nil {
		return fmt.Errorf("generate session id: %w", err)
	}
	if err := m.sessions.Save(ctx, id, &session.Record{UserID: userID}); err != nil {
		return err
	}

	cookie.Set(sessionKeyID, id)
	if err := cookie.Save(); err != nil {
		return fmt.Errorf("save session cookie: %w", err)
	}
	return nil
}

// destroy はサーバー側レコードとクッキーを削除します。
func (m *Manager) destroy(c *gin.Context) error {
	cookie := sessions.Default(c)
	id, _ := cookie.Get(sessionKeyID).(string)

	var storeErr error
	if id != "" {
		storeErr = m.sessions.Delete(c.Request.Context(), id)
	}

	cookie.Clear()
	cookie.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := cookie.Save(); err != nil {
		return fmt.Errorf("clear session cookie: %w", err)
	}
	return storeErr
}

// fail はエラーを web.ErrorHandler に委ねます。
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func dashboardView(user *users.User, userID string) gin.H {
	return gin.H{
		"userId":    userID,
		"userName":  user.UserName,
		"firstName": user.FirstName,
		"lastName":  user.LastName,
		"email":     user.Email,
		"isAdmin":   user.IsAdmin,
	}
}
