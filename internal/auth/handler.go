package auth

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/goat-portal/internal/users"
)

// ログイン失敗時のメッセージ
const (
	msgLoginUnknownUser = "Invalid username"
	msgLoginBadPassword = "Invalid password"
	msgLoginInvalid     = "Invalid username or password"
)

const (
	pageLogin     = "login.html"
	pageSignup    = "signup.html"
	pageDashboard = "dashboard.html"
	pageBenefits  = "benefits.html"
)

type loginRequest struct {
	UserName string `form:"userName" json:"userName"`
	Password string `form:"password" json:"password"`
}

// DisplayLogin は GET /login のハンドラーです。
func (m *Manager) DisplayLogin(c *gin.Context) {
	c.HTML(http.StatusOK, pageLogin, gin.H{
		"userName":   "",
		"password":   "",
		"loginError": "",
	})
}

// Login は POST /login のハンドラーです。
func (m *Manager) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		m.renderLoginError(c, http.StatusBadRequest, "", msgLoginUnknownUser)
		return
	}

	user, err := m.users.GetUserByUsername(c.Request.Context(), req.UserName)
	if err != nil {
		fail(c, err)
		return
	}
	if user == nil {
		m.renderLoginError(c, http.StatusOK, req.UserName, msgLoginUnknownUser)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			m.renderLoginError(c, http.StatusOK, req.UserName, msgLoginBadPassword)
			return
		}
		fail(c, fmt.Errorf("compare password for %s: %w", user.ID, err))
		return
	}

	if err := m.regenerate(c, user.ID); err != nil {
		fail(c, err)
		return
	}

	m.logger.Info("login succeeded", zap.String("userId", user.ID), zap.Bool("admin", user.IsAdmin))
	if user.IsAdmin {
		c.Redirect(http.StatusFound, "/benefits")
		return
	}
	c.Redirect(http.StatusFound, "/dashboard")
}

func (m *Manager) renderLoginError(c *gin.Context, status int, userName, message string) {
	if m.genericErrors {
		message = msgLoginInvalid
	}
	c.HTML(status, pageLogin, gin.H{
		"userName":   userName,
		"password":   "",
		"loginError": message,
	})
}

// Logout は GET /logout のハンドラーです。削除に失敗してもトップへ戻します。
func (m *Manager) Logout(c *gin.Context) {
	if err := m.destroy(c); err != nil {
		m.logger.Warn("failed to destroy session", zap.Error(err))
	}
	c.Redirect(http.StatusFound, "/")
}

// DisplaySignup は GET /signup のハンドラーです。
func (m *Manager) DisplaySignup(c *gin.Context) {
	c.HTML(http.StatusOK, pageSignup, signupErrors{}.view(&signupRequest{}))
}

// Signup は POST /signup のハンドラーです。
func (m *Manager) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBind(&req); err != nil {
		c.HTML(http.StatusBadRequest, pageSignup, signupErrors{UserName: msgInvalidUserName}.view(&req))
		return
	}

	if errs, ok := validateSignup(&req); !ok {
		c.HTML(http.StatusOK, pageSignup, errs.view(&req))
		return
	}

	ctx := c.Request.Context()
	existing, err := m.users.GetUserByUsername(ctx, req.UserName)
	if err != nil {
		fail(c, err)
		return
	}
	if existing != nil {
		c.HTML(http.StatusOK, pageSignup, signupErrors{UserName: msgUserNameInUse}.view(&req))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), m.bcryptCost)
	if err != nil {
		fail(c, fmt.Errorf("hash password: %w", err))
		return
	}

	user, err := m.users.AddUser(ctx, users.NewUser{
		UserName:     req.UserName,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: string(hash),
		Email:        req.Email,
	})
	if err != nil {
		// 事前確認の後に別リクエストが同じ名前を登録した
		if errors.Is(err, users.ErrUsernameTaken) {
			c.HTML(http.StatusOK, pageSignup, signupErrors{UserName: msgUserNameInUse}.view(&req))
			return
		}
		fail(c, err)
		return
	}

	if m.allocations != nil {
		if err := m.allocations.Schedule(ctx, user.ID); err != nil {
			m.logger.Warn("failed to schedule allocation", zap.String("userId", user.ID), zap.Error(err))
		}
	}

	if err := m.regenerate(c, user.ID); err != nil {
		fail(c, err)
		return
	}

	m.logger.Info("signup succeeded", zap.String("userId", user.ID))
	c.HTML(http.StatusOK, pageDashboard, dashboardView(user, user.ID))
}

// DisplayWelcome は GET / と GET /dashboard のハンドラーです。
func (m *Manager) DisplayWelcome(c *gin.Context) {
	record, err := m.currentSession(c)
	if err != nil {
		fail(c, err)
		return
	}
	if !record.Authenticated() {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	user, err := m.users.GetUserByID(c.Request.Context(), record.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	if user == nil {
		// セッションだけが残っている
		if err := m.destroy(c); err != nil {
			m.logger.Warn("failed to destroy orphan session", zap.Error(err))
		}
		c.Redirect(http.StatusFound, "/login")
		return
	}

	c.HTML(http.StatusOK, pageDashboard, dashboardView(user, record.UserID))
}

// DisplayBenefits は GET /benefits のハンドラーです。RequireAdmin の後に置きます。
func (m *Manager) DisplayBenefits(c *gin.Context) {
	user, ok := c.Get(ContextUserKey)
	admin, _ := user.(*users.User)
	if !ok || admin == nil {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	c.HTML(http.StatusOK, pageBenefits, gin.H{
		"userName": admin.UserName,
	})
}
