package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/goat-portal/internal/config"
	"github.com/yourusername/goat-portal/internal/session"
	"github.com/yourusername/goat-portal/internal/users"
	"github.com/yourusername/goat-portal/internal/web"
)

var errStoreDown = errors.New("store down")

// memoryUsers はテスト用のインメモリ UserStore です。
type memoryUsers struct {
	mu     sync.Mutex
	byID   map[string]*users.User
	byName map[string]string

	lookupErr error
	byIDErr   error
	addErr    error
	// hideOnLookup が true の場合、事前確認では常に未登録に見せる
	hideOnLookup bool
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{
		byID:   make(map[string]*users.User),
		byName: make(map[string]string),
	}
}

func (s *memoryUsers) GetUserByUsername(ctx context.Context, userName string) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	if s.hideOnLookup {
		return nil, nil
	}
	id, ok := s.byName[userName]
	if !ok {
		return nil, nil
	}
	return s.byID[id], nil
}

func (s *memoryUsers) GetUserByID(ctx context.Context, id string) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byIDErr != nil {
		return nil, s.byIDErr
	}
	return s.byID[id], nil
}

func (s *memoryUsers) AddUser(ctx context.Context, in users.NewUser) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addErr != nil {
		return nil, s.addErr
	}
	if _, taken := s.byName[in.UserName]; taken {
		return nil, users.ErrUsernameTaken
	}
	user := &users.User{
		ID:        uuid.NewString(),
		UserName:  in.UserName,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Password:  in.PasswordHash,
		Email:     in.Email,
		IsAdmin:   in.IsAdmin,
		CreatedAt: time.Now(),
	}
	s.byID[user.ID] = user
	s.byName[user.UserName] = user.ID
	return user, nil
}

func (s *memoryUsers) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.byID[id]; ok {
		delete(s.byName, user.UserName)
		delete(s.byID, id)
	}
}

type stubScheduler struct {
	mu      sync.Mutex
	userIDs []string
	err     error
}

func (s *stubScheduler) Schedule(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userIDs = append(s.userIDs, userID)
	return s.err
}

type harness struct {
	t         *testing.T
	router    *gin.Engine
	users     *memoryUsers
	scheduler *stubScheduler
	sessions  *session.RedisStore
	mr        *miniredis.Miniredis
}

func newHarness(t *testing.T, opts ...func(*config.Config)) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cfg := &config.Config{
		BcryptCost:        bcrypt.MinCost,
		SessionTTLMinutes: 30,
		GinMode:           gin.TestMode,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	h := &harness{
		t:         t,
		users:     newMemoryUsers(),
		scheduler: &stubScheduler{},
		sessions:  session.NewRedisStore(rdb, time.Duration(cfg.SessionTTLMinutes)*time.Minute),
		mr:        mr,
	}
	manager := NewManager(cfg, h.users, h.sessions, h.scheduler, zap.NewNop())

	store := cookie.NewStore([]byte("test-secret"))
	store.Options(CookieOptions(cfg))

	router := gin.New()
	router.SetHTMLTemplate(web.MustTemplates())
	router.Use(web.ErrorHandler(zap.NewNop()))
	router.Use(sessions.Sessions(SessionCookieName, store))

	router.GET("/", manager.DisplayWelcome)
	router.GET("/login", manager.DisplayLogin)
	router.POST("/login", manager.Login)
	router.GET("/logout", manager.Logout)
	router.GET("/signup", manager.DisplaySignup)
	router.POST("/signup", manager.Signup)
	router.GET("/dashboard", manager.RequireLogin(), manager.DisplayWelcome)
	router.GET("/benefits", manager.RequireAdmin(), manager.DisplayBenefits)
	router.GET("/private", manager.RequireLogin(), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextUserIDKey))
	})

	h.router = router
	return h
}

// addUser はハッシュ化したパスワードでユーザーを登録します。
func (h *harness) addUser(userName, password string, admin bool) *users.User {
	h.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		h.t.Fatalf("failed to hash password: %v", err)
	}
	user, err := h.users.AddUser(context.Background(), users.NewUser{
		UserName:     userName,
		FirstName:    "First-" + userName,
		LastName:     "Last-" + userName,
		PasswordHash: string(hash),
		IsAdmin:      admin,
	})
	if err != nil {
		h.t.Fatalf("failed to add user: %v", err)
	}
	return user
}

// sessionIDs は Redis 上のセッションIDを返します。
func (h *harness) sessionIDs() []string {
	var ids []string
	for _, key := range h.mr.Keys() {
		if strings.HasPrefix(key, "sess:") {
			ids = append(ids, strings.TrimPrefix(key, "sess:"))
		}
	}
	return ids
}

// onlySession は唯一のセッションレコードを返します。
func (h *harness) onlySession() *session.Record {
	h.t.Helper()
	ids := h.sessionIDs()
	if len(ids) != 1 {
		h.t.Fatalf("expected exactly one session, got %d", len(ids))
	}
	record, err := h.sessions.Get(context.Background(), ids[0])
	if err != nil {
		h.t.Fatalf("failed to load session: %v", err)
	}
	return record
}

// browser はクッキーを保持して連続リクエストを送ります。
type browser struct {
	h       *harness
	cookies map[string]*http.Cookie
}

func (h *harness) browser() *browser {
	return &browser{h: h, cookies: make(map[string]*http.Cookie)}
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	b.h.router.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return rec
}

func (b *browser) sessionCookie() string {
	if c, ok := b.cookies[SessionCookieName]; ok {
		return c.Value
	}
	return ""
}

func loginForm(userName, password string) url.Values {
	return url.Values{"userName": {userName}, "password": {password}}
}

func signupForm(userName, password, verify, email string) url.Values {
	return url.Values{
		"userName":  {userName},
		"firstName": {"Alice"},
		"lastName":  {"Liddell"},
		"password":  {password},
		"verify":    {verify},
		"email":     {email},
	}
}

func expectRedirect(t *testing.T, rec *httptest.ResponseRecorder, location string) {
	t.Helper()
	if rec.Code != http.StatusFound {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Location"); got != location {
		t.Fatalf("Location = %q, want %q", got, location)
	}
}
