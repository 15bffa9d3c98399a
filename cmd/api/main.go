// Package main はWebサーバーのエントリーポイントです。
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/yourusername/goat-portal/internal/auth"
	"github.com/yourusername/goat-portal/internal/config"
	"github.com/yourusername/goat-portal/internal/logging"
	"github.com/yourusername/goat-portal/internal/session"
	"github.com/yourusername/goat-portal/internal/web"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Dev: cfg.LogDev})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	userStore, closeUsers, err := setupUserStore(ctx, cfg, rdb, logger)
	if err != nil {
		return err
	}
	defer closeUsers()

	jobManager, err := setupJobs(cfg, rdb, logger)
	if err != nil {
		return fmt.Errorf("setup jobs: %w", err)
	}
	jobManager.StartWorkers()

	sessionStore := session.NewRedisStore(rdb, time.Duration(cfg.SessionTTLMinutes)*time.Minute)
	authManager := auth.NewManager(cfg, userStore, sessionStore, &allocationScheduler{manager: jobManager}, logger)

	router := newRouter(cfg, logger)
	setupRoutes(router, authManager, jobManager)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}
	go func() {
		logger.Info("starting server", zap.String("addr", srv.Addr), zap.String("mode", cfg.GinMode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown failed", zap.Error(err))
	}
	if err := jobManager.Shutdown(shutdownCtx); err != nil {
		logger.Warn("job manager shutdown failed", zap.Error(err))
	}
	return nil
}

// newRouter はミドルウェアを設定した gin.Engine を返します。
func newRouter(cfg *config.Config, logger *zap.Logger) *gin.Engine {
	gin.SetMode(cfg.GinMode)

	router := gin.New()
	router.Use(web.RequestLogger(logger), gin.Recovery(), web.ErrorHandler(logger))
	router.SetHTMLTemplate(web.MustTemplates())

	// クッキーには署名付きのセッションIDだけを保存する
	secret := cfg.SessionSecret
	if secret == "" {
		logger.Warn("SESSION_SECRET is empty; using an insecure development key")
		secret = "insecure-development-secret"
	}
	store := cookie.NewStore([]byte(secret))
	store.Options(auth.CookieOptions(cfg))
	router.Use(sessions.Sessions(auth.SessionCookieName, store))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(cfg.CORSAllowedOrigins, ",")
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	return router
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "goat-portal",
		"version": "0.1.0",
	})
}

// setupRoutes は画面と認証まわりの配線を行います。
func setupRoutes(router *gin.Engine, authManager *auth.Manager, allocations allocationReader) {
	router.GET("/health", handleHealth)

	router.GET("/", authManager.DisplayWelcome)
	router.GET("/login", authManager.DisplayLogin)
	router.POST("/login", authManager.Login)
	router.GET("/logout", authManager.Logout)
	router.GET("/signup", authManager.DisplaySignup)
	router.POST("/signup", authManager.Signup)

	loggedIn := router.Group("")
	loggedIn.Use(authManager.RequireLogin())
	{
		loggedIn.GET("/dashboard", authManager.DisplayWelcome)
		loggedIn.GET("/allocations", allocationHandler(allocations))
	}

	admin := router.Group("")
	admin.Use(authManager.RequireAdmin())
	{
		admin.GET("/benefits", authManager.DisplayBenefits)
	}
}
