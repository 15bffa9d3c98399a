package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/yourusername/goat-portal/internal/auth"
	"github.com/yourusername/goat-portal/internal/config"
	"github.com/yourusername/goat-portal/internal/jobs"
	"github.com/yourusername/goat-portal/internal/users"
)

type allocationScheduler struct {
	manager *jobs.Manager
}

func (s *allocationScheduler) Schedule(ctx context.Context, userID string) error {
	_, err := s.manager.Enqueue(ctx, &jobs.TaskPayload{UserID: userID})
	return err
}

type allocationReader interface {
	GetAllocation(ctx context.Context, userID string) (*jobs.Allocation, error)
}

func setupJobs(cfg *config.Config, rdb *redis.Client, logger *zap.Logger) (*jobs.Manager, error) {
	store := jobs.NewStore(rdb, 0)
	return jobs.NewManager(cfg, store, logger.Named("jobs"))
}

// setupUserStore は USER_STORE に応じたユーザーストアを返します。
// 返り値の関数で接続を閉じます。
func setupUserStore(ctx context.Context, cfg *config.Config, rdb *redis.Client, logger *zap.Logger) (auth.UserStore, func(), error) {
	var (
		store   auth.UserStore
		closeFn = func() {}
	)

	switch cfg.UserStore {
	case config.UserStoreRedis:
		store = users.NewRedisStore(rdb)
	default:
		connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()

		db, err := users.OpenPostgres(connectCtx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := users.Migrate(connectCtx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		store = users.NewPostgresStore(db)
		closeFn = func() { db.Close() }
	}

	if cfg.AdminUsername != "" {
		created, err := users.EnsureAdmin(ctx, store, cfg.AdminUsername, cfg.AdminPasswordHash)
		if err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("ensure admin: %w", err)
		}
		if created {
			logger.Info("admin user created", zap.String("userName", cfg.AdminUsername))
		}
	}
	return store, closeFn, nil
}

// allocationHandler はログイン中ユーザーの資産配分を返します。
func allocationHandler(reader allocationReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(auth.ContextUserIDKey)
		allocation, err := reader.GetAllocation(c.Request.Context(), userID)
		if err != nil {
			_ = c.Error(fmt.Errorf("get allocation: %w", err))
			c.Abort()
			return
		}
		if allocation == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    "ALLOCATION_NOT_FOUND",
				"message": "allocation is not ready yet",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"userId":    allocation.UserID,
			"stocks":    allocation.Stocks,
			"funds":     allocation.Funds,
			"bonds":     allocation.Bonds,
			"updatedAt": allocation.UpdatedAt,
		})
	}
}
