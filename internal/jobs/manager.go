package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/yourusername/goat-portal/internal/config"
)

const (
	taskTypeAllocation = "allocation:prepare"
	queueAllocations   = "allocations"
)

// Manager は資産配分ジョブの投入と実行を担います。
type Manager struct {
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
	store  *Store
	logger *zap.Logger
	intn   func(int) int
}

// NewManager は Manager を初期化します。
func NewManager(cfg *config.Config, store *Store, logger *zap.Logger) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if store == nil {
		return nil, errors.New("store is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opt, err := asynq.ParseRedisURI(cfg.QueueRedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	concurrency := cfg.AllocationWorkers
	if concurrency <= 0 {
		concurrency = 1
	}
	client := asynq.NewClient(opt)
	server := asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				queueAllocations: 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	manager := &Manager{
		client: client,
		server: server,
		mux:    mux,
		store:  store,
		logger: logger,
	}
	mux.HandleFunc(taskTypeAllocation, manager.handleAllocationTask)
	return manager, nil
}

// StartWorkers は Asynq サーバーをバックグラウンドで起動します。
func (m *Manager) StartWorkers() {
	go func() {
		if err := m.server.Run(m.mux); err != nil && !errors.Is(err, asynq.ErrServerClosed) {
			m.logger.Error("asynq server stopped with error", zap.Error(err))
		}
	}()
}

// Shutdown はサーバーとクライアントを閉じます。
func (m *Manager) Shutdown(ctx context.Context) error {
	m.server.Shutdown()
	return m.client.Close()
}

// Enqueue は資産配分ジョブをキューに投入し、タスクIDを返します。
func (m *Manager) Enqueue(ctx context.Context, payload *TaskPayload) (string, error) {
	if payload == nil {
		return "", fmt.Errorf("payload is nil")
	}
	if payload.UserID == "" {
		return "", fmt.Errorf("payload.UserID is required")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	task := asynq.NewTask(taskTypeAllocation, body, asynq.Queue(queueAllocations))
	info, err := m.client.EnqueueContext(ctx, task, asynq.MaxRetry(3))
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

// GetAllocation はユーザーの資産配分を取得します。
func (m *Manager) GetAllocation(ctx context.Context, userID string) (*Allocation, error) {
	return m.store.Get(ctx, userID)
}

func (m *Manager) handleAllocationTask(ctx context.Context, task *asynq.Task) error {
	var payload TaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.UserID == "" {
		return fmt.Errorf("missing userId in payload: %w", asynq.SkipRetry)
	}

	allocation := randomAllocation(payload.UserID, m.intn)
	if err := m.store.Upsert(ctx, allocation); err != nil {
		return err
	}
	m.logger.Debug("allocation prepared",
		zap.String("userId", payload.UserID),
		zap.Int("stocks", allocation.Stocks),
		zap.Int("funds", allocation.Funds),
		zap.Int("bonds", allocation.Bonds),
	)
	return nil
}
