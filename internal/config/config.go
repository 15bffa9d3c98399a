// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// ユーザーストアのバックエンド種別
const (
	UserStorePostgres = "postgres"
	UserStoreRedis    = "redis"
)

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// セッション設定
	SessionSecret     string // セッションクッキー署名用の秘密鍵
	SessionTTLMinutes int    // サーバー側セッションの有効期限（分）

	// サーバー設定
	Port    string // APIサーバーのポート番号
	GinMode string // Ginの実行モード (debug, release, test)

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り）

	// ストア設定
	RedisURL      string // セッション/Redisユーザーストア用の接続URL
	QueueRedisURL string // Asynq用Redis接続URL
	UserStore     string // ユーザーストアの種類 (postgres, redis)
	DatabaseURL   string // PostgreSQL接続文字列

	// 認証設定
	BcryptCost         int    // bcryptのコスト係数
	LoginGenericErrors bool   // ログイン失敗メッセージを共通化するか
	AdminUsername      string // 起動時に作成する管理者ユーザー名
	AdminPasswordHash  string // 管理者のbcryptハッシュ

	// ジョブ設定
	AllocationWorkers int // 資産配分ジョブの同時実行数

	// ログ設定
	LogLevel string
	LogDev   bool
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	loadEnvFile()

	redisURL := getEnv("REDIS_URL", "redis://127.0.0.1:6379/0")
	config := &Config{
		SessionSecret:     getEnv("SESSION_SECRET", ""),
		SessionTTLMinutes: getEnvAsInt("SESSION_TTL_MINUTES", 30),

		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),

		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),

		RedisURL:      redisURL,
		QueueRedisURL: getEnv("QUEUE_REDIS_URL", redisURL),
		UserStore:     strings.ToLower(getEnv("USER_STORE", UserStorePostgres)),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		BcryptCost:         getEnvAsInt("BCRYPT_COST", bcrypt.DefaultCost),
		LoginGenericErrors: getEnvAsBool("LOGIN_GENERIC_ERRORS", false),
		AdminUsername:      getEnv("ADMIN_USERNAME", ""),
		AdminPasswordHash:  getEnv("ADMIN_PASSWORD_HASH", ""),

		AllocationWorkers: getEnvAsInt("ALLOCATION_WORKERS", 2),

		LogLevel: getEnv("LOG_LEVEL", ""),
		LogDev:   getEnv("LOG_DEV", "") == "1",
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	switch c.UserStore {
	case UserStorePostgres, UserStoreRedis:
	default:
		return fmt.Errorf("USER_STORE must be %q or %q, got %q", UserStorePostgres, UserStoreRedis, c.UserStore)
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if (c.AdminUsername == "") != (c.AdminPasswordHash == "") {
		return fmt.Errorf("ADMIN_USERNAME and ADMIN_PASSWORD_HASH must be set together")
	}

	// ローカル開発ではセッション鍵やDB接続は任意
	if c.GinMode == "release" {
		if c.SessionSecret == "" {
			return fmt.Errorf("SESSION_SECRET is required in release mode")
		}
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required in release mode")
		}
		if c.UserStore == UserStorePostgres && c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required in release mode")
		}
	}

	return nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します。
func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt は環境変数を整数として取得します。
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool は環境変数を真偽値として取得します。
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
