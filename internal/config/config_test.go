package config

import (
	"testing"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SESSION_SECRET", "SESSION_TTL_MINUTES", "PORT", "GIN_MODE", "CORS_ALLOWED_ORIGINS",
		"REDIS_URL", "QUEUE_REDIS_URL", "USER_STORE", "DATABASE_URL", "BCRYPT_COST",
		"LOGIN_GENERIC_ERRORS", "ADMIN_USERNAME", "ADMIN_PASSWORD_HASH", "ALLOCATION_WORKERS",
		"LOG_LEVEL", "LOG_DEV",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.UserStore != UserStorePostgres {
		t.Fatalf("UserStore = %q", cfg.UserStore)
	}
	if cfg.BcryptCost != 10 {
		t.Fatalf("BcryptCost = %d, want 10", cfg.BcryptCost)
	}
	if cfg.QueueRedisURL != cfg.RedisURL {
		t.Fatalf("QueueRedisURL should default to RedisURL, got %q", cfg.QueueRedisURL)
	}
	if cfg.LoginGenericErrors {
		t.Fatal("LoginGenericErrors should default to false")
	}
}

func TestLoadOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("USER_STORE", "Redis")
	t.Setenv("BCRYPT_COST", "12")
	t.Setenv("LOGIN_GENERIC_ERRORS", "true")
	t.Setenv("SESSION_TTL_MINUTES", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.UserStore != UserStoreRedis {
		t.Fatalf("UserStore = %q, want redis", cfg.UserStore)
	}
	if cfg.BcryptCost != 12 {
		t.Fatalf("BcryptCost = %d", cfg.BcryptCost)
	}
	if !cfg.LoginGenericErrors {
		t.Fatal("LoginGenericErrors should be true")
	}
	if cfg.SessionTTLMinutes != 30 {
		t.Fatalf("invalid int should fall back to default, got %d", cfg.SessionTTLMinutes)
	}
}

func TestValidateReleaseRequiresSecrets(t *testing.T) {
	cfg := &Config{
		GinMode:    "release",
		UserStore:  UserStorePostgres,
		BcryptCost: 10,
		RedisURL:   "redis://localhost:6379/0",
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error without SESSION_SECRET")
	}

	cfg.SessionSecret = "secret"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}

	cfg.DatabaseURL = "postgres://localhost/goat"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]*Config{
		"unknown store": {UserStore: "mongo", BcryptCost: 10},
		"cost too low":  {UserStore: UserStoreRedis, BcryptCost: 2},
		"admin partial": {UserStore: UserStoreRedis, BcryptCost: 10, AdminUsername: "admin"},
	}
	for name, cfg := range cases {
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}
