package config

import (
	"os"
	"testing"
	"time"
)

func TestNewPopulatesLotteryDefaults(t *testing.T) {
	cfg := New()
	if cfg.Lottery.ResponseWindow != 7*24*time.Hour {
		t.Fatalf("expected default 7-day response window, got %v", cfg.Lottery.ResponseWindow)
	}
	if !cfg.Lottery.SweeperEnabled {
		t.Fatal("expected sweeper enabled by default")
	}
	if cfg.Lottery.DrawLockBackend != "postgres" {
		t.Fatalf("expected postgres draw lock backend by default, got %q", cfg.Lottery.DrawLockBackend)
	}
}

func TestLoadAppliesLotteryEnvOverrides(t *testing.T) {
	t.Setenv("LOTTERY_RESPONSE_WINDOW", "48h")
	t.Setenv("LOTTERY_DRAW_LOCK_BACKEND", "redis")
	t.Setenv("LOTTERY_REDIS_ADDR", "localhost:6379")
	t.Setenv("NOTIFY_WEBHOOK_URL", "https://example.invalid/webhook")
	defer func() {
		for _, k := range []string{"LOTTERY_RESPONSE_WINDOW", "LOTTERY_DRAW_LOCK_BACKEND", "LOTTERY_REDIS_ADDR", "NOTIFY_WEBHOOK_URL"} {
			os.Unsetenv(k)
		}
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Lottery.ResponseWindow != 48*time.Hour {
		t.Fatalf("expected overridden response window, got %v", cfg.Lottery.ResponseWindow)
	}
	if cfg.Lottery.DrawLockBackend != "redis" {
		t.Fatalf("expected redis draw lock backend, got %q", cfg.Lottery.DrawLockBackend)
	}
	if cfg.Lottery.RedisAddr != "localhost:6379" {
		t.Fatalf("expected redis addr override, got %q", cfg.Lottery.RedisAddr)
	}
	if cfg.Notify.WebhookURL != "https://example.invalid/webhook" {
		t.Fatalf("expected webhook url override, got %q", cfg.Notify.WebhookURL)
	}
}
