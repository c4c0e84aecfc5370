package db

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

func TestCheckHealth_Healthy(t *testing.T) {
	stats := &PoolStats{TotalConns: 2, IdleConns: 2, MaxConns: 10}
	code, report := checkHealth(context.Background(),
		func(ctx context.Context) error { return nil },
		func() *PoolStats { return stats },
	)
	if code != http.StatusOK {
		t.Errorf("expected 200, got %d", code)
	}
	if report.Status != "healthy" {
		t.Errorf("expected healthy, got %s", report.Status)
	}
	if report.Pool != stats {
		t.Error("expected pool stats in report")
	}
	if report.Error != "" {
		t.Errorf("expected no error, got %q", report.Error)
	}
}

func TestCheckHealth_PingFails(t *testing.T) {
	code, report := checkHealth(context.Background(),
		func(ctx context.Context) error { return errors.New("connection refused") },
		func() *PoolStats { return &PoolStats{} },
	)
	if code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", code)
	}
	if report.Status != "unhealthy" {
		t.Errorf("expected unhealthy, got %s", report.Status)
	}
	if report.Error != "connection refused" {
		t.Errorf("unexpected error: %q", report.Error)
	}
}

func TestCheckHealth_PingHasDeadline(t *testing.T) {
	checkHealth(context.Background(),
		func(ctx context.Context) error {
			if _, ok := ctx.Deadline(); !ok {
				t.Error("expected ping context to carry a deadline")
			}
			return nil
		},
		func() *PoolStats { return nil },
	)
}
