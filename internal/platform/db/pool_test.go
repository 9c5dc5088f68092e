package db

import "testing"

func TestPoolConfig_Parse(t *testing.T) {
	cfg, err := PoolConfig{URL: "postgres://u:p@localhost:5432/hsm", MaxConns: 8, MinConns: 2}.parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxConns != 8 || cfg.MinConns != 2 {
		t.Errorf("expected 8/2, got %d/%d", cfg.MaxConns, cfg.MinConns)
	}
}

func TestPoolConfig_MinClampedToMax(t *testing.T) {
	cfg, err := PoolConfig{URL: "postgres://localhost/hsm", MaxConns: 2, MinConns: 5}.parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MinConns != 2 {
		t.Errorf("expected MinConns clamped to 2, got %d", cfg.MinConns)
	}
}

func TestPoolConfig_BadURL(t *testing.T) {
	if _, err := (PoolConfig{URL: "://nope"}).parse(); err == nil {
		t.Error("expected parse error")
	}
}
