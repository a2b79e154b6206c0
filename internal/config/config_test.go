package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"LISTEN_ADDR", "DATA_PATH", "LOG_LEVEL", "MAX_UPLOAD_SIZE_BYTES", "READ_HEADER_TIMEOUT_SEC", "SHUTDOWN_TIMEOUT_SEC"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":8080" || cfg.LogLevel != "info" || cfg.MaxUploadSizeBytes != 16*1024*1024 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9999")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("MAX_UPLOAD_SIZE_BYTES", "1024")
	t.Setenv("SHUTDOWN_TIMEOUT_SEC", "not-a-number")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":9999" || cfg.LogLevel != "debug" || cfg.MaxUploadSizeBytes != 1024 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.ShutdownTimeoutSec != 10 {
		t.Fatalf("unparsable int should fall back, got %d", cfg.ShutdownTimeoutSec)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{name: "bad log level", key: "LOG_LEVEL", value: "chatty"},
		{name: "zero upload size", key: "MAX_UPLOAD_SIZE_BYTES", value: "0"},
		{name: "negative header timeout", key: "READ_HEADER_TIMEOUT_SEC", value: "-1"},
		{name: "blank data path", key: "DATA_PATH", value: "   "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected %s=%q to be rejected", tt.key, tt.value)
			}
		})
	}
}
