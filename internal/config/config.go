package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	ListenAddr           string
	DataPath             string
	LogLevel             string
	MaxUploadSizeBytes   int64
	ReadHeaderTimeoutSec int
	ShutdownTimeoutSec   int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		ListenAddr:           getEnv("LISTEN_ADDR", ":8080"),
		DataPath:             getEnv("DATA_PATH", "./data/state.json"),
		LogLevel:             strings.ToLower(getEnv("LOG_LEVEL", "info")),
		MaxUploadSizeBytes:   getEnvInt64("MAX_UPLOAD_SIZE_BYTES", 16*1024*1024),
		ReadHeaderTimeoutSec: getEnvInt("READ_HEADER_TIMEOUT_SEC", 5),
		ShutdownTimeoutSec:   getEnvInt("SHUTDOWN_TIMEOUT_SEC", 10),
	}

	if strings.TrimSpace(cfg.DataPath) == "" {
		return Config{}, errors.New("data path must not be empty")
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return Config{}, errors.New("log level is not valid")
	}
	if cfg.MaxUploadSizeBytes <= 0 {
		return Config{}, errors.New("max upload size must be > 0")
	}
	if cfg.ReadHeaderTimeoutSec <= 0 {
		return Config{}, errors.New("read header timeout sec must be > 0")
	}
	if cfg.ShutdownTimeoutSec <= 0 {
		return Config{}, errors.New("shutdown timeout sec must be > 0")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
