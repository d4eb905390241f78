package queue

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/cuongbtq/queuectl/internal/domain"
)

// Queue config keys
const (
	KeyMaxRetries         = "max_retries"
	KeyBackoffBase        = "backoff_base"
	KeyWorkerPollInterval = "worker_poll_interval"
)

// ConfigKeys lists the settable keys in display order
var ConfigKeys = []string{KeyMaxRetries, KeyBackoffBase, KeyWorkerPollInterval}

// NormalizeConfigKey accepts dashed or underscored keys in any case
func NormalizeConfigKey(key string) (string, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), "-", "_")
	for _, k := range ConfigKeys {
		if normalized == k {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", domain.ErrUnknownConfigKey, key)
}

// ParseConfigValue parses a config value given as text
func ParseConfigValue(raw string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, domain.InvalidInputf("config value must be an integer, got %q", raw)
	}
	return v, nil
}

// GetConfig returns the durable queue config
func (s *Service) GetConfig(ctx context.Context) (domain.QueueConfig, error) {
	return s.store.GetConfig(ctx)
}

// GetConfigValue returns one config value by key
func (s *Service) GetConfigValue(ctx context.Context, key string) (int, error) {
	k, err := NormalizeConfigKey(key)
	if err != nil {
		return 0, err
	}

	cfg, err := s.store.GetConfig(ctx)
	if err != nil {
		return 0, err
	}
	return configValue(cfg, k), nil
}

// SetConfig validates and persists one config value and returns the full config
func (s *Service) SetConfig(ctx context.Context, key string, value int) (domain.QueueConfig, error) {
	k, err := NormalizeConfigKey(key)
	if err != nil {
		return domain.QueueConfig{}, err
	}

	cfg, err := s.store.GetConfig(ctx)
	if err != nil {
		return domain.QueueConfig{}, err
	}

	switch k {
	case KeyMaxRetries:
		cfg.MaxRetries = value
	case KeyBackoffBase:
		cfg.BackoffBase = value
	case KeyWorkerPollInterval:
		cfg.WorkerPollInterval = value
	}

	if err := cfg.Validate(); err != nil {
		return domain.QueueConfig{}, err
	}

	if err := s.store.SaveConfig(ctx, cfg); err != nil {
		return domain.QueueConfig{}, err
	}

	s.logger.Info("Config updated",
		slog.String("key", k),
		slog.Int("value", value),
	)
	return cfg, nil
}

// ConfigMap renders cfg keyed by config key
func ConfigMap(cfg domain.QueueConfig) map[string]int {
	m := make(map[string]int, len(ConfigKeys))
	for _, k := range ConfigKeys {
		m[k] = configValue(cfg, k)
	}
	return m
}

func configValue(cfg domain.QueueConfig, key string) int {
	switch key {
	case KeyMaxRetries:
		return cfg.MaxRetries
	case KeyBackoffBase:
		return cfg.BackoffBase
	default:
		return cfg.WorkerPollInterval
	}
}
