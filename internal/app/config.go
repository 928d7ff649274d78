package app

import (
	"time"

	"github.com/yungbote/convoroute-backend/internal/pkg/envutil"
)

type Config struct {
	HTTPAddr    string
	ServiceName string
	Environment string
	Version     string

	JWTSecretKey string

	// CheckpointDriver is "gorm" (default) or "memory". Memory checkpoints do
	// not survive a restart and are only meant for local development.
	CheckpointDriver string

	PatternsPath string

	ThreadLeaseTTL time.Duration
	TenantCacheTTL time.Duration
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:         envutil.String("HTTP_ADDR", ":8080"),
		ServiceName:      envutil.String("SERVICE_NAME", "convoroute"),
		Environment:      envutil.String("ENVIRONMENT", "development"),
		Version:          envutil.String("SERVICE_VERSION", "dev"),
		JWTSecretKey:     envutil.String("JWT_SECRET_KEY", ""),
		CheckpointDriver: envutil.String("CHECKPOINT_DRIVER", "gorm"),
		PatternsPath:     envutil.String("CLASSIFY_PATTERNS_PATH", ""),
		ThreadLeaseTTL:   envutil.Duration("THREAD_LEASE_TTL", 30*time.Second),
		TenantCacheTTL:   envutil.Duration("TENANT_CACHE_TTL", 5*time.Minute),
	}
}
