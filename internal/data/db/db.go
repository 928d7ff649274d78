package db

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/convoroute-backend/internal/pkg/envutil"
	"github.com/yungbote/convoroute-backend/internal/pkg/logger"
)

// Service owns the GORM handle. DB_DRIVER selects postgres (default) or
// sqlite; sqlite is for local development and CI.
type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewService(logg *logger.Logger) (*Service, error) {
	serviceLog := logg.With("service", "DBService")

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	cfg := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	}

	driver := strings.ToLower(envutil.String("DB_DRIVER", "postgres"))
	switch driver {
	case "sqlite":
		path := envutil.String("SQLITE_PATH", "convoroute.db")
		db, err := gorm.Open(sqlite.Open(path), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite at %s: %w", path, err)
		}
		serviceLog.Warn("using SQLite; intended for development only", "path", path)
		return &Service{db: db, log: serviceLog}, nil

	case "postgres":
		host := envutil.String("POSTGRES_HOST", "localhost")
		port := envutil.String("POSTGRES_PORT", "5432")
		user := envutil.String("POSTGRES_USER", "postgres")
		password := envutil.String("POSTGRES_PASSWORD", "")
		name := envutil.String("POSTGRES_NAME", "convoroute")

		dsn := fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s?sslmode=disable",
			user, password, host, port, name,
		)
		db, err := gorm.Open(postgres.Open(dsn), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
		}
		return &Service{db: db, log: serviceLog}, nil

	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", driver)
	}
}

func (s *Service) DB() *gorm.DB { return s.db }
