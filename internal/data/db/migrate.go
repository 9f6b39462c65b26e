package db

import (
	"context"
	"fmt"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"

	"github.com/yungbote/vedablog/internal/data/db/migrations"
	"github.com/yungbote/vedablog/internal/domain"
	"github.com/yungbote/vedablog/internal/platform/logger"
)

// Migrate applies the embedded goose migrations on Postgres. The SQL is
// Postgres-flavoured, so sqlite databases are brought up with AutoMigrate.
func (s *PostgresService) Migrate(ctx context.Context) error {
	if s.cfg.Driver == "sqlite" {
		return AutoMigrateAll(s.db)
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(gooseLogger{s.log})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := goose.UpContext(ctx, sqlDB, "."); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(domain.Models()...)
}

type gooseLogger struct {
	log *logger.Logger
}

func (g gooseLogger) Printf(format string, v ...interface{}) {
	g.log.Info(fmt.Sprintf(format, v...))
}

func (g gooseLogger) Fatalf(format string, v ...interface{}) {
	g.log.Fatal(fmt.Sprintf(format, v...))
}
