package database

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"checkoutupsell/api/config"
	"checkoutupsell/api/logger"
)

// DBClient holds the lib/pq connection pool and the gorm session built on top of it.
type DBClient struct {
	DB   *sql.DB
	Gorm *gorm.DB
}

func NewPostgresDB(ctx context.Context, cfg config.DBConfig) (*DBClient, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("error opening database connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err = db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database (ping failed): %w", err)
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), GormConfig())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error opening gorm session: %w", err)
	}

	logger.Info("Successfully connected to PostgreSQL database")
	return &DBClient{DB: db, Gorm: gormDB}, nil
}

// GormConfig is shared by the Postgres client and the test databases so that timestamps are
// always written in UTC.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: gormlogger.New(
			log.New(io.Discard, "", log.LstdFlags),
			gormlogger.Config{LogLevel: gormlogger.Silent},
		),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (c *DBClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *DBClient) Close() {
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logger.Error(err, zap.String("component", "postgres"))
		} else {
			logger.Info("PostgreSQL database connection closed")
		}
	}
}
