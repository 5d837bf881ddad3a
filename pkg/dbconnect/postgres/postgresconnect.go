package postgres

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"

	"storefront_api/config"
	"storefront_api/pkg/logger"
)

const maxRetries = 10
const dbMaxOpenConns = 20
const dbConnMaxLifetime = 30 * time.Minute
const retryDelay = 5 * time.Second

type PostgresDatabase struct {
	config.DatabaseConfig
	maxOpenConns int
	log          logger.Logger
	db           *sql.DB
	mu           sync.Mutex
}

func NewPgConnector(dbConfig config.DatabaseConfig, maxOpenConns int, log logger.Logger) *PostgresDatabase {
	if maxOpenConns <= 0 {
		maxOpenConns = dbMaxOpenConns
	}
	return &PostgresDatabase{DatabaseConfig: dbConfig, maxOpenConns: maxOpenConns, log: log}
}

func (pg *PostgresDatabase) Connect() (*sql.DB, error) {
	pg.mu.Lock()
	defer pg.mu.Unlock()

	if pg.db != nil {
		return pg.db, nil
	}

	var err error
	conStr := pg.GetConnectionString()

	for i := 0; i < maxRetries; i++ {
		var db *sql.DB
		db, err = sql.Open("postgres", conStr)
		if err != nil {
			pg.log.Warn("Failed to connect to Postgres (attempt %d/%d): %v", i+1, maxRetries, err)
			time.Sleep(retryDelay)
			continue
		}

		db.SetMaxOpenConns(pg.maxOpenConns)
		db.SetConnMaxLifetime(dbConnMaxLifetime)

		if err = db.Ping(); err != nil {
			pg.log.Warn("Failed to ping Postgres db (attempt %d/%d): %v", i+1, maxRetries, err)
			db.Close()
			time.Sleep(retryDelay)
			continue
		}

		pg.db = db
		pg.log.Log("Successfully connected to Postgres")
		return pg.db, nil
	}
	return nil, fmt.Errorf("postgres unavailable after %d attempts: %w", maxRetries, err)
}

func (pg *PostgresDatabase) Ping() error {
	pg.mu.Lock()
	defer pg.mu.Unlock()

	if pg.db == nil {
		return fmt.Errorf("database connection is not established")
	}

	if err := pg.db.Ping(); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

func (pg *PostgresDatabase) Close() error {
	pg.mu.Lock()
	defer pg.mu.Unlock()

	if pg.db == nil {
		return nil
	}
	err := pg.db.Close()
	pg.db = nil
	return err
}
