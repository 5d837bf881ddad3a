package storage

import (
	"database/sql"
	"fmt"
	"log"

	"storefront_api/pkg/dbconnect/migration"
)

const (
	MigrationsSchemaMigration   = "migrations.schema"
	StorefrontSchemaMigration   = "storefront.schema"
	StorefrontProductsMigration = "storefront.products"
	StorefrontOrdersMigration   = "storefront.orders"
	StorefrontTaxonomyMigration = "storefront.categories_tags"
)

// Migrations returns every storefront migration in apply order.
func Migrations() []migration.MigrationInterface {
	return []migration.MigrationInterface{
		&MigrationsSchema{},
		&StorefrontSchema{},
		&StorefrontProducts{},
		&StorefrontOrders{},
		&StorefrontCategoriesAndTags{},
	}
}

// MigrationsSchema creates the bookkeeping table every other migration
// checks, so it cannot use applyOnce itself.
type MigrationsSchema struct{}

func (m *MigrationsSchema) UpMigration(db *sql.DB) error {
	query := `
	CREATE SCHEMA IF NOT EXISTS migrations;
	CREATE TABLE IF NOT EXISTS migrations.migrations (
		name VARCHAR(255) PRIMARY KEY,
		time TIMESTAMP NOT NULL
	);`
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to create %s: %w", MigrationsSchemaMigration, err)
	}
	return nil
}

type StorefrontSchema struct{}

func (m *StorefrontSchema) UpMigration(db *sql.DB) error {
	return applyOnce(db, StorefrontSchemaMigration, `CREATE SCHEMA IF NOT EXISTS storefront;`)
}

type StorefrontProducts struct{}

func (m *StorefrontProducts) UpMigration(db *sql.DB) error {
	return applyOnce(db, StorefrontProductsMigration, `
	CREATE TABLE IF NOT EXISTS storefront.products (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		features TEXT NOT NULL DEFAULT '',
		price NUMERIC(12, 2) NOT NULL CHECK (price > 0),
		stock INT NOT NULL DEFAULT 0 CHECK (stock >= 0),
		track_inventory BOOLEAN NOT NULL DEFAULT TRUE,
		status VARCHAR(16) NOT NULL DEFAULT 'draft' CHECK (status IN ('active', 'draft')),
		images TEXT[] NOT NULL DEFAULT '{}',
		category_ids BIGINT[] NOT NULL DEFAULT '{}',
		tag_ids BIGINT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS products_status_created_idx
		ON storefront.products (status, created_at DESC);
	`)
}

// StorefrontOrders - stripe_session_id уникален, на нём держится идемпотентность вебхука.
type StorefrontOrders struct{}

func (m *StorefrontOrders) UpMigration(db *sql.DB) error {
	return applyOnce(db, StorefrontOrdersMigration, `
	CREATE TABLE IF NOT EXISTS storefront.orders (
		id UUID PRIMARY KEY,
		product_id BIGINT NOT NULL,
		product_name TEXT NOT NULL,
		product_price NUMERIC(12, 2) NOT NULL,
		product_image TEXT NOT NULL,
		quantity INT NOT NULL CHECK (quantity > 0),
		total_price NUMERIC(12, 2) NOT NULL,
		currency VARCHAR(3) NOT NULL,
		customer_name TEXT NOT NULL,
		customer_email TEXT NOT NULL,
		customer_phone TEXT NOT NULL,
		shipping_line1 TEXT NOT NULL,
		shipping_line2 TEXT NOT NULL,
		shipping_city TEXT NOT NULL,
		shipping_state TEXT NOT NULL,
		shipping_postal_code TEXT NOT NULL,
		shipping_country TEXT NOT NULL,
		stripe_session_id TEXT NOT NULL UNIQUE,
		payment_intent_id TEXT NOT NULL,
		customer_id TEXT NOT NULL,
		status VARCHAR(16) NOT NULL DEFAULT 'completed' CHECK (status IN ('completed', 'refunded', 'disputed')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS orders_product_idx ON storefront.orders (product_id);
	`)
}

type StorefrontCategoriesAndTags struct{}

func (m *StorefrontCategoriesAndTags) UpMigration(db *sql.DB) error {
	return applyOnce(db, StorefrontTaxonomyMigration, `
	CREATE TABLE IF NOT EXISTS storefront.categories (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE
	);
	CREATE TABLE IF NOT EXISTS storefront.tags (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE
	);
	`)
}

func applyOnce(db *sql.DB, name, query string) error {
	var migrationExists bool
	err := db.QueryRow("SELECT EXISTS (SELECT 1 FROM migrations.migrations WHERE name = $1)", name).Scan(&migrationExists)
	if err != nil {
		return fmt.Errorf("failed to check migration status: %w", err)
	}
	if migrationExists {
		log.Printf("Migration '%s' already completed. Skipping.", name)
		return nil
	}

	if _, err = db.Exec(query); err != nil {
		return fmt.Errorf("failed to apply %s: %w", name, err)
	}
	if _, err = db.Exec("INSERT INTO migrations.migrations (name, time) VALUES ($1, current_timestamp)", name); err != nil {
		return fmt.Errorf("failed to mark '%s' migration as complete: %w", name, err)
	}

	log.Printf("Migration '%s' completed successfully.", name)
	return nil
}
