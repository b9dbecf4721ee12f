package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema statements are idempotent so Migrate can run on every start.
//
// product_parameters carries ON DELETE CASCADE as a safety net, but the
// reconciler still deletes parameter rows explicitly inside the import
// transaction; the storage contract does not rely on an implicit cascade.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         BIGSERIAL PRIMARY KEY,
		email      TEXT NOT NULL UNIQUE,
		type       TEXT NOT NULL DEFAULT 'buyer',
		active     BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS auth_tokens (
		key        TEXT PRIMARY KEY,
		user_id    BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS shops (
		id         BIGSERIAL PRIMARY KEY,
		name       TEXT NOT NULL UNIQUE,
		user_id    BIGINT NOT NULL REFERENCES users(id),
		url        TEXT NOT NULL DEFAULT '',
		accepting  BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id   BIGINT PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id          BIGSERIAL PRIMARY KEY,
		name        TEXT NOT NULL UNIQUE,
		category_id BIGINT NOT NULL REFERENCES categories(id)
	)`,
	`CREATE TABLE IF NOT EXISTS product_infos (
		id          BIGSERIAL PRIMARY KEY,
		product_id  BIGINT NOT NULL REFERENCES products(id),
		shop_id     BIGINT NOT NULL REFERENCES shops(id),
		model       TEXT NOT NULL,
		external_id BIGINT NOT NULL,
		price       BIGINT NOT NULL,
		price_rrc   BIGINT NOT NULL,
		quantity    BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS product_infos_shop_id_idx ON product_infos(shop_id)`,
	`CREATE TABLE IF NOT EXISTS parameters (
		id   BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS product_parameters (
		id              BIGSERIAL PRIMARY KEY,
		product_info_id BIGINT NOT NULL REFERENCES product_infos(id) ON DELETE CASCADE,
		parameter_id    BIGINT NOT NULL REFERENCES parameters(id),
		value           TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS product_parameters_product_info_id_idx ON product_parameters(product_info_id)`,
	`CREATE TABLE IF NOT EXISTS import_jobs (
		id            TEXT PRIMARY KEY,
		url           TEXT NOT NULL,
		requested_by  BIGINT NOT NULL REFERENCES users(id),
		status        TEXT NOT NULL,
		attempt       INT NOT NULL DEFAULT 0,
		created_count INT NOT NULL DEFAULT 0,
		skipped_count INT NOT NULL DEFAULT 0,
		error_kind    TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		completed_at  TIMESTAMPTZ
	)`,
}

// Migrate creates the schema when it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: migrate: %w", err)
		}
	}
	return nil
}
