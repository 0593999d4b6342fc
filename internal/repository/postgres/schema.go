package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"saveandrestore/internal/domain/models"
)

// SchemaDDL renders the schema for the given table names. The parent link
// cascades on delete, so removing a node wipes its whole subtree plus all
// payload rows in one atomic statement.
func SchemaDDL(t *TableNames) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	unique_id     TEXT PRIMARY KEY,
	parent_id     TEXT REFERENCES %[1]s(unique_id) ON DELETE CASCADE,
	name          TEXT NOT NULL,
	node_type     TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT '',
	properties    JSONB NOT NULL DEFAULT '{}'::jsonb,
	created       TIMESTAMPTZ NOT NULL,
	last_modified TIMESTAMPTZ NOT NULL,
	user_name     TEXT NOT NULL DEFAULT '',
	position      BIGINT GENERATED ALWAYS AS IDENTITY
);
CREATE UNIQUE INDEX IF NOT EXISTS %[1]s_sibling_name
	ON %[1]s(parent_id, node_type, name);
CREATE INDEX IF NOT EXISTS %[1]s_parent ON %[1]s(parent_id);

CREATE TABLE IF NOT EXISTS %[2]s (
	unique_id        TEXT PRIMARY KEY,
	config_id        TEXT NOT NULL REFERENCES %[1]s(unique_id) ON DELETE CASCADE,
	pv_name          TEXT NOT NULL,
	readback_pv_name TEXT NOT NULL DEFAULT '',
	read_only        BOOLEAN NOT NULL DEFAULT FALSE,
	position         INTEGER NOT NULL,
	UNIQUE (config_id, pv_name)
);

CREATE TABLE IF NOT EXISTS %[3]s (
	snapshot_id    TEXT NOT NULL REFERENCES %[1]s(unique_id) ON DELETE CASCADE,
	config_pv_id   TEXT NOT NULL,
	value          TEXT NOT NULL DEFAULT '',
	readback_value TEXT NOT NULL DEFAULT '',
	time           TIMESTAMPTZ NOT NULL,
	severity       TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL DEFAULT '',
	position       INTEGER NOT NULL,
	PRIMARY KEY (snapshot_id, config_pv_id)
);

CREATE TABLE IF NOT EXISTS %[4]s (
	snapshot_id TEXT NOT NULL REFERENCES %[1]s(unique_id) ON DELETE CASCADE,
	name        TEXT NOT NULL,
	comment     TEXT NOT NULL DEFAULT '',
	user_name   TEXT NOT NULL DEFAULT '',
	created     TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (snapshot_id, name)
);
`, t.Nodes, t.ConfigPvs, t.SnapshotItems, t.Tags)
}

// DropSchema removes every table. Payload tables go first because they
// reference the node table.
func DropSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	for _, table := range []string{tables.Tags, tables.SnapshotItems, tables.ConfigPvs, tables.Nodes} {
		if _, err := pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s CASCADE`, table)); err != nil {
			return fmt.Errorf("drop table %s: %w", table, err)
		}
	}
	return nil
}

// InitSchema creates the tables and seeds the fixed-id root folder.
func InitSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	if _, err := pool.Exec(ctx, SchemaDDL(tables)); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	now := time.Now().UTC()
	query := fmt.Sprintf(`
		INSERT INTO %s (unique_id, parent_id, name, node_type, created, last_modified)
		VALUES ($1, NULL, $2, $3, $4, $4)
		ON CONFLICT (unique_id) DO NOTHING
	`, tables.Nodes)

	if _, err := pool.Exec(ctx, query,
		models.RootUniqueID,
		models.RootName,
		models.NodeTypeFolder,
		now,
	); err != nil {
		return fmt.Errorf("seed root node: %w", err)
	}

	return nil
}
