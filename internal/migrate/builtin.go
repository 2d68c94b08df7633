package migrate

const schemaV1Up = `
	CREATE TABLE IF NOT EXISTS files (
		repo_path  TEXT PRIMARY KEY,
		file_hash  TEXT NOT NULL,
		db_state   TEXT NOT NULL DEFAULT 'indexed',
		last_seen  TEXT NOT NULL DEFAULT (datetime('now'))
	);

	CREATE TABLE IF NOT EXISTS symbols (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		repo_path  TEXT    NOT NULL,
		name       TEXT    NOT NULL,
		kind       TEXT    NOT NULL,
		signature  TEXT,
		start_line INTEGER,
		end_line   INTEGER,
		content_hash TEXT NOT NULL,
		FOREIGN KEY (repo_path) REFERENCES files(repo_path) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_symbols_path ON symbols(repo_path);

	CREATE TABLE IF NOT EXISTS edges (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		src_id    INTEGER NOT NULL,
		dst_id    INTEGER NOT NULL,
		edge_type TEXT    NOT NULL,
		FOREIGN KEY (src_id) REFERENCES symbols(id) ON DELETE CASCADE,
		FOREIGN KEY (dst_id) REFERENCES symbols(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_edges_src ON edges(src_id);
	CREATE INDEX IF NOT EXISTS idx_edges_dst ON edges(dst_id);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_edges_unique ON edges(src_id, dst_id, edge_type);

	CREATE VIRTUAL TABLE IF NOT EXISTS symbols_fts USING fts5(
		repo_path,
		name,
		l0_overview,
		l1_contract
	);

	CREATE TABLE IF NOT EXISTS ops_log (
		id         TEXT PRIMARY KEY,
		op         TEXT NOT NULL,
		details    TEXT,
		created_at TEXT NOT NULL DEFAULT (datetime('now'))
	);
`

const schemaV1Down = `
	DROP TABLE IF EXISTS ops_log;
	DROP TABLE IF EXISTS symbols_fts;
	DROP TABLE IF EXISTS edges;
	DROP TABLE IF EXISTS symbols;
	DROP TABLE IF EXISTS files;
`

const schemaV2Up = `
	ALTER TABLE symbols ADD COLUMN l0_overview   TEXT;
	ALTER TABLE symbols ADD COLUMN l1_contract   TEXT;
	ALTER TABLE symbols ADD COLUMN l2_pseudocode TEXT;
	ALTER TABLE symbols ADD COLUMN l3_ast_json   TEXT;
`

const schemaV2Down = `
	ALTER TABLE symbols DROP COLUMN l3_ast_json;
	ALTER TABLE symbols DROP COLUMN l2_pseudocode;
	ALTER TABLE symbols DROP COLUMN l1_contract;
	ALTER TABLE symbols DROP COLUMN l0_overview;
`

const schemaV3Up = `
	CREATE INDEX IF NOT EXISTS idx_symbols_lookup ON symbols(repo_path, name);
`

const schemaV3Down = `
	DROP INDEX IF EXISTS idx_symbols_lookup;
`

// Builtin returns the migrations this build ships with, ascending.
func Builtin() []Migration {
	return []Migration{
		NewMigration(1, "initial schema", schemaV1Up, schemaV1Down),
		NewMigration(2, "multilevel symbol documents", schemaV2Up, schemaV2Down),
		NewMigration(3, "symbol lookup index", schemaV3Up, schemaV3Down),
	}
}
