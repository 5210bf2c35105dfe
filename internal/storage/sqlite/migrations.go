package sqlite

// migrations contains the SQL migrations for the SQLite database.
var migrations = []string{
	// Migration 1: Create initial tables
	`
	CREATE TABLE IF NOT EXISTS workflows (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- One row per canvas node; seq keeps the submitted order
	CREATE TABLE IF NOT EXISTS components (
		id TEXT PRIMARY KEY,
		workflow_id TEXT NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		component_type TEXT NOT NULL,
		node_id TEXT NOT NULL,
		position_x REAL NOT NULL DEFAULT 0,
		position_y REAL NOT NULL DEFAULT 0,
		config JSON NOT NULL DEFAULT '{}'
	);

	CREATE TABLE IF NOT EXISTS connections (
		id TEXT PRIMARY KEY,
		workflow_id TEXT NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		source_component_id TEXT NOT NULL REFERENCES components(id) ON DELETE CASCADE,
		target_component_id TEXT NOT NULL REFERENCES components(id) ON DELETE CASCADE,
		source_handle TEXT NOT NULL DEFAULT '',
		target_handle TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		file_size INTEGER NOT NULL DEFAULT 0,
		file_type TEXT NOT NULL DEFAULT '',
		knowledgebase_id TEXT NOT NULL DEFAULT '',
		processed TEXT NOT NULL DEFAULT 'pending'
			CHECK(processed IN ('pending', 'processing', 'completed', 'failed')),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Indexes
	CREATE INDEX IF NOT EXISTS idx_components_workflow ON components(workflow_id, seq);
	CREATE INDEX IF NOT EXISTS idx_connections_workflow ON connections(workflow_id, seq);
	CREATE INDEX IF NOT EXISTS idx_documents_kb ON documents(knowledgebase_id);

	-- Schema version tracking
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);
	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`,
}
