package postgres

const schemaSQL = `
CREATE TABLE IF NOT EXISTS workflows (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS components (
    id             TEXT PRIMARY KEY,
    workflow_id    TEXT NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
    seq            INTEGER NOT NULL,
    component_type TEXT NOT NULL,
    node_id        TEXT NOT NULL,
    position_x     DOUBLE PRECISION NOT NULL DEFAULT 0,
    position_y     DOUBLE PRECISION NOT NULL DEFAULT 0,
    config         JSONB NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS connections (
    id                  TEXT PRIMARY KEY,
    workflow_id         TEXT NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
    seq                 INTEGER NOT NULL,
    source_component_id TEXT NOT NULL REFERENCES components(id) ON DELETE CASCADE,
    target_component_id TEXT NOT NULL REFERENCES components(id) ON DELETE CASCADE,
    source_handle       TEXT NOT NULL DEFAULT '',
    target_handle       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS documents (
    id               TEXT PRIMARY KEY,
    filename         TEXT NOT NULL,
    file_size        BIGINT NOT NULL DEFAULT 0,
    file_type        TEXT NOT NULL DEFAULT '',
    knowledgebase_id TEXT NOT NULL DEFAULT '',
    processed        TEXT NOT NULL DEFAULT 'pending',
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_components_workflow  ON components(workflow_id, seq);
CREATE INDEX IF NOT EXISTS idx_connections_workflow ON connections(workflow_id, seq);
CREATE INDEX IF NOT EXISTS idx_documents_kb         ON documents(knowledgebase_id);
`
