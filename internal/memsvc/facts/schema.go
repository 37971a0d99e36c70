package facts

// schema defines the per-project fact/chunk/embedding tables. Facts are
// never physically removed: supersession flips is_current, so the full
// assertion history stays queryable.
const schema = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS facts (
    fact_id             INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id          TEXT NOT NULL,
    fact_key            TEXT NOT NULL,
    value_text          TEXT NOT NULL,
    value_type          TEXT NOT NULL,
    confidence          REAL NOT NULL DEFAULT 1.0,
    source_message_uuid TEXT,
    created_at          INTEGER NOT NULL,
    effective_at        INTEGER NOT NULL,
    supersedes_fact_id  INTEGER,
    is_current          INTEGER NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_facts_current
    ON facts(project_id, fact_key) WHERE is_current = 1;
CREATE INDEX IF NOT EXISTS idx_facts_project
    ON facts(project_id);

CREATE TABLE IF NOT EXISTS chat_messages (
    message_uuid  TEXT PRIMARY KEY,
    project_id    TEXT NOT NULL,
    chat_id       TEXT NOT NULL,
    message_id    TEXT NOT NULL,
    role          TEXT NOT NULL,
    content       TEXT NOT NULL,
    timestamp     INTEGER NOT NULL,
    message_index INTEGER NOT NULL,
    created_at    INTEGER NOT NULL,
    UNIQUE(project_id, chat_id, message_id)
);

CREATE INDEX IF NOT EXISTS idx_chat_messages_chat
    ON chat_messages(project_id, chat_id, message_index);

CREATE TABLE IF NOT EXISTS chunks (
    chunk_id    TEXT PRIMARY KEY,
    project_id  TEXT NOT NULL,
    source_id   TEXT NOT NULL,
    chat_id     TEXT,
    message_uuid TEXT,
    file_path   TEXT,
    chunk_index INTEGER NOT NULL,
    start_char  INTEGER NOT NULL,
    end_char    INTEGER NOT NULL,
    text        TEXT NOT NULL,
    created_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chunks_project ON chunks(project_id);
CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source_id);

CREATE TABLE IF NOT EXISTS embeddings (
    embedding_id TEXT PRIMARY KEY,
    chunk_id     TEXT NOT NULL,
    project_id   TEXT NOT NULL,
    vector       BLOB NOT NULL,
    is_deleted   INTEGER NOT NULL DEFAULT 0,
    created_at   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_embeddings_project ON embeddings(project_id);

-- Durable mirror of embeddings, backed by sqlite-vec; populated
-- alongside the embeddings table. rebuild-index and the brute-force
-- fallback search read the embeddings table, not this one.
CREATE VIRTUAL TABLE IF NOT EXISTS vec_embeddings USING vec0(
    embedding_id TEXT PRIMARY KEY,
    vector       FLOAT[1024]
);
`
