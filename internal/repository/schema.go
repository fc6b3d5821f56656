package repository

import (
	"fmt"

	"github.com/jackc/pgx/v5"
)

// DefaultVectorDimensions matches the default embedding model configuration.
const DefaultVectorDimensions = 1024

// tenantSchemaDDL provisions every table a tenant owns. %[1]s is the quoted
// schema name, %[2]d the embedding dimension.
const tenantSchemaDDL = `
CREATE SCHEMA IF NOT EXISTS %[1]s;

CREATE TABLE IF NOT EXISTS %[1]s.project (
    id                 UUID PRIMARY KEY,
    name               TEXT NOT NULL UNIQUE,
    description        TEXT NOT NULL DEFAULT '',
    created_by_user_id TEXT NOT NULL,
    created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS %[1]s.document (
    id            UUID PRIMARY KEY,
    project_id    UUID NOT NULL REFERENCES %[1]s.project(id) ON DELETE CASCADE,
    uploaded_name TEXT NOT NULL,
    source_url    TEXT NOT NULL DEFAULT '',
    bytes         BYTEA NOT NULL,
    metadata      JSONB NOT NULL DEFAULT '{}'::jsonb,
    status        TEXT NOT NULL DEFAULT 'PENDING'
                  CHECK (status IN ('PENDING', 'QUEUED_PARSING', 'QUEUED_EMBEDDING', 'READY', 'FAILED')),
    parsed_text   TEXT,
    summary       TEXT,
    uploaded_by   TEXT NOT NULL,
    attempts      INTEGER NOT NULL DEFAULT 0,
    last_error    TEXT,
    claim_token   UUID,
    claimed_at    TIMESTAMPTZ,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    deleted_at    TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS document_status_idx
    ON %[1]s.document (status, created_at) WHERE deleted_at IS NULL;
CREATE INDEX IF NOT EXISTS document_project_idx
    ON %[1]s.document (project_id, created_at DESC);

CREATE TABLE IF NOT EXISTS %[1]s.vector_text (
    id          BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    document_id UUID NOT NULL UNIQUE REFERENCES %[1]s.document(id) ON DELETE CASCADE,
    project_id  UUID NOT NULL,
    title       TEXT NOT NULL DEFAULT '',
    url         TEXT NOT NULL DEFAULT '',
    metadata    JSONB NOT NULL DEFAULT '{}'::jsonb,
    text        TEXT NOT NULL,
    attempts    INTEGER NOT NULL DEFAULT 0,
    last_error  TEXT,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    embedded_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS vector_text_unembedded_idx
    ON %[1]s.vector_text (created_at) WHERE embedded_at IS NULL;

CREATE TABLE IF NOT EXISTS %[1]s.vector_chunk (
    id             UUID PRIMARY KEY,
    vector_text_id BIGINT NOT NULL REFERENCES %[1]s.vector_text(id) ON DELETE CASCADE,
    document_id    UUID NOT NULL,
    project_id     UUID NOT NULL,
    title          TEXT NOT NULL DEFAULT '',
    url            TEXT NOT NULL DEFAULT '',
    metadata       JSONB NOT NULL DEFAULT '{}'::jsonb,
    chunk          TEXT NOT NULL,
    chunk_index    INTEGER NOT NULL,
    embedding      vector(%[2]d) NOT NULL
);

CREATE INDEX IF NOT EXISTS vector_chunk_project_idx
    ON %[1]s.vector_chunk (project_id);
CREATE INDEX IF NOT EXISTS vector_chunk_embedding_idx
    ON %[1]s.vector_chunk USING hnsw (embedding vector_cosine_ops);
`

func tenantDDL(schema string, dimensions int) string {
	if dimensions <= 0 {
		dimensions = DefaultVectorDimensions
	}
	return fmt.Sprintf(tenantSchemaDDL, pgx.Identifier{schema}.Sanitize(), dimensions)
}
