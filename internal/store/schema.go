package store

// schemaSQL is applied idempotently at every startup. search_vector is a
// stored generated column so it can never drift from title/description/content.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS pages (
	id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	url           TEXT NOT NULL,
	url_hash      TEXT NOT NULL UNIQUE,
	title         TEXT,
	description   TEXT,
	author        TEXT,
	headings      TEXT[] NOT NULL DEFAULT '{}',
	keywords      TEXT[] NOT NULL DEFAULT '{}',
	links         TEXT[] NOT NULL DEFAULT '{}',
	script_links  TEXT[] NOT NULL DEFAULT '{}',
	content       TEXT NOT NULL DEFAULT '',
	domain        TEXT NOT NULL,
	content_hash  TEXT NOT NULL,
	word_count    INTEGER NOT NULL DEFAULT 0,
	search_vector TSVECTOR GENERATED ALWAYS AS (
		to_tsvector('english',
			coalesce(title, '') || ' ' || coalesce(description, '') || ' ' || coalesce(content, ''))
	) STORED,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS pages_search_vector_idx ON pages USING GIN (search_vector);
CREATE INDEX IF NOT EXISTS pages_domain_idx ON pages (domain);
CREATE INDEX IF NOT EXISTS pages_created_at_idx ON pages (created_at DESC);

CREATE TABLE IF NOT EXISTS indexer_stats (
	date                   DATE PRIMARY KEY,
	pages_processed        BIGINT NOT NULL DEFAULT 0,
	pages_inserted         BIGINT NOT NULL DEFAULT 0,
	pages_updated          BIGINT NOT NULL DEFAULT 0,
	pages_skipped          BIGINT NOT NULL DEFAULT 0,
	processing_errors      BIGINT NOT NULL DEFAULT 0,
	avg_processing_time_ms DOUBLE PRECISION NOT NULL DEFAULT 0
);
`
