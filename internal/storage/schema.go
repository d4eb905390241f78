package storage

import "github.com/cuongbtq/queuectl/shared/database"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS jobs (
	id            TEXT PRIMARY KEY,
	command       TEXT NOT NULL,
	state         TEXT NOT NULL,
	attempts      INTEGER NOT NULL DEFAULT 0,
	max_retries   INTEGER NOT NULL,
	created_at    TIMESTAMP NOT NULL,
	updated_at    TIMESTAMP NOT NULL,
	next_retry_at TIMESTAMP,
	error_message TEXT,
	output        TEXT
);
CREATE INDEX IF NOT EXISTS idx_jobs_state_created_at ON jobs (state, created_at);
CREATE TABLE IF NOT EXISTS queue_config (
	id                   INTEGER PRIMARY KEY,
	max_retries          INTEGER NOT NULL,
	backoff_base         INTEGER NOT NULL,
	worker_poll_interval INTEGER NOT NULL
);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS jobs (
	id            TEXT PRIMARY KEY,
	command       TEXT NOT NULL,
	state         TEXT NOT NULL,
	attempts      INTEGER NOT NULL DEFAULT 0,
	max_retries   INTEGER NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL,
	next_retry_at TIMESTAMPTZ,
	error_message TEXT,
	output        TEXT
);
CREATE INDEX IF NOT EXISTS idx_jobs_state_created_at ON jobs (state, created_at);
CREATE TABLE IF NOT EXISTS queue_config (
	id                   INTEGER PRIMARY KEY,
	max_retries          INTEGER NOT NULL,
	backoff_base         INTEGER NOT NULL,
	worker_poll_interval INTEGER NOT NULL
);
`

func schemaFor(driver string) string {
	if driver == database.DriverPostgres {
		return postgresSchema
	}
	return sqliteSchema
}

// jobColumns is the column list shared by every job query
const jobColumns = `id, command, state, attempts, max_retries, created_at, updated_at, next_retry_at, error_message, output`
