package repository

// schema is written in the subset of SQL shared by SQLite and PostgreSQL
var schema = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		id              TEXT PRIMARY KEY,
		collection      TEXT NOT NULL,
		owner_id        TEXT NOT NULL,
		kind            TEXT NOT NULL,
		status          TEXT NOT NULL,
		status_detail   TEXT NOT NULL DEFAULT '',
		progress        INTEGER NOT NULL DEFAULT 0,
		inputs          TEXT NOT NULL,
		artifacts       TEXT NOT NULL,
		translated_text TEXT NOT NULL DEFAULT '',
		error_message   TEXT NOT NULL DEFAULT '',
		version         BIGINT NOT NULL DEFAULT 0,
		created_at      TIMESTAMP NOT NULL,
		updated_at      TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_owner ON jobs (owner_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_status_updated ON jobs (status, updated_at)`,
	`CREATE TABLE IF NOT EXISTS chat_sessions (
		id               TEXT PRIMARY KEY,
		owner_id         TEXT NOT NULL,
		status           TEXT NOT NULL,
		created_at       TIMESTAMP NOT NULL,
		last_interaction TIMESTAMP NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_chat_sessions_owner ON chat_sessions (owner_id, status)`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
		id                  TEXT PRIMARY KEY,
		session_id          TEXT NOT NULL,
		sender              TEXT NOT NULL,
		content             TEXT NOT NULL,
		type                TEXT NOT NULL,
		is_error            BOOLEAN NOT NULL DEFAULT FALSE,
		original_message_id TEXT NOT NULL DEFAULT '',
		user_id             TEXT NOT NULL DEFAULT '',
		created_at          TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_chat_messages_session ON chat_messages (session_id, created_at)`,
}
