package sqlite

// Schema is applied by New on every start; statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL DEFAULT '',
	is_guest      BOOLEAN NOT NULL DEFAULT 0,
	gender        TEXT NOT NULL DEFAULT 'female',
	avatar        TEXT NOT NULL DEFAULT '',
	level         INTEGER NOT NULL DEFAULT 1,
	exp           INTEGER NOT NULL DEFAULT 0,
	is_online     BOOLEAN NOT NULL DEFAULT 0,
	login_token   TEXT,
	last_seen     DATETIME,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS message_logs (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	room         TEXT NOT NULL,
	username     TEXT NOT NULL,
	role         TEXT NOT NULL,
	body         TEXT NOT NULL,
	mode         TEXT NOT NULL DEFAULT 'public',
	target       TEXT NOT NULL DEFAULT '',
	message_type TEXT NOT NULL DEFAULT 'text',
	color        TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_message_logs_room ON message_logs(room, id DESC);
`
