package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id          TEXT PRIMARY KEY,
	username    TEXT NOT NULL DEFAULT '',
	api_token   BLOB NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS tags (
	id          TEXT NOT NULL,
	owner_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	name        TEXT NOT NULL,
	updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (owner_id, id)
);

CREATE TABLE IF NOT EXISTS tasks (
	id              TEXT PRIMARY KEY,
	remote_id       TEXT NOT NULL UNIQUE,
	owner_id        TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	name            TEXT NOT NULL,
	notes           TEXT NOT NULL DEFAULT '',
	priority        REAL NOT NULL DEFAULT 1,
	due_in_days     INTEGER NOT NULL DEFAULT 0,
	recurrence_kind TEXT NOT NULL CHECK (recurrence_kind IN ('day', 'week', 'month')),
	delay_days      INTEGER NOT NULL DEFAULT 0,
	weekday         INTEGER NOT NULL DEFAULT 0,
	month_day       INTEGER NOT NULL DEFAULT 1,
	created_at      DATETIME NOT NULL,
	updated_at      DATETIME NOT NULL
);

-- tag_id is a remote tag UUID, not a foreign key into tags.
CREATE TABLE IF NOT EXISTS task_tags (
	task_id  TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	tag_id   TEXT NOT NULL,
	position INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (task_id, tag_id)
);

CREATE INDEX IF NOT EXISTS idx_tasks_owner_id ON tasks(owner_id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_task_tags_tag_id ON task_tags(tag_id);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
