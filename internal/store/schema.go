package store

const schema = `
CREATE TABLE IF NOT EXISTS keys (
    path TEXT PRIMARY KEY,
    created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS entries (
    path TEXT NOT NULL,
    name TEXT NOT NULL,
    data BLOB NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (path, name),
    FOREIGN KEY (path) REFERENCES keys(path) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_entries_path ON entries(path);
`
