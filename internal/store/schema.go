package store

const schema = `
CREATE TABLE IF NOT EXISTS batch_manifests (
    batch_id TEXT PRIMARY KEY,
    user_id TEXT,
    created_at TIMESTAMP NOT NULL,
    expires_at TIMESTAMP NOT NULL,
    total INTEGER NOT NULL,
    installed INTEGER NOT NULL,
    updated INTEGER NOT NULL,
    failed INTEGER NOT NULL,
    incompatible INTEGER NOT NULL,
    rolled_back INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS manifest_plugins (
    batch_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    slug TEXT NOT NULL,
    action TEXT NOT NULL,
    previous_version TEXT,
    new_version TEXT,
    backup_path TEXT,
    status TEXT NOT NULL,
    descriptor TEXT,
    activated BOOLEAN,
    PRIMARY KEY (batch_id, position),
    FOREIGN KEY (batch_id) REFERENCES batch_manifests(batch_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS active_batches (
    batch_id TEXT PRIMARY KEY,
    added_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS update_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    action TEXT NOT NULL,
    batch_id TEXT,
    slug TEXT,
    name TEXT,
    from_version TEXT,
    to_version TEXT,
    status TEXT,
    message TEXT,
    is_dry_run BOOLEAN,
    user_id TEXT,
    timestamp TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_manifest_plugins ON manifest_plugins(batch_id);
CREATE INDEX IF NOT EXISTS idx_manifest_expires ON batch_manifests(expires_at);
CREATE INDEX IF NOT EXISTS idx_log_timestamp ON update_log(timestamp);
CREATE INDEX IF NOT EXISTS idx_log_batch ON update_log(batch_id);
`
