package database

import (
	"database/sql"
	"fmt"
)

// initJobsTable initializes the jobs table.
func initJobsTable(tx *sql.Tx) error {
	query := `
    CREATE TABLE IF NOT EXISTS jobs (
        id TEXT PRIMARY KEY,
        url TEXT NOT NULL,
        domain TEXT NOT NULL,
        status TEXT NOT NULL CHECK(status IN ('pending', 'running', 'completed', 'failed', 'cancelled')),
        priority INTEGER NOT NULL DEFAULT 0,
        attempt_count INTEGER NOT NULL DEFAULT 0,
        max_attempts INTEGER NOT NULL DEFAULT 3,
        next_retry_at TIMESTAMP,
        download_dir TEXT,
        error_kind TEXT,
        error_msg TEXT,
        created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
        updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
        started_at TIMESTAMP,
        finished_at TIMESTAMP
    );
    CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
    CREATE INDEX IF NOT EXISTS idx_jobs_domain ON jobs(domain);
    CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);
    `
	if _, err := tx.Exec(query); err != nil {
		return fmt.Errorf("failed to create jobs table: %w", err)
	}
	return nil
}

// initEventsTable initializes the append-only job events table.
func initEventsTable(tx *sql.Tx) error {
	query := `
    CREATE TABLE IF NOT EXISTS events (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        job_id TEXT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
        event_type TEXT NOT NULL CHECK(event_type IN ('ADDED', 'STARTED', 'PROGRESS', 'RETRY', 'DONE', 'FAILED', 'CANCELLED')),
        detail TEXT,
        created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
    );
    CREATE INDEX IF NOT EXISTS idx_events_job ON events(job_id);
    `
	if _, err := tx.Exec(query); err != nil {
		return fmt.Errorf("failed to create events table: %w", err)
	}
	return nil
}

// initDownloadsTable initializes the dedup downloads table. Rows outlive
// their jobs so dedup keeps working after history purges.
func initDownloadsTable(tx *sql.Tx) error {
	query := `
    CREATE TABLE IF NOT EXISTS downloads (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        job_id TEXT REFERENCES jobs(id) ON DELETE SET NULL,
        url TEXT NOT NULL UNIQUE,
        file_path TEXT,
        file_size INTEGER,
        content_type TEXT,
        created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
    );
    CREATE UNIQUE INDEX IF NOT EXISTS idx_downloads_url ON downloads(url);
    CREATE INDEX IF NOT EXISTS idx_downloads_job ON downloads(job_id);
    `
	if _, err := tx.Exec(query); err != nil {
		return fmt.Errorf("failed to create downloads table: %w", err)
	}
	return nil
}
