// Package repo is used for performing database repository operations.
package repo

import (
	"database/sql"

	"github.com/primoscope/CoomerDL-sub000/internal/contracts"
)

// Store holds the database variable and sub-stores like JobStore etc.
type Store struct {
	db            *sql.DB
	jobStore      *JobStore
	eventStore    *EventStore
	downloadStore *DownloadStore
}

// InitStores injects the database into the store methods.
func InitStores(db *sql.DB) *Store {
	return &Store{
		db:            db,
		jobStore:      GetJobStore(db),
		eventStore:    GetEventStore(db),
		downloadStore: GetDownloadStore(db),
	}
}

// JobStore with pointer receiver.
func (s *Store) JobStore() contracts.JobStore {
	return s.jobStore
}

// EventStore with pointer receiver.
func (s *Store) EventStore() contracts.EventStore {
	return s.eventStore
}

// DownloadStore with pointer receiver.
func (s *Store) DownloadStore() contracts.DownloadStore {
	return s.downloadStore
}
