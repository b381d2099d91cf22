package repo

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/primoscope/CoomerDL-sub000/internal/domain/consts"
	"github.com/primoscope/CoomerDL-sub000/internal/models"
	"github.com/primoscope/CoomerDL-sub000/internal/utils/logging"
)

// EventStore holds a pointer to the sql.DB.
type EventStore struct {
	DB *sql.DB
}

// GetEventStore returns an event store instance with injected database.
func GetEventStore(db *sql.DB) *EventStore {
	return &EventStore{
		DB: db,
	}
}

// GetDB returns the database.
func (es *EventStore) GetDB() *sql.DB {
	return es.DB
}

// AddEvent appends one immutable event to a job's stream and fills in the
// assigned row ID.
func (es *EventStore) AddEvent(e *models.DownloadEvent) (err error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	tx, err := es.DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.E("Panic rollback failed for event on job %q: %v", e.JobID, rbErr)
			}
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.E("Error rolling back event insert for job %q (original error: %v): %v", e.JobID, err, rbErr)
			}
		}
	}()

	query := squirrel.
		Insert(consts.DBEvents).
		Columns(
			consts.QEventJobID,
			consts.QEventType,
			consts.QEventDetail,
			consts.QEventCreatedAt,
		).
		Values(
			e.JobID,
			e.Type,
			e.Detail,
			e.CreatedAt,
		).
		RunWith(tx)

	res, err := query.Exec()
	if err != nil {
		return fmt.Errorf("failed to insert %s event for job %q: %w", e.Type, e.JobID, err)
	}

	e.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get inserted event ID for job %q: %w", e.JobID, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetJobEvents fetches a job's events in append order.
func (es *EventStore) GetJobEvents(jobID string) ([]*models.DownloadEvent, error) {
	query := squirrel.
		Select(
			consts.QEventID,
			consts.QEventJobID,
			consts.QEventType,
			consts.QEventDetail,
			consts.QEventCreatedAt,
		).
		From(consts.DBEvents).
		Where(squirrel.Eq{consts.QEventJobID: jobID}).
		OrderBy(consts.QEventID + " ASC").
		RunWith(es.DB)

	rows, err := query.Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query events for job %q: %w", jobID, err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logging.E("Failed to close event rows: %v", closeErr)
		}
	}()

	var events []*models.DownloadEvent
	for rows.Next() {
		var (
			e      models.DownloadEvent
			detail sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.JobID, &e.Type, &detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		e.Detail = nullString(detail)
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed while iterating event rows: %w", err)
	}
	return events, nil
}
