package repo

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/primoscope/CoomerDL-sub000/internal/domain/consts"
	"github.com/primoscope/CoomerDL-sub000/internal/models"
	"github.com/primoscope/CoomerDL-sub000/internal/utils/logging"
)

// DownloadStore holds a pointer to the sql.DB.
type DownloadStore struct {
	DB *sql.DB
}

// GetDownloadStore returns a download store instance with injected database.
func GetDownloadStore(db *sql.DB) *DownloadStore {
	return &DownloadStore{
		DB: db,
	}
}

// GetDB returns the database.
func (ds *DownloadStore) GetDB() *sql.DB {
	return ds.DB
}

// HasDownloaded reports whether a media URL was already fetched, by this job
// or any earlier one.
func (ds *DownloadStore) HasDownloaded(mediaURL string) (bool, error) {
	query := squirrel.
		Select(consts.QDLID).
		From(consts.DBDownloads).
		Where(squirrel.Eq{consts.QDLURL: mediaURL}).
		Limit(1).
		RunWith(ds.DB)

	var id int64
	if err := query.QueryRow().Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to query download record for %q: %w", mediaURL, err)
	}
	return true, nil
}

// AddDownload records one fetched media URL for dedup. Re-recording an
// already-known URL is a no-op, first writer wins.
func (ds *DownloadStore) AddDownload(rec *models.DownloadRecord) (err error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	tx, err := ds.DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.E("Panic rollback failed for download record %q: %v", rec.MediaURL, rbErr)
			}
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.E("Error rolling back download record %q (original error: %v): %v", rec.MediaURL, err, rbErr)
			}
		}
	}()

	// Orphan records (no owning job) store NULL so the FK stays satisfied.
	var jobRef any
	if rec.JobID != "" {
		jobRef = rec.JobID
	}

	query := squirrel.
		Insert(consts.DBDownloads).
		Columns(
			consts.QDLJobID,
			consts.QDLURL,
			consts.QDLFilePath,
			consts.QDLFileSize,
			consts.QDLContentType,
			consts.QDLCreatedAt,
		).
		Values(
			jobRef,
			rec.MediaURL,
			rec.FilePath,
			rec.FileSize,
			rec.ContentType,
			rec.CreatedAt,
		).
		Suffix("ON CONFLICT(" + consts.QDLURL + ") DO NOTHING").
		RunWith(tx)

	if _, err = query.Exec(); err != nil {
		return fmt.Errorf("failed to insert download record %q: %w", rec.MediaURL, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetDownloads fetches the download records attributed to one job.
func (ds *DownloadStore) GetDownloads(jobID string) ([]*models.DownloadRecord, error) {
	query := squirrel.
		Select(
			consts.QDLID,
			consts.QDLJobID,
			consts.QDLURL,
			consts.QDLFilePath,
			consts.QDLFileSize,
			consts.QDLContentType,
			consts.QDLCreatedAt,
		).
		From(consts.DBDownloads).
		Where(squirrel.Eq{consts.QDLJobID: jobID}).
		OrderBy(consts.QDLID + " ASC").
		RunWith(ds.DB)

	rows, err := query.Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query downloads for job %q: %w", jobID, err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logging.E("Failed to close download rows: %v", closeErr)
		}
	}()

	var recs []*models.DownloadRecord
	for rows.Next() {
		var (
			rec         models.DownloadRecord
			jobRef      sql.NullString
			filePath    sql.NullString
			fileSize    sql.NullInt64
			contentType sql.NullString
		)
		if err := rows.Scan(&rec.ID, &jobRef, &rec.MediaURL, &filePath, &fileSize, &contentType, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan download row: %w", err)
		}
		rec.JobID = nullString(jobRef)
		rec.FilePath = nullString(filePath)
		rec.FileSize = fileSize.Int64
		rec.ContentType = nullString(contentType)
		recs = append(recs, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed while iterating download rows: %w", err)
	}
	return recs, nil
}
