package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"tunegrab/internal/mediaid"
)

// Record is one acquired media item in the library.
type Record struct {
	ID              mediaid.ID `json:"id"`
	Title           string     `json:"title"`
	Artist          string     `json:"artist"`
	SourceURL       string     `json:"source_url"`
	LocalPath       string     `json:"local_path"`
	CoverURL        string     `json:"cover_url,omitempty"`
	DurationSeconds int        `json:"duration_seconds"`
	FileSize        int64      `json:"file_size"`
	BatchID         string     `json:"batch_id,omitempty"`
	AcquiredAt      time.Time  `json:"acquired_at"`
}

const recordColumns = "id, title, artist, source_url, local_path, cover_url, duration_seconds, file_size, batch_id, acquired_at"

// Lookup returns the record for id, or nil when the catalog has none.
func (s *Store) Lookup(ctx context.Context, id mediaid.ID) (*Record, error) {
	var rec *Record
	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(ctx, "SELECT "+recordColumns+" FROM media WHERE id = ?", string(id))
		var scanErr error
		rec, scanErr = scanRecord(row)
		return scanErr
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", id, err)
	}
	return rec, nil
}

// Exists reports whether id is already cataloged.
func (s *Store) Exists(ctx context.Context, id mediaid.ID) (bool, error) {
	rec, err := s.Lookup(ctx, id)
	return rec != nil, err
}

// Upsert inserts rec or replaces the existing record with the same ID.
func (s *Store) Upsert(ctx context.Context, rec *Record) error {
	if rec == nil {
		return errors.New("upsert: nil record")
	}
	if rec.ID == "" {
		return errors.New("upsert: record id required")
	}
	acquired := rec.AcquiredAt
	if acquired.IsZero() {
		acquired = time.Now()
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO media (`+recordColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            title = excluded.title,
            artist = excluded.artist,
            source_url = excluded.source_url,
            local_path = excluded.local_path,
            cover_url = excluded.cover_url,
            duration_seconds = excluded.duration_seconds,
            file_size = excluded.file_size,
            batch_id = excluded.batch_id,
            acquired_at = excluded.acquired_at`,
		string(rec.ID),
		rec.Title,
		rec.Artist,
		rec.SourceURL,
		rec.LocalPath,
		nullableString(rec.CoverURL),
		rec.DurationSeconds,
		rec.FileSize,
		nullableString(rec.BatchID),
		acquired.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", rec.ID, err)
	}
	return nil
}

// ListOptions filters List results.
type ListOptions struct {
	Limit   int
	Offset  int
	Search  string
	BatchID string
}

// List returns records newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]*Record, error) {
	var (
		where []string
		args  []any
	)
	if term := strings.TrimSpace(opts.Search); term != "" {
		pattern := "%" + escapeLike(term) + "%"
		where = append(where, `(title LIKE ? ESCAPE '\' OR artist LIKE ? ESCAPE '\' OR id LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}
	if batch := strings.TrimSpace(opts.BatchID); batch != "" {
		where = append(where, "batch_id = ?")
		args = append(args, batch)
	}
	query := "SELECT " + recordColumns + " FROM media"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY acquired_at DESC, id"
	if opts.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, opts.Limit, max(opts.Offset, 0))
	}

	var records []*Record
	err := retryOnBusy(ctx, func() error {
		records = records[:0]
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			rec, err := scanRecord(rows)
			if err != nil {
				return err
			}
			records = append(records, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	return records, nil
}

// Count returns the number of cataloged records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM media").Scan(&n)
	})
	if err != nil {
		return 0, fmt.Errorf("count media: %w", err)
	}
	return n, nil
}

// Remove deletes the record for id. It reports whether a record existed.
// The audio file itself is left alone.
func (s *Store) Remove(ctx context.Context, id mediaid.ID) (bool, error) {
	res, err := s.execWithRetry(ctx, "DELETE FROM media WHERE id = ?", string(id))
	if err != nil {
		return false, fmt.Errorf("remove %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}
