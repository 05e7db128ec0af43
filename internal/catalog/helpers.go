package catalog

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"tunegrab/internal/mediaid"
)

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		id          string
		title       string
		artist      string
		sourceURL   string
		localPath   string
		coverURL    sql.NullString
		duration    sql.NullInt64
		fileSize    sql.NullInt64
		batchID     sql.NullString
		acquiredRaw string
	)
	if err := scanner.Scan(&id, &title, &artist, &sourceURL, &localPath, &coverURL, &duration, &fileSize, &batchID, &acquiredRaw); err != nil {
		return nil, err
	}
	rec := &Record{
		ID:              mediaid.ID(id),
		Title:           title,
		Artist:          artist,
		SourceURL:       sourceURL,
		LocalPath:       localPath,
		CoverURL:        coverURL.String,
		DurationSeconds: int(duration.Int64),
		FileSize:        fileSize.Int64,
		BatchID:         batchID.String,
	}
	if acquired, err := parseTimeString(acquiredRaw); err == nil {
		rec.AcquiredAt = acquired
	}
	return rec, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}
