package storage

import (
	"context"
	"database/sql"
	"time"
)

type Storage struct {
	DB *sql.DB
}

func (s *Storage) InitSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS downloads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		provider TEXT NOT NULL,
		subtitle_id TEXT NOT NULL,
		file_name TEXT,
		language TEXT,
		imdb_id TEXT,
		link TEXT,
		download_count INTEGER NOT NULL DEFAULT 1,
		last_downloaded_at TIMESTAMP NOT NULL,
		UNIQUE(provider, subtitle_id)
	);`
	_, err := s.DB.ExecContext(ctx, query)
	return err
}

const recordDownloadQuery = `
  INSERT INTO downloads (provider, subtitle_id, file_name, language, imdb_id, link, download_count, last_downloaded_at)
  VALUES (?, ?, ?, ?, ?, ?, 1, ?)
  ON CONFLICT(provider, subtitle_id)
  DO UPDATE SET
    file_name = excluded.file_name,
    language = excluded.language,
    imdb_id = excluded.imdb_id,
    link = excluded.link,
    download_count = download_count + 1,
    last_downloaded_at = excluded.last_downloaded_at;
`

func (s *Storage) RecordDownload(ctx context.Context, rec DownloadRecord) error {
	when := rec.LastDownloadedAt
	if when.IsZero() {
		when = time.Now().UTC()
	}
	_, err := s.DB.ExecContext(ctx, recordDownloadQuery,
		rec.Provider,
		rec.SubtitleID,
		rec.FileName,
		rec.Language,
		rec.IMDBID,
		rec.Link,
		when,
	)
	return err
}

func (s *Storage) GetDownload(ctx context.Context, provider, subtitleID string) (DownloadRecord, error) {
	var rec DownloadRecord
	err := s.DB.QueryRowContext(ctx,
		`SELECT provider, subtitle_id, file_name, language, imdb_id, link, download_count, last_downloaded_at
	 FROM downloads WHERE provider=? AND subtitle_id=?`,
		provider, subtitleID,
	).Scan(&rec.Provider, &rec.SubtitleID, &rec.FileName, &rec.Language,
		&rec.IMDBID, &rec.Link, &rec.DownloadCount, &rec.LastDownloadedAt)

	return rec, err
}

func (s *Storage) ListDownloadsFiltered(ctx context.Context, provider, language, name string) ([]DownloadRecord, error) {
	query := `
		SELECT provider, subtitle_id, file_name, language, imdb_id, link, download_count, last_downloaded_at
		FROM downloads
		WHERE 1=1
	`
	var args []any

	if provider != "" {
		query += " AND provider = ?"
		args = append(args, provider)
	}

	if language != "" {
		query += " AND language = ?"
		args = append(args, language)
	}

	if name != "" {
		query += " AND file_name LIKE ?"
		args = append(args, "%"+name+"%")
	}

	query += " ORDER BY last_downloaded_at DESC, provider, subtitle_id"

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []DownloadRecord
	for rows.Next() {
		var rec DownloadRecord
		if err := rows.Scan(&rec.Provider, &rec.SubtitleID, &rec.FileName, &rec.Language,
			&rec.IMDBID, &rec.Link, &rec.DownloadCount, &rec.LastDownloadedAt); err != nil {
			return nil, err
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}

func (s *Storage) DeleteDownload(ctx context.Context, provider, subtitleID string) error {
	_, err := s.DB.ExecContext(ctx,
		`DELETE FROM downloads WHERE provider=? AND subtitle_id=?`,
		provider, subtitleID)
	return err
}

// PurgeOlderThan removes history entries last touched before the cutoff and
// returns how many rows were deleted.
func (s *Storage) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM downloads WHERE last_downloaded_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
