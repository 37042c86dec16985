// Package store mirrors picked photos and the license catalog into Postgres.
package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"flickrpicker/pkg/collector"
	"flickrpicker/pkg/flickr"
	"flickrpicker/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS flickr_licenses (
	id   INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	url  TEXT
);

CREATE TABLE IF NOT EXISTS picked_photos (
	run_id        UUID NOT NULL,
	photo_id      TEXT NOT NULL,
	license       TEXT NOT NULL,
	owner         TEXT NOT NULL,
	url           TEXT NOT NULL,
	source        TEXT NOT NULL,
	rotation      TEXT NOT NULL,
	width         INTEGER NOT NULL,
	height        INTEGER NOT NULL,
	date_uploaded TEXT NOT NULL,
	date_taken    TEXT NOT NULL,
	taken_unknown TEXT NOT NULL,
	inserted_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (run_id, photo_id)
);
`

// Store wraps a connection pool
type Store struct {
	db     *pgxpool.Pool
	logger logger.Logger
}

// Connect opens a pool for databaseURL, pings it and creates missing tables
func Connect(ctx context.Context, databaseURL string, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	log = log.WithField("component", "store")

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid database url: %w", err)
	}
	cfg.ConnConfig.Tracer = &tracer{logger: log}

	db, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping: %w", err)
	}

	s := &Store{db: db, logger: log}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// Close releases the pool
func (s *Store) Close() {
	s.db.Close()
}

// UpsertLicenses writes the catalog in one transaction. Entries with a
// non-numeric id are skipped.
func (s *Store) UpsertLicenses(ctx context.Context, licenses []flickr.License) (int, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, l := range licenses {
		id, err := strconv.Atoi(l.ID.String())
		if err != nil {
			s.logger.WarnWithFields("skipping license with non-numeric id", map[string]interface{}{
				"id": l.ID.String(),
			})
			continue
		}
		var url *string
		if l.URL != "" {
			u := l.URL
			url = &u
		}
		batch.Queue(`
			INSERT INTO flickr_licenses (id, name, url)
			VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				url = EXCLUDED.url`,
			id, l.Name, url)
	}
	n := batch.Len()
	if n > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return 0, fmt.Errorf("failed to upsert licenses: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return n, nil
}

// GetLicenses reads the stored catalog ordered by id
func (s *Store) GetLicenses(ctx context.Context) ([]flickr.License, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name, COALESCE(url, '') FROM flickr_licenses ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []flickr.License
	for rows.Next() {
		var (
			id   int
			name string
			url  string
		)
		if err := rows.Scan(&id, &name, &url); err != nil {
			return nil, err
		}
		out = append(out, flickr.License{ID: flickr.FlexString(strconv.Itoa(id)), Name: name, URL: url})
	}
	return out, rows.Err()
}

// CountRecords returns how many photos a run stored
func (s *Store) CountRecords(ctx context.Context, runID string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `SELECT count(*) FROM picked_photos WHERE run_id = $1`, runID).Scan(&n)
	return n, err
}

// RecordSink writes collector records of one run
type RecordSink struct {
	store *Store
	runID string
}

// NewRecordSink returns a sink tagging rows with runID
func (s *Store) NewRecordSink(runID string) *RecordSink {
	return &RecordSink{store: s, runID: runID}
}

// Write inserts rec. A row already present for the run is left alone.
func (r *RecordSink) Write(ctx context.Context, rec collector.Record) error {
	_, err := r.store.db.Exec(ctx, `
		INSERT INTO picked_photos (
			run_id, photo_id, license, owner, url, source, rotation,
			width, height, date_uploaded, date_taken, taken_unknown
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (run_id, photo_id) DO NOTHING`,
		r.runID, rec.ID, rec.License, rec.Owner, rec.URL, rec.Source, rec.Rotation,
		rec.Width, rec.Height, rec.DateUploaded, rec.DateTaken, rec.TakenUnknown,
	)
	if err != nil {
		return fmt.Errorf("failed to insert photo %s: %w", rec.ID, err)
	}
	return nil
}

// Close logs how many photos the run stored. The Store owns the pool.
func (r *RecordSink) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n, err := r.store.CountRecords(ctx, r.runID)
	if err != nil {
		return fmt.Errorf("failed to count photos of run %s: %w", r.runID, err)
	}
	r.store.logger.InfoWithFields("run mirrored", map[string]interface{}{
		"run_id": r.runID,
		"photos": n,
	})
	return nil
}
