package db

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"NewsBlast/internal/models"
	"NewsBlast/internal/progress"
)

// Store is the postgres-backed progress store. The sending_state column is
// jsonb holding exactly the models.SendingState shape; it is the sole
// durable record of delivery outcomes and is never expired by the engine.
//
// Schema:
//
//	CREATE TABLE newsletters (
//	    id            text PRIMARY KEY,
//	    subject       text NOT NULL,
//	    html_content  text NOT NULL,
//	    status        text NOT NULL,
//	    sending_state jsonb,
//	    created_at    timestamptz NOT NULL,
//	    updated_at    timestamptz NOT NULL
//	);
type Store struct {
	Pool *pgxpool.Pool
}

func New(conn string) (*Store, error) {
	pool, err := pgxpool.New(context.Background(), conn)
	if err != nil {
		return nil, err
	}

	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Create(ctx context.Context, subject, htmlContent string) (*models.Newsletter, error) {
	now := time.Now().UTC()
	n := &models.Newsletter{
		ID:          uuid.NewString(),
		Subject:     subject,
		HTMLContent: htmlContent,
		Status:      models.StatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := s.Pool.Exec(ctx,
		`INSERT INTO newsletters
		 (id, subject, html_content, status, sending_state, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,NULL,$5,$5)`,
		n.ID,
		n.Subject,
		n.HTMLContent,
		n.Status,
		now,
	)
	if err != nil {
		return nil, &progress.PersistenceError{Op: "insert", Err: err}
	}

	return n, nil
}

func (s *Store) Get(ctx context.Context, id string) (*models.Newsletter, error) {
	row := s.Pool.QueryRow(ctx,
		`SELECT id, subject, html_content, status, sending_state, created_at, updated_at
		 FROM newsletters WHERE id=$1`,
		id,
	)
	return scanNewsletter(row)
}

// RecordChunk merges one chunk result under a row lock so two concurrent
// calls for the same newsletter cannot interleave a read-modify-write and
// lose an update. The write is committed before the result is reported back.
func (s *Store) RecordChunk(ctx context.Context, id string, cr models.ChunkResult, round progress.Round) (progress.Progress, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return progress.Progress{}, &progress.PersistenceError{Op: "begin", Err: err}
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx,
		`SELECT id, subject, html_content, status, sending_state, created_at, updated_at
		 FROM newsletters WHERE id=$1 FOR UPDATE`,
		id,
	)
	n, err := scanNewsletter(row)
	if err != nil {
		return progress.Progress{}, err
	}

	p := progress.Apply(n, cr, round)

	stateJSON, err := json.Marshal(n.SendingState)
	if err != nil {
		return progress.Progress{}, &progress.PersistenceError{Op: "encode", Err: err}
	}

	_, err = tx.Exec(ctx,
		`UPDATE newsletters
		 SET status=$1,
		     sending_state=$2,
		     updated_at=NOW()
		 WHERE id=$3`,
		n.Status,
		stateJSON,
		id,
	)
	if err != nil {
		return progress.Progress{}, &progress.PersistenceError{Op: "update", Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return progress.Progress{}, &progress.PersistenceError{Op: "commit", Err: err}
	}

	return p, nil
}

func (s *Store) FailedRecipients(ctx context.Context, id string) ([]string, error) {
	n, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.SendingState == nil {
		return nil, nil
	}
	return n.SendingState.FailedEmails(), nil
}

func scanNewsletter(row pgx.Row) (*models.Newsletter, error) {
	var (
		n         models.Newsletter
		stateJSON []byte
	)

	err := row.Scan(&n.ID, &n.Subject, &n.HTMLContent, &n.Status, &stateJSON, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, progress.ErrNotFound
	}
	if err != nil {
		return nil, &progress.PersistenceError{Op: "select", Err: err}
	}

	if len(stateJSON) > 0 {
		var st models.SendingState
		if err := json.Unmarshal(stateJSON, &st); err != nil {
			return nil, &progress.PersistenceError{Op: "decode", Err: err}
		}
		n.SendingState = &st
	}

	return &n, nil
}
