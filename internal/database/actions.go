// internal/database/actions.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/tycoon/internal/cache"
)

// Schema creates the archive tables if they are missing.
const Schema = `
CREATE TABLE IF NOT EXISTS tycoon_games (
	id             INTEGER PRIMARY KEY,
	code           TEXT NOT NULL,
	status         TEXT NOT NULL DEFAULT 'in_progress',
	last_action_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	end_time       TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS tycoon_game_actions (
	id             UUID PRIMARY KEY,
	game_id        INTEGER NOT NULL REFERENCES tycoon_games (id),
	action_index   INTEGER NOT NULL,
	actor_user_id  INTEGER NOT NULL,
	action_type    TEXT NOT NULL,
	action_payload JSONB,
	created_at     TIMESTAMPTZ NOT NULL
);`

// TxBeginner is satisfied by *pgxpool.Pool and pgx.Conn.
type TxBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// ActionStore archives turn action records.
type ActionStore struct {
	db TxBeginner
}

func NewActionStore(db TxBeginner) *ActionStore {
	return &ActionStore{db: db}
}

// Migrate applies Schema.
func (s *ActionStore) Migrate(ctx context.Context) error {
	return beginTxFunc(ctx, s.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, Schema)
		return err
	})
}

// InsertActions writes a batch in one transaction. Records already archived
// are skipped, so a replayed batch is harmless.
func (s *ActionStore) InsertActions(ctx context.Context, records []cache.GameActionRecord) error {
	if len(records) == 0 {
		return nil
	}
	err := beginTxFunc(ctx, s.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range records {
			if err := insertGameActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insertGameActionTx: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("insert %d actions: %w", len(records), err)
	}
	return nil
}

// MarkGameAbandoned marks a game abandoned if it was still in progress.
func (s *ActionStore) MarkGameAbandoned(ctx context.Context, gameID int) error {
	return beginTxFunc(ctx, s.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			UPDATE tycoon_games
			SET status = 'abandoned', end_time = NOW()
			WHERE id = $1 AND status = 'in_progress'
		`
		_, err := tx.Exec(ctx, q, gameID)
		return err
	})
}

// insertGameActionTx upserts the game row and inserts one action. A
// finish-by-time or bankruptcy-ended game is finalized.
func insertGameActionTx(ctx context.Context, tx pgx.Tx, rec cache.GameActionRecord) error {
	at := time.UnixMilli(rec.Timestamp)
	upsertGameQ := `
		INSERT INTO tycoon_games (id, code, status, last_action_at)
		VALUES ($1, $2, 'in_progress', $3)
		ON CONFLICT (id)
		DO UPDATE SET last_action_at = GREATEST(tycoon_games.last_action_at, EXCLUDED.last_action_at)
	`
	if _, err := tx.Exec(ctx, upsertGameQ, rec.GameID, rec.GameCode, at); err != nil {
		return err
	}

	jsonPayload, err := json.Marshal(rec.ActionPayload)
	if err != nil {
		return err
	}
	actionInsertQ := `
		INSERT INTO tycoon_game_actions (
			id, game_id, action_index, actor_user_id, action_type, action_payload, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = tx.Exec(ctx, actionInsertQ,
		rec.ID, rec.GameID, rec.ActionIndex, rec.ActorUserID, rec.ActionType, jsonPayload, at,
	)
	if err != nil {
		return err
	}

	if rec.ActionType == "finish_by_time" {
		finalizeQ := `
			UPDATE tycoon_games
			SET status = 'completed', end_time = $2
			WHERE id = $1 AND status = 'in_progress'
		`
		if _, err := tx.Exec(ctx, finalizeQ, rec.GameID, at); err != nil {
			return err
		}
	}
	return nil
}

// beginTxFunc starts a transaction, calls f with it, and commits or rolls
// back as needed.
func beginTxFunc(ctx context.Context, db TxBeginner, txOptions pgx.TxOptions, f func(tx pgx.Tx) error) error {
	tx, err := db.BeginTx(ctx, txOptions)
	if err != nil {
		return err
	}
	if err := f(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("tx rollback error: %v; original error: %w", rbErr, err)
		}
		return err
	}
	return tx.Commit(ctx)
}
