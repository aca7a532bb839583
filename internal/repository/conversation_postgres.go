package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bizintake/onboarding-backend/internal/entity"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the Postgres error code for duplicate keys.
const uniqueViolation = "23505"

// ConversationPostgres persists conversation contexts as JSONB snapshots.
// The busy column is the cross-instance turn latch: Acquire flips it inside
// a single UPDATE so only one turn at a time owns the context.
type ConversationPostgres struct {
	db *pgxpool.Pool
}

func NewConversationPostgres(db *pgxpool.Pool) *ConversationPostgres {
	return &ConversationPostgres{db: db}
}

func (r *ConversationPostgres) Create(ctx context.Context, conv *entity.ConversationContext) error {
	snapshot, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("marshal context: %w", err)
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO conversation_contexts (session_id, context, created_at, updated_at)
		 VALUES ($1, $2, $3, $4)`,
		conv.SessionID, snapshot, conv.CreatedAt, conv.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("session %s already exists: %w", conv.SessionID, entity.ErrInvalidParameter)
		}
		return fmt.Errorf("create session: %w", err)
	}

	return nil
}

func (r *ConversationPostgres) Get(ctx context.Context, sessionID string) (*entity.ConversationContext, error) {
	var snapshot []byte
	err := r.db.QueryRow(ctx,
		`SELECT context FROM conversation_contexts WHERE session_id = $1`,
		sessionID,
	).Scan(&snapshot)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, entity.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	return unmarshalContext(snapshot)
}

func (r *ConversationPostgres) Acquire(ctx context.Context, sessionID string) (*entity.ConversationContext, error) {
	var snapshot []byte
	err := r.db.QueryRow(ctx,
		`UPDATE conversation_contexts
		 SET busy = TRUE
		 WHERE session_id = $1 AND NOT busy
		 RETURNING context`,
		sessionID,
	).Scan(&snapshot)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either missing or already held; look at existence to tell apart.
		var exists bool
		if qerr := r.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM conversation_contexts WHERE session_id = $1)`,
			sessionID,
		).Scan(&exists); qerr != nil {
			return nil, fmt.Errorf("check session: %w", qerr)
		}
		if exists {
			return nil, entity.ErrSessionBusy
		}
		return nil, entity.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("acquire session: %w", err)
	}

	return unmarshalContext(snapshot)
}

func (r *ConversationPostgres) Release(ctx context.Context, sessionID string, conv *entity.ConversationContext) error {
	snapshot, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("marshal context: %w", err)
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE conversation_contexts
		 SET context = $2, busy = FALSE, updated_at = $3
		 WHERE session_id = $1 AND busy`,
		sessionID, snapshot, conv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("release session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s is not acquired: %w", sessionID, entity.ErrInvalidParameter)
	}

	return nil
}

// DeleteExpired drops sessions untouched since the cutoff. The builder
// runs it on a ticker to mirror the in-memory store's janitor. Busy rows
// past the cutoff are dropped too: a turn outlives its timeout by seconds,
// not by a session TTL, so such a latch can only be an orphan.
func (r *ConversationPostgres) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM conversation_contexts WHERE updated_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func unmarshalContext(snapshot []byte) (*entity.ConversationContext, error) {
	var conv entity.ConversationContext
	if err := json.Unmarshal(snapshot, &conv); err != nil {
		return nil, fmt.Errorf("unmarshal context: %w", err)
	}
	if conv.ExtractedInfo == nil {
		conv.ExtractedInfo = make(map[string]string)
	}
	if conv.Business == nil {
		conv.Business = entity.NewBusinessInfo()
	}
	return &conv, nil
}
