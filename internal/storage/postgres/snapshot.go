package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/gauntlet/internal/game/actor"
)

// ErrSnapshotNotFound is returned when a snapshot lookup yields no results.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// ErrSnapshotExists is returned when an actor already has a snapshot for the
// same encounter and turn.
var ErrSnapshotExists = errors.New("snapshot already exists")

// SnapshotRecord is one persisted actor snapshot.
type SnapshotRecord struct {
	ID          int64
	EncounterID string
	ActorID     string
	Turn        int
	Snapshot    actor.Snapshot
	CreatedAt   time.Time
}

// SnapshotRepository stores actor snapshots as JSONB.
type SnapshotRepository struct {
	db *pgxpool.Pool
}

// NewSnapshotRepository creates a SnapshotRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewSnapshotRepository(db *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Save stores snap under encounterID and returns the new record ID.
//
// Precondition: encounterID and snap.ID must be non-empty.
// Postcondition: Returns ErrSnapshotExists if the actor already has a snapshot
// for this encounter and turn.
func (r *SnapshotRepository) Save(ctx context.Context, encounterID string, snap actor.Snapshot) (int64, error) {
	if encounterID == "" || snap.ID == "" {
		return 0, errors.New("saving snapshot: encounter and actor ids must not be empty")
	}
	data, err := snap.Marshal()
	if err != nil {
		return 0, fmt.Errorf("encoding snapshot: %w", err)
	}
	var id int64
	err = r.db.QueryRow(ctx, `
		INSERT INTO actor_snapshots (encounter_id, actor_id, turn, data)
		VALUES ($1, $2, $3, $4::jsonb)
		RETURNING id`,
		encounterID, snap.ID, snap.Turn, string(data),
	).Scan(&id)
	if err != nil {
		if isDuplicateKeyError(err) {
			return 0, ErrSnapshotExists
		}
		return 0, fmt.Errorf("inserting snapshot: %w", err)
	}
	return id, nil
}

// SaveEncounter stores every snapshot of one encounter in a single
// transaction and returns how many were written.
//
// Precondition: encounterID and every snapshot ID must be non-empty.
// Postcondition: On error nothing is written; a duplicate (actor, turn)
// yields ErrSnapshotExists.
func (r *SnapshotRepository) SaveEncounter(ctx context.Context, encounterID string, snaps []actor.Snapshot) (int, error) {
	if encounterID == "" {
		return 0, errors.New("saving encounter: encounter id must not be empty")
	}
	rows := make([][]any, 0, len(snaps))
	for _, snap := range snaps {
		if snap.ID == "" {
			return 0, fmt.Errorf("saving encounter %q: actor id must not be empty", encounterID)
		}
		data, err := snap.Marshal()
		if err != nil {
			return 0, fmt.Errorf("encoding snapshot of %q: %w", snap.ID, err)
		}
		rows = append(rows, []any{encounterID, snap.ID, snap.Turn, string(data)})
	}
	if len(rows) == 0 {
		return 0, nil
	}

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		for _, row := range rows {
			if _, err := tx.Exec(ctx, `
				INSERT INTO actor_snapshots (encounter_id, actor_id, turn, data)
				VALUES ($1, $2, $3, $4::jsonb)`, row...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isDuplicateKeyError(err) {
			return 0, ErrSnapshotExists
		}
		return 0, fmt.Errorf("saving encounter %q: %w", encounterID, err)
	}
	return len(rows), nil
}

// Get returns the snapshot with the given record ID.
//
// Postcondition: Returns ErrSnapshotNotFound if no record matches.
func (r *SnapshotRepository) Get(ctx context.Context, id int64) (SnapshotRecord, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, encounter_id, actor_id, turn, data, created_at
		FROM actor_snapshots WHERE id = $1`, id)
	return scanSnapshot(row)
}

// Latest returns the most recent snapshot of actorID across encounters.
//
// Postcondition: Returns ErrSnapshotNotFound if the actor has none.
func (r *SnapshotRepository) Latest(ctx context.Context, actorID string) (SnapshotRecord, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, encounter_id, actor_id, turn, data, created_at
		FROM actor_snapshots WHERE actor_id = $1
		ORDER BY created_at DESC, id DESC LIMIT 1`, actorID)
	return scanSnapshot(row)
}

// ListByEncounter returns every snapshot of encounterID ordered by turn, then actor.
//
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *SnapshotRepository) ListByEncounter(ctx context.Context, encounterID string) ([]SnapshotRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, encounter_id, actor_id, turn, data, created_at
		FROM actor_snapshots WHERE encounter_id = $1
		ORDER BY turn ASC, actor_id ASC`, encounterID)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var out []SnapshotRecord
	for rows.Next() {
		rec, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshots: %w", err)
	}
	return out, nil
}

// DeleteEncounter removes every snapshot of encounterID and returns the count.
func (r *SnapshotRepository) DeleteEncounter(ctx context.Context, encounterID string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM actor_snapshots WHERE encounter_id = $1`, encounterID)
	if err != nil {
		return 0, fmt.Errorf("deleting snapshots: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanSnapshot(row pgx.Row) (SnapshotRecord, error) {
	var (
		rec  SnapshotRecord
		data []byte
	)
	err := row.Scan(&rec.ID, &rec.EncounterID, &rec.ActorID, &rec.Turn, &data, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SnapshotRecord{}, ErrSnapshotNotFound
		}
		return SnapshotRecord{}, fmt.Errorf("scanning snapshot: %w", err)
	}
	rec.Snapshot, err = actor.UnmarshalSnapshot(data)
	if err != nil {
		return SnapshotRecord{}, fmt.Errorf("decoding snapshot %d: %w", rec.ID, err)
	}
	return rec, nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
