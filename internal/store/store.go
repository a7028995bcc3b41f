package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"prizewheel/internal/models"
)

// Conditional-update outcomes. Callers branch on these to distinguish a lost
// race from an infrastructure failure.
var (
	// ErrStockConflict means the prize's stock hit zero between the caller's
	// snapshot read and the conditional decrement.
	ErrStockConflict = errors.New("prize stock exhausted at update time")
	// ErrPrizeBound means the attendee's prizeId was already set when the
	// conditional bind ran.
	ErrPrizeBound = errors.New("attendee already has a prize bound")
	// ErrClaimBound means the attendee's claimId was already set when the
	// conditional bind ran.
	ErrClaimBound = errors.New("attendee already has a claim id bound")
)

// Store wraps the SQLite connection that owns all persisted event state.
// Every mutation of shared state (prize stock, the claim sequence, the
// per-attendee bind fields) goes through a conditional update checked via
// RowsAffected, never a read-then-write pair.
type Store struct {
	conn *sql.DB
}

// Open opens (or creates) the event database at path and runs migrations.
func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open event database: %w", err)
	}

	conn.SetMaxOpenConns(1)

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate event database: %w", err)
	}

	return &Store{conn: conn}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func migrate(conn *sql.DB) error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS prizes (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		name           TEXT NOT NULL,
		display_text   TEXT NOT NULL DEFAULT '',
		weight         INTEGER NOT NULL DEFAULT 1,
		stock          INTEGER NOT NULL CHECK (stock >= 0),
		claimed        INTEGER NOT NULL DEFAULT 0,
		color          TEXT NOT NULL DEFAULT '#ffffff',
		text_color     TEXT NOT NULL DEFAULT '#000000',
		wheel_position INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS attendees (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		email      TEXT NOT NULL DEFAULT '',
		verified   INTEGER NOT NULL DEFAULT 0,
		prize_id   INTEGER NULL REFERENCES prizes(id),
		prize_name TEXT NULL,
		claim_id   INTEGER NULL UNIQUE,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_attendees_claim_id ON attendees(claim_id);

	CREATE TABLE IF NOT EXISTS claim_sequence (
		id   INTEGER PRIMARY KEY CHECK (id = 1),
		next INTEGER NOT NULL
	);

	INSERT OR IGNORE INTO claim_sequence (id, next) VALUES (1, 0);

	CREATE TABLE IF NOT EXISTS awards (
		id          TEXT PRIMARY KEY,
		attendee_id TEXT NOT NULL REFERENCES attendees(id),
		prize_id    INTEGER NOT NULL REFERENCES prizes(id),
		prize_name  TEXT NOT NULL,
		awarded_at  DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_awards_prize_id ON awards(prize_id);
	`
	_, err := conn.Exec(ddl)
	return err
}

// --- Prize operations ---

const prizeColumns = `id, name, display_text, weight, stock, claimed, color, text_color, wheel_position`

func scanPrize(row interface{ Scan(...interface{}) error }) (*models.Prize, error) {
	p := &models.Prize{}
	err := row.Scan(
		&p.ID, &p.Name, &p.DisplayText, &p.Weight, &p.Stock,
		&p.Claimed, &p.Color, &p.TextColor, &p.WheelPosition,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// CreatePrize inserts a new prize and fills in its assigned id. When
// wheelPosition is negative the stored position defaults to id mod segments,
// computed once here and never re-derived at read time.
func (s *Store) CreatePrize(ctx context.Context, p *models.Prize, wheelPosition, segments int) error {
	const q = `INSERT INTO prizes (name, display_text, weight, stock, claimed, color, text_color, wheel_position)
	           VALUES (?, ?, ?, ?, 0, ?, ?, 0)`
	res, err := s.conn.ExecContext(ctx, q, p.Name, p.DisplayText, p.Weight, p.Stock, p.Color, p.TextColor)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = id

	pos := wheelPosition
	if pos < 0 {
		pos = int(id) % segments
	}
	p.WheelPosition = pos
	_, err = s.conn.ExecContext(ctx, `UPDATE prizes SET wheel_position = ? WHERE id = ?`, pos, id)
	return err
}

// GetPrize returns a prize by id, or nil if it does not exist.
func (s *Store) GetPrize(ctx context.Context, id int64) (*models.Prize, error) {
	q := `SELECT ` + prizeColumns + ` FROM prizes WHERE id = ?`
	return scanPrize(s.conn.QueryRowContext(ctx, q, id))
}

// ListAvailablePrizes returns all prizes with remaining stock.
func (s *Store) ListAvailablePrizes(ctx context.Context) ([]models.Prize, error) {
	q := `SELECT ` + prizeColumns + ` FROM prizes WHERE stock > 0 ORDER BY id`
	return s.queryPrizes(ctx, q)
}

// ListPrizes returns every prize, in or out of stock.
func (s *Store) ListPrizes(ctx context.Context) ([]models.Prize, error) {
	q := `SELECT ` + prizeColumns + ` FROM prizes ORDER BY id`
	return s.queryPrizes(ctx, q)
}

func (s *Store) queryPrizes(ctx context.Context, query string, args ...interface{}) ([]models.Prize, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prizes []models.Prize
	for rows.Next() {
		var p models.Prize
		if err := rows.Scan(
			&p.ID, &p.Name, &p.DisplayText, &p.Weight, &p.Stock,
			&p.Claimed, &p.Color, &p.TextColor, &p.WheelPosition,
		); err != nil {
			return nil, err
		}
		prizes = append(prizes, p)
	}
	return prizes, rows.Err()
}

// --- Attendee operations ---

const attendeeColumns = `id, name, email, verified, prize_id, prize_name, claim_id, created_at`

func scanAttendee(row interface{ Scan(...interface{}) error }) (*models.Attendee, error) {
	a := &models.Attendee{}
	err := row.Scan(
		&a.ID, &a.Name, &a.Email, &a.Verified,
		&a.PrizeID, &a.PrizeName, &a.ClaimID, &a.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

// CreateAttendee inserts a new attendee record.
func (s *Store) CreateAttendee(ctx context.Context, a *models.Attendee) error {
	const q = `INSERT INTO attendees (id, name, email, verified, created_at)
	           VALUES (?, ?, ?, ?, ?)`
	_, err := s.conn.ExecContext(ctx, q, a.ID, a.Name, a.Email, a.Verified, a.CreatedAt)
	return err
}

// GetAttendee returns an attendee by id, or nil if not registered.
func (s *Store) GetAttendee(ctx context.Context, id string) (*models.Attendee, error) {
	q := `SELECT ` + attendeeColumns + ` FROM attendees WHERE id = ?`
	return scanAttendee(s.conn.QueryRowContext(ctx, q, id))
}

// MarkVerified flips an attendee's verified flag.
func (s *Store) MarkVerified(ctx context.Context, id string) error {
	_, err := s.conn.ExecContext(ctx, `UPDATE attendees SET verified = 1 WHERE id = ?`, id)
	return err
}

// --- Atomic allocation primitives ---

// AwardPrize performs the stock decrement and the attendee bind as a single
// transaction. Either both rows change and an award row is written, or the
// transaction rolls back and nothing is visible.
//
// The decrement is conditioned on stock > 0 at update time; losing that race
// returns ErrStockConflict. The bind is conditioned on prize_id still being
// NULL; losing that race returns ErrPrizeBound, and the rollback reverts the
// decrement so no stock unit leaks.
func (s *Store) AwardPrize(ctx context.Context, attendeeID string, prizeID int64, prizeName string) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE prizes SET stock = stock - 1, claimed = claimed + 1 WHERE id = ? AND stock > 0`,
		prizeID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStockConflict
	}

	res, err = tx.ExecContext(ctx,
		`UPDATE attendees SET prize_id = ?, prize_name = ? WHERE id = ? AND prize_id IS NULL`,
		prizeID, prizeName, attendeeID,
	)
	if err != nil {
		return err
	}
	n, err = res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPrizeBound
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO awards (id, attendee_id, prize_id, prize_name, awarded_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), attendeeID, prizeID, prizeName, time.Now().UTC(),
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// NextSequence atomically increments the claim counter and returns the new
// value in a single round trip. This is the only mutation path for the
// counter; there is no read-then-write variant.
func (s *Store) NextSequence(ctx context.Context) (int64, error) {
	var next int64
	err := s.conn.QueryRowContext(ctx,
		`UPDATE claim_sequence SET next = next + 1 WHERE id = 1 RETURNING next`,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("advance claim sequence: %w", err)
	}
	return next, nil
}

// BindClaimID writes a claim id onto an attendee, conditioned on the field
// still being unset. Returns ErrClaimBound if another request got there first.
func (s *Store) BindClaimID(ctx context.Context, attendeeID string, claimID int64) error {
	res, err := s.conn.ExecContext(ctx,
		`UPDATE attendees SET claim_id = ? WHERE id = ? AND claim_id IS NULL`,
		claimID, attendeeID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrClaimBound
	}
	return nil
}

// --- Award audit trail ---

// ListAwards returns every recorded award, newest first.
func (s *Store) ListAwards(ctx context.Context) ([]models.Award, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, attendee_id, prize_id, prize_name, awarded_at FROM awards ORDER BY awarded_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var awards []models.Award
	for rows.Next() {
		var a models.Award
		if err := rows.Scan(&a.ID, &a.AttendeeID, &a.PrizeID, &a.PrizeName, &a.AwardedAt); err != nil {
			return nil, err
		}
		awards = append(awards, a)
	}
	return awards, rows.Err()
}
