// Package remotedb provides the authoritative store client backed by
// libSQL. In production it talks to a hosted database over a libsql://
// URL with an auth token; tests and self-hosted deployments can point
// it at a plain file: database.
//
// The attempt upsert here is the one conflict-safe write the whole
// system leans on. Remote attempts are keyed by (user_id, puzzle_id),
// and completion precedence is enforced inside a single guarded SQL
// statement so that concurrent engines on different devices cannot
// race a completed row back to incomplete. A client-side get-then-put
// cannot be made race-free and must not replace it.
package remotedb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/playgrid/puzzlesync/internal/schema"

	_ "github.com/tursodatabase/go-libsql"
)

// DB wraps the libSQL connection to the authoritative store.
type DB struct {
	conn *sql.DB
}

// Open connects to the remote store.
//
// url accepts the forms the libsql driver understands: libsql://host
// for hosted databases and file:path for local ones. authToken may be
// empty for file databases.
//
// Example:
//
//	remote, err := remotedb.Open("libsql://puzzles-acme.turso.io", token)
//	if err != nil {
//	    return err
//	}
//	defer remote.Close()
func Open(url, authToken string) (*DB, error) {
	dsn := url
	if authToken != "" {
		dsn = fmt.Sprintf("%s?authToken=%s", url, authToken)
	}

	conn, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open remote database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to reach remote database: %w", err)
	}

	conn.SetMaxOpenConns(4)
	conn.SetConnMaxIdleTime(time.Minute)

	return &DB{conn: conn}, nil
}

// Close closes the remote connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close remote database: %w", err)
	}
	db.conn = nil
	return nil
}

// InitSchema creates the remote tables if they don't exist. Used by
// tests and self-hosted deployments; hosted databases are provisioned
// with the same DDL.
func (db *DB) InitSchema(ctx context.Context) error {
	// The libsql driver executes only one statement per Exec call, so
	// each DDL statement is issued separately.
	ddls := []string{`
	CREATE TABLE IF NOT EXISTS attempts (
		id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		puzzle_id TEXT NOT NULL,
		completed INTEGER NOT NULL DEFAULT 0,
		score INTEGER,
		score_display TEXT,
		metadata TEXT NOT NULL DEFAULT '',
		started_at TEXT NOT NULL,
		completed_at TEXT,
		last_synced_at TEXT NOT NULL,
		PRIMARY KEY (user_id, puzzle_id)
	)`, `
	CREATE TABLE IF NOT EXISTS puzzles (
		id TEXT PRIMARY KEY,
		game_mode TEXT NOT NULL,
		puzzle_date TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '{}',
		difficulty TEXT NOT NULL DEFAULT '',
		required_tier TEXT NOT NULL DEFAULT 'free',
		updated_at TEXT NOT NULL
	)`,
		`CREATE INDEX IF NOT EXISTS idx_remote_puzzles_date ON puzzles(puzzle_date)`,
		`CREATE INDEX IF NOT EXISTS idx_remote_puzzles_tier ON puzzles(required_tier)`,
	}

	for _, ddl := range ddls {
		if _, err := db.conn.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("failed to initialize remote schema: %w", err)
		}
	}

	return nil
}

// UpsertAttempt inserts or conditionally updates the row keyed by
// (user_id, puzzle_id) in one atomic statement.
//
// Inserting a brand-new key always succeeds. On conflict, the
// completion-sensitive fields (completed, score, score_display,
// metadata, started_at, completed_at) are overwritten only when the
// stored row is not yet completed or the incoming write is itself a
// completion; a completed row silently discards an incomplete
// overwrite. last_synced_at bumps on every write either way, so a
// discarded write still leaves a trace.
func (db *DB) UpsertAttempt(ctx context.Context, a *schema.RemoteAttempt) error {
	if a.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if a.PuzzleID == "" {
		return fmt.Errorf("puzzle_id is required")
	}

	query := `
	INSERT INTO attempts (
		id, user_id, puzzle_id, completed, score, score_display,
		metadata, started_at, completed_at, last_synced_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
	ON CONFLICT(user_id, puzzle_id) DO UPDATE SET
		completed = CASE WHEN attempts.completed = 0 OR excluded.completed = 1
			THEN excluded.completed ELSE attempts.completed END,
		score = CASE WHEN attempts.completed = 0 OR excluded.completed = 1
			THEN excluded.score ELSE attempts.score END,
		score_display = CASE WHEN attempts.completed = 0 OR excluded.completed = 1
			THEN excluded.score_display ELSE attempts.score_display END,
		metadata = CASE WHEN attempts.completed = 0 OR excluded.completed = 1
			THEN excluded.metadata ELSE attempts.metadata END,
		started_at = CASE WHEN attempts.completed = 0 OR excluded.completed = 1
			THEN excluded.started_at ELSE attempts.started_at END,
		completed_at = CASE WHEN attempts.completed = 0 OR excluded.completed = 1
			THEN excluded.completed_at ELSE attempts.completed_at END,
		last_synced_at = excluded.last_synced_at
	`

	_, err := db.conn.ExecContext(ctx, query,
		a.ID,
		a.UserID,
		a.PuzzleID,
		boolToInt(a.Completed),
		intPtrToNull(a.Score),
		strPtrToNull(a.ScoreDisplay),
		a.Metadata,
		a.StartedAt.UTC().Format(time.RFC3339),
		timeToNullString(a.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert attempt for puzzle %s: %w", a.PuzzleID, err)
	}

	return nil
}

// GetAttempt reads the stored row for (userID, puzzleID).
// Returns sql.ErrNoRows if no row exists.
func (db *DB) GetAttempt(ctx context.Context, userID, puzzleID string) (*schema.RemoteAttempt, error) {
	query := `
	SELECT id, user_id, puzzle_id, completed, score, score_display,
	       metadata, started_at, completed_at
	FROM attempts
	WHERE user_id = ? AND puzzle_id = ?
	`

	row := db.conn.QueryRowContext(ctx, query, userID, puzzleID)

	var a schema.RemoteAttempt
	var completed int
	var score sql.NullInt64
	var scoreDisplay, completedAt sql.NullString
	var startedAt string

	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.PuzzleID,
		&completed,
		&score,
		&scoreDisplay,
		&a.Metadata,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Completed = completed != 0
	if score.Valid {
		v := int(score.Int64)
		a.Score = &v
	}
	if scoreDisplay.Valid {
		v := scoreDisplay.String
		a.ScoreDisplay = &v
	}
	if t, err := time.Parse(time.RFC3339, startedAt); err == nil {
		a.StartedAt = t
	}
	if completedAt.Valid {
		if t, err := time.Parse(time.RFC3339, completedAt.String); err == nil {
			a.CompletedAt = &t
		}
	}

	return &a, nil
}

// visibleTiers returns the required_tier values the given tier may see.
func visibleTiers(tier schema.Tier) []interface{} {
	tiers := []schema.Tier{schema.TierFree, schema.TierPlus, schema.TierPro}
	var out []interface{}
	for _, t := range tiers {
		if t.Rank() <= tier.Rank() {
			out = append(out, string(t))
		}
	}
	if len(out) == 0 {
		// Unknown tiers degrade to free visibility.
		out = append(out, string(schema.TierFree))
	}
	return out
}

func tierPlaceholders(tiers []interface{}) string {
	switch len(tiers) {
	case 1:
		return "?"
	case 2:
		return "?, ?"
	default:
		return "?, ?, ?"
	}
}

// FetchVisiblePuzzles returns the complete puzzle set visible to the
// tier: published puzzles (date not in the future beyond one day)
// whose required tier the caller meets.
func (db *DB) FetchVisiblePuzzles(ctx context.Context, tier schema.Tier) ([]*schema.RemotePuzzle, error) {
	tiers := visibleTiers(tier)

	query := `
	SELECT id, game_mode, puzzle_date, content, difficulty, required_tier, updated_at
	FROM puzzles
	WHERE required_tier IN (` + tierPlaceholders(tiers) + `)
	  AND puzzle_date <= date('now', '+1 day')
	ORDER BY puzzle_date ASC, id ASC
	`

	rows, err := db.conn.QueryContext(ctx, query, tiers...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch visible puzzles: %w", err)
	}
	defer rows.Close()

	return scanRemotePuzzles(rows)
}

// FetchPuzzleTimestamps returns (id, updated_at) pairs for visible
// puzzles dated inside the inclusive range. This is the cheap half of
// the staleness probe: no content leaves the server.
func (db *DB) FetchPuzzleTimestamps(ctx context.Context, start, end string, tier schema.Tier) ([]schema.PuzzleStamp, error) {
	tiers := visibleTiers(tier)

	query := `
	SELECT id, updated_at
	FROM puzzles
	WHERE required_tier IN (` + tierPlaceholders(tiers) + `)
	  AND puzzle_date >= ? AND puzzle_date <= ?
	ORDER BY puzzle_date ASC
	`

	args := append(tiers, start, end)
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch puzzle timestamps: %w", err)
	}
	defer rows.Close()

	var stamps []schema.PuzzleStamp
	for rows.Next() {
		var s schema.PuzzleStamp
		if err := rows.Scan(&s.ID, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan puzzle timestamp: %w", err)
		}
		stamps = append(stamps, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating puzzle timestamps: %w", err)
	}

	return stamps, nil
}

// FetchPuzzleByID fetches a single puzzle's full content, bypassing
// visibility rules. Serves explicitly granted unlocks and stale-row
// refreshes.
func (db *DB) FetchPuzzleByID(ctx context.Context, id string) (*schema.RemotePuzzle, error) {
	query := `
	SELECT id, game_mode, puzzle_date, content, difficulty, required_tier, updated_at
	FROM puzzles
	WHERE id = ?
	`

	row := db.conn.QueryRowContext(ctx, query, id)

	p, err := scanRemotePuzzle(row)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch puzzle %s: %w", id, err)
	}
	return p, nil
}

// SavePuzzle publishes or updates a puzzle row and stamps a fresh
// revision marker. This is the publishing-side write used by tests
// and content tooling, not by the device engines.
func (db *DB) SavePuzzle(ctx context.Context, p *schema.RemotePuzzle) error {
	query := `
	INSERT INTO puzzles (id, game_mode, puzzle_date, content, difficulty, required_tier, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		game_mode = excluded.game_mode,
		puzzle_date = excluded.puzzle_date,
		content = excluded.content,
		difficulty = excluded.difficulty,
		required_tier = excluded.required_tier,
		updated_at = excluded.updated_at
	`

	updatedAt := p.UpdatedAt
	if updatedAt == "" {
		updatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	tier := p.RequiredTier
	if !tier.IsValid() {
		tier = schema.TierFree
	}

	_, err := db.conn.ExecContext(ctx, query,
		p.ID,
		p.GameMode,
		p.PuzzleDate,
		string(p.Content),
		p.Difficulty,
		string(tier),
		updatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save puzzle %s: %w", p.ID, err)
	}

	return nil
}

// DeletePuzzle removes a puzzle from the remote catalog. Devices
// observe the removal through the next full sync's orphan diff.
func (db *DB) DeletePuzzle(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM puzzles WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete puzzle %s: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRemotePuzzle(row rowScanner) (*schema.RemotePuzzle, error) {
	var p schema.RemotePuzzle
	var content, tier string

	err := row.Scan(&p.ID, &p.GameMode, &p.PuzzleDate, &content, &p.Difficulty, &tier, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	p.Content = []byte(content)
	p.RequiredTier = schema.Tier(tier)
	return &p, nil
}

func scanRemotePuzzles(rows *sql.Rows) ([]*schema.RemotePuzzle, error) {
	var puzzles []*schema.RemotePuzzle

	for rows.Next() {
		p, err := scanRemotePuzzle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan puzzle: %w", err)
		}
		puzzles = append(puzzles, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating puzzles: %w", err)
	}

	return puzzles, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func intPtrToNull(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func strPtrToNull(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func timeToNullString(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}
