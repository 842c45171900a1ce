// Package storage provides SQLite-based persistence for played episodes and
// their step-by-step transitions, so games can be listed, replayed and
// exported. Uses the pure-Go modernc.org/sqlite driver to avoid CGO
// dependencies.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Store manages the SQLite database connection.
type Store struct {
	db *sql.DB
}

// Episode is one played game.
type Episode struct {
	ID         string
	Variant    string
	Player     string // "human", "heuristic", "random", "script", "remote"
	Seed       int64
	Score      int
	Lines      int
	Level      int
	Steps      int
	EndReason  string // empty while the episode is in progress
	CreatedAt  time.Time
	FinishedAt time.Time
}

// Finished reports whether FinishEpisode was called.
func (e Episode) Finished() bool {
	return e.EndReason != ""
}

// EpisodeResult is the final tally written by FinishEpisode.
type EpisodeResult struct {
	Score     int
	Lines     int
	Level     int
	Steps     int
	EndReason string
}

// Transition is one recorded agent step.
type Transition struct {
	EpisodeID    string
	Step         int
	Action       int
	Reward       float64
	Score        int
	LinesCleared int
	Terminated   bool
	Truncated    bool
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	// Expand ~ to home directory
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}
	// one writer at a time; the env server records from many goroutines
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}

	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
		PRAGMA foreign_keys = ON;

		CREATE TABLE IF NOT EXISTS episodes (
			id TEXT PRIMARY KEY,
			variant TEXT NOT NULL,
			player TEXT NOT NULL,
			seed INTEGER NOT NULL,
			score INTEGER NOT NULL DEFAULT 0,
			lines INTEGER NOT NULL DEFAULT 0,
			level INTEGER NOT NULL DEFAULT 0,
			steps INTEGER NOT NULL DEFAULT 0,
			end_reason TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			finished_at DATETIME
		);
		CREATE INDEX IF NOT EXISTS idx_episodes_created ON episodes(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_episodes_top ON episodes(variant, score DESC);

		CREATE TABLE IF NOT EXISTS transitions (
			episode_id TEXT NOT NULL REFERENCES episodes(id) ON DELETE CASCADE,
			step INTEGER NOT NULL,
			action INTEGER NOT NULL,
			reward REAL NOT NULL,
			score INTEGER NOT NULL,
			lines_cleared INTEGER NOT NULL DEFAULT 0,
			terminated INTEGER NOT NULL DEFAULT 0,
			truncated INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (episode_id, step)
		);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// StartEpisode inserts a new in-progress episode and returns its ID.
func (s *Store) StartEpisode(variant, player string, seed int64) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		"INSERT INTO episodes (id, variant, player, seed) VALUES (?, ?, ?, ?)",
		id, variant, player, seed,
	)
	if err != nil {
		return "", fmt.Errorf("storage: cannot start episode: %w", err)
	}
	return id, nil
}

// RecordStep stores one transition.
func (s *Store) RecordStep(t Transition) error {
	return s.RecordSteps([]Transition{t})
}

// RecordSteps stores transitions in a single transaction.
func (s *Store) RecordSteps(ts []Transition) error {
	if len(ts) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("storage: cannot begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.Prepare(
		`INSERT INTO transitions
		 (episode_id, step, action, reward, score, lines_cleared, terminated, truncated)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("storage: cannot prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range ts {
		if _, err := stmt.Exec(t.EpisodeID, t.Step, t.Action, t.Reward, t.Score, t.LinesCleared, t.Terminated, t.Truncated); err != nil {
			return fmt.Errorf("storage: cannot record step %d: %w", t.Step, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: cannot commit steps: %w", err)
	}
	return nil
}

// FinishEpisode writes the final tally of an episode.
func (s *Store) FinishEpisode(id string, r EpisodeResult) error {
	if r.EndReason == "" {
		return fmt.Errorf("storage: finish episode %s: end reason required", id)
	}
	res, err := s.db.Exec(
		`UPDATE episodes
		 SET score = ?, lines = ?, level = ?, steps = ?, end_reason = ?, finished_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		r.Score, r.Lines, r.Level, r.Steps, r.EndReason, id,
	)
	if err != nil {
		return fmt.Errorf("storage: cannot finish episode: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("storage: finish episode %s: %w", id, ErrNotFound)
	}
	return nil
}

// ErrNotFound is returned when an episode ID does not exist.
var ErrNotFound = errors.New("episode not found")

const episodeColumns = `id, variant, player, seed, score, lines, level, steps, end_reason, created_at, finished_at`

// Episode retrieves an episode by ID. Returns nil, nil if it does not exist.
func (s *Store) Episode(id string) (*Episode, error) {
	row := s.db.QueryRow(`SELECT `+episodeColumns+` FROM episodes WHERE id = ?`, id)
	e, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query episode: %w", err)
	}
	return &e, nil
}

// RecentEpisodes retrieves the most recently started episodes.
func (s *Store) RecentEpisodes(limit int) ([]Episode, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.queryEpisodes(
		`SELECT `+episodeColumns+` FROM episodes ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
}

// TopEpisodes retrieves the highest-scoring finished episodes of a variant.
func (s *Store) TopEpisodes(variant string, limit int) ([]Episode, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.queryEpisodes(
		`SELECT `+episodeColumns+` FROM episodes
		 WHERE variant = ? AND end_reason != ''
		 ORDER BY score DESC
		 LIMIT ?`,
		variant, limit,
	)
}

// HighScore returns the highest finished score for a variant.
// Returns 0 if no episodes exist.
func (s *Store) HighScore(variant string) (int, error) {
	var score sql.NullInt64
	err := s.db.QueryRow(
		"SELECT MAX(score) FROM episodes WHERE variant = ? AND end_reason != ''",
		variant,
	).Scan(&score)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot query high score: %w", err)
	}
	if !score.Valid {
		return 0, nil
	}
	return int(score.Int64), nil
}

// Transitions returns the recorded steps of an episode in order.
func (s *Store) Transitions(episodeID string) ([]Transition, error) {
	rows, err := s.db.Query(
		`SELECT episode_id, step, action, reward, score, lines_cleared, terminated, truncated
		 FROM transitions
		 WHERE episode_id = ?
		 ORDER BY step`,
		episodeID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query transitions: %w", err)
	}
	defer rows.Close()

	var out []Transition
	for rows.Next() {
		var t Transition
		if err := rows.Scan(&t.EpisodeID, &t.Step, &t.Action, &t.Reward, &t.Score, &t.LinesCleared, &t.Terminated, &t.Truncated); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return out, nil
}

// DeleteEpisode removes an episode and its transitions.
func (s *Store) DeleteEpisode(id string) error {
	if _, err := s.db.Exec("DELETE FROM transitions WHERE episode_id = ?", id); err != nil {
		return fmt.Errorf("storage: cannot delete transitions: %w", err)
	}
	res, err := s.db.Exec("DELETE FROM episodes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("storage: cannot delete episode: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("storage: delete episode %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *Store) queryEpisodes(query string, args ...any) ([]Episode, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query episodes: %w", err)
	}
	defer rows.Close()

	var out []Episode
	for rows.Next() {
		e, err := scanEpisode(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEpisode(row scanner) (Episode, error) {
	var e Episode
	var createdAt, finishedAt any
	err := row.Scan(&e.ID, &e.Variant, &e.Player, &e.Seed, &e.Score, &e.Lines, &e.Level, &e.Steps, &e.EndReason, &createdAt, &finishedAt)
	if err != nil {
		return e, err
	}
	e.CreatedAt = parseTime(createdAt)
	e.FinishedAt = parseTime(finishedAt)
	return e, nil
}

// parseTime handles both time.Time and string datetimes from the driver.
func parseTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if parsed, err := time.Parse("2006-01-02 15:04:05", t); err == nil {
			return parsed
		}
	}
	return time.Time{}
}
