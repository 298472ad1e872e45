package db

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tomasstrnad1997/mines_solver/mines"
	"github.com/tomasstrnad1997/mines_solver/sim"
)

//go:embed schema.sql
var ddl string

type SQLStore struct {
	DB  *sql.DB
	ctx context.Context
}

// GameRecord is one stored game, as returned by ListRecent.
type GameRecord struct {
	ID       int64
	PlayedAt time.Time
	Params   mines.GameParams
	Outcome  string
	Moves    int
	Deduced  int
	Guesses  int
	Duration time.Duration
}

// Stats aggregates every stored game.
type Stats struct {
	Games    int
	Wins     int
	Losses   int
	Stalls   int
	WinRate  float64
	AvgMoves float64
}

func InitializeTables(db *sql.DB) error {
	_, err := db.Exec(ddl)
	return err
}

func (s *SQLStore) InitializeTables() error {
	return InitializeTables(s.DB)
}

// OpenStore opens (or creates) the results database at the given path.
func OpenStore(path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// Need to ping the database to check if the file could be opened
	if err = db.Ping(); err != nil {
		return nil, err
	}
	store := &SQLStore{DB: db, ctx: context.Background()}
	return store, nil
}

func InitStore() (*SQLStore, error) {
	path := os.Getenv("DB_PATH")
	if path == "" {
		return nil, fmt.Errorf("DB_PATH not set in environment")
	}
	return OpenStore(path)
}

// StoreResult records a finished game. SQLStore therefore satisfies
// sim.ResultSink and a batch can write straight into the database.
func (s *SQLStore) StoreResult(result *sim.Result) error {
	_, err := s.DB.ExecContext(s.ctx,
		`INSERT INTO games (width, height, mines, seed, outcome, moves, deduced, guesses, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.Params.Width, result.Params.Height, result.Params.Mines, result.Params.Seed,
		result.Outcome.String(), result.Moves, result.Deduced, result.Guesses,
		result.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("Failed to store game result: %w", err)
	}
	return nil
}

func (s *SQLStore) ListRecent(limit int) ([]GameRecord, error) {
	rows, err := s.DB.QueryContext(s.ctx,
		`SELECT id, played_at, width, height, mines, seed, outcome, moves, deduced, guesses, duration_ms
		 FROM games ORDER BY played_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []GameRecord
	for rows.Next() {
		var record GameRecord
		var durationMs int64
		err := rows.Scan(&record.ID, &record.PlayedAt,
			&record.Params.Width, &record.Params.Height, &record.Params.Mines, &record.Params.Seed,
			&record.Outcome, &record.Moves, &record.Deduced, &record.Guesses, &durationMs)
		if err != nil {
			return nil, err
		}
		record.Duration = time.Duration(durationMs) * time.Millisecond
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *SQLStore) Stats() (*Stats, error) {
	row := s.DB.QueryRowContext(s.ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(outcome = 'won'), 0),
		        COALESCE(SUM(outcome = 'lost'), 0),
		        COALESCE(SUM(outcome = 'stalled'), 0),
		        COALESCE(AVG(moves), 0)
		 FROM games`)
	stats := &Stats{}
	if err := row.Scan(&stats.Games, &stats.Wins, &stats.Losses, &stats.Stalls, &stats.AvgMoves); err != nil {
		return nil, err
	}
	if stats.Games > 0 {
		stats.WinRate = float64(stats.Wins) / float64(stats.Games)
	}
	return stats, nil
}
