package db_test

import (
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/tomasstrnad1997/mines_solver/db"
	"github.com/tomasstrnad1997/mines_solver/mines"
	"github.com/tomasstrnad1997/mines_solver/sim"
)

func createTempDB(t *testing.T) string {
	t.Helper()
	// Create a temporary file for the SQLite database
	tempFile, err := os.CreateTemp("", "*.db")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	tempFile.Close()
	t.Cleanup(func() {
		if err := os.Remove(tempFile.Name()); err != nil {
			fmt.Printf("failed to delete temp DB file %v\n", err)
		}
	})

	database, err := sql.Open("sqlite3", tempFile.Name())
	if err != nil {
		t.Fatalf("Failed to open db file: %v", err)
	}
	defer database.Close()
	if err = db.InitializeTables(database); err != nil {
		t.Fatalf("Failed to create tables: %v", err)
	}
	return tempFile.Name()
}

func openTempStore(t *testing.T) *db.SQLStore {
	t.Helper()
	store, err := db.OpenStore(createTempDB(t))
	if err != nil {
		t.Fatalf("Failed to create Store: %v", err)
	}
	t.Cleanup(func() { store.DB.Close() })
	return store
}

func TestInitStoreFromEnvironment(t *testing.T) {
	t.Setenv("DB_PATH", "")
	if _, err := db.InitStore(); err == nil {
		t.Fatalf("Expected InitStore to fail without DB_PATH")
	}
	t.Setenv("DB_PATH", createTempDB(t))
	store, err := db.InitStore()
	if err != nil {
		t.Fatalf("Failed to create Store: %v", err)
	}
	defer store.DB.Close()
}

func TestStoreAndListResults(t *testing.T) {
	store := openTempStore(t)
	result := &sim.Result{
		Params:   mines.GameParams{Width: 8, Height: 8, Mines: 10, Seed: 42},
		Outcome:  sim.Won,
		Moves:    30,
		Deduced:  25,
		Guesses:  4,
		Duration: 1500 * time.Millisecond,
	}
	if err := store.StoreResult(result); err != nil {
		t.Fatalf("Failed to store result in db: %v", err)
	}
	records, err := store.ListRecent(10)
	if err != nil {
		t.Fatalf("Failed to list results: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 stored game, got %d", len(records))
	}
	record := records[0]
	if record.Params != result.Params {
		t.Fatalf("Stored params %+v do not match original %+v", record.Params, result.Params)
	}
	if record.Outcome != "won" || record.Moves != 30 || record.Deduced != 25 || record.Guesses != 4 {
		t.Fatalf("Stored game does not match original: %+v", record)
	}
	if record.Duration != result.Duration {
		t.Fatalf("Stored duration %v does not match original %v", record.Duration, result.Duration)
	}
	if record.PlayedAt.IsZero() {
		t.Fatalf("Expected played_at to be set")
	}
}

func TestListRecentReturnsNewestFirst(t *testing.T) {
	store := openTempStore(t)
	for i := range 3 {
		result := &sim.Result{
			Params:  mines.GameParams{Width: 5, Height: 5, Mines: 3, Seed: int64(i + 1)},
			Outcome: sim.Lost,
			Moves:   i + 1,
		}
		if err := store.StoreResult(result); err != nil {
			t.Fatalf("Failed to store result in db: %v", err)
		}
	}
	records, err := store.ListRecent(2)
	if err != nil {
		t.Fatalf("Failed to list results: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 games, got %d", len(records))
	}
	if records[0].Params.Seed != 3 || records[1].Params.Seed != 2 {
		t.Fatalf("Expected newest games first, got seeds %d, %d",
			records[0].Params.Seed, records[1].Params.Seed)
	}
}

func TestStatsAggregateStoredGames(t *testing.T) {
	store := openTempStore(t)
	outcomes := []sim.Outcome{sim.Won, sim.Lost, sim.Stalled, sim.Won}
	for i, outcome := range outcomes {
		result := &sim.Result{
			Params:  mines.GameParams{Width: 9, Height: 9, Mines: 10, Seed: int64(i + 1)},
			Outcome: outcome,
			Moves:   10,
		}
		if err := store.StoreResult(result); err != nil {
			t.Fatalf("Failed to store result in db: %v", err)
		}
	}
	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("Failed to read stats: %v", err)
	}
	if stats.Games != 4 || stats.Wins != 2 || stats.Losses != 1 || stats.Stalls != 1 {
		t.Fatalf("Unexpected stats: %+v", stats)
	}
	if stats.WinRate != 0.5 || stats.AvgMoves != 10 {
		t.Fatalf("Unexpected aggregates: %+v", stats)
	}
}

func TestStatsOnEmptyStore(t *testing.T) {
	store := openTempStore(t)
	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("Failed to read stats: %v", err)
	}
	if stats.Games != 0 || stats.WinRate != 0 {
		t.Fatalf("Expected empty stats, got %+v", stats)
	}
}

func TestBatchWritesIntoStore(t *testing.T) {
	store := openTempStore(t)
	batch := sim.Batch{
		Params:     mines.GameParams{Width: 5, Height: 5, Mines: 3},
		Games:      3,
		Workers:    2,
		MasterSeed: 5,
	}
	if _, err := batch.Run(store); err != nil {
		t.Fatalf("Failed to run batch: %v", err)
	}
	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("Failed to read stats: %v", err)
	}
	if stats.Games != 3 {
		t.Fatalf("Expected 3 stored games, got %d", stats.Games)
	}
}
