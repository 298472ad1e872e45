package sim

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/tomasstrnad1997/mines_solver/mines"
	"golang.org/x/crypto/hkdf"
)

// ResultSink receives finished game results. Run calls it from a single
// goroutine, so implementations need no locking of their own.
type ResultSink interface {
	StoreResult(result *Result) error
}

type Summary struct {
	Games    int
	Wins     int
	Losses   int
	Stalls   int
	Moves    int
	Deduced  int
	Guesses  int
	WinRate  float64
	Duration time.Duration
}

// Batch plays many games of the same configuration across a worker pool.
// Per-game seeds are expanded from MasterSeed, so a batch is reproducible
// even though games finish in arbitrary order.
type Batch struct {
	Params     mines.GameParams
	Games      int
	Workers    int
	MasterSeed int64
}

// deriveSeeds expands the master seed into one independent seed per game.
// Zero is skipped because a zero seed means "pick one at random".
func deriveSeeds(masterSeed int64, count int) ([]int64, error) {
	secret := make([]byte, 8)
	binary.LittleEndian.PutUint64(secret, uint64(masterSeed))
	reader := hkdf.New(sha256.New, secret, nil, []byte("mines batch seeds"))
	seeds := make([]int64, count)
	buf := make([]byte, 8)
	for i := range seeds {
		for {
			if _, err := io.ReadFull(reader, buf); err != nil {
				return nil, fmt.Errorf("Failed to derive game seed: %w", err)
			}
			seed := int64(binary.LittleEndian.Uint64(buf))
			if seed != 0 {
				seeds[i] = seed
				break
			}
		}
	}
	return seeds, nil
}

type gameOutcome struct {
	result *Result
	err    error
}

// Run plays the whole batch and returns aggregate numbers. Results are
// additionally handed to sink as games finish when sink is not nil.
func (batch *Batch) Run(sink ResultSink) (*Summary, error) {
	if batch.Games <= 0 {
		return nil, fmt.Errorf("Cannot run a batch of %d games", batch.Games)
	}
	workers := batch.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > batch.Games {
		workers = batch.Games
	}
	masterSeed := batch.MasterSeed
	if masterSeed == 0 {
		seed, err := mines.NewSeed()
		if err != nil {
			return nil, err
		}
		masterSeed = seed
	}
	seeds, err := deriveSeeds(masterSeed, batch.Games)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	jobs := make(chan int64)
	outcomes := make(chan gameOutcome)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for seed := range jobs {
				outcomes <- playGame(batch.Params, seed)
			}
		}()
	}
	go func() {
		for _, seed := range seeds {
			jobs <- seed
		}
		close(jobs)
		wg.Wait()
		close(outcomes)
	}()

	summary := &Summary{}
	var runErr error
	for outcome := range outcomes {
		if outcome.err != nil {
			if runErr == nil {
				runErr = outcome.err
			}
			continue
		}
		summary.Games++
		summary.Moves += outcome.result.Moves
		summary.Deduced += outcome.result.Deduced
		summary.Guesses += outcome.result.Guesses
		switch outcome.result.Outcome {
		case Won:
			summary.Wins++
		case Lost:
			summary.Losses++
		default:
			summary.Stalls++
		}
		if sink != nil && runErr == nil {
			if err := sink.StoreResult(outcome.result); err != nil {
				runErr = fmt.Errorf("Failed to store result: %w", err)
			}
		}
	}
	if runErr != nil {
		return nil, runErr
	}
	if summary.Games > 0 {
		summary.WinRate = float64(summary.Wins) / float64(summary.Games)
	}
	summary.Duration = time.Since(start)
	log.Infof("Batch finished: %d games, %d won, %d lost, %d stalled in %s",
		summary.Games, summary.Wins, summary.Losses, summary.Stalls, summary.Duration)
	return summary, nil
}

func playGame(params mines.GameParams, seed int64) gameOutcome {
	params.Seed = seed
	session, err := CreateSession(params)
	if err != nil {
		return gameOutcome{err: err}
	}
	result, err := session.Play()
	if err != nil {
		return gameOutcome{err: err}
	}
	return gameOutcome{result: result}
}
