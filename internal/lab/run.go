package lab

import (
	"context"
	"encoding/hex"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"oraclelab/internal/attack"
)

// Result is the verified outcome of one attack run.
type Result struct {
	LabID        uuid.UUID     `json:"lab_id"`
	Kind         Kind          `json:"kind"`
	Algorithm    string        `json:"algorithm"`
	Workers      int           `json:"workers"`
	Recovered    []byte        `json:"-"`
	RecoveredHex string        `json:"recovered_hex"`
	Success      bool          `json:"success"`
	Queries      int64         `json:"queries"`
	Elapsed      time.Duration `json:"-"`
	ElapsedMS    int64         `json:"elapsed_ms"`
	Error        string        `json:"error,omitempty"`
}

// meter counts oracle calls made by one run and stops them once the run's
// context is done.
type meter struct {
	ctx context.Context
	n   atomic.Int64
}

func (m *meter) oracle(fn func([]byte) ([]byte, error)) attack.Oracle {
	return attack.OracleFunc(func(in []byte) ([]byte, error) {
		if err := m.ctx.Err(); err != nil {
			return nil, err
		}
		m.n.Add(1)
		return fn(in)
	})
}

func (m *meter) validator(fn func([]byte) bool) attack.Validator {
	return attack.ValidatorFunc(func(ct []byte) bool {
		if m.ctx.Err() != nil {
			return false
		}
		m.n.Add(1)
		return fn(ct)
	})
}

type editFunc func(ct []byte, offset int, replacement []byte) ([]byte, error)

func (f editFunc) Edit(ct []byte, offset int, replacement []byte) ([]byte, error) {
	return f(ct, offset, replacement)
}

func (m *meter) editor(e attack.EditOracle) attack.EditOracle {
	return editFunc(func(ct []byte, offset int, replacement []byte) ([]byte, error) {
		if err := m.ctx.Err(); err != nil {
			return nil, err
		}
		m.n.Add(1)
		return e.Edit(ct, offset, replacement)
	})
}

// Run executes the lab's attack with the given number of workers and checks
// the outcome against the lab's secret. A failed attack is reported in the
// result; the error is reserved for unknown labs and cancellation. Runs on
// the same lab are serialised.
func (r *Registry) Run(ctx context.Context, id uuid.UUID, workers int) (Result, error) {
	l, err := r.lookup(id)
	if err != nil {
		return Result{}, err
	}
	if workers < 1 {
		workers = 1
	}
	l.run.Lock()
	defer l.run.Unlock()

	log := r.log.With("lab", id, "kind", l.kind, "algorithm", l.algorithm)
	m := &meter{ctx: ctx}
	start := time.Now()
	recovered, ok, err := l.target.attack(m, []attack.Option{attack.WithWorkers(workers), attack.WithLogger(log)})
	elapsed := time.Since(start)
	if ctxErr := ctx.Err(); ctxErr != nil {
		log.Warnw("attack cancelled", "queries", m.n.Load(), "error", ctxErr)
		return Result{}, ctxErr
	}

	res := Result{
		LabID:        id,
		Kind:         l.kind,
		Algorithm:    l.algorithm,
		Workers:      workers,
		Recovered:    recovered,
		RecoveredHex: hex.EncodeToString(recovered),
		Success:      ok && err == nil,
		Queries:      m.n.Load(),
		Elapsed:      elapsed,
		ElapsedMS:    elapsed.Milliseconds(),
	}
	if err != nil {
		res.Error = err.Error()
		log.Warnw("attack failed", "queries", res.Queries, "error", err)
		return res, nil
	}
	log.Infow("attack finished", "success", res.Success, "queries", res.Queries, "elapsed", elapsed, "workers", workers)
	return res, nil
}
