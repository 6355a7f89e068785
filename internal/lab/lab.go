// Package lab keeps live oracle targets in memory and runs the matching
// attack against them. Secrets never leave a lab; results are checked
// against them before being reported.
package lab

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"oraclelab/internal/services/blockcipher"
)

type Kind string

const (
	KindECBSuffix   Kind = "ecb-suffix"
	KindModeGame    Kind = "mode-game"
	KindCBCPadding  Kind = "cbc-padding"
	KindCBCBitflip  Kind = "cbc-bitflip"
	KindCTRBitflip  Kind = "ctr-bitflip"
	KindIVKey       Kind = "cbc-iv-key"
	KindECBCutPaste Kind = "ecb-cut-paste"
	KindCTREdit     Kind = "ctr-edit"
)

var (
	ErrNotFound       = errors.New("lab not found")
	ErrUnknownKind    = errors.New("unknown lab kind")
	ErrUnsupported    = errors.New("algorithm not supported by this lab kind")
	ErrUnsupportedOp  = errors.New("operation not offered by this lab")
	ErrMissingPayload = errors.New("missing payload")
)

// Kinds lists every lab kind in a stable order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(builders))
	for k := range builders {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// Query is one manual oracle call against a lab.
type Query struct {
	Op         string `json:"op"`
	Input      []byte `json:"-"`
	Ciphertext []byte `json:"-"`
	Offset     int    `json:"offset"`
}

// Answer is what the oracle disclosed. Only the fields the operation
// produces are set.
type Answer struct {
	Output   []byte
	Valid    *bool
	Admin    *bool
	Profile  any
	Rejected string
}

// Info is the public view of a lab.
type Info struct {
	ID        uuid.UUID `json:"id"`
	Kind      Kind      `json:"kind"`
	Algorithm string    `json:"algorithm"`
	BlockSize int       `json:"block_size"`
	Owner     string    `json:"owner"`
	Ops       []string  `json:"ops"`
	PrefixLen *int      `json:"prefix_len,omitempty"`
	Queries   int64     `json:"queries"`
	CreatedAt time.Time `json:"created_at"`
}

type Lab struct {
	id        uuid.UUID
	kind      Kind
	algorithm string
	owner     string
	createdAt time.Time
	target    target

	queries atomic.Int64
	run     sync.Mutex
}

func (l *Lab) info() Info {
	ops := l.target.ops()
	sort.Strings(ops)
	return Info{
		ID:        l.id,
		Kind:      l.kind,
		Algorithm: l.algorithm,
		BlockSize: l.target.blockSize(),
		Owner:     l.owner,
		Ops:       ops,
		PrefixLen: l.target.prefixLen(),
		Queries:   l.queries.Load(),
		CreatedAt: l.createdAt,
	}
}

// Registry holds every live lab of the process.
type Registry struct {
	log *zap.SugaredLogger
	now func() time.Time

	mu   sync.RWMutex
	labs map[uuid.UUID]*Lab
}

func NewRegistry(lg *zap.SugaredLogger) *Registry {
	if lg == nil {
		lg = zap.NewNop().Sugar()
	}
	return &Registry{log: lg, now: time.Now, labs: make(map[uuid.UUID]*Lab)}
}

// Create builds a lab of the given kind under a fresh random key of
// algorithm, owned by owner.
func (r *Registry) Create(kind Kind, algorithm, owner string) (Info, error) {
	build, ok := builders[kind]
	if !ok {
		return Info{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if _, err := blockcipher.KeySize(algorithm); err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	t, err := build(algorithm)
	if err != nil {
		return Info{}, err
	}
	l := &Lab{
		id:        uuid.New(),
		kind:      kind,
		algorithm: algorithm,
		owner:     owner,
		createdAt: r.now(),
		target:    t,
	}
	r.mu.Lock()
	r.labs[l.id] = l
	r.mu.Unlock()

	r.log.Infow("lab created", "lab", l.id, "kind", kind, "algorithm", algorithm, "owner", owner)
	return l.info(), nil
}

func (r *Registry) lookup(id uuid.UUID) (*Lab, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.labs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return l, nil
}

func (r *Registry) Get(id uuid.UUID) (Info, error) {
	l, err := r.lookup(id)
	if err != nil {
		return Info{}, err
	}
	return l.info(), nil
}

// List returns the labs owned by owner, or every lab when owner is empty,
// oldest first.
func (r *Registry) List(owner string) []Info {
	r.mu.RLock()
	out := make([]Info, 0, len(r.labs))
	for _, l := range r.labs {
		if owner == "" || l.owner == owner {
			out = append(out, l.info())
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *Registry) Delete(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.labs[id]; !ok {
		return ErrNotFound
	}
	delete(r.labs, id)
	return nil
}

// Query answers one manual oracle call.
func (r *Registry) Query(id uuid.UUID, q Query) (Answer, error) {
	l, err := r.lookup(id)
	if err != nil {
		return Answer{}, err
	}
	if !slices.Contains(l.target.ops(), q.Op) {
		return Answer{}, fmt.Errorf("%w: %q (offered: %v)", ErrUnsupportedOp, q.Op, l.target.ops())
	}
	l.queries.Add(1)
	return l.target.query(q)
}
