// Package ledger owns the authoritative in-memory transaction collection.
//
// Every operation runs under a single mutex, including the whole-collection
// write to the Persister that follows a mutation. Two mutations therefore
// never interleave their writes, and the backing document always reflects
// the last mutation that returned.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

// Persister loads and saves the full collection.
type Persister interface {
	Load(ctx context.Context) ([]core.Transaction, error)
	Save(ctx context.Context, txs []core.Transaction) error
}

type Store struct {
	mu        sync.Mutex
	items     []core.Transaction
	persister Persister
	summaries *cache.Cache[core.Summary]
	logger    *applog.Logger
	newID     func() uuid.UUID
}

type Option func(*Store)

// WithSummaryCache memoizes Summarize results until the next mutation.
func WithSummaryCache(c *cache.Cache[core.Summary]) Option {
	return func(s *Store) { s.summaries = c }
}

func WithLogger(l *applog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIDGenerator overrides uuid.New. Tests use it to force collisions.
func WithIDGenerator(fn func() uuid.UUID) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// Open loads the collection from p once and returns a ready store. Load
// failures are logged and the store starts empty. A nil Persister keeps the
// collection in memory only.
func Open(ctx context.Context, p Persister, opts ...Option) *Store {
	s := &Store{
		persister: p,
		logger:    applog.FromContext(ctx).WithComponent(applog.ComponentLedger),
		newID:     uuid.New,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.items = []core.Transaction{}
	if p == nil {
		return s
	}

	loaded, err := p.Load(ctx)
	if err != nil {
		s.logger.LogError(ctx, "Failed to load transactions, starting with an empty list", err, applog.OpLoad, nil)
		return s
	}
	s.items = s.admit(ctx, loaded)
	s.logger.InfoContext(ctx, "Transactions loaded", applog.FieldCount, len(s.items))
	return s
}

// admit drops records that would break the collection invariants: invalid
// dates or amounts and repeated identifiers (first occurrence wins).
func (s *Store) admit(ctx context.Context, loaded []core.Transaction) []core.Transaction {
	seen := make(map[uuid.UUID]struct{}, len(loaded))
	out := make([]core.Transaction, 0, len(loaded))
	for _, t := range loaded {
		if err := t.Validate(); err != nil {
			s.logger.WarnContext(ctx, "Skipping invalid stored transaction",
				applog.FieldTransactionID, t.ID.String(), applog.FieldError, err.Error())
			continue
		}
		if _, dup := seen[t.ID]; dup {
			s.logger.WarnContext(ctx, "Skipping duplicate stored transaction",
				applog.FieldTransactionID, t.ID.String())
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Create assigns a fresh identifier, appends the record and persists.
func (s *Store) Create(ctx context.Context, n core.NewTransaction) (core.Transaction, error) {
	if err := n.Validate(); err != nil {
		return core.Transaction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := core.Transaction{
		ID:          s.uniqueID(),
		Date:        n.Date,
		Category:    n.Category,
		Description: n.Description,
		Amount:      n.Amount,
	}
	s.items = append(s.items, t)
	s.changed(ctx, applog.OpCreate)
	return t, nil
}

// uniqueID retries the generator until it yields an unused identifier.
// Must be called with s.mu held.
func (s *Store) uniqueID() uuid.UUID {
	for {
		id := s.newID()
		if s.indexOf(id) < 0 {
			return id
		}
	}
}

// List returns the matching transactions in insertion order.
func (s *Store) List(_ context.Context, f core.Filter) []core.Transaction {
	keep := f.Predicate()

	s.mu.Lock()
	defer s.mu.Unlock()

	out := []core.Transaction{}
	for _, t := range s.items {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

// Get returns the transaction with the given identifier.
func (s *Store) Get(_ context.Context, id uuid.UUID) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return core.Transaction{}, core.ErrNotFound
	}
	return s.items[i], nil
}

// Update replaces the fields present in p. The patch is validated before
// anything is changed.
func (s *Store) Update(ctx context.Context, id uuid.UUID, p core.TransactionPatch) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return core.Transaction{}, core.ErrNotFound
	}
	if err := p.Validate(); err != nil {
		return core.Transaction{}, err
	}

	s.items[i] = p.Apply(s.items[i])
	s.changed(ctx, applog.OpUpdate)
	return s.items[i], nil
}

// Delete removes the transaction. A missing identifier is reported as
// core.ErrNotFound and nothing is written.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return core.ErrNotFound
	}
	s.items = slices.Delete(s.items, i, i+1)
	s.changed(ctx, applog.OpDelete)
	return nil
}

// Summarize aggregates the transactions selected by f.
func (s *Store) Summarize(_ context.Context, f core.SummaryFilter) core.Summary {
	key := f.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	if sum, ok := s.summaries.Get(key); ok {
		return sum
	}
	sum := core.Summarize(s.items, f.Predicate())
	s.summaries.Set(key, sum)
	return sum
}

// Len returns the number of transactions held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Stats describes the store for the metrics endpoint.
type Stats struct {
	Transactions    int `json:"transactions"`
	CachedSummaries int `json:"cached_summaries"`
}

func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Transactions: len(s.items), CachedSummaries: s.summaries.Size()}
}

// Snapshot returns a copy of the whole collection.
func (s *Store) Snapshot() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

func (s *Store) indexOf(id uuid.UUID) int {
	return slices.IndexFunc(s.items, func(t core.Transaction) bool { return t.ID == id })
}

// changed runs after every successful mutation with s.mu held: it drops
// cached summaries and rewrites the backing document. Save errors are
// logged only; the in-memory collection stays authoritative.
func (s *Store) changed(ctx context.Context, op string) {
	s.summaries.Flush()
	if s.persister == nil {
		return
	}
	if err := s.persister.Save(context.WithoutCancel(ctx), s.items); err != nil {
		s.logger.LogError(ctx, "Failed to save transactions", fmt.Errorf("after %s: %w", op, err), applog.OpSave,
			applog.LogFields{applog.FieldCount: len(s.items)})
	}
}

// IsNotFound reports whether err means the identifier does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, core.ErrNotFound)
}
