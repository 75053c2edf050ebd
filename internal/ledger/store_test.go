package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

type fakePersister struct {
	mu      sync.Mutex
	loaded  []core.Transaction
	loadErr error
	saveErr error
	saves   [][]core.Transaction
}

func (f *fakePersister) Load(context.Context) ([]core.Transaction, error) {
	return f.loaded, f.loadErr
}

func (f *fakePersister) Save(_ context.Context, txs []core.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, append([]core.Transaction(nil), txs...))
	return f.saveErr
}

func (f *fakePersister) lastSave() []core.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.saves) == 0 {
		return nil
	}
	return f.saves[len(f.saves)-1]
}

func testCtx() context.Context {
	return applog.NewContext(context.Background(), applog.Discard())
}

func newTx(date, category string, amount float64) core.NewTransaction {
	return core.NewTransaction{Date: core.MustDate(date), Category: category, Description: category, Amount: amount}
}

func ptr[T any](v T) *T { return &v }

func TestCreateAssignsIDAndPersists(t *testing.T) {
	p := &fakePersister{}
	s := Open(testCtx(), p)

	created, err := s.Create(testCtx(), newTx("2025-05-10", "Food", -12.5))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Fatalf("expected identifier to be assigned")
	}
	saved := p.lastSave()
	if len(saved) != 1 || saved[0] != created {
		t.Fatalf("expected persisted collection with the new record, got %+v", saved)
	}
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	p := &fakePersister{}
	s := Open(testCtx(), p)

	if _, err := s.Create(testCtx(), core.NewTransaction{Category: "x"}); !errors.Is(err, core.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	if s.Len() != 0 || len(p.saves) != 0 {
		t.Fatalf("invalid create must not change or write anything")
	}
}

func TestCreateRetriesOnIDCollision(t *testing.T) {
	first := uuid.MustParse("11111111-1111-4111-8111-111111111111")
	second := uuid.MustParse("22222222-2222-4222-8222-222222222222")
	ids := []uuid.UUID{first, first, second}
	next := 0
	gen := func() uuid.UUID {
		id := ids[next]
		next++
		return id
	}

	s := Open(testCtx(), nil, WithIDGenerator(gen))
	a, _ := s.Create(testCtx(), newTx("2025-01-01", "A", 1))
	b, _ := s.Create(testCtx(), newTx("2025-01-02", "B", 2))
	if a.ID != first || b.ID != second {
		t.Fatalf("expected distinct ids, got %s and %s", a.ID, b.ID)
	}
}

func TestListFiltersAndPreservesOrder(t *testing.T) {
	s := Open(testCtx(), nil)
	for _, n := range []core.NewTransaction{
		newTx("2025-03-01", "Food", -10),
		newTx("2025-01-15", "Salary", 1000),
		newTx("2025-02-01", "food", -5),
	} {
		if _, err := s.Create(testCtx(), n); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	all := s.List(testCtx(), core.Filter{})
	if len(all) != 3 || all[0].Amount != -10 || all[2].Amount != -5 {
		t.Fatalf("expected insertion order, got %+v", all)
	}

	food := s.List(testCtx(), core.Filter{Category: "FOOD", StartDate: "2025-02-01"})
	if len(food) != 2 {
		t.Fatalf("expected two food records, got %+v", food)
	}

	none := s.List(testCtx(), core.Filter{Category: "Travel"})
	if none == nil || len(none) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", none)
	}

	// The returned slice is a copy.
	all[0].Amount = 99
	if s.List(testCtx(), core.Filter{})[0].Amount != -10 {
		t.Fatalf("listing must not alias store state")
	}
}

func TestUpdatePartialAndValidation(t *testing.T) {
	p := &fakePersister{}
	s := Open(testCtx(), p)
	created, _ := s.Create(testCtx(), newTx("2025-05-10", "Food", -12.5))

	updated, err := s.Update(testCtx(), created.ID, core.TransactionPatch{Amount: ptr(-20.0)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Amount != -20 || updated.Category != "Food" || updated.Date != created.Date || updated.ID != created.ID {
		t.Fatalf("unexpected update result %+v", updated)
	}

	saves := len(p.saves)
	bad := core.Date{}
	if _, err := s.Update(testCtx(), created.ID, core.TransactionPatch{Date: &bad, Category: ptr("Other")}); !errors.Is(err, core.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	got, _ := s.Get(testCtx(), created.ID)
	if got.Category != "Food" || len(p.saves) != saves {
		t.Fatalf("rejected patch must not apply any field")
	}

	if _, err := s.Update(testCtx(), uuid.New(), core.TransactionPatch{}); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	p := &fakePersister{}
	s := Open(testCtx(), p)
	a, _ := s.Create(testCtx(), newTx("2025-01-01", "A", 1))
	b, _ := s.Create(testCtx(), newTx("2025-01-02", "B", 2))

	if err := s.Delete(testCtx(), a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if saved := p.lastSave(); len(saved) != 1 || saved[0].ID != b.ID {
		t.Fatalf("expected only %s persisted, got %+v", b.ID, saved)
	}

	saves := len(p.saves)
	if err := s.Delete(testCtx(), a.ID); !IsNotFound(err) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if len(p.saves) != saves {
		t.Fatalf("failed delete must not write")
	}
}

func TestSummarizeUsesCacheAndInvalidates(t *testing.T) {
	c := cache.New[core.Summary](time.Minute, time.Minute)
	s := Open(testCtx(), nil, WithSummaryCache(c))
	s.Create(testCtx(), newTx("2024-06-10", "Salary", 2000))
	s.Create(testCtx(), newTx("2024-06-11", "Food", -12.5))
	s.Create(testCtx(), newTx("2024-07-01", "Food", -50))

	f := core.SummaryFilter{Year: "2024", Month: "6"}
	got := s.Summarize(testCtx(), f)
	want := core.Summary{Total: 1987.5, Income: 2000, Expense: -12.5, Count: 2}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if st := s.Stats(); st.CachedSummaries != 1 || st.Transactions != 3 {
		t.Fatalf("expected one cached summary over 3 records, got %+v", st)
	}

	s.Create(testCtx(), newTx("2024-06-30", "Food", -7.5))
	if c.Size() != 0 {
		t.Fatalf("mutation must flush cached summaries")
	}
	if got := s.Summarize(testCtx(), f); got.Count != 3 || got.Total != 1980 {
		t.Fatalf("stale summary after create: %+v", got)
	}
}

func TestOpenLoadFailureStartsEmpty(t *testing.T) {
	s := Open(testCtx(), &fakePersister{loadErr: errors.New("corrupt")})
	if s.Len() != 0 {
		t.Fatalf("expected empty store")
	}
	if _, err := s.Create(testCtx(), newTx("2025-01-01", "A", 1)); err != nil {
		t.Fatalf("store must stay usable: %v", err)
	}
}

func TestOpenDropsDuplicateAndInvalidRecords(t *testing.T) {
	id := uuid.New()
	p := &fakePersister{loaded: []core.Transaction{
		{ID: id, Date: core.MustDate("2025-01-01"), Category: "first", Amount: 1},
		{ID: id, Date: core.MustDate("2025-01-02"), Category: "second", Amount: 2},
		{ID: uuid.New(), Category: "zero date", Amount: 3},
	}}
	s := Open(testCtx(), p)
	snap := s.Snapshot()
	if len(snap) != 1 || snap[0].Category != "first" {
		t.Fatalf("expected only the first record, got %+v", snap)
	}
}

func TestSaveFailureKeepsMemoryState(t *testing.T) {
	p := &fakePersister{saveErr: errors.New("disk full")}
	s := Open(testCtx(), p)
	created, err := s.Create(testCtx(), newTx("2025-01-01", "A", 1))
	if err != nil {
		t.Fatalf("save errors must not surface: %v", err)
	}
	if _, err := s.Get(testCtx(), created.ID); err != nil {
		t.Fatalf("record should remain in memory: %v", err)
	}
}

func TestConcurrentCreatesAreAllPersisted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	file := storage.NewJSONFile(path)
	s := Open(testCtx(), file)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Create(testCtx(), newTx("2025-01-01", "A", 1)); err != nil {
				t.Errorf("create: %v", err)
			}
		}()
	}
	wg.Wait()

	reloaded := Open(testCtx(), storage.NewJSONFile(path))
	if reloaded.Len() != n {
		t.Fatalf("expected %d persisted records, got %d", n, reloaded.Len())
	}
	if sum := reloaded.Summarize(testCtx(), core.SummaryFilter{}); sum.Total != n {
		t.Fatalf("unexpected total %v", sum.Total)
	}
}

func TestFirstCalendarDaySurvivesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	s := Open(testCtx(), storage.NewJSONFile(path))
	early, err := s.Create(testCtx(), newTx("0001-01-01", "Origin", 5))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	s.Create(testCtx(), newTx("2025-01-01", "A", 1))

	reloaded := Open(testCtx(), storage.NewJSONFile(path))
	if reloaded.Len() != 2 {
		t.Fatalf("expected both records after reload, got %d", reloaded.Len())
	}
	reloaded.Create(testCtx(), newTx("2025-01-02", "B", 2))

	again := Open(testCtx(), storage.NewJSONFile(path))
	got, err := again.Get(testCtx(), early.ID)
	if err != nil || got.Date.String() != "0001-01-01" {
		t.Fatalf("first calendar day record lost: %+v, %v", got, err)
	}
}
