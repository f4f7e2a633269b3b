package sequence

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/eudyespinoza/MyPOS/internal/core/apperror"
)

// mockRepo simulates the storage-level atomic increment with a mutex.
type mockRepo struct {
	mu       sync.Mutex
	counters map[Key]*Counter
}

func newMockRepo() *mockRepo {
	return &mockRepo{counters: make(map[Key]*Counter)}
}

func (m *mockRepo) Upsert(ctx context.Context, counter *Counter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *counter
	m.counters[counter.Key] = &cp
	return nil
}

func (m *mockRepo) Get(ctx context.Context, key Key) (*Counter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.counters[key]
	if !ok {
		return nil, apperror.NewSequenceNotConfigured(key.StoreID, key.PointOfSale, string(key.InvoiceType))
	}
	cp := *c
	return &cp, nil
}

func (m *mockRepo) Next(ctx context.Context, key Key) (*Counter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.counters[key]
	if !ok || !c.Active {
		return nil, apperror.NewSequenceNotConfigured(key.StoreID, key.PointOfSale, string(key.InvoiceType))
	}
	c.CurrentValue++
	cp := *c
	return &cp, nil
}

func (m *mockRepo) List(ctx context.Context, filter Filter) ([]*Counter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Counter
	for _, c := range m.counters {
		if !c.Active {
			continue
		}
		if filter.StoreID != "" && c.StoreID != filter.StoreID {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockRepo) FastForward(ctx context.Context, key Key, value int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.counters[key]
	if !ok {
		return apperror.NewSequenceNotConfigured(key.StoreID, key.PointOfSale, string(key.InvoiceType))
	}
	if value > c.CurrentValue {
		c.CurrentValue = value
	}
	return nil
}

func (m *mockRepo) Deactivate(ctx context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.counters[key]
	if !ok {
		return apperror.NewSequenceNotConfigured(key.StoreID, key.PointOfSale, string(key.InvoiceType))
	}
	c.Active = false
	return nil
}

var testKey = Key{StoreID: "BA001GC", PointOfSale: "587", InvoiceType: InvoiceB}

func TestAllocateNext_Sequential(t *testing.T) {
	svc := NewService(newMockRepo())
	ctx := context.Background()

	_, err := svc.Configure(ctx, ConfigureInput{
		Key: testKey, InitialValue: 0, PadLength: 8, Active: true,
	})
	if err != nil {
		t.Fatalf("configure failed: %v", err)
	}

	first, err := svc.AllocateNext(ctx, testKey)
	if err != nil {
		t.Fatalf("allocate failed: %v", err)
	}
	if first.RawValue != 1 {
		t.Errorf("expected first raw value 1, got %d", first.RawValue)
	}
	if first.Formatted != "00000001" {
		t.Errorf("expected 00000001, got %s", first.Formatted)
	}

	second, err := svc.AllocateNext(ctx, testKey)
	if err != nil {
		t.Fatalf("allocate failed: %v", err)
	}
	if second.RawValue != 2 {
		t.Errorf("expected second raw value 2, got %d", second.RawValue)
	}
}

func TestAllocateNext_ConcurrentContiguousRange(t *testing.T) {
	svc := NewService(newMockRepo())
	ctx := context.Background()

	const prior = int64(100)
	const callers = 50

	_, err := svc.Configure(ctx, ConfigureInput{
		Key: testKey, InitialValue: prior, PadLength: 8, Active: true,
	})
	if err != nil {
		t.Fatalf("configure failed: %v", err)
	}

	var wg sync.WaitGroup
	results := make(chan int64, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			alloc, err := svc.AllocateNext(ctx, testKey)
			if err != nil {
				t.Errorf("allocate failed: %v", err)
				return
			}
			results <- alloc.RawValue
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[int64]bool)
	for v := range results {
		if seen[v] {
			t.Fatalf("value %d allocated twice", v)
		}
		seen[v] = true
	}
	if len(seen) != callers {
		t.Fatalf("expected %d distinct values, got %d", callers, len(seen))
	}
	for v := prior + 1; v <= prior+callers; v++ {
		if !seen[v] {
			t.Errorf("missing value %d in allocated range", v)
		}
	}
}

func TestAllocateNext_Unconfigured(t *testing.T) {
	svc := NewService(newMockRepo())

	_, err := svc.AllocateNext(context.Background(), testKey)
	if !apperror.IsSequenceNotConfigured(err) {
		t.Errorf("expected SEQUENCE_NOT_CONFIGURED, got %v", err)
	}
}

func TestAllocateNext_Inactive(t *testing.T) {
	svc := NewService(newMockRepo())
	ctx := context.Background()

	_, err := svc.Configure(ctx, ConfigureInput{
		Key: testKey, InitialValue: 10, PadLength: 8, Active: false,
	})
	if err != nil {
		t.Fatalf("configure failed: %v", err)
	}

	_, err = svc.AllocateNext(ctx, testKey)
	if !apperror.IsSequenceNotConfigured(err) {
		t.Errorf("expected SEQUENCE_NOT_CONFIGURED for inactive key, got %v", err)
	}
}

func TestFormatting_RoundTrip(t *testing.T) {
	c := &Counter{Key: testKey, PadLength: 8}
	formatted := c.Format(42)
	if formatted != "00000042" {
		t.Fatalf("expected 00000042, got %s", formatted)
	}
	parsed, err := strconv.ParseInt(strings.TrimLeft(formatted, "0"), 10, 64)
	if err != nil || parsed != 42 {
		t.Errorf("round-trip failed: %d, %v", parsed, err)
	}
}

func TestFormatting_PrefixSuffix(t *testing.T) {
	c := &Counter{Key: testKey, PadLength: 4, Prefix: "FB-", Suffix: "/24"}
	if got := c.Format(7); got != "FB-0007/24" {
		t.Errorf("expected FB-0007/24, got %s", got)
	}
}

func TestConfigure_Validation(t *testing.T) {
	svc := NewService(newMockRepo())
	ctx := context.Background()

	tests := []struct {
		name string
		in   ConfigureInput
	}{
		{"missing store", ConfigureInput{Key: Key{PointOfSale: "1", InvoiceType: InvoiceA}, PadLength: 8}},
		{"bad type", ConfigureInput{Key: Key{StoreID: "S", PointOfSale: "1", InvoiceType: "Recibo_X"}, PadLength: 8}},
		{"zero pad", ConfigureInput{Key: testKey, PadLength: 0}},
		{"negative initial", ConfigureInput{Key: testKey, PadLength: 8, InitialValue: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Configure(ctx, tt.in); !apperror.HasCode(err, apperror.CodeValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestFastForward_NeverLowers(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.Configure(ctx, ConfigureInput{Key: testKey, InitialValue: 50, PadLength: 8, Active: true})
	if err != nil {
		t.Fatalf("configure failed: %v", err)
	}

	if err := svc.FastForward(ctx, testKey, 40); err != nil {
		t.Fatalf("fast-forward failed: %v", err)
	}
	c, _ := repo.Get(ctx, testKey)
	if c.CurrentValue != 50 {
		t.Errorf("fast-forward lowered counter to %d", c.CurrentValue)
	}

	if err := svc.FastForward(ctx, testKey, 120); err != nil {
		t.Fatalf("fast-forward failed: %v", err)
	}
	c, _ = repo.Get(ctx, testKey)
	if c.CurrentValue != 120 {
		t.Errorf("expected counter 120, got %d", c.CurrentValue)
	}
}
