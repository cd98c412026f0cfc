package sequence

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"srplerp/internal/core/apperror"
	coreseq "srplerp/internal/core/sequence"
)

// --- in-memory fakes ---
//
// The fake runner serializes writer transactions with a mutex, which is the
// property the real store provides through serializable isolation plus the
// counter row lock. The stores are plain maps mutated only inside the runner.

type fakeRunner struct {
	mu  sync.Mutex
	err error // injected transaction failure
}

func (r *fakeRunner) Serializable(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(ctx)
}

func (r *fakeRunner) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeConfigStore struct {
	configs map[coreseq.ModuleCode]coreseq.Config
}

func newFakeConfigStore() *fakeConfigStore {
	return &fakeConfigStore{configs: make(map[coreseq.ModuleCode]coreseq.Config)}
}

func (s *fakeConfigStore) Get(ctx context.Context, module coreseq.ModuleCode) (*coreseq.Config, error) {
	if cfg, ok := s.configs[module]; ok {
		out := cfg
		return &out, nil
	}
	return nil, nil
}

func (s *fakeConfigStore) Create(ctx context.Context, cfg coreseq.Config) error {
	// ON CONFLICT DO NOTHING semantics
	if _, ok := s.configs[cfg.ModuleCode]; !ok {
		s.configs[cfg.ModuleCode] = cfg
	}
	return nil
}

func (s *fakeConfigStore) GetOrCreate(ctx context.Context, module coreseq.ModuleCode) (*coreseq.Config, error) {
	if cfg, ok := s.configs[module]; ok {
		out := cfg
		return &out, nil
	}
	cfg := coreseq.DefaultConfig(module)
	s.configs[module] = cfg
	return &cfg, nil
}

type fakeCounterStore struct {
	values map[string]int64
	resets map[string]time.Time
}

func newFakeCounterStore() *fakeCounterStore {
	return &fakeCounterStore{
		values: make(map[string]int64),
		resets: make(map[string]time.Time),
	}
}

func counterKey(module coreseq.ModuleCode, epoch coreseq.Epoch) string {
	year, fy := "", ""
	if epoch.Year != nil {
		year = fmt.Sprint(*epoch.Year)
	}
	if epoch.FinancialYear != nil {
		fy = *epoch.FinancialYear
	}
	return fmt.Sprintf("%s|%s|%s", module, year, fy)
}

func (s *fakeCounterStore) lookup(module coreseq.ModuleCode, epoch coreseq.Epoch) *coreseq.Counter {
	key := counterKey(module, epoch)
	value, ok := s.values[key]
	if !ok {
		return nil
	}
	return &coreseq.Counter{
		ModuleCode:    module,
		Year:          epoch.Year,
		FinancialYear: epoch.FinancialYear,
		CurrentValue:  value,
		LastResetAt:   s.resets[key],
	}
}

func (s *fakeCounterStore) GetForUpdate(ctx context.Context, module coreseq.ModuleCode, epoch coreseq.Epoch) (*coreseq.Counter, error) {
	return s.lookup(module, epoch), nil
}

func (s *fakeCounterStore) Get(ctx context.Context, module coreseq.ModuleCode, epoch coreseq.Epoch) (*coreseq.Counter, error) {
	return s.lookup(module, epoch), nil
}

func (s *fakeCounterStore) Create(ctx context.Context, module coreseq.ModuleCode, epoch coreseq.Epoch, value int64) error {
	key := counterKey(module, epoch)
	if _, ok := s.values[key]; ok {
		return fmt.Errorf("counter %s already exists", key)
	}
	s.values[key] = value
	s.resets[key] = time.Now()
	return nil
}

func (s *fakeCounterStore) Increment(ctx context.Context, module coreseq.ModuleCode, epoch coreseq.Epoch) (int64, error) {
	key := counterKey(module, epoch)
	if _, ok := s.values[key]; !ok {
		return 0, fmt.Errorf("counter %s missing", key)
	}
	s.values[key]++
	return s.values[key], nil
}

func (s *fakeCounterStore) EnsureBase(ctx context.Context, module coreseq.ModuleCode) error {
	key := counterKey(module, coreseq.Epoch{})
	if _, ok := s.values[key]; !ok {
		s.values[key] = 0
		s.resets[key] = time.Now()
	}
	return nil
}

func newTestService() (*Service, *fakeConfigStore, *fakeCounterStore, *fakeRunner) {
	runner := &fakeRunner{}
	configs := newFakeConfigStore()
	counters := newFakeCounterStore()
	return NewService(runner, configs, counters, nil), configs, counters, runner
}

// --- tests ---

func TestGenerateID_Sequential(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	first, err := svc.GenerateID(ctx, coreseq.ModuleLead, nil)
	require.NoError(t, err)
	assert.Equal(t, "SRPL-LEAD-000001", first)

	second, err := svc.GenerateID(ctx, coreseq.ModuleLead, nil)
	require.NoError(t, err)
	assert.Equal(t, "SRPL-LEAD-000002", second)
}

func TestGenerateID_LazyConfigCreation(t *testing.T) {
	svc, configs, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.GenerateID(ctx, coreseq.ModuleTask, nil)
	require.NoError(t, err)

	cfg, ok := configs.configs[coreseq.ModuleTask]
	require.True(t, ok, "config should be created lazily on first use")
	assert.False(t, cfg.UseYearPrefix)
	assert.False(t, cfg.UseFinancialYear)
	assert.Equal(t, coreseq.DefaultPadding, cfg.Padding)
}

func TestGenerateID_FinancialYearMode(t *testing.T) {
	svc, configs, _, _ := newTestService()
	ctx := context.Background()

	cfg := coreseq.DefaultConfig(coreseq.ModuleInvoice)
	cfg.UseFinancialYear = true
	cfg.FinancialYearStart = 4
	configs.configs[coreseq.ModuleInvoice] = cfg

	// Request attributed to March 2025: month 3 < start month 4, so FY24.
	fy24 := coreseq.FinancialYearLabel(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), 4)
	require.Equal(t, "FY24", fy24)

	got, err := svc.GenerateID(ctx, coreseq.ModuleInvoice, &coreseq.Hints{FinancialYear: &fy24})
	require.NoError(t, err)
	assert.Equal(t, "SRPL-INV-FY24-000001", got)

	// May 2025 lands in FY25 with its own independent counter.
	fy25 := coreseq.FinancialYearLabel(time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC), 4)
	require.Equal(t, "FY25", fy25)

	got, err = svc.GenerateID(ctx, coreseq.ModuleInvoice, &coreseq.Hints{FinancialYear: &fy25})
	require.NoError(t, err)
	assert.Equal(t, "SRPL-INV-FY25-000001", got)

	// FY24 continues where it left off.
	got, err = svc.GenerateID(ctx, coreseq.ModuleInvoice, &coreseq.Hints{FinancialYear: &fy24})
	require.NoError(t, err)
	assert.Equal(t, "SRPL-INV-FY24-000002", got)
}

func TestGenerateID_CalendarYearMode(t *testing.T) {
	svc, configs, _, _ := newTestService()
	ctx := context.Background()

	cfg := coreseq.DefaultConfig(coreseq.ModuleCustomer)
	cfg.UseYearPrefix = true
	cfg.Padding = 4
	configs.configs[coreseq.ModuleCustomer] = cfg

	year := 2025
	var got string
	var err error
	for i := 0; i < 4; i++ {
		got, err = svc.GenerateID(ctx, coreseq.ModuleCustomer, &coreseq.Hints{Year: &year})
		require.NoError(t, err)
	}
	assert.Equal(t, "SRPL-CUST-2025-0004", got)
}

func TestGenerateID_EpochIsolation(t *testing.T) {
	svc, configs, counters, _ := newTestService()
	ctx := context.Background()

	// Issue two IDs with no epoch.
	_, err := svc.GenerateID(ctx, coreseq.ModuleLead, nil)
	require.NoError(t, err)
	_, err = svc.GenerateID(ctx, coreseq.ModuleLead, nil)
	require.NoError(t, err)

	// Enable year prefixing: the new epoch counter starts from 1 and the
	// old un-prefixed counter keeps its value untouched.
	cfg := configs.configs[coreseq.ModuleLead]
	cfg.UseYearPrefix = true
	configs.configs[coreseq.ModuleLead] = cfg

	year := 2025
	got, err := svc.GenerateID(ctx, coreseq.ModuleLead, &coreseq.Hints{Year: &year})
	require.NoError(t, err)
	assert.Equal(t, "SRPL-LEAD-2025-000001", got)

	assert.Equal(t, int64(2), counters.values[counterKey(coreseq.ModuleLead, coreseq.Epoch{})])
}

func TestGenerateID_UnknownModule(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.GenerateID(context.Background(), coreseq.ModuleCode("NOPE"), nil)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeConfiguration, appErr.Code)
	assert.False(t, appErr.Retryable)
}

func TestGenerateID_RejectsMalformedHints(t *testing.T) {
	svc, configs, counters, _ := newTestService()
	ctx := context.Background()

	cfg := coreseq.DefaultConfig(coreseq.ModuleInvoice)
	cfg.UseFinancialYear = true
	configs.configs[coreseq.ModuleInvoice] = cfg

	junk := "ZZZZ"
	_, err := svc.GenerateID(ctx, coreseq.ModuleInvoice, &coreseq.Hints{FinancialYear: &junk})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
	assert.False(t, appErr.Retryable)

	_, err = svc.PreviewNextID(ctx, coreseq.ModuleInvoice, &coreseq.Hints{FinancialYear: &junk})
	require.Error(t, err)
	appErr, ok = apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)

	badYear := -5
	_, err = svc.GenerateID(ctx, coreseq.ModuleInvoice, &coreseq.Hints{Year: &badYear})
	require.Error(t, err)
	appErr, ok = apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)

	// Rejected hints must not seed a junk counter key.
	assert.Empty(t, counters.values)
}

func TestGenerateID_Concurrent(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	const callers = 64

	var wg sync.WaitGroup
	ids := make(chan string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := svc.GenerateID(ctx, coreseq.ModuleDeal, nil)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			ids <- got
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool, callers)
	for got := range ids {
		assert.False(t, seen[got], "duplicate identifier issued: %s", got)
		seen[got] = true
	}
	require.Len(t, seen, callers)

	// Gap-free: exactly the values 1..callers were issued.
	for v := 1; v <= callers; v++ {
		want := fmt.Sprintf("SRPL-DEAL-%06d", v)
		assert.True(t, seen[want], "missing %s", want)
	}
}

func TestGenerateID_SerializationFailureIsRetryable(t *testing.T) {
	svc, _, _, runner := newTestService()
	runner.err = &pgconn.PgError{Code: "40001", Message: "could not serialize access"}

	_, err := svc.GenerateID(context.Background(), coreseq.ModuleLead, nil)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeSequenceConflict, appErr.Code)
	assert.True(t, appErr.Retryable)
}

func TestGenerateID_UniqueViolationIsRetryable(t *testing.T) {
	// Two concurrent first issuances for the same new (module, epoch) key race
	// to insert the counter row; the loser gets a unique violation from the
	// counter key index, not a serialization failure.
	svc, _, _, runner := newTestService()
	runner.err = &pgconn.PgError{Code: "23505", Message: `duplicate key value violates unique constraint "ux_sequence_counters_key"`}

	_, err := svc.GenerateID(context.Background(), coreseq.ModuleLead, nil)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeSequenceConflict, appErr.Code)
	assert.True(t, appErr.Retryable)
}

func TestGenerateID_LockTimeoutIsRetryable(t *testing.T) {
	svc, _, _, runner := newTestService()
	runner.err = &pgconn.PgError{Code: "55P03", Message: "could not obtain lock"}

	_, err := svc.GenerateID(context.Background(), coreseq.ModuleLead, nil)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeTimeout, appErr.Code)
	assert.True(t, appErr.Retryable)
}

func TestPreviewNextID_MatchesGenerate(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	preview, err := svc.PreviewNextID(ctx, coreseq.ModuleQuote, nil)
	require.NoError(t, err)

	got, err := svc.GenerateID(ctx, coreseq.ModuleQuote, nil)
	require.NoError(t, err)
	assert.Equal(t, preview, got)

	// And again after issuance.
	preview, err = svc.PreviewNextID(ctx, coreseq.ModuleQuote, nil)
	require.NoError(t, err)
	assert.Equal(t, "SRPL-QUOT-000002", preview)
}

func TestPreviewNextID_DoesNotPersist(t *testing.T) {
	svc, configs, counters, _ := newTestService()
	ctx := context.Background()

	preview, err := svc.PreviewNextID(ctx, coreseq.ModuleReceipt, nil)
	require.NoError(t, err)
	assert.Equal(t, "SRPL-RCPT-000001", preview)

	assert.Empty(t, configs.configs, "preview must not create config rows")
	assert.Empty(t, counters.values, "preview must not create counter rows")
}

func TestInitializeCounters_Idempotent(t *testing.T) {
	svc, configs, counters, _ := newTestService()
	ctx := context.Background()

	modules := coreseq.AllModules()

	require.NoError(t, svc.InitializeCounters(ctx, modules))
	require.NoError(t, svc.InitializeCounters(ctx, modules))

	assert.Len(t, configs.configs, len(modules))
	assert.Len(t, counters.values, len(modules))
	for _, module := range modules {
		assert.Equal(t, int64(0), counters.values[counterKey(module, coreseq.Epoch{})])
	}

	// First issuance after initialization starts at 1.
	got, err := svc.GenerateID(ctx, coreseq.ModuleProduct, nil)
	require.NoError(t, err)
	assert.Equal(t, "SRPL-PROD-000001", got)
}

func TestInitializeCounters_KeepsExistingConfig(t *testing.T) {
	svc, configs, _, _ := newTestService()
	ctx := context.Background()

	cfg := coreseq.DefaultConfig(coreseq.ModuleInvoice)
	cfg.UseFinancialYear = true
	cfg.Padding = 4
	configs.configs[coreseq.ModuleInvoice] = cfg

	require.NoError(t, svc.InitializeCounters(ctx, []coreseq.ModuleCode{coreseq.ModuleInvoice}))

	stored := configs.configs[coreseq.ModuleInvoice]
	assert.True(t, stored.UseFinancialYear, "initialization must not overwrite existing config")
	assert.Equal(t, 4, stored.Padding)
}

func TestInitializeCounters_RejectsUnknownModule(t *testing.T) {
	svc, _, _, _ := newTestService()

	err := svc.InitializeCounters(context.Background(), []coreseq.ModuleCode{"JUNK"})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeConfiguration, appErr.Code)
}
