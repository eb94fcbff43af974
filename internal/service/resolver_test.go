package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	cachemem "github.com/sylvaincormier/bittensor-async-api/internal/cache/memory"
	"github.com/sylvaincormier/bittensor-async-api/internal/domain"
	storemem "github.com/sylvaincormier/bittensor-async-api/internal/store/memory"
)

const (
	testHotkey   = "5FFApaS75bv5pJHfAp2FVLBj9ZaXuFDjEypsaBNc1wCfe52v"
	testFallback = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
)

// mockLedger counts calls per hotkey and serves configured values or errors.
type mockLedger struct {
	mu     sync.Mutex
	values map[string]float64
	errs   map[string]error
	calls  map[string]int

	stakeCalls   []stakeCall
	unstakeCalls []stakeCall
	stakeErr     error
}

type stakeCall struct {
	netuid int
	hotkey string
	amount float64
}

func newMockLedger() *mockLedger {
	return &mockLedger{
		values: make(map[string]float64),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

func (m *mockLedger) TaoDividends(_ context.Context, _ int, hotkey string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[hotkey]++
	if err, ok := m.errs[hotkey]; ok {
		return 0, err
	}
	return m.values[hotkey], nil
}

func (m *mockLedger) AddStake(_ context.Context, netuid int, hotkey string, amount float64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stakeErr != nil {
		return "", m.stakeErr
	}
	m.stakeCalls = append(m.stakeCalls, stakeCall{netuid, hotkey, amount})
	return "0xstake", nil
}

func (m *mockLedger) RemoveStake(_ context.Context, netuid int, hotkey string, amount float64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stakeErr != nil {
		return "", m.stakeErr
	}
	m.unstakeCalls = append(m.unstakeCalls, stakeCall{netuid, hotkey, amount})
	return "0xunstake", nil
}

func (m *mockLedger) callCount(hotkey string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[hotkey]
}

// memQueue is a minimal unbounded in-process queue for tests.
type memQueue struct {
	mu         sync.Mutex
	ids        []string
	enqueueErr error
}

func (q *memQueue) Enqueue(_ context.Context, jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.enqueueErr != nil {
		return q.enqueueErr
	}
	q.ids = append(q.ids, jobID)
	return nil
}

func (q *memQueue) Next(_ context.Context) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.ids) == 0 {
		return "", domain.ErrNotFound
	}
	id := q.ids[0]
	q.ids = q.ids[1:]
	return id, nil
}

func (q *memQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ids)
}

type resolverFixture struct {
	svc     *DividendService
	ledger  *mockLedger
	cache   *cachemem.DividendCache
	history *storemem.HistoryStore
	jobs    *storemem.TradeJobStore
	queue   *memQueue
	clock   *time.Time
}

func newResolverFixture(t *testing.T) *resolverFixture {
	t.Helper()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := &now

	ledger := newMockLedger()
	cache := cachemem.NewDividendCacheAt(func() time.Time { return *clock })
	history := storemem.NewHistoryStore()
	jobs := storemem.NewTradeJobStore()
	queue := &memQueue{}

	svc := NewDividendService(
		cache, ledger, history, jobs, queue,
		nil,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		120*time.Second,
		5*time.Second,
		testFallback,
	)
	svc.now = func() time.Time { return *clock }

	return &resolverFixture{
		svc: svc, ledger: ledger, cache: cache,
		history: history, jobs: jobs, queue: queue, clock: clock,
	}
}

func TestResolve_CacheHitSkipsLedger(t *testing.T) {
	f := newResolverFixture(t)
	f.ledger.values[testHotkey] = 1.25
	q := domain.DividendQuery{NetUID: 18, Hotkey: testHotkey}

	first, err := f.svc.Resolve(context.Background(), q, false)
	require.NoError(t, err)
	require.False(t, first.Cached)
	require.Equal(t, domain.SourceLive, first.Result.Source)
	require.Equal(t, 1, f.ledger.callCount(testHotkey))

	second, err := f.svc.Resolve(context.Background(), q, false)
	require.NoError(t, err)
	require.True(t, second.Cached)
	require.Equal(t, first.Result, second.Result)
	require.Equal(t, 1, f.ledger.callCount(testHotkey), "cache hit must not call the ledger")
}

func TestResolve_TTLExpiryForcesLedgerCall(t *testing.T) {
	f := newResolverFixture(t)
	f.ledger.values[testHotkey] = 1.25
	q := domain.DividendQuery{NetUID: 18, Hotkey: testHotkey}

	_, err := f.svc.Resolve(context.Background(), q, false)
	require.NoError(t, err)
	require.Equal(t, 1, f.ledger.callCount(testHotkey))

	*f.clock = f.clock.Add(120 * time.Second)

	res, err := f.svc.Resolve(context.Background(), q, false)
	require.NoError(t, err)
	require.False(t, res.Cached)
	require.Equal(t, 2, f.ledger.callCount(testHotkey), "expired entry must trigger a fresh ledger call")
}

func TestResolve_FallbackOnLiveFailure(t *testing.T) {
	f := newResolverFixture(t)
	f.ledger.errs[testHotkey] = errors.New("node unreachable")
	f.ledger.values[testFallback] = 0.5
	q := domain.DividendQuery{NetUID: 18, Hotkey: testHotkey}

	res, err := f.svc.Resolve(context.Background(), q, false)
	require.NoError(t, err)
	require.Equal(t, domain.SourceFallback, res.Result.Source)
	require.Equal(t, 0.5, res.Result.Dividend)
	require.Equal(t, testHotkey, res.Result.Hotkey, "result keeps the requested identity")
	require.Equal(t, 1, f.ledger.callCount(testFallback))
}

func TestResolve_BothAttemptsFail(t *testing.T) {
	f := newResolverFixture(t)
	f.ledger.errs[testHotkey] = errors.New("node unreachable")
	f.ledger.errs[testFallback] = errors.New("node unreachable")
	q := domain.DividendQuery{NetUID: 18, Hotkey: testHotkey}

	_, err := f.svc.Resolve(context.Background(), q, true)
	require.ErrorIs(t, err, domain.ErrLedgerUnavailable)

	// No partial writes on the failure path.
	_, cacheErr := f.cache.Get(context.Background(), q)
	require.ErrorIs(t, cacheErr, domain.ErrNotFound)
	require.Equal(t, 0, f.history.Len())

	jobs, jerr := f.jobs.ListRecent(context.Background(), 10)
	require.NoError(t, jerr)
	require.Empty(t, jobs)
}

func TestResolve_TradeDispatch(t *testing.T) {
	f := newResolverFixture(t)
	f.ledger.values[testHotkey] = 1.0
	q := domain.DividendQuery{NetUID: 18, Hotkey: testHotkey}

	res, err := f.svc.Resolve(context.Background(), q, true)
	require.NoError(t, err)
	require.True(t, res.TradeTriggered)
	require.NotEmpty(t, res.JobID)

	job, err := f.jobs.GetByID(context.Background(), res.JobID)
	require.NoError(t, err)
	require.Equal(t, domain.JobPending, job.Status)
	require.Equal(t, 18, job.NetUID)
	require.Equal(t, 1, f.queue.len())
}

func TestResolve_TradeDispatchFailureSurfaces(t *testing.T) {
	// A caller that asked for a trade is owed a job handle; an enqueue
	// failure must fail the request instead of reporting no trade.
	f := newResolverFixture(t)
	f.ledger.values[testHotkey] = 1.0
	f.queue.enqueueErr = errors.New("stream unavailable")
	q := domain.DividendQuery{NetUID: 18, Hotkey: testHotkey}

	res, err := f.svc.Resolve(context.Background(), q, true)
	require.Error(t, err)
	require.Contains(t, err.Error(), "dispatch trade")
	require.False(t, res.TradeTriggered)
	require.Empty(t, res.JobID)
}

func TestResolve_NoTradeRequested(t *testing.T) {
	f := newResolverFixture(t)
	f.ledger.values[testHotkey] = 1.0
	q := domain.DividendQuery{NetUID: 18, Hotkey: testHotkey}

	res, err := f.svc.Resolve(context.Background(), q, false)
	require.NoError(t, err)
	require.False(t, res.TradeTriggered)
	require.Empty(t, res.JobID)

	jobs, err := f.jobs.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Empty(t, jobs)
}

func TestResolve_CacheHitDoesNotRedispatchTrade(t *testing.T) {
	f := newResolverFixture(t)
	f.ledger.values[testHotkey] = 1.0
	q := domain.DividendQuery{NetUID: 18, Hotkey: testHotkey}

	first, err := f.svc.Resolve(context.Background(), q, true)
	require.NoError(t, err)
	require.True(t, first.TradeTriggered)

	second, err := f.svc.Resolve(context.Background(), q, true)
	require.NoError(t, err)
	require.True(t, second.Cached)
	require.False(t, second.TradeTriggered, "repeated reads must not stack stake actions")
	require.Empty(t, second.JobID)

	jobs, err := f.jobs.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
}

func TestResolve_ValidationRejectedBeforeIO(t *testing.T) {
	f := newResolverFixture(t)

	_, err := f.svc.Resolve(context.Background(), domain.DividendQuery{NetUID: -1, Hotkey: testHotkey}, false)
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.Resolve(context.Background(), domain.DividendQuery{NetUID: 18, Hotkey: "short"}, false)
	require.ErrorIs(t, err, domain.ErrValidation)

	require.Equal(t, 0, f.ledger.callCount(testHotkey), "validation failures must not reach the ledger")
}

func TestResolve_HistoryAppendedOnResolution(t *testing.T) {
	f := newResolverFixture(t)
	f.ledger.values[testHotkey] = 2.5
	q := domain.DividendQuery{NetUID: 18, Hotkey: testHotkey}

	_, err := f.svc.Resolve(context.Background(), q, false)
	require.NoError(t, err)

	entries, err := f.svc.History(context.Background(), domain.HistoryFilter{Hotkey: testHotkey})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, 2.5, entries[0].Result.Dividend)
	require.Equal(t, domain.SourceLive, entries[0].Result.Source)
}
