package generation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonhull/firebird-suite/roost/internal/apperr"
	"github.com/simonhull/firebird-suite/roost/internal/feature"
	"github.com/simonhull/firebird-suite/roost/internal/strategy"
)

// fakeStrategy blocks until release is closed, then returns data/err or panics
type fakeStrategy struct {
	release chan struct{}
	data    []byte
	err     error
	panic   any
}

func newFake() *fakeStrategy {
	return &fakeStrategy{release: make(chan struct{}), data: []byte("PK-archive")}
}

func (f *fakeStrategy) Generate(ctx context.Context, _ strategy.Request) ([]byte, error) {
	select {
	case <-f.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if f.panic != nil {
		panic(f.panic)
	}
	return f.data, f.err
}

func newService(fake *fakeStrategy, opts Options) *Service {
	return NewService(map[feature.Architecture]strategy.Strategy{
		feature.Monolith:     fake,
		feature.Microservice: fake,
	}, opts)
}

func request() strategy.Request {
	return strategy.Request{ProjectName: "shop", Features: []string{"users"}}
}

func wait(t *testing.T, svc *Service, id string) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := svc.Wait(ctx, id)
	require.NoError(t, err)
	return snap
}

func TestStart_PendingThenCompleted(t *testing.T) {
	fake := newFake()
	svc := newService(fake, Options{})

	id, err := svc.Start(request())
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	snap, err := svc.Status(id)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, snap.Status)
	assert.Nil(t, snap.ResolvedAt)

	_, err = svc.Archive(id)
	assert.ErrorIs(t, err, apperr.ErrProjectNotReady)

	close(fake.release)
	snap = wait(t, svc, id)
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, "shop", snap.ProjectName)
	assert.NotNil(t, snap.ResolvedAt)

	data, err := svc.Archive(id)
	require.NoError(t, err)
	assert.Equal(t, []byte("PK-archive"), data)
}

func TestStart_FailurePreservesCode(t *testing.T) {
	fake := newFake()
	fake.err = apperr.FeatureNotFound("payments", "monolith")
	close(fake.release)
	svc := newService(fake, Options{})

	id, err := svc.Start(request())
	require.NoError(t, err)

	snap := wait(t, svc, id)
	assert.Equal(t, StatusFailed, snap.Status)
	require.NotNil(t, snap.Error)
	assert.Equal(t, apperr.CodeFeatureNotFound, snap.Error.Code)
	assert.Equal(t, "payments", snap.Error.Details["featureName"])
	assert.False(t, snap.Error.Timestamp.IsZero())

	_, err = svc.Archive(id)
	assert.ErrorIs(t, err, apperr.ErrProjectNotReady)
}

func TestStart_UntypedFailureIsUnknown(t *testing.T) {
	fake := newFake()
	fake.err = errors.New("disk full")
	close(fake.release)
	svc := newService(fake, Options{})

	id, err := svc.Start(request())
	require.NoError(t, err)

	snap := wait(t, svc, id)
	require.NotNil(t, snap.Error)
	assert.Equal(t, apperr.CodeUnknown, snap.Error.Code)
	assert.Equal(t, "disk full", snap.Error.Message)
}

func TestStart_PanicIsRecovered(t *testing.T) {
	fake := newFake()
	fake.panic = "boom"
	close(fake.release)
	svc := newService(fake, Options{})

	id, err := svc.Start(request())
	require.NoError(t, err)

	snap := wait(t, svc, id)
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, apperr.CodeUnknown, snap.Error.Code)
	assert.Contains(t, snap.Error.Message, "boom")
}

func TestStart_EmptyArchiveIsMissingData(t *testing.T) {
	fake := newFake()
	fake.data = nil
	close(fake.release)
	svc := newService(fake, Options{})

	id, err := svc.Start(request())
	require.NoError(t, err)
	wait(t, svc, id)

	_, err = svc.Archive(id)
	assert.ErrorIs(t, err, apperr.ErrProjectDataMissing)
}

func TestStart_InvalidRequest(t *testing.T) {
	svc := newService(newFake(), Options{})

	_, err := svc.Start(strategy.Request{ProjectName: "x"})

	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestStart_NoStrategyForArchitecture(t *testing.T) {
	svc := NewService(map[feature.Architecture]strategy.Strategy{}, Options{})

	_, err := svc.Start(request())

	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUnknownID(t *testing.T) {
	svc := newService(newFake(), Options{})

	_, err := svc.Status("nope")
	assert.ErrorIs(t, err, apperr.ErrGenerationNotFound)

	_, err = svc.Archive("nope")
	assert.ErrorIs(t, err, apperr.ErrGenerationNotFound)

	_, err = svc.Wait(context.Background(), "nope")
	assert.ErrorIs(t, err, apperr.ErrGenerationNotFound)
}

func TestWait_ContextExpires(t *testing.T) {
	svc := newService(newFake(), Options{})
	id, err := svc.Start(request())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = svc.Wait(ctx, id)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	require.NoError(t, svc.Shutdown(context.Background()))
}

func TestConcurrentJobs(t *testing.T) {
	fake := newFake()
	close(fake.release)
	svc := newService(fake, Options{})

	var wg sync.WaitGroup
	ids := make([]string, 20)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := svc.Start(request())
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
		assert.Equal(t, StatusCompleted, wait(t, svc, id).Status)
	}
}

func TestSweep(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}

	done := newFake()
	close(done.release)
	svc := newService(done, Options{Retention: time.Hour, Now: clock})

	oldID, err := svc.Start(request())
	require.NoError(t, err)
	wait(t, svc, oldID)

	advance(2 * time.Hour)
	freshID, err := svc.Start(request())
	require.NoError(t, err)
	wait(t, svc, freshID)

	assert.Equal(t, 1, svc.Sweep())

	_, err = svc.Status(oldID)
	assert.ErrorIs(t, err, apperr.ErrGenerationNotFound)
	_, err = svc.Status(freshID)
	assert.NoError(t, err)
}

func TestSweep_NoRetentionKeepsJobs(t *testing.T) {
	fake := newFake()
	close(fake.release)
	svc := newService(fake, Options{})

	id, err := svc.Start(request())
	require.NoError(t, err)
	wait(t, svc, id)

	assert.Equal(t, 0, svc.Sweep())
}

func TestShutdown_CancelsRunningJobs(t *testing.T) {
	svc := newService(newFake(), Options{})
	id, err := svc.Start(request())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, svc.Shutdown(ctx))

	snap, err := svc.Status(id)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, snap.Status)

	_, err = svc.Start(request())
	assert.ErrorIs(t, err, ErrShuttingDown)
}

func TestMetrics(t *testing.T) {
	fake := newFake()
	fake.err = errors.New("nope")
	close(fake.release)
	svc := newService(fake, Options{})

	id, err := svc.Start(request())
	require.NoError(t, err)
	wait(t, svc, id)

	families, err := svc.Registry().Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				values[mf.GetName()] += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				values[mf.GetName()] += m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				values[mf.GetName()] += float64(m.GetHistogram().GetSampleCount())
			}
		}
	}

	assert.Equal(t, float64(1), values["roost_generations_started_total"])
	assert.Equal(t, float64(1), values["roost_generations_finished_total"])
	assert.Equal(t, float64(0), values["roost_generations_in_flight"])
	assert.Equal(t, float64(1), values["roost_generation_duration_seconds"])
}
