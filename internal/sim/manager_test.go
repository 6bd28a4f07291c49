package sim

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corner-ranker/internal/city"
	"corner-ranker/internal/pipeline"
	"corner-ranker/internal/publisher"
)

type fakeSource struct {
	calls atomic.Int32
	fail  atomic.Bool
	trips []city.AgentTrip
}

func (s *fakeSource) Buildings(ctx context.Context) ([]city.Building, error) {
	return []city.Building{{ID: "b", Coordinates: orb.Point{-122.41, 37.77}}}, nil
}

func (s *fakeSource) Trips(ctx context.Context) ([]city.AgentTrip, error) {
	s.calls.Add(1)
	if s.fail.Load() {
		return nil, errors.New("source down")
	}
	return s.trips, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	rankings []publisher.RankingMessage
	pools    []publisher.PoolMessage
}

func (p *fakePublisher) PublishRanking(msg publisher.RankingMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rankings = append(p.rankings, msg)
	return nil
}

func (p *fakePublisher) PublishPool(msg publisher.PoolMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pools = append(p.pools, msg)
	return nil
}

func (p *fakePublisher) rankingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.rankings)
}

type fakeMetrics struct {
	mu       sync.Mutex
	reloadOK int
	reloadKO int
	queries  int
	simTime  float64
	tiers    map[string]int
}

func (m *fakeMetrics) ReloadObserve(_ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.reloadKO++
	} else {
		m.reloadOK++
	}
}

func (m *fakeMetrics) DatasetSet(_, _, _ int, tiers map[string]int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tiers = tiers
}

func (m *fakeMetrics) QueryObserve(time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries++
}

func (m *fakeMetrics) SimTimeSet(offset float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.simTime = offset
}

// trips spanning 12:00 to 12:01
func lunchTrips() []city.AgentTrip {
	return []city.AgentTrip{{
		AgentID:    "1",
		Path:       []orb.Point{{-122.41, 37.77}, {-122.40, 37.77}},
		Timestamps: []float64{43200, 43260},
		PlaceFrom:  "a",
		PlaceTo:    "b",
	}}
}

func newManager(src *fakeSource, interval time.Duration, speed float64) (*Manager, *fakePublisher, *fakeMetrics) {
	pub := &fakePublisher{}
	met := &fakeMetrics{}
	m := NewManager(src, &pipeline.Store{}, pub, met, Options{
		PublishInterval: interval,
		SpeedMultiplier: speed,
	})
	return m, pub, met
}

func TestReload(t *testing.T) {
	t.Parallel()

	src := &fakeSource{trips: lunchTrips()}
	m, pub, met := newManager(src, time.Second, 1)

	_, err := m.Store().Current()
	assert.ErrorIs(t, err, pipeline.ErrNotReady)
	assert.Zero(t, m.Now())

	p, err := m.Reload(context.Background())
	require.NoError(t, err)

	cur, err := m.Store().Current()
	require.NoError(t, err)
	assert.Same(t, p, cur)
	assert.Equal(t, 43200.0, m.Now())

	require.Len(t, pub.pools, 1)
	assert.Equal(t, p.ID, pub.pools[0].PipelineID)
	assert.Len(t, pub.pools[0].Candidates, 5)
	assert.Equal(t, 1, met.reloadOK)
	assert.Equal(t, map[string]int{"synthetic": 5}, met.tiers)
}

func TestReload_ErrorKeepsPipeline(t *testing.T) {
	t.Parallel()

	src := &fakeSource{trips: lunchTrips()}
	m, _, met := newManager(src, time.Second, 1)

	first, err := m.Reload(context.Background())
	require.NoError(t, err)

	src.fail.Store(true)
	_, err = m.Reload(context.Background())
	assert.ErrorContains(t, err, "source down")

	cur, err := m.Store().Current()
	require.NoError(t, err)
	assert.Same(t, first, cur)
	assert.Equal(t, 1, met.reloadKO)
}

func TestTickLoopsWindow(t *testing.T) {
	t.Parallel()

	src := &fakeSource{trips: lunchTrips()}
	m, pub, met := newManager(src, time.Second, 25)
	_, err := m.Reload(context.Background())
	require.NoError(t, err)

	m.tick()
	m.tick()
	m.tick()

	require.Len(t, pub.rankings, 3)
	assert.Equal(t, 43225.0, pub.rankings[0].SimTime)
	assert.Equal(t, 43250.0, pub.rankings[1].SimTime)
	assert.Equal(t, 43215.0, pub.rankings[2].SimTime)
	assert.Equal(t, 43215.0, m.Now())
	assert.Equal(t, 15.0, met.simTime)
	assert.Equal(t, 3, met.queries)

	last := pub.rankings[2]
	assert.Equal(t, "lunch", last.Phase)
	assert.Equal(t, "12:00", last.Clock)
	assert.Len(t, last.Top, 5)
}

func TestTickEmptyWindow(t *testing.T) {
	t.Parallel()

	m, pub, _ := newManager(&fakeSource{}, time.Second, 100)
	_, err := m.Reload(context.Background())
	require.NoError(t, err)

	m.tick()
	require.Len(t, pub.rankings, 1)
	assert.Zero(t, pub.rankings[0].SimTime)
	assert.Equal(t, "night", pub.rankings[0].Phase)
	assert.Len(t, pub.rankings[0].Top, 5)
}

func TestTickBeforeReload(t *testing.T) {
	t.Parallel()

	m, pub, _ := newManager(&fakeSource{}, time.Second, 1)
	m.tick()
	assert.Empty(t, pub.rankings)
}

func TestSeek(t *testing.T) {
	t.Parallel()

	m, _, _ := newManager(&fakeSource{trips: lunchTrips()}, time.Second, 1)
	assert.ErrorIs(t, m.Seek(43230), pipeline.ErrNotReady)

	_, err := m.Reload(context.Background())
	require.NoError(t, err)

	require.NoError(t, m.Seek(43230))
	assert.Equal(t, 43230.0, m.Now())
	require.NoError(t, m.Seek(43200+60*3+10))
	assert.Equal(t, 43210.0, m.Now())
}

func TestStartStop(t *testing.T) {
	t.Parallel()

	src := &fakeSource{trips: lunchTrips()}
	m, pub, _ := newManager(src, 5*time.Millisecond, 1)
	_, err := m.Reload(context.Background())
	require.NoError(t, err)

	m.Start(context.Background())
	require.Eventually(t, func() bool { return pub.rankingCount() >= 3 }, 2*time.Second, 5*time.Millisecond)
	m.Stop()

	n := pub.rankingCount()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, pub.rankingCount())
}

func TestRefresher(t *testing.T) {
	t.Parallel()

	src := &fakeSource{trips: lunchTrips()}
	m := NewManager(src, &pipeline.Store{}, nil, nil, Options{RefreshInterval: 5 * time.Millisecond})

	m.StartRefresher(context.Background())
	require.Eventually(t, func() bool { return src.calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	m.Stop()

	_, err := m.Store().Current()
	assert.NoError(t, err)
}
