// Package sim drives the simulated day: it owns the current pipeline,
// reloads datasets and plays the trip window in a loop, publishing the
// ranking on every tick.
package sim

import (
	"context"
	"log"
	"math"
	"sync"
	"time"

	"corner-ranker/internal/city"
	"corner-ranker/internal/dataset"
	"corner-ranker/internal/pipeline"
	"corner-ranker/internal/playback"
	"corner-ranker/internal/publisher"
)

type Publisher interface {
	PublishRanking(msg publisher.RankingMessage) error
	PublishPool(msg publisher.PoolMessage) error
}

type Metrics interface {
	ReloadObserve(d time.Duration, err error)
	DatasetSet(buildings, trips, hotspots int, tiers map[string]int)
	QueryObserve(d time.Duration)
	SimTimeSet(offset float64)
}

type Options struct {
	PublishInterval time.Duration
	SpeedMultiplier float64 // simulated seconds per wall-clock second
	RefreshInterval time.Duration
	LoadTimeout     time.Duration
	Pipeline        pipeline.Options
}

type Manager struct {
	src     dataset.Source
	store   *pipeline.Store
	pub     Publisher
	metrics Metrics
	opts    Options

	reloadMu sync.Mutex

	mu     sync.Mutex
	offset float64 // seconds into the trip window

	cancel context.CancelFunc
	wg     sync.WaitGroup

	refreshCancel context.CancelFunc
	refreshWG     sync.WaitGroup
}

// NewManager wires a manager. pub and metrics may be nil.
func NewManager(src dataset.Source, store *pipeline.Store, pub Publisher, metrics Metrics, opts Options) *Manager {
	if opts.PublishInterval <= 0 {
		opts.PublishInterval = time.Second
	}
	if opts.SpeedMultiplier <= 0 {
		opts.SpeedMultiplier = 1
	}
	if len(opts.Pipeline.Generator.Strategies) == 0 {
		topK := opts.Pipeline.TopK
		opts.Pipeline = pipeline.DefaultOptions()
		if topK > 0 {
			opts.Pipeline.TopK = topK
		}
	}
	return &Manager{
		src:     src,
		store:   store,
		pub:     pub,
		metrics: metrics,
		opts:    opts,
	}
}

func (m *Manager) Store() *pipeline.Store { return m.store }

// Reload loads both datasets, builds a new pipeline and swaps it in. On
// error the current pipeline stays in place.
func (m *Manager) Reload(ctx context.Context) (*pipeline.Pipeline, error) {
	m.reloadMu.Lock()
	defer m.reloadMu.Unlock()

	if m.opts.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.opts.LoadTimeout)
		defer cancel()
	}

	start := time.Now()
	ds, err := dataset.Load(ctx, m.src)
	if err != nil {
		if m.metrics != nil {
			m.metrics.ReloadObserve(time.Since(start), err)
		}
		return nil, err
	}
	p := pipeline.Build(ds, m.opts.Pipeline)
	m.store.Swap(p)

	if m.metrics != nil {
		m.metrics.ReloadObserve(time.Since(start), nil)
		m.metrics.DatasetSet(p.Buildings, p.Trips, len(p.Hotspots), tierCounts(p.Pool))
	}
	log.Printf("dataset reloaded in %s: window %s-%s loop=%.0fs",
		time.Since(start).Round(time.Millisecond),
		playback.FormatClock(p.Window.Min), playback.FormatClock(p.Window.Max), p.Window.Loop)

	if m.pub != nil {
		msg := publisher.PoolMessage{
			PipelineID: p.ID,
			BuiltAt:    p.BuiltAt,
			Hotspots:   len(p.Hotspots),
			Candidates: p.Pool,
		}
		if err := m.pub.PublishPool(msg); err != nil {
			log.Printf("publish pool error: %v", err)
		}
	}
	return p, nil
}

func tierCounts(pool []city.Candidate) map[string]int {
	out := map[string]int{}
	for _, c := range pool {
		out[string(c.Tier)]++
	}
	return out
}

// Query ranks the current pipeline at ts.
func (m *Manager) Query(ts float64) (pipeline.Result, error) {
	start := time.Now()
	res, err := m.store.Query(ts)
	if err == nil && m.metrics != nil {
		m.metrics.QueryObserve(time.Since(start))
	}
	return res, err
}

// Now returns the absolute simulated timestamp. Before the first reload
// it is zero.
func (m *Manager) Now() float64 {
	p, err := m.store.Current()
	if err != nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return p.Window.At(m.offset)
}

// Seek moves the simulated clock to ts, wrapped into the trip window.
func (m *Manager) Seek(ts float64) error {
	p, err := m.store.Current()
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.offset = p.Window.At(ts-p.Window.Min) - p.Window.Min
	m.mu.Unlock()
	return nil
}

// Start plays the trip window in a loop until ctx is cancelled or Stop is
// called.
func (m *Manager) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	m.cancel = cancel
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		tick := time.NewTicker(m.opts.PublishInterval)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				m.tick()
			}
		}
	}()
}

// tick advances the clock by one interval and publishes the ranking.
func (m *Manager) tick() {
	p, err := m.store.Current()
	if err != nil {
		return
	}
	step := m.opts.PublishInterval.Seconds() * m.opts.SpeedMultiplier

	m.mu.Lock()
	if p.Window.Empty() {
		m.offset = 0
	} else {
		m.offset = math.Mod(m.offset+step, p.Window.Loop)
	}
	offset := m.offset
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.SimTimeSet(offset)
	}
	ts := p.Window.Min + offset
	res, err := m.Query(ts)
	if err != nil {
		return
	}
	if m.pub == nil {
		return
	}
	msg := publisher.RankingMessage{
		PipelineID: p.ID,
		SimTime:    ts,
		Clock:      res.Clock,
		Phase:      res.Phase,
		Multiplier: res.Multiplier,
		Top:        res.Top,
		SentAt:     time.Now().UTC(),
	}
	if err := m.pub.PublishRanking(msg); err != nil {
		log.Printf("publish ranking error: %v", err)
	}
}

func (m *Manager) Stop() {
	if m.refreshCancel != nil {
		m.refreshCancel()
	}
	m.refreshWG.Wait()
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

// StartRefresher periodically reloads the datasets.
func (m *Manager) StartRefresher(parent context.Context) {
	if m.opts.RefreshInterval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	m.refreshCancel = cancel
	m.refreshWG.Add(1)
	go func() {
		defer m.refreshWG.Done()
		ticker := time.NewTicker(m.opts.RefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := m.Reload(ctx); err != nil {
					log.Printf("refresh dataset error: %v", err)
				}
			}
		}
	}()
}
