package metrics

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	Buildings  prometheus.Gauge
	Trips      prometheus.Gauge
	Hotspots   prometheus.Gauge
	Candidates *prometheus.GaugeVec // tier label

	Reloads        *prometheus.CounterVec // result label: ok|error
	ReloadDuration prometheus.Histogram

	Queries       prometheus.Counter
	QueryDuration prometheus.Histogram
	SimTime       prometheus.Gauge // simulated seconds into the trip window

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge
	PublishDuration prometheus.Histogram

	SpeedMultiplier prometheus.Gauge
	PublishInterval prometheus.Gauge // seconds
	RefreshInterval prometheus.Gauge // seconds
}

func NewCollector(speedMultiplier float64, publishInterval, refreshInterval time.Duration) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Buildings: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "corners_dataset_buildings",
			Help: "Valid buildings in the current dataset.",
		}),
		Trips: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "corners_dataset_trips",
			Help: "Usable trips in the current dataset.",
		}),
		Hotspots: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "corners_hotspots",
			Help: "Hotspots extracted from the current dataset.",
		}),
		Candidates: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "corners_candidates",
			Help: "Candidate corners in the pool by generator tier.",
		}, []string{"tier"}),
		Reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "corners_reloads_total",
			Help: "Dataset reloads by result.",
		}, []string{"result"}),
		ReloadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "corners_reload_duration_seconds",
			Help:    "Duration of loading a dataset and building the pipeline.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		Queries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "corners_queries_total",
			Help: "Total ranking queries.",
		}),
		QueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "corners_query_duration_seconds",
			Help:    "Duration of rescoring and top-k selection.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 15),
		}),
		SimTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "corners_sim_time_seconds",
			Help: "Simulated clock offset into the trip window.",
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "corners_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "corners_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "corners_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "corners_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		SpeedMultiplier: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "corners_speed_multiplier",
			Help: "Simulated seconds per wall-clock second.",
		}),
		PublishInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "corners_publish_interval_seconds",
			Help: "Publish interval in seconds.",
		}),
		RefreshInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "corners_refresh_interval_seconds",
			Help: "Dataset refresh interval in seconds, 0 when disabled.",
		}),
	}

	reg.MustRegister(
		c.Buildings, c.Trips, c.Hotspots, c.Candidates,
		c.Reloads, c.ReloadDuration,
		c.Queries, c.QueryDuration, c.SimTime,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected, c.PublishDuration,
		c.SpeedMultiplier, c.PublishInterval, c.RefreshInterval,
	)

	c.SpeedMultiplier.Set(speedMultiplier)
	c.PublishInterval.Set(publishInterval.Seconds())
	c.RefreshInterval.Set(refreshInterval.Seconds())

	return c
}

// Registry exposes the collector's registry, mostly for tests.
func (c *Collector) Registry() *prometheus.Registry { return c.reg }

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	log.Printf("metrics listening on %s", addr)
	return srv
}

// The methods below satisfy the sim and publisher metric interfaces.

func (c *Collector) NATSPublishedInc()              { c.NATSPublished.Inc() }
func (c *Collector) NATSPublishErrInc()             { c.NATSPublishErrs.Inc() }
func (c *Collector) PublishObserve(d time.Duration) { c.PublishDuration.Observe(d.Seconds()) }

func (c *Collector) NATSSetConnected(connected bool) {
	if connected {
		c.NATSConnected.Set(1)
	} else {
		c.NATSConnected.Set(0)
	}
}

func (c *Collector) ReloadObserve(d time.Duration, err error) {
	c.ReloadDuration.Observe(d.Seconds())
	if err != nil {
		c.Reloads.WithLabelValues("error").Inc()
		return
	}
	c.Reloads.WithLabelValues("ok").Inc()
}

// DatasetSet records the shape of a freshly built pipeline.
func (c *Collector) DatasetSet(buildings, trips, hotspots int, tiers map[string]int) {
	c.Buildings.Set(float64(buildings))
	c.Trips.Set(float64(trips))
	c.Hotspots.Set(float64(hotspots))
	c.Candidates.Reset()
	for tier, n := range tiers {
		c.Candidates.WithLabelValues(tier).Set(float64(n))
	}
}

func (c *Collector) QueryObserve(d time.Duration) {
	c.Queries.Inc()
	c.QueryDuration.Observe(d.Seconds())
}

func (c *Collector) SimTimeSet(offset float64) { c.SimTime.Set(offset) }
