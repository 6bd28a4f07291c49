package publisher

import (
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"corner-ranker/internal/city"
)

type NATSPublisher struct {
	nc          *nats.Conn
	prefix      string
	logSubjects bool
	metrics     PublisherMetrics
}

type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	PublishObserve(d time.Duration)
	NATSSetConnected(connected bool)
}

func NewNATSPublisher(url, prefix string, logSubjects bool, m PublisherMetrics) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("corner-ranker"),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Printf("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			log.Printf("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Printf("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	return &NATSPublisher{nc: nc, prefix: Subject(prefix), logSubjects: logSubjects, metrics: m}, nil
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
		p.nc.Close()
	}
}

// RankingMessage is the top-k at one simulated instant.
type RankingMessage struct {
	PipelineID string                 `json:"pipelineId"`
	SimTime    float64                `json:"simTime"`
	Clock      string                 `json:"clock"`
	Phase      string                 `json:"phase"`
	Multiplier float64                `json:"multiplier"`
	Top        []city.ScoredCandidate `json:"top"`
	SentAt     time.Time              `json:"sentAt"`
}

// PoolMessage announces a rebuilt candidate pool.
type PoolMessage struct {
	PipelineID string           `json:"pipelineId"`
	BuiltAt    time.Time        `json:"builtAt"`
	Hotspots   int              `json:"hotspots"`
	Candidates []city.Candidate `json:"candidates"`
}

func (p *NATSPublisher) PublishRanking(msg RankingMessage) error {
	return p.publish(p.prefix+".ranking", msg)
}

func (p *NATSPublisher) PublishPool(msg PoolMessage) error {
	return p.publish(p.prefix+".pool", msg)
}

func (p *NATSPublisher) publish(subject string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if p.logSubjects {
		log.Printf("nats publish subject=%s bytes=%d", subject, len(b))
	}
	start := time.Now()
	err = p.nc.Publish(subject, b)
	if p.metrics != nil {
		p.metrics.PublishObserve(time.Since(start))
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	return err
}

// Subject sanitises a dotted subject prefix token by token.
func Subject(prefix string) string {
	parts := strings.Split(strings.Trim(strings.TrimSpace(prefix), "."), ".")
	for i, p := range parts {
		parts[i] = subjectToken(p)
	}
	return strings.Join(parts, ".")
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
