// Package pipeline is the caller-driven ingestion loop: each event is de-duplicated,
// logged as traffic, checked by the rule engine and, when anomalous, turned into an
// incident that is fanned out to the notifiers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"charge-sentinel/internal/alert"
	"charge-sentinel/internal/grouping"
	"charge-sentinel/internal/incident"
	"charge-sentinel/internal/metrics"
	"charge-sentinel/internal/model"
	"charge-sentinel/internal/rules"
	"charge-sentinel/internal/traffic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
)

const DefaultMaxHistory = 500

var ErrInvalidEvent = errors.New("invalid flow event")

// Options describes the monitored endpoint and history bound
type Options struct {
	Endpoint   traffic.Endpoint
	Port       string
	MaxHistory int
}

// Result is the outcome of processing one event
type Result struct {
	Event     model.FlowEvent `json:"event"`
	Incident  *model.Incident `json:"incident,omitempty"`
	Duplicate bool            `json:"duplicate,omitempty"`
}

// Processor receives flow events, evaluates rules and creates incidents
type Processor struct {
	engine     *rules.Engine
	factory    *incident.Factory
	traffic    *traffic.Buffer
	metrics    *metrics.PrometheusMetrics
	notifiers  []alert.Notifier
	seen       *lru.Cache[string, struct{}]
	history    []model.FlowEvent
	maxHistory int
	endpoint   traffic.Endpoint
	port       string
	mu         sync.Mutex
	wg         sync.WaitGroup
	logger     *logrus.Logger
}

// NewProcessor creates a new processor instance
func NewProcessor(engine *rules.Engine, factory *incident.Factory, opts Options, logger *logrus.Logger) (*Processor, error) {
	if opts.MaxHistory <= 0 {
		opts.MaxHistory = DefaultMaxHistory
	}
	seen, err := lru.New[string, struct{}](opts.MaxHistory * 4)
	if err != nil {
		return nil, fmt.Errorf("failed to create event id cache: %w", err)
	}
	return &Processor{
		engine:     engine,
		factory:    factory,
		seen:       seen,
		history:    make([]model.FlowEvent, 0, opts.MaxHistory),
		maxHistory: opts.MaxHistory,
		endpoint:   opts.Endpoint,
		port:       opts.Port,
		logger:     logger,
	}, nil
}

func (p *Processor) SetTrafficBuffer(buf *traffic.Buffer) {
	p.traffic = buf
}

func (p *Processor) SetMetrics(m *metrics.PrometheusMetrics) {
	p.metrics = m
}

func (p *Processor) AddNotifier(n alert.Notifier) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notifiers = append(p.notifiers, n)
}

// Process runs one event through the pipeline. Events already seen are reported as
// duplicates and otherwise ignored.
func (p *Processor) Process(ctx context.Context, event model.FlowEvent) (Result, error) {
	if event.ID == "" || event.Action == "" {
		return Result{}, fmt.Errorf("%w: id and action are required", ErrInvalidEvent)
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	start := time.Now()
	if p.metrics != nil {
		defer p.metrics.ObserveProcessing(start)
	}

	if seen, _ := p.seen.ContainsOrAdd(event.ID, struct{}{}); seen {
		if p.metrics != nil {
			p.metrics.RecordDuplicate()
		}
		p.logger.Debugf("Dropping duplicate event %s", event.ID)
		return Result{Event: event, Duplicate: true}, nil
	}

	p.mu.Lock()
	anomaly := p.engine.Evaluate(ctx, p.history, event)
	processed := event
	if anomaly != nil {
		processed = *anomaly
	}
	p.history = append(p.history, processed)
	if len(p.history) > p.maxHistory {
		p.history = append(p.history[:0:0], p.history[len(p.history)-p.maxHistory:]...)
	}
	notifiers := p.notifiers
	p.mu.Unlock()

	if p.traffic != nil {
		p.traffic.Add(traffic.FromEvent(processed, p.endpoint))
	}
	if p.metrics != nil {
		p.metrics.RecordEvent(processed)
	}

	result := Result{Event: processed}
	if anomaly == nil {
		return result, nil
	}

	inc := p.factory.FromAnomaly(ctx, processed, p.endpoint.SourceIP, p.port)
	result.Incident = &inc
	if p.metrics != nil {
		p.metrics.RecordAnomaly(processed)
		p.metrics.RecordIncident(inc)
	}

	p.wg.Add(1)
	go p.notify(notifiers, inc)

	return result, nil
}

func (p *Processor) notify(notifiers []alert.Notifier, inc model.Incident) {
	defer p.wg.Done()
	for _, n := range notifiers {
		if err := n.SendIncident(inc); err != nil {
			name := alert.NameOf(n)
			p.logger.Errorf("Notifier %s failed for incident %s: %v", name, inc.ID, err)
			if p.metrics != nil {
				p.metrics.RecordNotifierError(name)
			}
		}
	}
}

// Wait blocks until every pending notification has been delivered or has failed
func (p *Processor) Wait() {
	p.wg.Wait()
}

// Events returns a copy of the bounded history, oldest first
func (p *Processor) Events() []model.FlowEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	events := make([]model.FlowEvent, len(p.history))
	copy(events, p.history)
	return events
}

func (p *Processor) Groups() []model.GroupedEvent {
	return grouping.Group(p.Events())
}

// RecordPatterns stores a pattern incident for every non-anomalous group large
// enough to qualify, labelled normal or anomalous for classifier training
func (p *Processor) RecordPatterns(ctx context.Context, isNormal bool) []model.Incident {
	created := make([]model.Incident, 0)
	for _, group := range p.Groups() {
		if group.IsAnomaly {
			continue
		}
		if inc, ok := p.factory.FromPattern(ctx, group, p.endpoint.SourceIP, p.port, isNormal); ok {
			created = append(created, inc)
			if p.metrics != nil {
				p.metrics.RecordIncident(inc)
			}
		}
	}
	p.logger.Infof("Recorded %d pattern incidents (normal=%v)", len(created), isNormal)
	return created
}
