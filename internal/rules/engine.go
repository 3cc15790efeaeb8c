package rules

import (
	"context"
	"sync"

	"charge-sentinel/internal/model"

	"github.com/sirupsen/logrus"
)

type Engine struct {
	rules  []RuleInterface
	logger *logrus.Logger
	mu     sync.RWMutex
}

func NewEngine(logger *logrus.Logger) *Engine {
	return &Engine{
		rules:  make([]RuleInterface, 0),
		logger: logger,
	}
}

func (e *Engine) RegisterRule(rule RuleInterface) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = append(e.rules, rule)
	e.logger.Infof("Registered rule: %s", rule.Name())
}

func (e *Engine) Rules() []RuleInterface {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rules := make([]RuleInterface, len(e.rules))
	copy(rules, e.rules)
	return rules
}

// Evaluate runs every enabled rule against the candidate and returns the first
// enriched anomaly, or nil when no rule fires.
func (e *Engine) Evaluate(ctx context.Context, history []model.FlowEvent, candidate model.FlowEvent) *model.FlowEvent {
	for _, rule := range e.Rules() {
		if !rule.IsEnabled() {
			continue
		}
		if anomaly := rule.Evaluate(ctx, history, candidate); anomaly != nil {
			e.logger.Debugf("Rule %s flagged event %s", rule.Name(), candidate.ID)
			return anomaly
		}
	}
	return nil
}

type RuleInterface interface {
	Name() string
	IsEnabled() bool
	Evaluate(ctx context.Context, history []model.FlowEvent, candidate model.FlowEvent) *model.FlowEvent
}
