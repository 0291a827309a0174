// Package booklaw decides which proposed mutations and consensus candidates
// are lawful. A Booklaw is an ordered list of named predicates; an event is
// compliant only when every rule accepts it.
package booklaw

import (
	"fmt"
	"sync"

	"github.com/Harshitk-cp/substrate/internal/domain"
	"go.uber.org/zap"
)

// Event types evaluated by the rule set.
const (
	EventMutation  = "mutation"
	EventConsensus = "consensus"
)

// Payload keys populated by MutationEvent and ConsensusEvent.
const (
	KeyGeoidID      = "geoid_id"
	KeyModality     = "modality"
	KeySymbols      = "symbols"
	KeyEssence      = "essence"
	KeyPrevious     = "previous_essence"
	KeyParticipants = "participants"
	KeyMethod       = "method"
)

// Event describes a proposed change.
type Event struct {
	Type    string
	Payload map[string]any
}

// Predicate returns true when the event is lawful.
type Predicate func(Event) bool

type Rule struct {
	Name  string
	Check Predicate
}

// Booklaw holds the rule set. Rules can be appended at any time; the set is
// read under a lock so a rule added mid-flight never observes a partially
// evaluated event.
type Booklaw struct {
	mu     sync.RWMutex
	rules  []Rule
	logger *zap.Logger
}

func New(logger *zap.Logger, rules ...Rule) (*Booklaw, error) {
	b := &Booklaw{logger: logger}
	for _, r := range rules {
		if err := b.AddRule(r.Name, r.Check); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// AddRule appends a named predicate. Names are unique.
func (b *Booklaw) AddRule(name string, check Predicate) error {
	if name == "" || check == nil {
		return fmt.Errorf("%w: rule needs a name and a predicate", domain.ErrInvalidArgument)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, r := range b.rules {
		if r.Name == name {
			return fmt.Errorf("rule %q: %w", name, domain.ErrCollision)
		}
	}
	b.rules = append(b.rules, Rule{Name: name, Check: check})
	return nil
}

// Rules returns rule names in evaluation order.
func (b *Booklaw) Rules() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, len(b.rules))
	for i, r := range b.rules {
		names[i] = r.Name
	}
	return names
}

// Evaluate runs the rules in order and stops at the first rejection, whose
// name it returns.
func (b *Booklaw) Evaluate(e Event) (bool, string) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, r := range b.rules {
		if !r.Check(e) {
			b.logger.Debug("booklaw rejected event",
				zap.String("rule", r.Name),
				zap.String("event_type", e.Type))
			return false, r.Name
		}
	}
	return true, ""
}

// CheckCompliance reports whether every rule accepts e.
func (b *Booklaw) CheckCompliance(e Event) bool {
	ok, _ := b.Evaluate(e)
	return ok
}
