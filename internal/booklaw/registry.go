package booklaw

import (
	"fmt"
	"sort"

	"github.com/Harshitk-cp/substrate/internal/domain"
	"github.com/Harshitk-cp/substrate/internal/vecmath"
	"github.com/google/uuid"
)

// Factory builds a predicate from the params of a rule declaration.
type Factory func(params map[string]any) (Predicate, error)

// Registry resolves rule kinds by name.
type Registry struct {
	kinds map[string]Factory
}

// NewRegistry returns a registry preloaded with the built-in kinds.
func NewRegistry() *Registry {
	r := &Registry{kinds: make(map[string]Factory)}
	r.Register("finite_essence", finiteEssence)
	r.Register("max_norm", maxNorm)
	r.Register("max_drift", maxDrift)
	r.Register("allowed_modalities", allowedModalities)
	r.Register("min_participants", minParticipants)
	r.Register("reject_all", func(map[string]any) (Predicate, error) {
		return func(Event) bool { return false }, nil
	})
	return r
}

// Register adds or replaces a kind.
func (r *Registry) Register(kind string, f Factory) {
	r.kinds[kind] = f
}

// Kinds lists registered kind names.
func (r *Registry) Kinds() []string {
	out := make([]string, 0, len(r.kinds))
	for k := range r.kinds {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Build instantiates a declared rule. When the declaration names event
// types in AppliesTo, the rule accepts every other event type.
func (r *Registry) Build(spec RuleSpec) (Rule, error) {
	f, ok := r.kinds[spec.Kind]
	if !ok {
		return Rule{}, fmt.Errorf("rule %q: %w: unknown kind %q", spec.Name, domain.ErrInvalidArgument, spec.Kind)
	}
	pred, err := f(spec.Params)
	if err != nil {
		return Rule{}, fmt.Errorf("rule %q: %w", spec.Name, err)
	}

	name := spec.Name
	if name == "" {
		name = spec.Kind
	}

	if len(spec.AppliesTo) > 0 {
		applies := make(map[string]bool, len(spec.AppliesTo))
		for _, t := range spec.AppliesTo {
			applies[t] = true
		}
		inner := pred
		pred = func(e Event) bool {
			if !applies[e.Type] {
				return true
			}
			return inner(e)
		}
	}

	return Rule{Name: name, Check: pred}, nil
}

func finiteEssence(map[string]any) (Predicate, error) {
	return func(e Event) bool {
		v, ok := e.Payload[KeyEssence].([]float64)
		return ok && vecmath.Finite(v)
	}, nil
}

func maxNorm(params map[string]any) (Predicate, error) {
	limit, err := floatParam(params, "limit")
	if err != nil {
		return nil, err
	}
	return func(e Event) bool {
		v, ok := e.Payload[KeyEssence].([]float64)
		return ok && vecmath.Norm(v) <= limit
	}, nil
}

// maxDrift bounds the step size of a mutation. Events without a previous
// essence pass.
func maxDrift(params map[string]any) (Predicate, error) {
	limit, err := floatParam(params, "limit")
	if err != nil {
		return nil, err
	}
	return func(e Event) bool {
		prev, ok := e.Payload[KeyPrevious].([]float64)
		if !ok {
			return true
		}
		next, ok := e.Payload[KeyEssence].([]float64)
		if !ok || len(next) != len(prev) {
			return false
		}
		return vecmath.Norm(vecmath.Sub(next, prev)) <= limit
	}, nil
}

func allowedModalities(params map[string]any) (Predicate, error) {
	list, err := stringsParam(params, "modalities")
	if err != nil {
		return nil, err
	}
	allowed := make(map[string]bool, len(list))
	for _, m := range list {
		allowed[m] = true
	}
	return func(e Event) bool {
		m, _ := e.Payload[KeyModality].(string)
		return allowed[m]
	}, nil
}

// minParticipants only constrains consensus events.
func minParticipants(params map[string]any) (Predicate, error) {
	n, err := floatParam(params, "count")
	if err != nil {
		return nil, err
	}
	return func(e Event) bool {
		if e.Type != EventConsensus {
			return true
		}
		ids, _ := e.Payload[KeyParticipants].([]uuid.UUID)
		return float64(len(ids)) >= n
	}, nil
}

func floatParam(params map[string]any, key string) (float64, error) {
	raw, ok := params[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing param %q", domain.ErrInvalidArgument, key)
	}
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("%w: param %q must be a number", domain.ErrInvalidArgument, key)
	}
}

func stringsParam(params map[string]any, key string) ([]string, error) {
	raw, ok := params[key]
	if !ok {
		return nil, fmt.Errorf("%w: missing param %q", domain.ErrInvalidArgument, key)
	}
	switch v := raw.(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: param %q must be a list of strings", domain.ErrInvalidArgument, key)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: param %q must be a list of strings", domain.ErrInvalidArgument, key)
	}
}
