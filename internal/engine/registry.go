package engine

import (
	archerrors "archguard/internal/errors"
	"archguard/internal/rules"
)

// Registry is an ordered set of rules with unique IDs.
type Registry struct {
	rules []rules.Rule
	ids   map[string]bool
}

// NewRegistry registers rs in order, stopping at the first configuration error.
func NewRegistry(rs ...rules.Rule) (*Registry, error) {
	reg := &Registry{ids: make(map[string]bool)}
	for _, r := range rs {
		if err := reg.Register(r); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Register validates r and appends it.
func (r *Registry) Register(rule rules.Rule) error {
	if r.ids == nil {
		r.ids = make(map[string]bool)
	}
	if err := rule.Validate(); err != nil {
		return err
	}
	if r.ids[rule.ID] {
		return archerrors.Newf(archerrors.ConfigurationError, "duplicate rule id %q", rule.ID).WithSubject(rule.ID)
	}
	r.ids[rule.ID] = true
	r.rules = append(r.rules, rule)
	return nil
}

// Rules returns the registered rules in registration order.
func (r *Registry) Rules() []rules.Rule {
	return append([]rules.Rule(nil), r.rules...)
}

func (r *Registry) Len() int { return len(r.rules) }

// Filter returns a registry holding only the rules whose IDs are listed, in the original order.
func (r *Registry) Filter(ids []string) (*Registry, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !r.ids[id] {
			return nil, archerrors.Newf(archerrors.ConfigurationError, "unknown rule id %q", id).WithSubject(id)
		}
		want[id] = true
	}
	out := &Registry{ids: make(map[string]bool)}
	for _, rule := range r.rules {
		if want[rule.ID] {
			out.rules = append(out.rules, rule)
			out.ids[rule.ID] = true
		}
	}
	return out, nil
}
