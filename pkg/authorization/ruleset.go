package authorization

import (
	"context"
	"sync"

	"github.com/cuemby/factengine/pkg/fact"
	"github.com/cuemby/factengine/pkg/facterrors"
	"github.com/cuemby/factengine/pkg/log"
	"github.com/cuemby/factengine/pkg/storage"
	"github.com/rs/zerolog"
)

// DefaultPolicy names what happens to a fact type with no registered
// rules: chosen once at engine construction.
type DefaultPolicy int

const (
	// DefaultPermissive authorizes any fact of an unregistered type.
	DefaultPermissive DefaultPolicy = iota
	// DefaultRestrictive forbids any fact of an unregistered type.
	DefaultRestrictive
)

// RuleSet holds the rules registered per fact type and the default
// policy applied to types with none.
type RuleSet struct {
	mu      sync.RWMutex
	rules   map[string][]Rule
	policy  DefaultPolicy
	logger  zerolog.Logger
}

// New constructs an empty RuleSet with the given default policy.
func New(policy DefaultPolicy) *RuleSet {
	return &RuleSet{
		rules:  make(map[string][]Rule),
		policy: policy,
		logger: log.WithComponent("authorization"),
	}
}

// Register appends rule to the rules evaluated for factType, in
// registration order. At least one registered rule must return
// authorized for a fact of that type to be saved.
func (rs *RuleSet) Register(factType string, rule Rule) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.rules[factType] = append(rs.rules[factType], rule)
}

// Authorize decides whether user may submit candidate, whose
// transitive predecessor closure is evidence. It returns
// facterrors.ErrForbidden, naming the type, if no rule admits it.
func (rs *RuleSet) Authorize(ctx context.Context, store storage.Store, candidate fact.Fact, evidence []fact.Envelope, user fact.Reference) error {
	candidateRef, err := fact.ReferenceOf(candidate)
	if err != nil {
		return err
	}

	rs.mu.RLock()
	rules := rs.rules[candidate.Type]
	policy := rs.policy
	rs.mu.RUnlock()

	if len(rules) == 0 {
		if policy == DefaultPermissive {
			return nil
		}
		return facterrors.Forbidden(candidate.Type)
	}

	for _, rule := range rules {
		ok, err := rule.authorize(ctx, store, candidate, candidateRef, evidence, user)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return facterrors.Forbidden(candidate.Type)
}
