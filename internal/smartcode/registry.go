package smartcode

import (
	"sort"
	"strings"
	"sync"

	"github.com/heraerp/heracore/internal/config"
)

// Policy is the behavior bound to a smart-code family: how transaction lines
// reconcile against the header and which contextual tag, if any, must be
// consistent across all lines.
type Policy struct {
	Family   string
	Rule     string
	GuardTag string
}

// Registry resolves the policy for a smart code by longest family-prefix match.
// Unmatched codes fall back to the sum rule with no guardrail.
type Registry struct {
	mu       sync.RWMutex
	policies map[string]Policy
}

func NewRegistry(holder *config.PostingPolicyHolder) *Registry {
	r := &Registry{policies: map[string]Policy{}}
	if holder != nil {
		r.Apply(holder.Get())
		holder.OnChange(r.Apply)
	} else {
		r.Apply(config.DefaultPostingPolicies())
	}
	return r
}

// Apply replaces the registered policy set.
func (r *Registry) Apply(policies []config.PostingPolicy) {
	next := make(map[string]Policy, len(policies))
	for _, p := range policies {
		family := strings.TrimSpace(p.Family)
		if family == "" {
			continue
		}
		next[family] = Policy{Family: family, Rule: p.Rule, GuardTag: p.GuardTag}
	}

	r.mu.Lock()
	r.policies = next
	r.mu.Unlock()
}

// Register adds or overrides a single family policy.
func (r *Registry) Register(p Policy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies[p.Family] = p
}

// Resolve returns the policy governing the given smart code. Prefix matches are
// evaluated longest-first so HERA.FIN.GL can shadow HERA.FIN.
func (r *Registry) Resolve(code string) Policy {
	fallback := Policy{Rule: config.RuleSum}

	family := Family(code)
	if family == "" {
		return fallback
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	prefixes := make([]string, 0, len(r.policies))
	for prefix := range r.policies {
		prefixes = append(prefixes, prefix)
	}
	sort.Slice(prefixes, func(i, j int) bool { return len(prefixes[i]) > len(prefixes[j]) })

	for _, prefix := range prefixes {
		if family == prefix || strings.HasPrefix(family, prefix+".") {
			return r.policies[prefix]
		}
	}
	return fallback
}
