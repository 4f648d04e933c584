package config

import (
	"errors"
	"log"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// PostingPolicy maps a smart-code family prefix to the reconciliation rule and
// the optional guardrail tag enforced when posting transactions of that family.
type PostingPolicy struct {
	Family   string `mapstructure:"family"`
	Rule     string `mapstructure:"rule"`
	GuardTag string `mapstructure:"guardTag"`
}

const (
	RuleSum      = "sum"
	RuleBalanced = "balanced"
)

// DefaultPostingPolicies are applied when no policy file is present. Journal
// families must balance debit against credit; point-of-sale families must sum
// to the header total and carry a consistent branch tag on every line.
func DefaultPostingPolicies() []PostingPolicy {
	return []PostingPolicy{
		{Family: "HERA.FIN", Rule: RuleBalanced},
		{Family: "HERA.POS", Rule: RuleSum, GuardTag: "branch_id"},
	}
}

// PostingPolicyHolder serves the current policy set and hot-reloads it when the
// underlying file changes.
type PostingPolicyHolder struct {
	current atomic.Value // holds []PostingPolicy

	mu        sync.Mutex
	listeners []func([]PostingPolicy)
}

func NewPostingPolicyHolder() (*PostingPolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("posting")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/heracore/config")
	v.AddConfigPath("/etc/heracore")
	v.AddConfigPath(".")

	v.SetEnvPrefix("HERACORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	policies := DefaultPostingPolicies()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	} else {
		var loaded []PostingPolicy
		if err := v.UnmarshalKey("posting.policies", &loaded); err != nil {
			return nil, err
		}
		if err := validatePostingPolicies(loaded); err != nil {
			return nil, err
		}
		if len(loaded) > 0 {
			policies = loaded
		}
	}

	holder := &PostingPolicyHolder{}
	holder.current.Store(policies)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated []PostingPolicy
		if err := v.UnmarshalKey("posting.policies", &updated); err != nil {
			log.Printf("[posting-policy] reload failed: %v", err)
			return
		}
		if err := validatePostingPolicies(updated); err != nil {
			log.Printf("[posting-policy] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		holder.notify(updated)
		log.Printf("[posting-policy] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *PostingPolicyHolder) Get() []PostingPolicy {
	return h.current.Load().([]PostingPolicy)
}

// OnChange registers a callback invoked after each successful reload.
func (h *PostingPolicyHolder) OnChange(fn func([]PostingPolicy)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, fn)
}

func (h *PostingPolicyHolder) notify(policies []PostingPolicy) {
	h.mu.Lock()
	listeners := make([]func([]PostingPolicy), len(h.listeners))
	copy(listeners, h.listeners)
	h.mu.Unlock()

	for _, fn := range listeners {
		fn(policies)
	}
}

func validatePostingPolicies(policies []PostingPolicy) error {
	for _, p := range policies {
		if strings.TrimSpace(p.Family) == "" {
			return errors.New("posting policy family is required")
		}
		switch p.Rule {
		case RuleSum, RuleBalanced:
		default:
			return errors.New("posting policy rule must be sum or balanced")
		}
	}
	return nil
}
