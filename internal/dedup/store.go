// Package dedup keeps the per-tenant record of recently admitted entries and
// answers whether a new entry repeats one of them.
package dedup

import (
	"sort"
	"sync"
	"time"

	"github.com/deusflow/citynews/internal/fingerprint"
)

type Reason string

const (
	ReasonNone     Reason = ""
	ReasonIdentity Reason = "identity"
	ReasonTopic    Reason = "topic"
)

type Record struct {
	AdmittedAt  time.Time
	Identity    string
	Fingerprint fingerprint.Fingerprint
}

// TenantState is the live record set of one tenant. Records older than the
// window are ignored and purged lazily on the next check.
type TenantState struct {
	mu      sync.Mutex
	key     string
	records []Record
	window  time.Duration
	matcher Matcher
	now     func() time.Time
}

func (s *TenantState) Key() string {
	return s.key
}

// IsDuplicateAndAdmit checks identity first, then topic. A novel entry is
// recorded before the lock is released, so two concurrent callers can never
// both admit mutually duplicate entries.
func (s *TenantState) IsDuplicateAndAdmit(identity string, fp fingerprint.Fingerprint) (bool, Reason) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.purge(now)

	if identity != "" {
		for _, r := range s.records {
			if r.Identity == identity {
				return true, ReasonIdentity
			}
		}
	}

	for _, r := range s.records {
		if s.matcher.Match(fp, r.Fingerprint) {
			return true, ReasonTopic
		}
	}

	s.records = append(s.records, Record{
		AdmittedAt:  now,
		Identity:    identity,
		Fingerprint: fp,
	})
	return false, ReasonNone
}

// purge drops records admitted at or before now-window. An entry admitted
// at T is eligible again from T+window on.
func (s *TenantState) purge(now time.Time) {
	cutoff := now.Add(-s.window)
	kept := s.records[:0]
	for _, r := range s.records {
		if r.AdmittedAt.After(cutoff) {
			kept = append(kept, r)
		}
	}
	for i := len(kept); i < len(s.records); i++ {
		s.records[i] = Record{}
	}
	s.records = kept
}

// Len returns the number of records currently held, expired ones included
// until the next purge.
func (s *TenantState) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Registry owns exactly one TenantState per tenant key. States are created
// empty on first use and live for the process lifetime.
type Registry struct {
	mu      sync.Mutex
	states  map[string]*TenantState
	window  time.Duration
	matcher Matcher
	now     func() time.Time
}

func NewRegistry(window time.Duration, matcher Matcher, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	if matcher == nil {
		matcher = NewSimilarityMatcher(DefaultThreshold)
	}
	return &Registry{
		states:  make(map[string]*TenantState),
		window:  window,
		matcher: matcher,
		now:     now,
	}
}

func (r *Registry) State(key string) *TenantState {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.states[key]
	if !ok {
		s = &TenantState{
			key:     key,
			window:  r.window,
			matcher: r.matcher,
			now:     r.now,
		}
		r.states[key] = s
	}
	return s
}

// Stats reports the record count per tenant.
func (r *Registry) Stats() map[string]int {
	r.mu.Lock()
	keys := make([]string, 0, len(r.states))
	states := make([]*TenantState, 0, len(r.states))
	for k, s := range r.states {
		keys = append(keys, k)
		states = append(states, s)
	}
	r.mu.Unlock()

	out := make(map[string]int, len(keys))
	for i, k := range keys {
		out[k] = states[i].Len()
	}
	return out
}

// Keys lists known tenants in sorted order.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0, len(r.states))
	for k := range r.states {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
