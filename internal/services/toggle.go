package services

import (
	"context"
	"slices"
	"sort"
	"sync"

	"foodhub-gateway/internal/observability"

	"github.com/rs/zerolog/log"
)

// ToggleState is the lifecycle of an optimistic toggle
type ToggleState string

const (
	TogglePending    ToggleState = "pending"
	ToggleConfirmed  ToggleState = "confirmed"
	ToggleRolledBack ToggleState = "rolled_back"
)

// Toggle records one optimistic flip of a boolean
type Toggle struct {
	Key      string
	Previous bool
	Desired  bool
	State    ToggleState
	Err      error
}

// Value is the flag as the caller should display it in the current state
func (t Toggle) Value() bool {
	if t.State == ToggleRolledBack {
		return t.Previous
	}
	return t.Desired
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// Toggler runs optimistic toggles and serializes read-modify-write cycles per key
type Toggler struct {
	mu        sync.Mutex
	locks     map[string]*keyLock
	observers []func(Toggle)
	metrics   *observability.Metrics
}

// NewToggler creates a new toggler
func NewToggler(metrics *observability.Metrics) *Toggler {
	return &Toggler{
		locks:   make(map[string]*keyLock),
		metrics: metrics,
	}
}

// OnTransition registers fn to observe every state a toggle passes through
func (t *Toggler) OnTransition(fn func(Toggle)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, fn)
}

// Lock acquires the locks for keys in a fixed order and returns the release function
func (t *Toggler) Lock(keys ...string) func() {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	held := make([]string, 0, len(sorted))
	for i, k := range sorted {
		if i > 0 && k == sorted[i-1] {
			continue
		}
		t.mu.Lock()
		l, ok := t.locks[k]
		if !ok {
			l = &keyLock{}
			t.locks[k] = l
		}
		l.refs++
		t.mu.Unlock()

		l.mu.Lock()
		held = append(held, k)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			t.mu.Lock()
			l := t.locks[held[i]]
			l.refs--
			if l.refs == 0 {
				delete(t.locks, held[i])
			}
			t.mu.Unlock()
			l.mu.Unlock()
		}
	}
}

// Run flips previous, applies the remote write and settles the toggle.
// A failed apply rolls the flag back to previous.
func (t *Toggler) Run(ctx context.Context, key string, previous bool, apply func(ctx context.Context) error) Toggle {
	toggle := Toggle{
		Key:      key,
		Previous: previous,
		Desired:  !previous,
		State:    TogglePending,
	}
	t.emit(toggle)

	if err := apply(ctx); err != nil {
		toggle.State = ToggleRolledBack
		toggle.Err = err
		t.metrics.Add(ctx, observability.ToggleRollbacks, 1)
		log.Warn().Err(err).Str("key", key).Bool("restored", previous).Msg("Toggle rolled back")
	} else {
		toggle.State = ToggleConfirmed
	}
	t.emit(toggle)
	return toggle
}

func (t *Toggler) emit(toggle Toggle) {
	t.mu.Lock()
	observers := slices.Clone(t.observers)
	t.mu.Unlock()
	for _, fn := range observers {
		fn(toggle)
	}
}
