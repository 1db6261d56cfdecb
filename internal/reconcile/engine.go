package reconcile

import (
	"fmt"
	"log/slog"
)

// Store is the configuration store the engine reconciles against.
// Implemented by postconf.Client in production and by fakes in tests.
type Store interface {
	// Get returns the applied value of a parameter. The bool is false
	// when the parameter is unset.
	Get(name string) (string, bool, error)

	// Set stages a pair for the next Flush. No external call is made.
	Set(name, value string)

	// Flush applies every staged pair in one external commit.
	Flush() error

	// Reset drops every staged pair without writing it.
	Reset()
}

// State is the engine's commit state.
//
// The state machine makes the never-partially-flushed invariant
// structural: proposals are only accepted in Clean or Pending, and a
// failed commit lands back in Pending with the full pending set intact.
type State int

const (
	// StateClean means there are no pending proposals.
	StateClean State = iota

	// StatePending means proposals await commit.
	StatePending

	// StateCommitting means a flush is in flight.
	StateCommitting
)

func (s State) String() string {
	switch s {
	case StateClean:
		return "clean"
	case StatePending:
		return "pending"
	case StateCommitting:
		return "committing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MultiValueConstraint expresses "leave the parameter alone if its value
// is already acceptable, otherwise set it to the first acceptable value".
type MultiValueConstraint struct {
	// Param is the configuration parameter name.
	Param string

	// Acceptable lists the values that need no change. The first entry
	// is the default applied when the current value is not acceptable.
	Acceptable []string
}

// Default returns the value applied when the current one is unacceptable.
func (c MultiValueConstraint) Default() string {
	return c.Acceptable[0]
}

func (c MultiValueConstraint) accepts(value string, present bool) bool {
	if !present {
		return false
	}
	for _, v := range c.Acceptable {
		if v == value {
			return true
		}
	}
	return false
}

type proposal struct {
	param string
	value string
	note  string
}

// Engine reconciles desired parameter values against a Store.
//
// All methods must be called from a single goroutine; the engine is
// synchronous and blocking throughout, matching the subprocess-backed
// store underneath it.
type Engine struct {
	store    Store
	state    State
	proposed []proposal // in proposal order; at most one entry per param
}

// New creates an Engine over the given store.
func New(store Store) *Engine {
	return &Engine{store: store, state: StateClean}
}

// State returns the current commit state.
func (e *Engine) State() State {
	return e.state
}

// Read returns the effective value of a parameter: the pending proposed
// value if one exists, otherwise the store's applied value.
//
// A store failure is never treated as "absent"; it aborts the caller's
// operation.
func (e *Engine) Read(name string) (string, bool, error) {
	if p, ok := e.lookup(name); ok {
		return p.value, true, nil
	}
	return e.store.Get(name)
}

// Propose records an intent to set name to value.
//
// Proposing the already-effective value is a no-op: neither the pending
// set nor the change notes grow. Proposing the store's applied value
// while an override is pending withdraws the override, since committing
// it would change nothing.
func (e *Engine) Propose(name, value string) error {
	if e.state == StateCommitting {
		return fmt.Errorf("propose %s: commit in progress", name)
	}

	if _, pending := e.lookup(name); pending {
		current, ok, err := e.store.Get(name)
		if err != nil {
			return err
		}
		if ok && current == value {
			e.withdraw(name)
			e.refreshState()
			return nil
		}
	}

	effective, ok, err := e.Read(name)
	if err != nil {
		return err
	}
	if ok && effective == value {
		return nil
	}

	slog.Debug("proposing parameter change",
		"parameter", name,
		"value", value,
	)
	e.upsert(proposal{
		param: name,
		value: value,
		note:  fmt.Sprintf("Set %s to %s", name, value),
	})
	e.state = StatePending
	return nil
}

// ProposeConstrained applies a MultiValueConstraint: nothing happens
// when the current value is already acceptable, otherwise the
// constraint's default is proposed.
func (e *Engine) ProposeConstrained(c MultiValueConstraint) error {
	value, ok, err := e.Read(c.Param)
	if err != nil {
		return err
	}
	if c.accepts(value, ok) {
		return nil
	}
	return e.Propose(c.Param, c.Default())
}

// ProposeOpportunisticTLS proposes an opportunistic security level for
// param unless TLS is already mandatory. A security level of "encrypt"
// is never downgraded.
func (e *Engine) ProposeOpportunisticTLS(param, value string) error {
	current, ok, err := e.Read(param)
	if err != nil {
		return err
	}
	if ok && current == SecurityLevelEncrypt {
		slog.Debug("security level already mandatory, not downgrading",
			"parameter", param,
		)
		return nil
	}
	return e.Propose(param, value)
}

// Notes returns the change notes for the pending proposals, in order.
func (e *Engine) Notes() []string {
	notes := make([]string, len(e.proposed))
	for i, p := range e.proposed {
		notes[i] = p.note
	}
	return notes
}

// Pending returns the number of pending proposals.
func (e *Engine) Pending() int {
	return len(e.proposed)
}

// Commit flushes every pending proposal through the store in one batch
// and returns the change notes that were applied.
//
// On failure the pending set and notes are left exactly as they were,
// so the caller may retry or discard. With nothing pending, Commit is a
// no-op returning nil notes.
func (e *Engine) Commit() ([]string, error) {
	if e.state == StateCommitting {
		return nil, fmt.Errorf("commit: already in progress")
	}
	if len(e.proposed) == 0 {
		return nil, nil
	}

	e.state = StateCommitting
	for _, p := range e.proposed {
		e.store.Set(p.param, p.value)
	}
	if err := e.store.Flush(); err != nil {
		// Drop the staged batch: the pending proposals are the single
		// source of truth, and a retried Commit restages all of them.
		// Pairs left staged in the store would otherwise ride along
		// with a later unrelated flush even after a Discard.
		e.store.Reset()
		e.state = StatePending
		return nil, err
	}

	notes := e.Notes()
	slog.Info("committed configuration changes",
		"parameters", len(e.proposed),
	)
	e.proposed = nil
	e.state = StateClean
	return notes, nil
}

// Discard drops every pending proposal and its notes, along with
// anything staged in the store on their behalf.
func (e *Engine) Discard() {
	e.store.Reset()
	e.proposed = nil
	e.state = StateClean
}

func (e *Engine) lookup(name string) (proposal, bool) {
	for _, p := range e.proposed {
		if p.param == name {
			return p, true
		}
	}
	return proposal{}, false
}

func (e *Engine) upsert(p proposal) {
	for i := range e.proposed {
		if e.proposed[i].param == p.param {
			e.proposed[i] = p
			return
		}
	}
	e.proposed = append(e.proposed, p)
}

func (e *Engine) withdraw(name string) {
	for i, p := range e.proposed {
		if p.param == name {
			e.proposed = append(e.proposed[:i], e.proposed[i+1:]...)
			return
		}
	}
}

func (e *Engine) refreshState() {
	if len(e.proposed) == 0 {
		e.state = StateClean
	} else {
		e.state = StatePending
	}
}
