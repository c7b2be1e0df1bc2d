package workflow

import (
	"context"
	"fmt"
	"sort"
)

// GuardFunc evaluates whether a transition should be allowed
type GuardFunc func(ctx context.Context) bool

// StateMachineBuilder collects transitions and builds machines from them
type StateMachineBuilder[S State] interface {
	// Configure returns the configuration for transitions out of state
	Configure(state S) StateConfiguration[S]

	// Build creates a machine starting in initialState
	Build(initialState S) StateMachine[S]
}

// StateConfiguration configures transitions for a specific state
type StateConfiguration[S State] interface {
	// Permit allows trigger to move to toState
	Permit(trigger Trigger, toState S) StateConfiguration[S]

	// PermitIf allows trigger to move to toState when guard passes
	PermitIf(trigger Trigger, toState S, guard GuardFunc) StateConfiguration[S]
}

type transition[S State] struct {
	toState S
	guard   GuardFunc
}

type stateConfig[S State] struct {
	fromState   S
	transitions map[Trigger][]transition[S]
}

type stateMachineBuilder[S State] struct {
	configurations map[S]*stateConfig[S]
}

type stateMachine[S State] struct {
	currentState   S
	configurations map[S]*stateConfig[S]
}

// NewBuilder creates a new state machine builder
func NewBuilder[S State]() StateMachineBuilder[S] {
	return &stateMachineBuilder[S]{
		configurations: make(map[S]*stateConfig[S]),
	}
}

func (b *stateMachineBuilder[S]) Configure(state S) StateConfiguration[S] {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", string(state)))
	}

	config, exists := b.configurations[state]
	if !exists {
		config = &stateConfig[S]{
			fromState:   state,
			transitions: make(map[Trigger][]transition[S]),
		}
		b.configurations[state] = config
	}

	return config
}

// Build copies the configuration so later Configure calls don't leak into built machines
func (b *stateMachineBuilder[S]) Build(initialState S) StateMachine[S] {
	if !initialState.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", string(initialState)))
	}

	configs := make(map[S]*stateConfig[S], len(b.configurations))
	for state, config := range b.configurations {
		transitions := make(map[Trigger][]transition[S], len(config.transitions))
		for trigger, ts := range config.transitions {
			transitions[trigger] = append([]transition[S]{}, ts...)
		}
		configs[state] = &stateConfig[S]{
			fromState:   state,
			transitions: transitions,
		}
	}

	return &stateMachine[S]{
		currentState:   initialState,
		configurations: configs,
	}
}

func (c *stateConfig[S]) Permit(trigger Trigger, toState S) StateConfiguration[S] {
	return c.PermitIf(trigger, toState, nil)
}

func (c *stateConfig[S]) PermitIf(trigger Trigger, toState S, guard GuardFunc) StateConfiguration[S] {
	if !toState.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", string(toState)))
	}

	c.transitions[trigger] = append(c.transitions[trigger], transition[S]{
		toState: toState,
		guard:   guard,
	})

	return c
}

func (m *stateMachine[S]) State() S {
	return m.currentState
}

// CanFire does not evaluate guards; it only reports whether a transition is configured
func (m *stateMachine[S]) CanFire(trigger Trigger) bool {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return false
	}
	return len(config.transitions[trigger]) > 0
}

func (m *stateMachine[S]) Fire(ctx context.Context, trigger Trigger) error {
	config, exists := m.configurations[m.currentState]
	if !exists || len(config.transitions[trigger]) == 0 {
		return fmt.Errorf("%w: cannot fire %s from %s", ErrInvalidTransition, trigger, string(m.currentState))
	}

	// First transition whose guard passes wins
	for _, t := range config.transitions[trigger] {
		if t.guard == nil || t.guard(ctx) {
			m.currentState = t.toState
			return nil
		}
	}

	return fmt.Errorf("%w: trigger %s from %s", ErrGuardFailed, trigger, string(m.currentState))
}

// PermittedTriggers returns the configured triggers in a stable order
func (m *stateMachine[S]) PermittedTriggers() []Trigger {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return []Trigger{}
	}

	triggers := make([]Trigger, 0, len(config.transitions))
	for trigger := range config.transitions {
		triggers = append(triggers, trigger)
	}
	sort.Slice(triggers, func(i, j int) bool { return triggers[i] < triggers[j] })

	return triggers
}
