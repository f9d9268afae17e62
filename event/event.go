// Package event contains the synchronous observer lists through which the emulator reports what it does.
package event

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// Listener is invoked for every value emitted on an Event. A non-nil error stops dispatch and is returned to the
// code that emitted the value.
type Listener[T any] func(T) error

// Event is an ordered list of listeners. The zero value is ready to use.
//
// Emit dispatches on a copy of the listener list, listeners added while a value is being dispatched will only
// see the next value.
type Event[T any] struct {
	listeners []Listener[T]
}

// AddListener appends a listener, listeners are called in the order in which they were added.
func (e *Event[T]) AddListener(l Listener[T]) {
	e.listeners = append(e.listeners, l)
}

// Len returns the amount of registered listeners.
func (e *Event[T]) Len() int {
	return len(e.listeners)
}

// Emit calls all listeners with v.
func (e *Event[T]) Emit(v T) error {
	if len(e.listeners) == 0 {
		return nil
	}

	for _, l := range slices.Clone(e.listeners) {
		if err := l(v); err != nil {
			return err
		}
	}

	return nil
}

// Type names one of the hooks exposed by the emulator. It is used by the control language to refer to hooks.
type Type int

const (
	// TypeInvalid is the zero value, it is never a valid hook
	TypeInvalid Type = iota
	// TypeBeforeExecute fires before an instruction is fetched
	TypeBeforeExecute
	// TypeAfterExecute fires after an instruction has executed
	TypeAfterExecute
	// TypeRegisterRead fires when an instruction reads a register
	TypeRegisterRead
	// TypeRegisterWrite fires when an instruction writes a register
	TypeRegisterWrite
	// TypeMemoryRead fires on every instrumented memory read
	TypeMemoryRead
	// TypeMemoryWrite fires on every instrumented memory write
	TypeMemoryWrite
	// TypeMemoryAllocate fires when a memory range is allocated
	TypeMemoryAllocate
	typeMax
)

var typeToName = map[Type]string{
	TypeBeforeExecute:  "hart:before_execute",
	TypeAfterExecute:   "hart:after_execute",
	TypeRegisterRead:   "reg:read",
	TypeRegisterWrite:  "reg:write",
	TypeMemoryRead:     "mem:read",
	TypeMemoryWrite:    "mem:write",
	TypeMemoryAllocate: "mem:allocate",
}

func (t Type) String() string {
	if name, ok := typeToName[t]; ok {
		return name
	}

	return fmt.Sprintf("Type(%d)", int(t))
}

// Types returns all valid hook types in declaration order.
func Types() []Type {
	types := make([]Type, 0, typeMax-1)
	for t := TypeInvalid + 1; t < typeMax; t++ {
		types = append(types, t)
	}
	return types
}

// ParseType resolves a "subsystem:event" name, the match is case insensitive.
func ParseType(name string) (Type, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for t, n := range typeToName {
		if n == name {
			return t, nil
		}
	}

	return TypeInvalid, fmt.Errorf("unknown event '%s'", name)
}
