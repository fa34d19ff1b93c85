package subgraph

import (
	"errors"
	"fmt"
	"slices"

	apperrors "github.com/loomgraph/loom/pkg/errors"
)

// EventKind identifies one notification on a definition's stream.
// "Before" kinds fire ahead of the mutation and are cancelable; "after"
// kinds fire once the mutation is complete.
type EventKind int

const (
	EventAddingInput EventKind = iota
	EventInputAdded
	EventRemovingInput
	EventInputRemoved
	EventRenamingInput
	EventInputRenamed
	EventAddingOutput
	EventOutputAdded
	EventRemovingOutput
	EventOutputRemoved
	EventRenamingOutput
	EventOutputRenamed
)

var eventKindNames = map[EventKind]string{
	EventAddingInput:    "adding-input",
	EventInputAdded:     "input-added",
	EventRemovingInput:  "removing-input",
	EventInputRemoved:   "input-removed",
	EventRenamingInput:  "renaming-input",
	EventInputRenamed:   "input-renamed",
	EventAddingOutput:   "adding-output",
	EventOutputAdded:    "output-added",
	EventRemovingOutput: "removing-output",
	EventOutputRemoved:  "output-removed",
	EventRenamingOutput: "renaming-output",
	EventOutputRenamed:  "output-renamed",
}

// String returns the notification name, e.g. "adding-input".
func (k EventKind) String() string {
	if s, ok := eventKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// IsBefore reports whether the kind fires ahead of its mutation.
func (k EventKind) IsBefore() bool {
	switch k {
	case EventAddingInput, EventRemovingInput, EventRenamingInput,
		EventAddingOutput, EventRemovingOutput, EventRenamingOutput:
		return true
	}
	return false
}

// Event carries the details of one definition mutation.
type Event struct {
	Kind       EventKind
	Definition *Definition
	Index      int      // slot position affected
	Slot       SlotSpec // slot content before the mutation (after, for adds)
	NewName    string   // proposed name for rename events
}

// Handler observes definition mutations. For before-kinds a non-nil return
// vetoes the mutation; for after-kinds returned errors are collected and
// reported to the mutating caller while the mutation stands.
type Handler func(Event) error

type subscription struct {
	kind    EventKind
	handler Handler
}

// Events is the notification stream scoped to one definition's lifetime.
// Dispatch is synchronous and runs handlers in registration order. It is
// a plain observer list, not a process-wide bus: handlers hold no reference
// back from the definition to its subscribers beyond the function value, so
// dropping the definition drops the stream.
type Events struct {
	subs []*subscription
}

// Subscribe registers a handler for one event kind and returns a cancel
// function. Cancel is idempotent.
func (e *Events) Subscribe(kind EventKind, h Handler) (cancel func()) {
	sub := &subscription{kind: kind, handler: h}
	e.subs = append(e.subs, sub)
	return func() {
		if i := slices.Index(e.subs, sub); i >= 0 {
			e.subs = slices.Delete(e.subs, i, i+1)
		}
	}
}

// dispatch runs every handler subscribed to ev.Kind in registration order.
// A handler that panics does not prevent later handlers from running; its
// panic is converted to an error. All handler errors are joined and
// returned.
func (e *Events) dispatch(ev Event) error {
	var errs []error
	for _, sub := range slices.Clone(e.subs) {
		if sub.kind != ev.Kind {
			continue
		}
		if err := safeInvoke(sub.handler, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func safeInvoke(h Handler, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.New(apperrors.ErrCodeInternal, "%s listener panicked: %v", ev.Kind, r)
		}
	}()
	return h(ev)
}
