package pipeline

import "github.com/listenupapp/bookclub-server/internal/domain"

// Operation tags a pipeline invocation.
type Operation int

// Operations.
const (
	// Create has no prior state.
	Create Operation = iota
	// Replace is a full replacement of a previously persisted snapshot.
	Replace
	// Remove deletes a persisted resource.
	Remove
)

func (o Operation) String() string {
	switch o {
	case Create:
		return "create"
	case Replace:
		return "replace"
	case Remove:
		return "remove"
	default:
		return "unknown"
	}
}

// Op is the operation context of a Save call.
type Op[T Resource] struct {
	Kind Operation
	// Previous is the persisted snapshot being replaced. Set only for Replace.
	Previous T
}

// Creation returns the context of a create.
func Creation[T Resource]() Op[T] {
	return Op[T]{Kind: Create}
}

// Replacement returns the context of a full replacement of previous.
func Replacement[T Resource](previous T) Op[T] {
	return Op[T]{Kind: Replace, Previous: previous}
}

// State is the progress of one pipeline invocation.
//
//	Start -> FieldsResolved -> Persisted -> {SyncSkipped | Synced | SyncFailed}
//	      -> [NotificationSent] -> Done
//
// SyncFailed is terminal. NotificationSent is skipped when publishing fails.
type State int

// States.
const (
	Start State = iota
	FieldsResolved
	Persisted
	SyncSkipped
	Synced
	SyncFailed
	NotificationSent
	Done
)

func (s State) String() string {
	switch s {
	case Start:
		return "start"
	case FieldsResolved:
		return "fields_resolved"
	case Persisted:
		return "persisted"
	case SyncSkipped:
		return "sync_skipped"
	case Synced:
		return "synced"
	case SyncFailed:
		return "sync_failed"
	case NotificationSent:
		return "notification_sent"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Trail is the ordered list of states an invocation passed through.
type Trail []State

func (t *Trail) enter(s State) {
	*t = append(*t, s)
}

// Last returns the most recent state, or Start for an empty trail.
func (t Trail) Last() State {
	if len(t) == 0 {
		return Start
	}
	return t[len(t)-1]
}

// Result reports what a pipeline invocation did.
type Result[T Resource] struct {
	// Resource is the resource as persisted.
	Resource T
	// Sync is SyncSkipped, Synced or SyncFailed.
	Sync State
	// State is the last state reached: Done, or SyncFailed.
	State State
	// Trail lists every state passed through, starting at Start.
	Trail Trail
	// Published is false when the notification could not be delivered.
	Published bool
}

// Resource is a record the pipeline can write. Domain types satisfy it
// through their embedded domain.Syncable.
type Resource interface {
	IRI() string
	Meta() *domain.Syncable
}
