package progress

import "fmt"

// Stage identifies the pipeline step an event originates from.
type Stage string

const (
	StageCollect   Stage = "collect"
	StageExtract   Stage = "extract"
	StageAnalyze   Stage = "analyze"
	StageAggregate Stage = "aggregate"
)

// Event is one discrete progress or error signal. The pipeline emits
// events instead of printing or logging, so any caller can render them.
type Event struct {
	Stage   Stage
	Message string
	// Number is the merge-request number for per-request events, 0 for
	// run-level events.
	Number int
}

// Func receives pipeline events. A nil Func is valid and drops them.
type Func func(Event)

// Emit sends an event through fn if it is non-nil.
func Emit(fn Func, stage Stage, number int, format string, args ...any) {
	if fn == nil {
		return
	}
	fn(Event{Stage: stage, Number: number, Message: fmt.Sprintf(format, args...)})
}
