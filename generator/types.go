package generator

import (
	"errors"
	"time"
)

// DateLayout is how the reference date appears in prompts and in the laudo.
const DateLayout = "02/01/2006"

var (
	ErrEmptyTopic      = errors.New("topic is required")
	ErrEmptyCompletion = errors.New("model returned empty text")
	ErrLLMRequired     = errors.New("llm client is required")
)

// StageStatus is the outcome of a single stage.
type StageStatus string

const (
	StageSucceeded StageStatus = "succeeded"
	StageFailed    StageStatus = "failed"
)

// RunState is the terminal state of a run.
type RunState string

const (
	RunCompleted RunState = "completed"
	RunHalted    RunState = "halted"
)

// StageResult records what one stage produced during a run.
type StageResult struct {
	Stage     string        `json:"stage"`
	Title     string        `json:"title"`
	Status    StageStatus   `json:"status"`
	Text      string        `json:"text,omitempty"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

func (r StageResult) Succeeded() bool { return r.Status == StageSucceeded }

// RunResult is the complete outcome of one pipeline execution for one topic.
type RunResult struct {
	ID            string        `json:"id"`
	Topic         string        `json:"topic"`
	ReferenceDate time.Time     `json:"reference_date"`
	Stages        []StageResult `json:"stages"`
	State         RunState      `json:"state"`
	// HaltedAt is the 1-based index of the failing stage, 0 when completed.
	HaltedAt int    `json:"halted_at,omitempty"`
	Document string `json:"document,omitempty"`
}

// Completed reports whether all stages succeeded and the laudo was assembled.
func (r *RunResult) Completed() bool {
	return r != nil && r.State == RunCompleted
}

// Failure returns the failing stage of a halted run, or nil.
func (r *RunResult) Failure() *StageResult {
	if r == nil {
		return nil
	}
	for i := range r.Stages {
		if !r.Stages[i].Succeeded() {
			return &r.Stages[i]
		}
	}
	return nil
}

// FormattedDate renders ReferenceDate with DateLayout.
func (r *RunResult) FormattedDate() string {
	return r.ReferenceDate.Format(DateLayout)
}

// settle derives State, HaltedAt and Document from the collected stages.
// It is deterministic: the same stages always yield the same state.
func (r *RunResult) settle(assemble func(RunResult) (string, error)) error {
	r.State = RunHalted
	r.HaltedAt = 0
	r.Document = ""
	for i, st := range r.Stages {
		if !st.Succeeded() {
			r.HaltedAt = i + 1
			return nil
		}
	}
	doc, err := assemble(*r)
	if err != nil {
		return err
	}
	r.State = RunCompleted
	r.Document = doc
	return nil
}
