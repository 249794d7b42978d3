package generator

import "strings"

// Prompt is what one stage sends to the model: the role instruction and the context.
type Prompt struct {
	System string
	User   string
}

// RunInput is the accumulated context visible to a stage.
type RunInput struct {
	Topic         string
	ReferenceDate string
	outputs       map[string]string
}

func newRunInput(topic, date string) RunInput {
	return RunInput{Topic: topic, ReferenceDate: date, outputs: make(map[string]string)}
}

// Output returns the text an earlier stage produced, or "" if it has not run.
func (in RunInput) Output(stage string) string {
	return in.outputs[stage]
}

func (in RunInput) with(stage, text string) RunInput {
	next := make(map[string]string, len(in.outputs)+1)
	for k, v := range in.outputs {
		next[k] = v
	}
	next[stage] = text
	in.outputs = next
	return in
}

// BuildStagePrompt pairs the stage instruction with its view of the run so far.
func BuildStagePrompt(st Stage, in RunInput) Prompt {
	return Prompt{
		System: strings.TrimSpace(st.Instruction),
		User:   st.Input(in),
	}
}
