package generator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultStages(t *testing.T) {
	stages := DefaultStages()
	require.Len(t, stages, 4)

	names := make([]string, len(stages))
	for i, st := range stages {
		names[i] = st.Name
		assert.NotEmpty(t, strings.TrimSpace(st.Instruction), st.Name)
		assert.NotEmpty(t, st.Title, st.Name)
		require.NotNil(t, st.Input, st.Name)
	}
	assert.Equal(t, []string{StageResearcher, StagePlanner, StageWriter, StageReviewer}, names)
	assert.True(t, stages[3].Expanded)
	assert.False(t, stages[0].Expanded)

	// Callers get a copy.
	stages[0].Name = "changed"
	assert.Equal(t, StageResearcher, DefaultStages()[0].Name)
}

func TestStageInputs(t *testing.T) {
	stages := DefaultStages()
	in := newRunInput("Loja de rua", "16/10/2026").
		with(StageResearcher, "OUT-1").
		with(StagePlanner, "OUT-2").
		with(StageWriter, "OUT-3")

	research := stages[0].Input(in)
	assert.Contains(t, research, "Loja de rua")
	assert.Contains(t, research, "16/10/2026")

	assert.Contains(t, stages[1].Input(in), "OUT-1")
	assert.Contains(t, stages[2].Input(in), "OUT-2")
	assert.Contains(t, stages[3].Input(in), "OUT-3")
	assert.NotContains(t, stages[3].Input(in), "OUT-1")
}

func TestRunInputWithDoesNotMutate(t *testing.T) {
	base := newRunInput("t", "d")
	next := base.with(StageResearcher, "x")
	assert.Empty(t, base.Output(StageResearcher))
	assert.Equal(t, "x", next.Output(StageResearcher))
}

func TestParseStages_Errors(t *testing.T) {
	cases := map[string]string{
		"empty":       "stages: []",
		"no name":     "stages:\n  - instruction: faça algo\n",
		"duplicate":   "stages:\n  - {name: a, instruction: x}\n  - {name: a, instruction: y}\n",
		"bad input":   "stages:\n  - {name: a, instruction: x, input: \"{{.Topic\"}\n",
		"invalid doc": "stages: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseStages([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestBuildStagePrompt(t *testing.T) {
	st := DefaultStages()[0]
	p := BuildStagePrompt(st, newRunInput("Apartamento", "01/01/2026"))
	assert.Equal(t, strings.TrimSpace(st.Instruction), p.System)
	assert.Contains(t, p.User, "Apartamento")
}
