package generator

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Stage names, in pipeline order.
const (
	StageResearcher = "researcher"
	StagePlanner    = "planner"
	StageWriter     = "writer"
	StageReviewer   = "reviewer"
)

// Stage is one fixed step of the pipeline.
type Stage struct {
	Name        string
	Title       string
	Instruction string
	// Expanded marks the stage shown open by default in the UI.
	Expanded bool
	// Input maps the topic and earlier outputs to this stage's context.
	Input func(RunInput) string
}

//go:embed stages.yaml
var stagesYAML []byte

type stageFile struct {
	Stages []stageDef `yaml:"stages"`
}

type stageDef struct {
	Name        string `yaml:"name"`
	Title       string `yaml:"title"`
	Instruction string `yaml:"instruction"`
	Input       string `yaml:"input"`
	Expanded    bool   `yaml:"expanded"`
}

var defaultStages = mustParseStages(stagesYAML)

// DefaultStages returns the researcher, planner, writer and reviewer stages.
func DefaultStages() []Stage {
	out := make([]Stage, len(defaultStages))
	copy(out, defaultStages)
	return out
}

func mustParseStages(data []byte) []Stage {
	stages, err := ParseStages(data)
	if err != nil {
		panic(err)
	}
	return stages
}

// ParseStages decodes a stage catalogue. Each input is a text/template
// evaluated against RunInput.
func ParseStages(data []byte) ([]Stage, error) {
	var f stageFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse stages: %w", err)
	}
	if len(f.Stages) == 0 {
		return nil, fmt.Errorf("parse stages: no stages defined")
	}
	seen := make(map[string]bool, len(f.Stages))
	stages := make([]Stage, 0, len(f.Stages))
	for _, d := range f.Stages {
		if d.Name == "" || strings.TrimSpace(d.Instruction) == "" {
			return nil, fmt.Errorf("parse stages: stage %q needs a name and an instruction", d.Name)
		}
		if seen[d.Name] {
			return nil, fmt.Errorf("parse stages: duplicate stage %q", d.Name)
		}
		seen[d.Name] = true
		tmpl, err := template.New(d.Name).Option("missingkey=error").Parse(d.Input)
		if err != nil {
			return nil, fmt.Errorf("parse stages: input of %q: %w", d.Name, err)
		}
		title := d.Title
		if title == "" {
			title = d.Name
		}
		stages = append(stages, Stage{
			Name:        d.Name,
			Title:       title,
			Instruction: d.Instruction,
			Expanded:    d.Expanded,
			Input:       templateInput(tmpl),
		})
	}
	return stages, nil
}

func templateInput(tmpl *template.Template) func(RunInput) string {
	return func(in RunInput) string {
		var sb strings.Builder
		if err := tmpl.Execute(&sb, in); err != nil {
			// RunInput has no map fields, so execution only fails on a broken template.
			return fmt.Sprintf("Tópico: %s\n(%v)", in.Topic, err)
		}
		return sb.String()
	}
}
