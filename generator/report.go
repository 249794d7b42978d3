package generator

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"text/template"
)

//go:embed report.md.tmpl
var reportTemplateText string

var reportTemplate = template.Must(template.New("laudo").Option("missingkey=error").Parse(reportTemplateText))

// ReportInput holds the values substituted into the laudo template.
// Each stage output fills exactly one slot and is inserted verbatim.
type ReportInput struct {
	Topic         string
	ReferenceDate string
	Research      string
	Plan          string
	Draft         string
	Review        string
}

// AssembleReport renders the laudo. It is a pure function of its input.
func AssembleReport(in ReportInput) (string, error) {
	if in.Topic == "" {
		return "", ErrEmptyTopic
	}
	var sb strings.Builder
	if err := reportTemplate.Execute(&sb, in); err != nil {
		return "", fmt.Errorf("assemble report: %w", err)
	}
	return sb.String(), nil
}

// reportInputFromRun maps the default stages onto their template slots.
func reportInputFromRun(r RunResult) (ReportInput, error) {
	in := ReportInput{Topic: r.Topic, ReferenceDate: r.FormattedDate()}
	slots := map[string]*string{
		StageResearcher: &in.Research,
		StagePlanner:    &in.Plan,
		StageWriter:     &in.Draft,
		StageReviewer:   &in.Review,
	}
	for _, st := range r.Stages {
		if !st.Succeeded() {
			return ReportInput{}, errors.New("assemble report: run has a failed stage")
		}
		if slot, ok := slots[st.Stage]; ok {
			*slot = st.Text
			delete(slots, st.Stage)
		}
	}
	if len(slots) > 0 {
		missing := make([]string, 0, len(slots))
		for name := range slots {
			missing = append(missing, name)
		}
		return ReportInput{}, fmt.Errorf("assemble report: missing stage output %v", missing)
	}
	return in, nil
}

func assembleRun(r RunResult) (string, error) {
	in, err := reportInputFromRun(r)
	if err != nil {
		return "", err
	}
	return AssembleReport(in)
}
