package generator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

const DefaultStageTimeout = 120 * time.Second

// Observer is told about stage progress; the CLI uses it to print status lines.
type Observer interface {
	StageStarted(runID string, index int, st Stage)
	StageFinished(runID string, index int, res StageResult)
}

// Pipeline runs the stages in order against one LLMClient.
// It keeps no per-run state and may be shared by concurrent callers.
type Pipeline struct {
	llm          LLMClient
	stages       []Stage
	assemble     func(RunResult) (string, error)
	logger       *slog.Logger
	metrics      *Metrics
	now          func() time.Time
	stageTimeout time.Duration
}

type Option func(*Pipeline)

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithClock overrides how the reference date is captured.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithStageTimeout bounds each model call. Zero or negative disables the bound.
func WithStageTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.stageTimeout = d }
}

func NewPipeline(llm LLMClient, opts ...Option) (*Pipeline, error) {
	if llm == nil {
		return nil, ErrLLMRequired
	}
	p := &Pipeline{
		llm:          llm,
		stages:       DefaultStages(),
		assemble:     assembleRun,
		logger:       slog.Default(),
		now:          time.Now,
		stageTimeout: DefaultStageTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "pipeline")
	return p, nil
}

// Stages returns a copy of the configured stages, in order.
func (p *Pipeline) Stages() []Stage {
	out := make([]Stage, len(p.stages))
	copy(out, p.stages)
	return out
}

// Run executes every stage in order for topic and stops at the first failure.
// Stage failures are recorded in the result; the returned error is non-nil only
// when the topic is rejected or the completed run cannot be assembled.
// A topic that is blank after trimming is rejected; otherwise it is kept as given.
func (p *Pipeline) Run(ctx context.Context, topic string, obs ...Observer) (*RunResult, error) {
	if strings.TrimSpace(topic) == "" {
		p.metrics.observeRun("rejected")
		return nil, ErrEmptyTopic
	}

	res := &RunResult{
		ID:            uuid.NewString(),
		Topic:         topic,
		ReferenceDate: p.now(),
		Stages:        make([]StageResult, 0, len(p.stages)),
	}
	logger := p.logger.With("run_id", res.ID)
	logger.Info("run started", "topic", topic, "reference_date", res.FormattedDate())

	in := newRunInput(topic, res.FormattedDate())
	for i, st := range p.stages {
		for _, o := range obs {
			o.StageStarted(res.ID, i, st)
		}
		sr := p.runStage(ctx, st, in)
		res.Stages = append(res.Stages, sr)
		p.metrics.observeStage(sr)
		for _, o := range obs {
			o.StageFinished(res.ID, i, sr)
		}
		if !sr.Succeeded() {
			logger.Warn("stage failed, halting run", "stage", st.Name, "error", sr.Error)
			break
		}
		logger.Info("stage done", "stage", st.Name, "duration", sr.Duration, "bytes", len(sr.Text))
		in = in.with(st.Name, sr.Text)
	}

	if err := res.settle(p.assemble); err != nil {
		p.metrics.observeRun("error")
		logger.Error("run finished", "state", res.State, "stages", len(res.Stages), "error", err)
		return res, err
	}
	p.metrics.observeRun(string(res.State))
	logger.Info("run finished", "state", res.State, "stages", len(res.Stages))
	return res, nil
}

func (p *Pipeline) runStage(ctx context.Context, st Stage, in RunInput) StageResult {
	sr := StageResult{Stage: st.Name, Title: st.Title, StartedAt: p.now()}
	start := time.Now()

	callCtx := ctx
	if p.stageTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.stageTimeout)
		defer cancel()
	}

	raw, err := p.llm.Complete(callCtx, BuildStagePrompt(st, in))
	sr.Duration = time.Since(start)
	var text string
	if err == nil {
		text, err = PostProcess(raw)
	}
	if err != nil {
		sr.Status = StageFailed
		sr.Error = fmt.Sprintf("%s: %v", st.Title, err)
		return sr
	}
	sr.Status = StageSucceeded
	sr.Text = text
	return sr
}
