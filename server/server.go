package server

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"auto_laudo_pericial/export"
	"auto_laudo_pericial/generator"
)

//go:embed web/index.html
var webFS embed.FS

var pageTemplate = template.Must(template.ParseFS(webFS, "web/index.html"))

const DefaultMaxRuns = 100

// Options tunes the server; zero values pick defaults.
type Options struct {
	MaxRuns  int
	Logger   *slog.Logger
	Gatherer prometheus.Gatherer
	Now      func() time.Time
}

type Server struct {
	pipeline *generator.Pipeline
	store    *runStore
	stages   map[string]generator.Stage
	logger   *slog.Logger
	gatherer prometheus.Gatherer
	now      func() time.Time
}

func New(p *generator.Pipeline, opts Options) (*Server, error) {
	if p == nil {
		return nil, errors.New("pipeline required")
	}
	if opts.MaxRuns <= 0 {
		opts.MaxRuns = DefaultMaxRuns
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	stages := make(map[string]generator.Stage)
	for _, st := range p.Stages() {
		stages[st.Name] = st
	}
	return &Server{
		pipeline: p,
		store:    newStore(opts.MaxRuns),
		stages:   stages,
		logger:   opts.Logger.With("component", "server"),
		gatherer: opts.Gatherer,
		now:      opts.Now,
	}, nil
}

func (s *Server) Routes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Info("http request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))
	e.HTTPErrorHandler = s.handleError

	e.GET("/", s.handleIndex)
	e.POST("/runs", s.handleRunForm)
	e.POST("/api/runs", s.handleRunCreate)
	e.GET("/api/runs/:id", s.handleRunGet)
	e.GET("/api/runs/:id/document", s.handleRunDocument)
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	return e
}

// --- Handlers ---

type runCreateReq struct {
	Topic string `json:"topic" form:"topic"`
}

func (s *Server) handleIndex(c echo.Context) error {
	return s.renderPage(c, http.StatusOK, pageData{ReferenceDate: s.now().Format(generator.DateLayout)})
}

func (s *Server) handleRunForm(c echo.Context) error {
	topic := c.FormValue("topic")
	res, err := s.run(c.Request().Context(), topic)
	if errors.Is(err, generator.ErrEmptyTopic) {
		return s.renderPage(c, http.StatusBadRequest, pageData{
			ReferenceDate: s.now().Format(generator.DateLayout),
			Warning:       "Por favor, digite um tópico para o laudo.",
		})
	}
	if err != nil {
		return err
	}
	view, err := s.viewOf(res)
	if err != nil {
		return err
	}
	return s.renderPage(c, http.StatusOK, pageData{
		Topic:         res.Topic,
		ReferenceDate: res.FormattedDate(),
		Run:           view,
	})
}

func (s *Server) handleRunCreate(c echo.Context) error {
	var req runCreateReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := s.run(c.Request().Context(), req.Topic)
	if errors.Is(err, generator.ErrEmptyTopic) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, res)
}

func (s *Server) handleRunGet(c echo.Context) error {
	res, ok := s.store.get(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "run not found")
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) handleRunDocument(c echo.Context) error {
	res, ok := s.store.get(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "run not found")
	}
	if !res.Completed() {
		return echo.NewHTTPError(http.StatusConflict, fmt.Sprintf("run halted at stage %d; no document", res.HaltedAt))
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", export.FileName(res.ReferenceDate)))
	return c.Blob(http.StatusOK, export.MediaType, []byte(res.Document))
}

// run executes the pipeline and stores the result. The run outlives a
// disconnected client so its result can still be fetched.
func (s *Server) run(ctx context.Context, topic string) (*generator.RunResult, error) {
	res, err := s.pipeline.Run(context.WithoutCancel(ctx), topic)
	if res != nil {
		s.store.set(res)
	}
	return res, err
}

func (s *Server) handleError(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
	}
	req := c.Request()
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", "status", code, "method", req.Method, "path", req.URL.Path, "error", err)
	}
	if !c.Response().Committed {
		_ = c.JSON(code, map[string]string{"error": msg})
	}
}

// --- Page rendering ---

type pageData struct {
	Topic         string
	ReferenceDate string
	Warning       string
	Run           *runView
}

type runView struct {
	ID           string
	Topic        string
	Completed    bool
	HaltedTitle  string
	Stages       []stageView
	DocumentHTML template.HTML
	DownloadURL  string
	FileName     string
}

type stageView struct {
	Title   string
	Summary string
	Open    bool
	Failed  bool
	Error   string
	HTML    template.HTML
}

func (s *Server) viewOf(res *generator.RunResult) (*runView, error) {
	v := &runView{ID: res.ID, Topic: res.Topic, Completed: res.Completed()}
	for _, sr := range res.Stages {
		sv := stageView{Title: sr.Title, Open: s.stages[sr.Stage].Expanded}
		if !sr.Succeeded() {
			sv.Failed, sv.Open, sv.Error = true, true, sr.Error
			v.HaltedTitle = sr.Title
		} else {
			html, err := export.ToHTML(sr.Text)
			if err != nil {
				return nil, err
			}
			sv.HTML = template.HTML(html)
			sv.Summary = generator.Digest(sr.Text, 80)
		}
		v.Stages = append(v.Stages, sv)
	}
	if v.Completed {
		html, err := export.ToHTML(res.Document)
		if err != nil {
			return nil, err
		}
		v.DocumentHTML = template.HTML(html)
		v.DownloadURL = "/api/runs/" + res.ID + "/document"
		v.FileName = export.FileName(res.ReferenceDate)
	}
	return v, nil
}

func (s *Server) renderPage(c echo.Context, code int, data pageData) error {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return err
	}
	return c.HTMLBlob(code, buf.Bytes())
}
