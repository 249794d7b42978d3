package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"auto_laudo_pericial/config"
	"auto_laudo_pericial/export"
	"auto_laudo_pericial/generator"
	"auto_laudo_pericial/server"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:           "laudo",
		Short:         "Gera laudos periciais com um pipeline de quatro agentes de IA",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (json, yaml or toml)")
	root.AddCommand(serveCmd(&cfgPath), generateCmd(&cfgPath, out))
	return root
}

func serveCmd(cfgPath *string) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web page and JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(*cfgPath)
			if err != nil {
				return err
			}
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			pipeline, err := buildPipeline(cfg, logger, generator.NewMetrics(reg))
			if err != nil {
				return err
			}
			srv, err := server.New(pipeline, server.Options{MaxRuns: cfg.Server.MaxRuns, Logger: logger, Gatherer: reg})
			if err != nil {
				return err
			}
			listen := cfg.Server.Addr
			if addr != "" {
				listen = addr
			}
			return listenAndServe(cmd.Context(), listen, srv.Routes(), logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "http listen address (overrides server.addr)")
	return cmd
}

func generateCmd(cfgPath *string, out io.Writer) *cobra.Command {
	var topic, outDir string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run the pipeline once in the terminal and save the laudo",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(*cfgPath)
			if err != nil {
				return err
			}
			pipeline, err := buildPipeline(cfg, logger, nil)
			if err != nil {
				return err
			}
			res, err := pipeline.Run(cmd.Context(), topic, progress{out: out, total: len(pipeline.Stages())})
			if err != nil {
				return err
			}
			if !res.Completed() {
				return fmt.Errorf("processo interrompido: %s", res.Failure().Error)
			}
			path, err := export.WriteDocument(outDir, res.Document, res.ReferenceDate)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Laudo salvo em %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&topic, "topic", "t", "", "tópico do laudo")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory for the exported laudo")
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}

// setup loads configuration; a missing credential stops the process here.
func setup(cfgPath string) (config.Config, *slog.Logger, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return config.Config{}, nil, err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := config.NewLogger(os.Stderr, cfg.Log)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func buildPipeline(cfg config.Config, logger *slog.Logger, metrics *generator.Metrics) (*generator.Pipeline, error) {
	llm, err := buildLLM(cfg.LLM)
	if err != nil {
		return nil, err
	}
	return generator.NewPipeline(llm,
		generator.WithLogger(logger),
		generator.WithMetrics(metrics),
		generator.WithStageTimeout(cfg.LLM.StageTimeout),
	)
}

// buildLLM picks the client for the configured provider. Tests swap it out.
var buildLLM = func(c config.LLMConfig) (generator.LLMClient, error) {
	switch c.Provider {
	case "mock":
		return generator.MockLLM{}, nil
	case "openai", "deepseek", "gemini":
		return generator.NewOpenAILLMFromConfig(&generator.LLMSettings{
			Provider:      c.Provider,
			Model:         c.Model,
			APIKey:        c.APIKey,
			BaseURL:       c.BaseURL,
			Temperature:   c.Temperature,
			MaxInputBytes: c.MaxInputBytes,
		})
	default:
		return nil, fmt.Errorf("llm provider %s not supported", c.Provider)
	}
}

func listenAndServe(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting web server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// progress prints one line per stage, like the status messages of the web page.
type progress struct {
	out   io.Writer
	total int
}

func (p progress) StageStarted(_ string, index int, st generator.Stage) {
	fmt.Fprintf(p.out, "[%d/%d] %s em execução...\n", index+1, p.total, st.Title)
}

func (p progress) StageFinished(_ string, index int, res generator.StageResult) {
	if !res.Succeeded() {
		fmt.Fprintf(p.out, "[%d/%d] %s falhou: %s\n", index+1, p.total, res.Title, res.Error)
		return
	}
	fmt.Fprintf(p.out, "[%d/%d] %s concluiu (%s)\n", index+1, p.total, res.Title, res.Duration.Round(time.Millisecond))
}
