package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/uanikitin/SurgIl-Dashboard-sub000/internal/config"
	"github.com/uanikitin/SurgIl-Dashboard-sub000/internal/exporter"
	"github.com/uanikitin/SurgIl-Dashboard-sub000/internal/flowrate"
	"github.com/uanikitin/SurgIl-Dashboard-sub000/internal/infrastructure"
	"github.com/uanikitin/SurgIl-Dashboard-sub000/internal/ingest"
	"github.com/uanikitin/SurgIl-Dashboard-sub000/internal/services"
	transporthttp "github.com/uanikitin/SurgIl-Dashboard-sub000/internal/transport/http"
)

const (
	opsRateLimit = 10
	opsRateBurst = 20
)

// options are the command-line flags
type options struct {
	configPath    string
	scenarioDir   string
	scenarioID    string
	baselineID    string
	granularity   string
	outputDir     string
	metricsAddr   string
	traceToStderr bool
	serve         bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet(config.AppName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "config file (defaults to flowcalc.yaml or configs/flowcalc.yaml)")
	fs.StringVar(&opts.scenarioDir, "scenarios", "scenarios", "directory of scenario YAML files")
	fs.StringVar(&opts.scenarioID, "scenario", "", "scenario id to calculate (all scenarios when empty)")
	fs.StringVar(&opts.baselineID, "baseline", "", "baseline scenario id; compares -scenario against it")
	fs.StringVar(&opts.granularity, "granularity", string(flowrate.GranularityDaily), "comparison granularity: daily, weekly or monthly")
	fs.StringVar(&opts.outputDir, "out", "", "output directory (overrides paths.output_dir)")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve /metrics, /healthz and /scenarios on this address while running")
	fs.BoolVar(&opts.traceToStderr, "trace", false, "write spans to stderr")
	fs.BoolVar(&opts.serve, "serve", false, "keep serving -metrics-addr after the run until interrupted")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.baselineID != "" && opts.scenarioID == "" {
		return opts, errors.New("-baseline requires -scenario")
	}
	if opts.serve && opts.metricsAddr == "" {
		return opts, errors.New("-serve requires -metrics-addr")
	}
	return opts, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		slog.Error("flowcalc failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.outputDir != "" {
		cfg.Paths.OutputDir = opts.outputDir
	}
	if opts.metricsAddr != "" {
		cfg.Telemetry.MetricsAddr = opts.metricsAddr
		cfg.Telemetry.MetricsEnabled = true
	}
	if opts.traceToStderr {
		cfg.Telemetry.TracingEnabled = true
	}

	logger, logFile, err := infrastructure.NewLogger(cfg.Logging, stderr)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	slog.SetDefault(logger)

	telemetry, err := infrastructure.InitializeTelemetry(cfg.Telemetry, stderr, logger)
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	metrics, err := infrastructure.NewFlowMetrics(telemetry.Meter)
	if err != nil {
		return fmt.Errorf("initialize metrics: %w", err)
	}

	catalog, err := ingest.LoadCatalogDir(cfg.Paths.Resolve(opts.scenarioDir), logger)
	if err != nil {
		return err
	}

	if cfg.Telemetry.MetricsAddr != "" {
		router, err := transporthttp.NewRouter(transporthttp.RouterDeps{
			Scenarios:      catalog,
			MetricsHandler: telemetry.MetricsHandler,
			Logger:         logger,
			Version:        config.AppVersion,
			Tracer:         telemetry.Tracer,
			Meter:          telemetry.Meter,
			RateLimit:      opsRateLimit,
			RateBurst:      opsRateBurst,
		})
		if err != nil {
			return fmt.Errorf("build ops router: %w", err)
		}
		stopOps := serveOps(cfg.Telemetry.MetricsAddr, router, logger)
		defer stopOps()
	}

	svc, err := services.NewScenarioService(catalog.Sources(), cfg.Engine, cfg.Batch, logger,
		services.WithTracer(telemetry.Tracer),
		services.WithMetrics(metrics))
	if err != nil {
		return err
	}

	exp := exporter.NewResultExporter(exporter.NewCSVWriter(cfg.Paths, logger), cfg.Paths)
	logger.Info("flowcalc starting",
		slog.String("version", config.AppVersion),
		slog.String("scenarios", opts.scenarioDir),
		slog.String("output_dir", cfg.Paths.Resolve(cfg.Paths.OutputDir)))

	switch {
	case opts.baselineID != "":
		err = runCompare(ctx, svc, catalog, exp, cfg.Paths, opts, stdout)
	case opts.scenarioID != "":
		err = runSingle(ctx, svc, catalog, exp, opts.scenarioID, stdout)
	default:
		err = runBatch(ctx, svc, catalog, exp, logger, stdout)
	}
	if err != nil {
		return err
	}

	if opts.serve {
		logger.Info("run finished, serving until interrupted")
		<-ctx.Done()
	}
	return nil
}

func runSingle(ctx context.Context, svc *services.ScenarioService, catalog *ingest.Catalog, exp *exporter.ResultExporter, id string, stdout io.Writer) error {
	sc, err := catalog.Scenario(id)
	if err != nil {
		return err
	}
	res, err := svc.Calculate(ctx, sc)
	if err != nil {
		return err
	}
	dir, err := exp.ExportResult(res)
	if err != nil {
		return err
	}
	printSummary(stdout, res, dir)
	return nil
}

func runBatch(ctx context.Context, svc *services.ScenarioService, catalog *ingest.Catalog, exp *exporter.ResultExporter, logger *slog.Logger, stdout io.Writer) error {
	results, err := svc.RunBatch(ctx, catalog.Scenarios())
	if err != nil {
		return err
	}

	var failed int
	for _, br := range results {
		if br.Err != nil {
			failed++
			fmt.Fprintf(stdout, "%s: FAILED: %v\n", br.Scenario.ID, br.Err)
			continue
		}
		dir, err := exp.ExportResult(br.Result)
		if err != nil {
			failed++
			logger.Error("export failed",
				slog.String("scenario_id", br.Scenario.ID),
				slog.String("error", err.Error()))
			fmt.Fprintf(stdout, "%s: FAILED: %v\n", br.Scenario.ID, err)
			continue
		}
		printSummary(stdout, br.Result, dir)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(results))
	}
	return nil
}

func runCompare(ctx context.Context, svc *services.ScenarioService, catalog *ingest.Catalog, exp *exporter.ResultExporter, paths config.PathsConfig, opts options, stdout io.Writer) error {
	current, err := catalog.Scenario(opts.scenarioID)
	if err != nil {
		return err
	}
	baseline, err := catalog.Scenario(opts.baselineID)
	if err != nil {
		return err
	}
	g, err := flowrate.ParseGranularity(opts.granularity)
	if err != nil {
		return err
	}

	report, err := svc.Compare(ctx, current, baseline, g)
	if err != nil {
		return err
	}
	for _, res := range []*flowrate.Result{report.Current, report.Baseline} {
		if _, err := exp.ExportResult(res); err != nil {
			return err
		}
	}

	dir := paths.ScenarioOutputDir(current.ID + "_vs_" + baseline.ID)
	if err := config.EnsureDir(dir); err != nil {
		return err
	}
	if err := exp.ExportComparison(report.Comparison, filepath.Join(dir, config.CompareFileName)); err != nil {
		return err
	}
	if err := exp.ExportJSON(report.Comparison, filepath.Join(dir, config.ResultFileName)); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "%s vs %s (%s): %d periods -> %s\n", current.ID, baseline.ID, g, len(report.Comparison.Rows), dir)
	if t := report.Comparison.Totals; t != nil {
		fmt.Fprintf(stdout, "  total flow delta: %.3f\n", t.DeltaTotal)
	}
	return nil
}

func printSummary(w io.Writer, res *flowrate.Result, dir string) {
	fmt.Fprintf(w, "%s (well %s): %d days, %d cycles, %d downtime periods -> %s\n",
		res.ScenarioID, res.WellID, len(res.Daily), len(res.Cycles), len(res.Downtime), dir)
	for _, d := range res.Diagnostics {
		fmt.Fprintf(w, "  %s: %s\n", d.Kind, d.Message)
	}
}

// serveOps serves the operations router on addr until the returned stop
// func is called
func serveOps(addr string, handler http.Handler, logger *slog.Logger) func() {
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ops server failed", slog.String("error", err.Error()))
		}
	}()
	logger.Info("serving ops endpoints", slog.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
