package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/signalsfoundry/constellation-scheduler/core"
	"github.com/signalsfoundry/constellation-scheduler/internal/config"
	"github.com/signalsfoundry/constellation-scheduler/internal/logging"
	"github.com/signalsfoundry/constellation-scheduler/internal/observability"
	"github.com/signalsfoundry/constellation-scheduler/internal/report"
	"github.com/signalsfoundry/constellation-scheduler/internal/ui"
	"github.com/signalsfoundry/constellation-scheduler/kb"
	"github.com/signalsfoundry/constellation-scheduler/timectrl"
)

// Options are the command-line flags.
type Options struct {
	ScenarioPath string
	ConfigPath   string
	Format       string
	OutPath      string
	TUI          bool
	Replay       bool
	MetricsAddr  string
}

var formats = []string{"table", "json", "csv", "yaml"}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "fifo-scheduler: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (Options, error) {
	fs := flag.NewFlagSet("fifo-scheduler", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts Options
	fs.StringVar(&opts.ScenarioPath, "scenario", "", "Path to a YAML or JSON scenario (required)")
	fs.StringVar(&opts.ConfigPath, "config", "", "Path to a YAML run configuration")
	fs.StringVar(&opts.Format, "format", "table", "Output format: "+strings.Join(formats, "|"))
	fs.StringVar(&opts.OutPath, "out", "", "Write the schedule to this file instead of stdout")
	fs.BoolVar(&opts.TUI, "tui", false, "Browse the schedule in an interactive terminal UI")
	fs.BoolVar(&opts.Replay, "replay", false, "Replay the schedule on an accelerated clock, logging each entry")
	fs.StringVar(&opts.MetricsAddr, "metrics-addr", "", "HTTP address for Prometheus /metrics; overrides the config file")

	if err := fs.Parse(args); err != nil {
		return Options{}, err
	}
	if opts.ScenarioPath == "" {
		return Options{}, errors.New("-scenario is required")
	}
	if !validFormat(opts.Format) {
		return Options{}, fmt.Errorf("unknown -format %q (want %s)", opts.Format, strings.Join(formats, "|"))
	}
	return opts, nil
}

func validFormat(f string) bool {
	for _, known := range formats {
		if f == known {
			return true
		}
	}
	return false
}

func run(ctx context.Context, opts Options, stdout, stderr io.Writer) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	if opts.MetricsAddr != "" {
		cfg.Metrics.Addr = opts.MetricsAddr
	}

	log := cfg.Logger(stderr)

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	reg := prometheus.NewRegistry()
	collector, err := observability.NewSchedulerCollector(reg)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	scenarioMetrics, err := observability.NewScenarioCollector(reg)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	metricsSrv := serveMetrics(cfg.Metrics.Addr, collector, log)
	defer func() {
		if metricsSrv == nil {
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	epoch := cfg.EpochOr(time.Now())
	store := kb.NewKnowledgeBase()
	scenario, err := loadScenario(store, opts.ScenarioPath, epoch)
	if err != nil {
		return err
	}
	scenarioMetrics.SetScenarioCounts(len(scenario.SatelliteIDs), len(scenario.TaskIDs), scenario.Downloads)
	log.Info(ctx, "loaded scenario",
		logging.String("path", opts.ScenarioPath),
		logging.Int("satellites", len(scenario.SatelliteIDs)),
		logging.Int("tasks", len(scenario.TaskIDs)),
		logging.Int("downloads", scenario.Downloads),
		logging.Int("propagated", len(scenario.Propagated)),
	)

	scheduler := core.NewScheduler(store,
		core.WithParams(cfg.Model),
		core.WithWorkers(cfg.Workers),
		core.WithEmptyPlanTail(cfg.Tail()),
		core.WithLogger(log),
		core.WithMetrics(collector),
	)
	result, err := scheduler.Run(ctx)
	if err != nil {
		return fmt.Errorf("schedule: %w", err)
	}
	ctx = logging.ContextWithRunID(ctx, result.RunID)

	if err := writeSchedule(stdout, opts, result, epoch); err != nil {
		return err
	}

	if opts.Replay {
		err := timectrl.Replay(ctx, epoch, result.Schedule, cfg.ReplayTick, func(ev timectrl.ReplayEvent) {
			log.Info(ctx, "plan entry started",
				logging.String("satellite_id", ev.SatelliteID),
				logging.String("task_id", ev.Entry.TaskID),
				logging.String("process_type", ev.Entry.Kind.String()),
				logging.String("at", ev.At.Format(time.RFC3339)),
				logging.Float64("energy_status", ev.Entry.EnergyStatus),
				logging.Float64("data_status", ev.Entry.DataStatus),
			)
		})
		if err != nil {
			return fmt.Errorf("replay: %w", err)
		}
	}

	if opts.TUI {
		return ui.Run(ctx, ui.New(result.Schedule, result.Dropped))
	}

	if metricsSrv != nil {
		log.Info(ctx, "schedule complete; serving metrics until interrupted", logging.String("addr", cfg.Metrics.Addr))
		<-ctx.Done()
	}
	return nil
}

func loadScenario(store *kb.KnowledgeBase, path string, epoch time.Time) (*core.Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scenario: %w", err)
	}
	defer f.Close()

	scenario, err := core.LoadScenario(store, f, core.WithEpoch(epoch))
	if err != nil {
		return nil, fmt.Errorf("load scenario %s: %w", path, err)
	}
	return scenario, nil
}

func writeSchedule(stdout io.Writer, opts Options, result *core.Result, epoch time.Time) (err error) {
	w := stdout
	if opts.OutPath != "" {
		f, cerr := os.Create(opts.OutPath)
		if cerr != nil {
			return fmt.Errorf("create output: %w", cerr)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("close output: %w", cerr)
			}
		}()
		w = f
	}

	switch opts.Format {
	case "json":
		return report.WriteJSON(w, result.Schedule, report.WithEpoch(epoch))
	case "yaml":
		return report.WriteYAML(w, result.Schedule, report.WithEpoch(epoch))
	case "csv":
		return report.WriteCSV(w, result.Schedule)
	default:
		summaries := report.Summarize(result.Schedule, result.Dropped)
		_, err := fmt.Fprintf(w, "%s\n\n%s\n", report.RenderTable(result.Schedule), report.RenderSummary(summaries))
		return err
	}
}

func serveMetrics(addr string, collector *observability.SchedulerCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
