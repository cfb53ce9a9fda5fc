// Command pledgewatch ingests posts about a monitored public figure,
// classifies them for harmful rhetoric, and maintains the pledge ledger
// driven by flagged posts.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pledgewatch/pledgewatch/internal/analysis"
	"github.com/pledgewatch/pledgewatch/internal/articles"
	"github.com/pledgewatch/pledgewatch/internal/classifier"
	"github.com/pledgewatch/pledgewatch/internal/classifier/providers"
	"github.com/pledgewatch/pledgewatch/internal/config"
	"github.com/pledgewatch/pledgewatch/internal/ingest"
	"github.com/pledgewatch/pledgewatch/internal/logging"
	"github.com/pledgewatch/pledgewatch/internal/media"
	"github.com/pledgewatch/pledgewatch/internal/pledges"
	"github.com/pledgewatch/pledgewatch/internal/report"
	"github.com/pledgewatch/pledgewatch/internal/scheduler"
	"github.com/pledgewatch/pledgewatch/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	logging.Init(slog.LevelInfo)

	cmd := os.Args[1]
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file (default: platform config dir)")
	exportFormat := fs.String("format", "json", "export format: json or html")
	exportLimit := fs.Int("limit", 1000, "maximum verdicts to export")
	fs.Parse(os.Args[2:])

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal("load config", err)
	}
	secrets := config.LoadSecrets(cfg.Analysis.LLMProvider)

	st, err := store.New(cfg.Storage.DBPath)
	if err != nil {
		fatal("open store", err)
	}
	defer st.Close()

	ctx := context.Background()

	switch cmd {
	case "ingest":
		runIngest(ctx, cfg, secrets, st)
	case "analyze":
		runAnalyze(ctx, cfg, secrets, st)
	case "run":
		runIngest(ctx, cfg, secrets, st)
		runAnalyze(ctx, cfg, secrets, st)
	case "daemon":
		runDaemon(cfg, secrets, st)
	case "stats":
		runStats(ctx, st)
	case "export":
		runExport(ctx, st, *exportFormat, *exportLimit)
	case "pledge":
		runPledge(ctx, st, fs.Args())
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: pledgewatch <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  ingest    Pull new posts from configured sources")
	fmt.Println("  analyze   Run one analysis batch over unanalyzed posts")
	fmt.Println("  run       Ingest then analyze")
	fmt.Println("  daemon    Run ingest+analyze on the configured schedule")
	fmt.Println("  stats     Print store and pledge ledger statistics")
	fmt.Println("  export    Export verdicts (-format json|html, -limit N)")
	fmt.Println("  pledge    Add a pledge: pledge <donor-email> <cents-per-post>")
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

func newIngestor(cfg *config.Config, secrets *config.Secrets, st *store.Store) (*ingest.Ingestor, error) {
	var sources []ingest.Source

	if len(cfg.Ingest.JunkipediaChannels) > 0 {
		if secrets.JunkipediaKey == "" {
			return nil, fmt.Errorf("junkipedia channels configured but JUNKIPEDIA_API_KEY is not set")
		}
		sources = append(sources, ingest.NewJunkipediaSource(
			secrets.JunkipediaKey, cfg.Ingest.JunkipediaChannels, cfg.Ingest.MaxPagesPerSource))
	}
	if cfg.Ingest.XQuery != "" {
		if secrets.XBearerToken == "" {
			return nil, fmt.Errorf("x query configured but X_BEARER_TOKEN is not set")
		}
		sources = append(sources, ingest.NewXSource(secrets.XBearerToken, cfg.Ingest.XQuery))
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no ingest sources configured")
	}

	return ingest.NewIngestor(st, sources...), nil
}

func newOrchestrator(cfg *config.Config, secrets *config.Secrets, st *store.Store) (*analysis.Orchestrator, error) {
	if err := cfg.Validate(secrets); err != nil {
		return nil, err
	}

	var provider classifier.Provider
	switch cfg.Analysis.LLMProvider {
	case config.ProviderAnthropic:
		provider = providers.NewAnthropicProvider(secrets.LLMAPIKey, cfg.Analysis.Model)
	case config.ProviderOpenAI:
		provider = providers.NewOpenAIProvider(secrets.LLMAPIKey, cfg.Analysis.Model)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Analysis.LLMProvider)
	}

	engine := classifier.New(provider)
	articleResolver := articles.NewResolver(
		time.Duration(cfg.Articles.FetchTimeoutSeconds)*time.Second, cfg.Articles.MaxChars)
	mediaResolver := media.NewResolver(10*time.Second, cfg.Analysis.MaxImages)
	ledger := pledges.NewLedger(st)

	return analysis.New(st, articleResolver, mediaResolver, engine, ledger,
		cfg.Analysis.BatchLimit, time.Duration(cfg.Analysis.PaceSeconds)*time.Second), nil
}

func runIngest(ctx context.Context, cfg *config.Config, secrets *config.Secrets, st *store.Store) {
	in, err := newIngestor(cfg, secrets, st)
	if err != nil {
		fatal("configure ingest", err)
	}

	summary, err := in.Run(ctx)
	if err != nil {
		fatal("ingest", err)
	}
	slog.Info("ingest complete",
		"fetched", summary.Fetched, "inserted", summary.Inserted, "errors", summary.Errors)
}

func runAnalyze(ctx context.Context, cfg *config.Config, secrets *config.Secrets, st *store.Store) {
	o, err := newOrchestrator(cfg, secrets, st)
	if err != nil {
		fatal("configure analysis", err)
	}

	summary, err := o.Run(ctx)
	if err != nil {
		fatal("analysis", err)
	}
	slog.Info("analysis complete",
		"analyzed", summary.Analyzed, "flagged", summary.Flagged, "errors", summary.Errors)
}

func runDaemon(cfg *config.Config, secrets *config.Secrets, st *store.Store) {
	// Fail fast on bad wiring before the first scheduled tick.
	if _, err := newIngestor(cfg, secrets, st); err != nil {
		fatal("configure ingest", err)
	}
	if _, err := newOrchestrator(cfg, secrets, st); err != nil {
		fatal("configure analysis", err)
	}

	sched, err := scheduler.New(cfg.Schedule.Timezone)
	if err != nil {
		fatal("create scheduler", err)
	}

	err = sched.AddIntervalJob("ingest-analyze", cfg.Schedule.IntervalHours, func(ctx context.Context) error {
		in, err := newIngestor(cfg, secrets, st)
		if err != nil {
			return err
		}
		if _, err := in.Run(ctx); err != nil {
			return err
		}
		o, err := newOrchestrator(cfg, secrets, st)
		if err != nil {
			return err
		}
		_, err = o.Run(ctx)
		return err
	})
	if err != nil {
		fatal("schedule job", err)
	}

	sched.Start()
	defer sched.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	slog.Info("shutting down")
}

func runStats(ctx context.Context, st *store.Store) {
	counts, err := st.Stats(ctx)
	if err != nil {
		fatal("stats", err)
	}
	totals, err := pledges.NewLedger(st).Totals(ctx)
	if err != nil {
		fatal("pledge totals", err)
	}

	out := struct {
		Store   *store.Counts   `json:"store"`
		Pledges *pledges.Totals `json:"pledges"`
	}{counts, totals}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fatal("encode stats", err)
	}
}

func runExport(ctx context.Context, st *store.Store, format string, limit int) {
	verdicts, err := st.ListVerdicts(ctx, limit)
	if err != nil {
		fatal("list verdicts", err)
	}

	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(verdicts); err != nil {
			fatal("encode verdicts", err)
		}
	case "html":
		builder, err := report.New()
		if err != nil {
			fatal("create report builder", err)
		}
		html, err := builder.Build(verdicts)
		if err != nil {
			fatal("build report", err)
		}
		fmt.Print(html)
	default:
		fatal("export", fmt.Errorf("unknown format %q (want json or html)", format))
	}
}

func runPledge(ctx context.Context, st *store.Store, args []string) {
	if len(args) != 2 {
		fatal("pledge", fmt.Errorf("usage: pledge <donor-email> <cents-per-post>"))
	}
	var cents int64
	if _, err := fmt.Sscanf(args[1], "%d", &cents); err != nil || cents <= 0 {
		fatal("pledge", fmt.Errorf("invalid cents-per-post %q", args[1]))
	}

	id, err := st.CreatePledge(ctx, args[0], cents)
	if err != nil {
		fatal("create pledge", err)
	}
	slog.Info("pledge created", "id", id, "donor", args[0], "cents_per_post", cents)
}
