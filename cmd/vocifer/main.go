// Command vocifer assigns persistent voices to game-character identities and
// synthesizes their lines into a content-addressed audio cache.
//
// It reads "Speaker: line" pairs from stdin and prints the cached audio path
// for each. Two command forms manage assignments:
//
//	!assign <name> = <voiceId>   pin a voice; never auto-overwritten
//	!clear <name>                drop the assignment; next line re-resolves
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/vocifer/internal/assign"
	"github.com/MrWong99/vocifer/internal/classify"
	"github.com/MrWong99/vocifer/internal/config"
	"github.com/MrWong99/vocifer/internal/engine"
	"github.com/MrWong99/vocifer/internal/health"
	"github.com/MrWong99/vocifer/internal/observe"
	"github.com/MrWong99/vocifer/internal/pipeline"
	"github.com/MrWong99/vocifer/internal/resilience"
	"github.com/MrWong99/vocifer/internal/rotation"
	"github.com/MrWong99/vocifer/internal/rules"
	"github.com/MrWong99/vocifer/internal/synthcache"
	"github.com/MrWong99/vocifer/pkg/provider/tts"
	"github.com/MrWong99/vocifer/pkg/provider/tts/elevenlabs"
	"github.com/MrWong99/vocifer/pkg/types"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "vocifer.yaml", "path to the YAML configuration file")
	preassign := flag.String("preassign", "", "file with one identity name per line; assign voices for all and exit")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "vocifer: config file %q not found, copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "vocifer: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger, logLevel := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("vocifer starting",
		"config", *configPath,
		"provider", cfg.Provider.Name,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Observability ─────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "vocifer",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Assignment store ──────────────────────────────────────────────────────
	store, storeCleanup, storeCheck, err := buildStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open assignment store", "err", err)
		return 1
	}
	defer storeCleanup()

	if cfg.Server.MetricsAddr != "" {
		go serveMetrics(cfg, storeCheck)
	}

	// ── Classifier, rules, synthesizer ────────────────────────────────────────
	classifier := buildClassifier(cfg)
	resolver := buildResolver(cfg, metrics)

	reg := config.NewRegistry()
	registerSynthesizers(reg)

	synth, err := reg.Create(cfg)
	if errors.Is(err, config.ErrProviderNotRegistered) {
		slog.Warn("no synthesizer linked for provider; running selection-only",
			"provider", cfg.Provider.Name)
		synth = nil
	} else if err != nil {
		slog.Error("failed to create synthesizer", "err", err)
		return 1
	}
	if synth != nil {
		// Breaker around the vendor so a sustained outage fails fast
		// instead of stalling every utterance on timeouts.
		synth = resilience.NewFailover(cfg.Provider.Name, synth, resilience.FailoverConfig{})
	}

	// ── Pipeline ──────────────────────────────────────────────────────────────
	pipeOpts := []pipeline.Option{
		pipeline.WithMetrics(metrics),
		pipeline.WithPlaceholders(cfg.Provider.PlaceholderMale, cfg.Provider.PlaceholderFemale),
	}
	if synth != nil && cfg.Provider.Name == rules.ProviderEleven {
		if catalog, err := synth.ListVoices(ctx); err != nil {
			slog.Warn("voice catalogue unavailable, rotation pools disabled", "err", err)
		} else {
			pipeOpts = append(pipeOpts, pipeline.WithRotation(rotation.NewPools(catalog)))
			slog.Info("voice catalogue loaded", "voices", len(catalog))
		}
	}
	pipe := pipeline.New(cfg.Provider.Name, store, classifier, resolver, pipeOpts...)

	// ── Cache and engine ──────────────────────────────────────────────────────
	cache, err := synthcache.New(cfg.Cache.Dir)
	if err != nil {
		slog.Error("failed to open synthesis cache", "dir", cfg.Cache.Dir, "err", err)
		return 1
	}

	var eng *engine.Engine
	if synth != nil {
		eng = engine.New(pipe, cache, synth,
			engine.WithCacheVersion(cfg.Cache.Version),
			engine.WithFallbackVoice(cfg.Provider.PlaceholderMale),
			engine.WithMetrics(metrics),
		)
	}

	// ── Bulk preassignment mode ───────────────────────────────────────────────
	if *preassign != "" {
		if err := preassignFromFile(ctx, pipe, eng, *preassign, cfg.Provider.PreassignWorkers); err != nil {
			slog.Error("preassignment failed", "err", err)
			return 1
		}
		return 0
	}

	// ── Config hot reload ─────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		d := config.Diff(old, new)
		if d.LogLevelChanged {
			logLevel.Set(d.NewLogLevel.SlogLevel())
			slog.Info("log level changed", "level", d.NewLogLevel)
		}
		if d.RulesChanged || d.LoreHintsChanged || d.CacheVersionChanged || d.RestartRequired {
			slog.Warn("config change requires a restart to take effect")
		}
	})
	if err != nil {
		slog.Warn("config watcher unavailable", "err", err)
	} else {
		defer watcher.Stop()
	}

	// ── Interactive loop ──────────────────────────────────────────────────────
	slog.Info("ready, reading \"Speaker: line\" pairs from stdin")
	if err := speakLoop(ctx, pipe, eng, cache, os.Stdin); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Wiring ────────────────────────────────────────────────────────────────────

// buildStore opens the Postgres store when a DSN is configured, the flat JSON
// file store otherwise. The returned checker probes the chosen backend for
// the readiness endpoint.
func buildStore(ctx context.Context, cfg *config.Config) (assign.Store, func(), health.Checker, error) {
	var noCheck health.Checker
	if dsn := cfg.Storage.PostgresDSN; dsn != "" {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, nil, noCheck, fmt.Errorf("connect postgres: %w", err)
		}
		store := assign.NewPostgresStore(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, noCheck, fmt.Errorf("migrate postgres store: %w", err)
		}
		slog.Info("assignment store ready", "backend", "postgres")
		return store, pool.Close, health.Checker{Name: "database", Check: health.Ping(pool)}, nil
	}

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return nil, nil, noCheck, fmt.Errorf("create data dir: %w", err)
	}
	path := filepath.Join(cfg.Storage.DataDir, "assignments.json")
	store, err := assign.NewFileStore(path)
	if err != nil {
		return nil, nil, noCheck, err
	}
	slog.Info("assignment store ready", "backend", "file", "path", path)
	check := health.Checker{Name: "store", Check: health.DirWritable(cfg.Storage.DataDir)}
	return store, func() {}, check, nil
}

func buildClassifier(cfg *config.Config) *classify.Classifier {
	if len(cfg.LoreHints) == 0 {
		return classify.New()
	}
	hints := make(classify.LoreHints, len(cfg.LoreHints))
	for name, h := range cfg.LoreHints {
		hints[classify.NormalizeName(name)] = classify.LoreHint{
			Gender: types.Gender(h.Gender),
			Tags:   h.Tags,
		}
	}
	return classify.New(classify.WithLoreHints(hints))
}

// buildResolver merges the bundled default rules with documents from the
// configured directories, in order, so later sources override earlier ones.
func buildResolver(cfg *config.Config, metrics *observe.Metrics) *rules.Resolver {
	docs, err := rules.DefaultSource().Load()
	if err != nil {
		slog.Warn("bundled default rules unavailable", "err", err)
	}
	for _, dir := range cfg.Rules.Dirs {
		loaded, err := rules.DirSource{Dir: dir}.Load()
		if err != nil {
			slog.Warn("skipping rule directory", "dir", dir, "err", err)
			continue
		}
		docs = append(docs, loaded...)
	}
	slog.Info("voice rules loaded", "documents", len(docs))

	return rules.New(rules.Merge(docs),
		rules.WithUnmappedSink(&countingSink{metrics: metrics, provider: cfg.Provider.Name}),
	)
}

func registerSynthesizers(reg *config.Registry) {
	reg.Register(rules.ProviderEleven, func(cfg *config.Config) (tts.Synthesizer, error) {
		var opts []elevenlabs.Option
		if cfg.Provider.Eleven.Model != "" {
			opts = append(opts, elevenlabs.WithModel(cfg.Provider.Eleven.Model))
		}
		if cfg.Provider.Eleven.BaseURL != "" {
			opts = append(opts, elevenlabs.WithBaseURL(cfg.Provider.Eleven.BaseURL))
		}
		synth, err := elevenlabs.New(cfg.Provider.Eleven.APIKey, opts...)
		if err != nil {
			return nil, err
		}
		return synth, nil
	})
}

// countingSink forwards unmapped identities to the log and the metrics
// counter.
type countingSink struct {
	metrics  *observe.Metrics
	provider string
	slogSink rules.SlogUnmappedSink
}

func (s *countingSink) ReportUnmapped(key, displayName string, tags []string) {
	s.slogSink.ReportUnmapped(key, displayName, tags)
	s.metrics.RecordUnmappedIdentity(context.Background(), s.provider)
}

// ── Metrics endpoint ──────────────────────────────────────────────────────────

func serveMetrics(cfg *config.Config, storeCheck health.Checker) {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	health.New(
		storeCheck,
		health.Checker{Name: "cache_dir", Check: health.DirWritable(cfg.Cache.Dir)},
	).Register(mux)

	slog.Info("metrics endpoint listening", "addr", cfg.Server.MetricsAddr)
	if err := http.ListenAndServe(cfg.Server.MetricsAddr, mux); err != nil {
		slog.Warn("metrics endpoint stopped", "err", err)
	}
}

// ── Modes ─────────────────────────────────────────────────────────────────────

// preassignFromFile walks a newline-separated list of identity names and
// assigns voices for all of them ahead of any speech.
func preassignFromFile(ctx context.Context, pipe *pipeline.Pipeline, eng *engine.Engine, path string, workers int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var names []string
	for line := range strings.Lines(string(data)) {
		if name := strings.TrimSpace(line); name != "" {
			names = append(names, name)
		}
	}

	seq := func(yield func(types.Identity) bool) {
		for _, n := range names {
			if !yield(types.Identity{DisplayName: n}) {
				return
			}
		}
	}

	if eng != nil {
		if err := eng.PreassignVoices(ctx, seq, workers); err != nil {
			return err
		}
	} else {
		for identity := range seq {
			pipe.SelectVoice(ctx, identity, "")
		}
	}
	slog.Info("preassignment complete", "identities", len(names))
	return nil
}

// speakLoop reads "Speaker: line" pairs and "!assign" / "!clear" commands
// until stdin closes or ctx is cancelled.
func speakLoop(ctx context.Context, pipe *pipeline.Pipeline, eng *engine.Engine, cache *synthcache.Cache, in *os.File) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "!clear "):
			name := strings.TrimSpace(strings.TrimPrefix(line, "!clear "))
			key := classify.IdentityKey(types.Identity{DisplayName: name})
			if err := pipe.ClearAssignment(ctx, key); err != nil {
				fmt.Printf("clear %s: %v\n", name, err)
			} else {
				fmt.Printf("cleared %s\n", name)
			}

		case strings.HasPrefix(line, "!assign "):
			spec := strings.TrimPrefix(line, "!assign ")
			name, voice, ok := strings.Cut(spec, "=")
			if !ok {
				fmt.Println("usage: !assign <name> = <voiceId>")
				continue
			}
			name, voice = strings.TrimSpace(name), strings.TrimSpace(voice)
			key := classify.IdentityKey(types.Identity{DisplayName: name})
			if err := pipe.AssignUserVoice(ctx, key, voice, voice); err != nil {
				fmt.Printf("assign %s: %v\n", name, err)
			} else {
				fmt.Printf("assigned %s -> %s\n", name, voice)
			}

		default:
			speaker, text, ok := strings.Cut(line, ":")
			if !ok {
				fmt.Println("expected \"Speaker: line\", !assign, or !clear")
				continue
			}
			identity := types.Identity{DisplayName: strings.TrimSpace(speaker)}
			text = strings.TrimSpace(text)

			if eng == nil {
				sel := pipe.SelectVoice(ctx, identity, text)
				fmt.Printf("%s -> %s\n", identity.DisplayName, sel.VoiceName)
				continue
			}

			utt, err := eng.Speak(ctx, identity, text)
			if err != nil {
				fmt.Printf("%s: %v\n", identity.DisplayName, err)
				continue
			}
			path, err := cache.Path(utt.CacheKey)
			if err != nil {
				path = utt.CacheKey
			}
			fmt.Printf("%s [%s] -> %s\n", identity.DisplayName, utt.Selection.VoiceName, path)
		}
	}
	return scanner.Err()
}

// ── Logger ────────────────────────────────────────────────────────────────────

// newLogger builds the process logger with a dynamic level so the config
// watcher can adjust verbosity at runtime.
func newLogger(level config.LogLevel) (*slog.Logger, *slog.LevelVar) {
	lvl := new(slog.LevelVar)
	lvl.Set(level.SlogLevel())
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), lvl
}
