// Command storymesh runs a turn-based narrative session from environment
// configuration and renders the record stream. It is a thin host: all
// session semantics live in the library, the CLI only wires configuration
// and formats output.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/spf13/cobra"

	"github.com/hupe1980/storymesh"
	"github.com/hupe1980/storymesh/config"
	"github.com/hupe1980/storymesh/core"
	"github.com/hupe1980/storymesh/evaluation"
	"github.com/hupe1980/storymesh/logging"
	"github.com/hupe1980/storymesh/narration"
	"github.com/hupe1980/storymesh/narration/anthropic"
	"github.com/hupe1980/storymesh/narration/openai"
	"github.com/hupe1980/storymesh/session/sqlite"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type runFlags struct {
	rounds   int
	provider string
	seed     int64
	actors   []string
	summary  bool
}

func newRootCmd() *cobra.Command {
	flags := runFlags{}

	cmd := &cobra.Command{
		Use:   "storymesh",
		Short: "Run a turn-based narrative session",
		Long: `storymesh runs a narrator plus a party of actors through a number of
rounds and prints the resulting transcript. Configuration comes from
STORYMESH_* environment variables; flags override the environment.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("rounds") {
				cfg.Rounds = flags.rounds
			}
			if cmd.Flags().Changed("provider") {
				cfg.Provider = flags.provider
			}
			if cmd.Flags().Changed("seed") {
				cfg.Seed = flags.seed
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd, cfg, flags)
		},
	}

	cmd.Flags().IntVar(&flags.rounds, "rounds", 3, "rounds to run")
	cmd.Flags().StringVar(&flags.provider, "provider", "none", "narration backend: none, mock, openai, anthropic")
	cmd.Flags().Int64Var(&flags.seed, "seed", 1, "dice seed; a fixed seed replays a session")
	cmd.Flags().StringSliceVar(&flags.actors, "actor", []string{"Hero1", "Hero2"}, "actor names in registration order")
	cmd.Flags().BoolVar(&flags.summary, "summary", false, "print a session summary after the transcript")

	return cmd
}

func run(cmd *cobra.Command, cfg config.SessionConfig, flags runFlags) error {
	svc, err := buildService(cfg)
	if err != nil {
		return err
	}

	logger := logging.NewSlogLogger(parseLevel(cfg.LogLevel), cfg.LogFormat, false)

	var store core.TranscriptStore
	if cfg.TranscriptPath != "" {
		sqliteStore, err := sqlite.Open(cfg.TranscriptPath)
		if err != nil {
			return err
		}
		defer sqliteStore.Close()
		store = sqliteStore
	}

	mesh, err := storymesh.New(func(o *storymesh.Options) {
		o.Rounds = cfg.Rounds
		o.Service = svc
		o.NarrationTimeout = cfg.NarrationTimeout
		o.Seed = cfg.Seed
		o.Logger = logger
		if store != nil {
			o.TranscriptStore = store
		}
	})
	if err != nil {
		return err
	}

	for _, name := range flags.actors {
		if _, err := mesh.RegisterActor(strings.TrimSpace(name)); err != nil {
			return err
		}
	}

	sessionID, recordsCh, errorsCh, err := mesh.Run(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var records []core.Record
	for rec := range recordsCh {
		records = append(records, rec)
		renderRecord(out, rec)
	}
	if err := <-errorsCh; err != nil {
		return err
	}

	if flags.summary {
		fmt.Fprintf(out, "\n--- session %s ---\n%s\n", sessionID, evaluation.Summarize(records))
	}
	return nil
}

// buildService selects the narration backend. "none" keeps every agent on
// its deterministic path; a call cap wraps paid backends.
func buildService(cfg config.SessionConfig) (narration.Service, error) {
	var svc narration.Service

	switch cfg.Provider {
	case "none":
		return nil, nil
	case "mock":
		svc = narration.NewMockService()
	case "openai":
		svc = openai.New(func(o *openai.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
		})
	case "anthropic":
		svc = anthropic.New(func(o *anthropic.Options) {
			if cfg.Model != "" {
				o.Model = anthropicsdk.Model(cfg.Model)
			}
		})
	default:
		return nil, fmt.Errorf("unknown narration provider %q", cfg.Provider)
	}

	if cfg.MaxNarrationCalls > 0 {
		svc = narration.NewLimitedService(svc, func(o *narration.LimiterOptions) {
			o.MaxCalls = cfg.MaxNarrationCalls
		})
	}
	return svc, nil
}

func renderRecord(out io.Writer, rec core.Record) {
	if rec.IsScene() {
		fmt.Fprintf(out, "[scene] %s\n", rec.Result.Description)
		return
	}

	marker := ""
	if rec.Result.Provenance == core.ProvenanceFallback {
		marker = " (fallback)"
	}
	fmt.Fprintf(out, "[round %d] %s: %s", rec.Round, rec.Actor, rec.Action.Kind)
	if rec.Action.Flavor != "" {
		fmt.Fprintf(out, " (%s)", rec.Action.Flavor)
	}
	fmt.Fprintf(out, "\n  %s%s\n", rec.Result.Description, marker)
}

func parseLevel(level string) logging.LogLevel {
	switch level {
	case "debug":
		return logging.LogLevelDebug
	case "warn":
		return logging.LogLevelWarn
	case "error":
		return logging.LogLevelError
	default:
		return logging.LogLevelInfo
	}
}
