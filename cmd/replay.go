package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AmarBackInField/proPAL-AI/internal/session"
)

var replayCmd = &cobra.Command{
	Use:   "replay <session.jsonl|->",
	Short: "Replay a recorded JSONL session through the recorder",
	Long: "Feed session events from a JSONL file (one envelope per line, \"-\" for stdin)\n" +
		"through the recorder in order, then finalize the report.",
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
}

func runReplay(_ *cobra.Command, args []string) error {
	env, err := loadEnv()
	if err != nil {
		return err
	}
	defer func() { _ = env.log.Sync() }()

	var in io.Reader = os.Stdin
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening session file: %w", err)
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	rec, err := env.newRecorder(env.console, nil)
	if err != nil {
		return err
	}

	dispatcher := session.NewDispatcher(rec, env.console, env.log)
	finalizedAt := -1
	dispatcher.OnDisconnect = func(session.Participant) {
		rec.Finalize()
		finalizedAt = rec.Counts().Total()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, replayErr := session.Replay(ctx, in, dispatcher)
	env.log.Info("replay finished",
		zap.Int("lines", stats.Lines),
		zap.Int("events", stats.Events),
		zap.Error(replayErr),
	)

	if finalizedAt != rec.Counts().Total() {
		rec.Finalize()
	}

	env.console.Dim("Replayed %d events from %d lines (%d stored, %d skipped, %d ignored)",
		stats.Events, stats.Lines,
		stats.Outcomes[session.OutcomeStored],
		stats.Outcomes[session.OutcomeDropped],
		stats.Outcomes[session.OutcomeIgnored],
	)
	return replayErr
}
