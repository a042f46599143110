package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/AmarBackInField/proPAL-AI/internal/cli"
	"github.com/AmarBackInField/proPAL-AI/internal/recorder"
	"github.com/AmarBackInField/proPAL-AI/internal/session"
	"github.com/AmarBackInField/proPAL-AI/internal/telemetry"
	"github.com/AmarBackInField/proPAL-AI/internal/tui"
)

var (
	flagAgentAddr      string
	flagAgentRoom      string
	flagAgentDashboard bool
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Record metrics from a live voice agent session",
	Long: "Start the session ingest server. The voice agent posts metrics and participant\n" +
		"events to it; records are rendered and the report is saved every 3 records\n" +
		"per category. A participant leaving, SIGINT or SIGTERM finalizes the report.",
	RunE: runAgent,
}

func init() {
	agentCmd.Flags().StringVar(&flagAgentAddr, "addr", "", "HTTP listen address (default from config)")
	agentCmd.Flags().StringVar(&flagAgentRoom, "room", "", "Room name shown in the banner (default from config)")
	agentCmd.Flags().BoolVar(&flagAgentDashboard, "dashboard", false, "Show the live dashboard instead of console records")
	rootCmd.AddCommand(agentCmd)
}

func runAgent(_ *cobra.Command, _ []string) (err error) {
	env, err := loadEnv()
	if err != nil {
		return err
	}
	defer func() { _ = env.log.Sync() }()

	if flagAgentAddr != "" {
		env.cfg.Server.Addr = flagAgentAddr
	}
	room := env.cfg.LiveKit.Room
	if flagAgentRoom != "" {
		room = flagAgentRoom
	}

	collector := telemetry.NewCollector(nil, env.log)
	svc := session.NewService(session.Config{
		Addr:         env.cfg.Server.Addr,
		EventsBuffer: env.cfg.Server.EventsBuffer,
	}, collector, env.log)

	console := env.console
	observers := []recorder.Observer{collector, svc}
	var bridge *tui.Bridge
	if flagAgentDashboard {
		// The dashboard owns the terminal.
		bridge = tui.NewBridge(256)
		observers = append(observers, bridge)
		console = cli.Discard()
	}

	rec, err := env.newRecorder(console, recorder.Multi(observers...))
	if err != nil {
		return err
	}
	dispatcher := session.NewDispatcher(rec, console, env.log)
	svc.Bind(dispatcher, rec)

	finalize := func() recorder.Summary {
		sum := rec.Finalize()
		if bridge != nil {
			bridge.Finalized(sum)
		}
		return sum
	}

	defer func() {
		if r := recover(); r != nil {
			env.log.Error("agent panicked, finalizing", zap.Any("panic", r))
			console.Error("Error: %v", r)
			finalize()
			err = fmt.Errorf("agent panicked: %v", r)
		}
	}()

	var pending taskGroup
	dispatcher.OnConnect = func(p session.Participant) {
		if bridge != nil {
			bridge.Participant(p.Identity, true)
		}
	}
	dispatcher.OnDisconnect = func(p session.Participant) {
		if bridge != nil {
			bridge.Participant(p.Identity, false)
		}
		// After shutdown begins the exit path finalizes instead.
		pending.Go(func() { finalize() })
	}

	if bridge == nil {
		printBanner(console, room, rec.Path(), env.cfg.Server.Addr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return svc.Run(gctx)
	})
	if bridge != nil {
		g.Go(func() error {
			defer cancel()
			return tui.Run(gctx, bridge, tui.Options{Room: room, ReportPath: rec.Path()})
		})
	}

	console.Success("Agent is ready and monitoring metrics!")
	console.Dim("STT/EOU metrics may be 0 depending on configuration - this is normal")

	runErr := g.Wait()
	pending.Close()

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		console.Error("Error: %v", runErr)
		env.log.Error("agent stopped", zap.Error(runErr))
		finalize()
		return runErr
	}

	console.Line(cli.ColorYellow, true, "Shutting down agent...")
	sum := finalize()
	if bridge != nil {
		// The recorder console was muted while the dashboard ran.
		printSummary(env.console, sum)
	}
	return nil
}

// taskGroup runs background tasks until Close. Go after Close is a no-op,
// so late HTTP handlers cannot race the final wait.
type taskGroup struct {
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// Go runs fn on a new goroutine and reports whether it was started.
func (t *taskGroup) Go(fn func()) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		fn()
	}()
	return true
}

// Close stops accepting tasks and waits for the running ones.
func (t *taskGroup) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.wg.Wait()
}

func printSummary(console *cli.Console, sum recorder.Summary) {
	console.Success("Recorded %d records (LLM %d, TTS %d, STT %d, EOU %d)",
		sum.Total, sum.Counts.LLM, sum.Counts.TTS, sum.Counts.STT, sum.Counts.EOU)
	if sum.ExportErr != nil {
		console.Error("Error saving metrics report: %v", sum.ExportErr)
		return
	}
	console.Success("Report file: %s", sum.Path)
}

func printBanner(console *cli.Console, room, reportPath, addr string) {
	rule := strings.Repeat("=", 70)
	var b strings.Builder
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "Starting voice agent metrics recorder")
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "Features enabled:")
	for _, f := range []string{
		"LLM Performance Metrics",
		"TTS Performance Metrics",
		"STT Performance Metrics (config dependent)",
		"End-of-Utterance Metrics (VAD dependent)",
		"Real-time Console Output",
		"Report Export with Multiple Sheets",
		fmt.Sprintf("Auto-save every %d records", recorder.ExportEvery),
		"Summary Sheet with Statistics",
	} {
		fmt.Fprintf(&b, "  • %s\n", f)
	}
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Room name: %s\n", room)
	fmt.Fprintf(&b, "Session events: http://%s/v1/session/events\n", addr)
	fmt.Fprintln(&b, "Tip: Run `propal call` in another terminal after this starts")
	fmt.Fprintln(&b, "Note: STT/EOU metrics depend on your specific configuration")
	fmt.Fprintln(&b, rule)
	console.Print(b.String())
	console.Line(cli.ColorBlue, true, "Metrics will be saved to: %s", reportPath)
}
