// Package cmd implements the propal CLI commands.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AmarBackInField/proPAL-AI/internal/cli"
	"github.com/AmarBackInField/proPAL-AI/internal/config"
	"github.com/AmarBackInField/proPAL-AI/internal/export"
	"github.com/AmarBackInField/proPAL-AI/internal/logging"
	"github.com/AmarBackInField/proPAL-AI/internal/model"
	"github.com/AmarBackInField/proPAL-AI/internal/recorder"
	"github.com/AmarBackInField/proPAL-AI/internal/tui/theme"
)

var (
	flagConfig     string
	flagReportsDir string
	flagFormat     string
	flagQuiet      bool
	flagLogLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "propal",
	Short: "Voice agent metrics recorder",
	Long: "Record LLM, TTS, STT and end-of-utterance metrics from a voice agent session,\n" +
		"render them to the console and keep a multi-sheet report up to date.",
	SilenceUsage: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default "+config.Path()+")")
	rootCmd.PersistentFlags().StringVarP(&flagReportsDir, "reports-dir", "o", "", "Directory for metrics reports")
	rootCmd.PersistentFlags().StringVarP(&flagFormat, "format", "f", "", "Report format: xlsx or sqlite")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress console record output")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// runtimeEnv holds the configuration and ambient services shared by commands.
type runtimeEnv struct {
	cfg     config.Config
	log     *zap.Logger
	console *cli.Console
}

func cmdOut() io.Writer {
	return rootCmd.OutOrStdout()
}

func loadConfig() (config.Config, error) {
	if flagConfig != "" {
		return config.LoadFile(flagConfig)
	}
	return config.Load()
}

func configPath() string {
	if flagConfig != "" {
		return flagConfig
	}
	return config.Path()
}

// loadEnv loads the config, applies flag overrides and builds the logger.
func loadEnv() (*runtimeEnv, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if flagReportsDir != "" {
		cfg.General.ReportsDir = flagReportsDir
	}
	if flagFormat != "" {
		cfg.General.Format = flagFormat
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	console := cli.NewConsole(cmdOut())
	if flagQuiet {
		console = cli.Discard()
	}
	theme.SetActive(cfg.Appearance.Theme)

	return &runtimeEnv{cfg: cfg, log: logger, console: console}, nil
}

// newRecorder builds a recorder from the effective configuration.
func (e *runtimeEnv) newRecorder(console *cli.Console, obs recorder.Observer) (*recorder.Recorder, error) {
	w, err := export.NewWriter(e.cfg.General.Format)
	if err != nil {
		return nil, err
	}

	rec, err := recorder.New(recorder.Options{
		ReportsDir: e.cfg.General.ReportsDir,
		Writer:     w,
		Console:    console,
		Logger:     e.log,
		Observer:   obs,
		Notes: export.Notes{
			model.KindLLM: e.cfg.Notes.LLM,
			model.KindTTS: e.cfg.Notes.TTS,
			model.KindSTT: e.cfg.Notes.STT,
			model.KindEOU: e.cfg.Notes.EOU,
		},
		Capabilities: recorder.Capabilities{
			STT: e.cfg.Capabilities.STT,
			EOU: e.cfg.Capabilities.EOU,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating recorder: %w", err)
	}
	return rec, nil
}
