package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AmarBackInField/proPAL-AI/internal/cli"
	"github.com/AmarBackInField/proPAL-AI/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	env, err := loadEnv()
	if err != nil {
		return err
	}
	cfg := env.cfg
	out := cli.NewConsole(cmdOut())

	path := configPath()
	status := "using defaults (no config file)"
	if config.Exists(path) {
		status = "loaded"
	}

	url, key, secret := config.LiveKitCredentials(cfg)
	rows := [][]string{
		{"Config file", path},
		{"Status", status},
		{"---"},
		{"Reports dir", cfg.General.ReportsDir},
		{"Format", cfg.General.Format},
		{"Server addr", cfg.Server.Addr},
		{"Events buffer", fmt.Sprint(cfg.Server.EventsBuffer)},
		{"STT configured", cli.FormatBool(cfg.Capabilities.STT)},
		{"EOU configured", cli.FormatBool(cfg.Capabilities.EOU)},
		{"Log", cfg.Log.Level + " / " + cfg.Log.Format},
		{"Theme", cfg.Appearance.Theme},
		{"---"},
		{"LiveKit URL", orNotSet(url)},
		{"API key", maskSecret(key)},
		{"API secret", maskSecret(secret)},
		{"SIP trunk", orNotSet(cfg.LiveKit.SIPTrunkID)},
		{"Phone number", orNotSet(cfg.LiveKit.PhoneNumber)},
		{"Room", cfg.LiveKit.Room},
		{"Participant", cfg.LiveKit.ParticipantIdentity + " (" + cfg.LiveKit.ParticipantName + ")"},
	}
	out.Print(cli.RenderKV("Configuration", cli.ColorAccent, rows))
	out.Dim("Run `propal setup` to reconfigure.")
	return nil
}

func orNotSet(s string) string {
	if s == "" {
		return "not set"
	}
	return s
}

func maskSecret(s string) string {
	switch {
	case s == "":
		return "not set"
	case len(s) > 16:
		return s[:8] + "..." + s[len(s)-4:]
	case len(s) > 4:
		return s[:4] + "..."
	default:
		return "****"
	}
}
