package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/AmarBackInField/proPAL-AI/internal/cli"
	"github.com/AmarBackInField/proPAL-AI/internal/config"
	"github.com/AmarBackInField/proPAL-AI/internal/tui/theme"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive configuration wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

// setupValues are the fields edited by the setup form.
type setupValues struct {
	ReportsDir string
	Format     string
	Addr       string
	STT        bool
	EOU        bool
	URL        string
	APIKey     string
	APISecret  string
	Trunk      string
	Phone      string
	Room       string
	Theme      string
}

func setupValuesFrom(cfg config.Config) setupValues {
	return setupValues{
		ReportsDir: cfg.General.ReportsDir,
		Format:     cfg.General.Format,
		Addr:       cfg.Server.Addr,
		STT:        cfg.Capabilities.STT,
		EOU:        cfg.Capabilities.EOU,
		URL:        cfg.LiveKit.URL,
		APIKey:     cfg.LiveKit.APIKey,
		APISecret:  cfg.LiveKit.APISecret,
		Trunk:      cfg.LiveKit.SIPTrunkID,
		Phone:      cfg.LiveKit.PhoneNumber,
		Room:       cfg.LiveKit.Room,
		Theme:      cfg.Appearance.Theme,
	}
}

func (v setupValues) apply(cfg config.Config) config.Config {
	cfg.General.ReportsDir = strings.TrimSpace(v.ReportsDir)
	cfg.General.Format = v.Format
	cfg.Server.Addr = strings.TrimSpace(v.Addr)
	cfg.Capabilities.STT = v.STT
	cfg.Capabilities.EOU = v.EOU
	cfg.LiveKit.URL = strings.TrimSpace(v.URL)
	cfg.LiveKit.APIKey = strings.TrimSpace(v.APIKey)
	cfg.LiveKit.APISecret = strings.TrimSpace(v.APISecret)
	cfg.LiveKit.SIPTrunkID = strings.TrimSpace(v.Trunk)
	cfg.LiveKit.PhoneNumber = strings.TrimSpace(v.Phone)
	cfg.LiveKit.Room = strings.TrimSpace(v.Room)
	cfg.Appearance.Theme = v.Theme
	return cfg
}

func validateRequired(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

func validatePhone(s string) error {
	s = strings.TrimSpace(s)
	if s != "" && !strings.HasPrefix(s, "+") {
		return errors.New("use E.164 format: +<country><number>")
	}
	return nil
}

func newSetupForm(v *setupValues) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Reports directory").
				Value(&v.ReportsDir).
				Validate(validateRequired("reports directory")),
			huh.NewSelect[string]().
				Title("Report format").
				Options(
					huh.NewOption("Excel workbook (.xlsx)", config.FormatXLSX),
					huh.NewOption("SQLite database (.db)", config.FormatSQLite),
				).
				Value(&v.Format),
			huh.NewInput().
				Title("Session server address").
				Value(&v.Addr).
				Validate(validateRequired("address")),
		).Title("Recording"),

		huh.NewGroup(
			huh.NewConfirm().
				Title("Is speech-to-text configured?").
				Description("Used to explain empty STT sheets in the final summary.").
				Value(&v.STT),
			huh.NewConfirm().
				Title("Is turn detection configured?").
				Description("EOU metrics need VAD-based turn detection.").
				Value(&v.EOU),
		).Title("Pipeline"),

		huh.NewGroup(
			huh.NewInput().Title("LiveKit URL").Placeholder("wss://example.livekit.cloud").Value(&v.URL),
			huh.NewInput().Title("API key").Value(&v.APIKey),
			huh.NewInput().Title("API secret").EchoMode(huh.EchoModePassword).Value(&v.APISecret),
			huh.NewInput().Title("SIP trunk id").Placeholder("ST_...").Value(&v.Trunk),
			huh.NewInput().Title("Phone number").Placeholder("+15551234567").Value(&v.Phone).Validate(validatePhone),
			huh.NewInput().Title("Room").Value(&v.Room).Validate(validateRequired("room")),
		).Title("Outbound calls"),

		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Dashboard theme").
				Options(huh.NewOptions(theme.Names()...)...).
				Value(&v.Theme),
		).Title("Appearance"),
	)
}

func runSetup(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	vals := setupValuesFrom(cfg)
	if err := newSetupForm(&vals).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Fprintln(cmdOut(), "  Setup canceled, nothing saved.")
			return nil
		}
		return err
	}

	cfg = vals.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	path := configPath()
	if err := config.SaveFile(path, cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	out := cli.NewConsole(cmdOut())
	out.Success("Saved to %s", path)
	out.Dim("Run `propal setup` anytime to reconfigure.")
	return nil
}
