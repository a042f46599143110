package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AmarBackInField/proPAL-AI/internal/cli"
	"github.com/AmarBackInField/proPAL-AI/internal/export"
)

var flagInspectSheet string

var inspectCmd = &cobra.Command{
	Use:   "inspect [report]",
	Short: "Render the tables of a metrics report",
	Long:  "Read an exported report (.xlsx or .db) and render its tables. Without an\nargument the newest report in the reports directory is shown.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&flagInspectSheet, "sheet", "", "Only show this table (e.g. LLM_Metrics, Summary)")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(_ *cobra.Command, args []string) error {
	env, err := loadEnv()
	if err != nil {
		return err
	}

	path := ""
	if len(args) == 1 {
		path = args[0]
	} else {
		files, err := export.List(env.cfg.General.ReportsDir)
		if err != nil {
			return fmt.Errorf("listing reports: %w", err)
		}
		if len(files) == 0 {
			return errors.New("no reports found in " + env.cfg.General.ReportsDir)
		}
		path = files[0].Path
	}

	sheets, err := export.Read(path)
	if err != nil {
		return fmt.Errorf("reading report: %w", err)
	}

	out := cli.NewConsole(cmdOut())
	out.Print(cli.RenderTitle(path) + "\n\n")

	shown := 0
	for _, s := range sheets {
		if flagInspectSheet != "" && !strings.EqualFold(s.Name, flagInspectSheet) {
			continue
		}
		shown++
		out.Print(cli.RenderTable(cli.Table{
			Title:   fmt.Sprintf("%s (%d rows)", s.Name, len(s.Rows)),
			Headers: s.Header,
			Rows:    s.Rows,
		}))
		out.Print("\n")
	}
	if shown == 0 && flagInspectSheet != "" {
		return fmt.Errorf("report has no table %q", flagInspectSheet)
	}
	return nil
}
