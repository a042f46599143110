package cmd

import (
	"github.com/spf13/cobra"

	"github.com/AmarBackInField/proPAL-AI/internal/cli"
	"github.com/AmarBackInField/proPAL-AI/internal/export"
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List metrics reports, newest first",
	RunE:  runReports,
}

func init() {
	rootCmd.AddCommand(reportsCmd)
}

func runReports(_ *cobra.Command, _ []string) error {
	env, err := loadEnv()
	if err != nil {
		return err
	}

	files, err := export.List(env.cfg.General.ReportsDir)
	if err != nil {
		return err
	}

	out := cli.NewConsole(cmdOut())
	if len(files) == 0 {
		out.Dim("No reports in %s", env.cfg.General.ReportsDir)
		return nil
	}

	rows := make([][]string, len(files))
	for i, f := range files {
		rows[i] = []string{f.Name, cli.FormatBytes(f.Size), f.ModTime.Local().Format("2006-01-02 15:04:05")}
	}
	out.Print(cli.RenderTable(cli.Table{
		Title:   "Reports in " + env.cfg.General.ReportsDir,
		Headers: []string{"File", "Size", "Modified"},
		Rows:    rows,
	}))
	return nil
}
