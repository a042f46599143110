package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/AmarBackInField/proPAL-AI/internal/cli"
	"github.com/AmarBackInField/proPAL-AI/internal/session"
)

var flagStatusAddr string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of a running agent",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&flagStatusAddr, "addr", "", "Agent address (default from config)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, _ []string) error {
	env, err := loadEnv()
	if err != nil {
		return err
	}
	addr := firstNonEmpty(flagStatusAddr, env.cfg.Server.Addr)
	out := cli.NewConsole(cmdOut())

	st, err := fetchStatus(context.Background(), addr)
	if err != nil {
		out.Warn("Agent at %s: unreachable (%v)", addr, err)
		return nil
	}

	r := st.Recorder
	rows := [][]string{
		{"Address", "http://" + addr},
		{"Started", st.StartedAt.Local().Format(time.RFC3339)},
		{"Events ingested", cli.FormatNumber(st.Ingested)},
		{"Events rejected", cli.FormatNumber(st.Rejected)},
		{"---"},
		{"LLM records", fmt.Sprint(r.Counts.LLM)},
		{"TTS records", fmt.Sprint(r.Counts.TTS)},
		{"STT records", fmt.Sprint(r.Counts.STT)},
		{"EOU records", fmt.Sprint(r.Counts.EOU)},
		{"Total records", fmt.Sprint(r.Total)},
		{"Skipped events", fmt.Sprint(r.Dropped)},
		{"---"},
		{"Report file", r.Path},
		{"Exports", fmt.Sprint(r.Exports)},
		{"Last export", formatExportTime(r.LastExport)},
		{"Finalized", cli.FormatBool(r.Finalized)},
	}
	if r.LastError != "" {
		rows = append(rows, []string{"Last error", r.LastError})
	}
	out.Print(cli.RenderKV("Agent Status", cli.ColorAccent, rows))
	return nil
}

func fetchStatus(ctx context.Context, addr string) (session.Status, error) {
	var st session.Status

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/v1/status", nil)
	if err != nil {
		return st, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return st, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return st, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("malformed response: %w", err)
	}
	return st, nil
}

func formatExportTime(t time.Time) string {
	if t.IsZero() {
		return "pending"
	}
	return t.Local().Format("15:04:05")
}
