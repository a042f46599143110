package cmd

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmarBackInField/proPAL-AI/internal/config"
	"github.com/AmarBackInField/proPAL-AI/internal/export"
	"github.com/AmarBackInField/proPAL-AI/internal/recorder"
	"github.com/AmarBackInField/proPAL-AI/internal/session"
)

const (
	joinLine  = `{"type":"participant_connected","participant":{"identity":"sip-caller"}}`
	leaveLine = `{"type":"participant_disconnected","participant":{"identity":"sip-caller"}}`
	vadLine   = `{"type":"metrics_collected","metrics":{"type":"vad_metrics","timestamp":1718000000.5}}`
	llmLine   = `{"type":"metrics_collected","metrics":{"type":"llm_metrics","timestamp":1718000000.25,"label":"openai.LLM","request_id":"r1","duration":1.234567,"ttft":0.2}}`
)

// execute runs the root command with args and returns its console output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	flagConfig, flagReportsDir, flagFormat, flagLogLevel = "", "", "", ""
	flagQuiet = false
	flagInspectSheet = ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args,
		"--config", filepath.Join(t.TempDir(), "config.toml"),
		"--log-level", "error",
	))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func writeSession(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600))
	return path
}

func TestReplay_WritesReport(t *testing.T) {
	for _, format := range []string{config.FormatXLSX, config.FormatSQLite} {
		t.Run(format, func(t *testing.T) {
			dir := t.TempDir()
			session := writeSession(t, joinLine, llmLine, llmLine, llmLine, vadLine, leaveLine)

			out, err := execute(t, "replay", session, "--reports-dir", dir, "--format", format)
			require.NoError(t, err)
			assert.Contains(t, out, "LLM Record #3 saved")
			assert.Contains(t, out, "Final Summary:")
			assert.Equal(t, 1, strings.Count(out, "Final Summary:"))
			assert.Contains(t, out, "Replayed 6 events from 6 lines (3 stored, 1 skipped, 0 ignored)")

			files, err := export.List(dir)
			require.NoError(t, err)
			require.Len(t, files, 1)

			out, err = execute(t, "inspect", files[0].Path)
			require.NoError(t, err)
			assert.Contains(t, out, "LLM_Metrics (3 rows)")
			assert.Contains(t, out, "Summary (4 rows)")
		})
	}
}

func TestReplay_FinalizesWithoutDisconnect(t *testing.T) {
	dir := t.TempDir()
	session := writeSession(t, llmLine)

	out, err := execute(t, "replay", session, "--reports-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Final Summary:")
	assert.Contains(t, out, "Total Records: 1")
}

func TestReplay_BadLineStillFinalizes(t *testing.T) {
	dir := t.TempDir()
	session := writeSession(t, llmLine, `{"type":"metrics_collected"}`)

	out, err := execute(t, "replay", session, "--reports-dir", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	assert.Contains(t, out, "Final Summary:")
}

func TestReportsAndInspectNewest(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "reports", "--reports-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "No reports in")

	_, err = execute(t, "inspect", "--reports-dir", dir)
	require.Error(t, err)

	_, err = execute(t, "replay", writeSession(t, llmLine), "--reports-dir", dir)
	require.NoError(t, err)

	out, err = execute(t, "reports", "--reports-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, export.FilePrefix)

	out, err = execute(t, "inspect", "--reports-dir", dir, "--sheet", "summary")
	require.NoError(t, err)
	assert.Contains(t, out, "Summary (4 rows)")
	assert.NotContains(t, out, "LLM_Metrics")

	_, err = execute(t, "inspect", "--reports-dir", dir, "--sheet", "Nope")
	require.Error(t, err)
}

func TestLoadEnv_RejectsBadFormat(t *testing.T) {
	_, err := execute(t, "reports", "--format", "csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "csv")
}

func TestSetupValues_RoundTrip(t *testing.T) {
	cfg := config.DefaultConfig()
	vals := setupValuesFrom(cfg)
	assert.Equal(t, cfg, vals.apply(cfg))

	vals.Format = config.FormatSQLite
	vals.Phone = " +15551234567 "
	vals.Theme = "terminal"
	vals.STT = false
	got := vals.apply(cfg)
	assert.Equal(t, config.FormatSQLite, got.General.Format)
	assert.Equal(t, "+15551234567", got.LiveKit.PhoneNumber)
	assert.Equal(t, "terminal", got.Appearance.Theme)
	assert.False(t, got.Capabilities.STT)
	assert.NoError(t, got.Validate())
}

func TestSetupValidators(t *testing.T) {
	assert.NoError(t, validatePhone(""))
	assert.NoError(t, validatePhone("+919911062767"))
	assert.Error(t, validatePhone("9911062767"))
	assert.Error(t, validateRequired("room")("  "))
	assert.NoError(t, validateRequired("room")("my-assistant-room"))
}

func TestCallRequest_FlagsOverrideConfig(t *testing.T) {
	lk := config.DefaultConfig().LiveKit
	lk.SIPTrunkID = "ST_config"
	lk.PhoneNumber = "+10000000000"

	flagCallTrunk, flagCallPhone, flagCallRoom = "", "+15551234567", "other-room"
	flagCallIdentity, flagCallName = "", ""
	flagCallNoKrisp, flagCallNoWait = true, false
	t.Cleanup(func() {
		flagCallPhone, flagCallRoom = "", ""
		flagCallNoKrisp = false
	})

	req := callRequest(lk)
	assert.Equal(t, "ST_config", req.SIPTrunkID)
	assert.Equal(t, "+15551234567", req.SIPCallTo)
	assert.Equal(t, "other-room", req.RoomName)
	assert.Equal(t, "sip-caller", req.ParticipantIdentity)
	assert.False(t, req.KrispEnabled)
	assert.True(t, req.WaitUntilAnswered)
	assert.NoError(t, req.Validate())
}

func TestTaskGroup_CloseWaitsThenRejects(t *testing.T) {
	var tg taskGroup
	var ran atomic.Int32
	release := make(chan struct{})

	require.True(t, tg.Go(func() {
		<-release
		ran.Add(1)
	}))

	closed := make(chan struct{})
	go func() {
		tg.Close()
		close(closed)
	}()
	close(release)
	<-closed
	assert.Equal(t, int32(1), ran.Load())

	assert.False(t, tg.Go(func() { ran.Add(1) }))
	tg.Close()
	assert.Equal(t, int32(1), ran.Load())
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "not set", maskSecret(""))
	assert.Equal(t, "****", maskSecret("abc"))
	assert.Equal(t, "APIk...", maskSecret("APIkey12"))
	assert.Equal(t, "APIabcde...wxyz", maskSecret("APIabcdefghijklmnopqrstuvwxyz"))
}

func TestStatus_QueriesRunningAgent(t *testing.T) {
	svc := session.NewService(session.Config{}, nil, nil)
	rec, err := recorder.New(recorder.Options{ReportsDir: t.TempDir(), Observer: svc})
	require.NoError(t, err)
	d := session.NewDispatcher(rec, nil, nil)
	svc.Bind(d, rec)

	srv := httptest.NewServer(svc.Handler())
	defer srv.Close()
	addr := strings.TrimPrefix(srv.URL, "http://")

	env, err := session.DecodeEnvelope([]byte(llmLine))
	require.NoError(t, err)
	d.Dispatch(env)

	st, err := fetchStatus(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Recorder.Counts.LLM)
	assert.Equal(t, rec.Path(), st.Recorder.Path)

	t.Cleanup(func() { flagStatusAddr = "" })
	out, err := execute(t, "status", "--addr", addr)
	require.NoError(t, err)
	assert.Contains(t, out, "Agent Status")
	assert.Contains(t, out, rec.Path())
}

func TestStatus_Unreachable(t *testing.T) {
	t.Cleanup(func() { flagStatusAddr = "" })

	out, err := execute(t, "status", "--addr", "127.0.0.1:1")
	require.NoError(t, err)
	assert.Contains(t, out, "unreachable")
}
