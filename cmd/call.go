package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AmarBackInField/proPAL-AI/internal/cli"
	"github.com/AmarBackInField/proPAL-AI/internal/config"
	"github.com/AmarBackInField/proPAL-AI/internal/sip"
)

var (
	flagCallPhone    string
	flagCallTrunk    string
	flagCallRoom     string
	flagCallIdentity string
	flagCallName     string
	flagCallNoKrisp  bool
	flagCallNoWait   bool
)

var callCmd = &cobra.Command{
	Use:   "call",
	Short: "Place an outbound phone call into the agent's room",
	Long: "Create a SIP participant through the LiveKit API so the voice agent can talk\n" +
		"to a phone number. Run `propal agent` first. Credentials come from\n" +
		"LIVEKIT_URL, LIVEKIT_API_KEY and LIVEKIT_API_SECRET or the [livekit] config.",
	RunE: runCall,
}

func init() {
	callCmd.Flags().StringVar(&flagCallPhone, "phone", "", "Number to call in E.164 format (default from config)")
	callCmd.Flags().StringVar(&flagCallTrunk, "trunk", "", "SIP trunk id (default from config)")
	callCmd.Flags().StringVar(&flagCallRoom, "room", "", "Room name (default from config)")
	callCmd.Flags().StringVar(&flagCallIdentity, "identity", "", "Participant identity (default from config)")
	callCmd.Flags().StringVar(&flagCallName, "name", "", "Participant display name (default from config)")
	callCmd.Flags().BoolVar(&flagCallNoKrisp, "no-krisp", false, "Disable Krisp noise cancellation")
	callCmd.Flags().BoolVar(&flagCallNoWait, "no-wait", false, "Return before the call is answered")
	rootCmd.AddCommand(callCmd)
}

func runCall(_ *cobra.Command, _ []string) error {
	env, err := loadEnv()
	if err != nil {
		return err
	}
	defer func() { _ = env.log.Sync() }()

	req := callRequest(env.cfg.LiveKit)
	console := cli.NewConsole(cmdOut())

	console.Line(cli.ColorAccent, true, "propal - Outbound Call Initiator")
	console.Print(strings.Repeat("=", 50) + "\n")

	if err := req.Validate(); err != nil {
		return err
	}

	url, key, secret := config.LiveKitCredentials(env.cfg)
	client, err := sip.NewClient(url, key, secret)
	if err != nil {
		printCallHints(console, err)
		return err
	}

	console.Info("Initiating outbound call...")
	console.Dim("Connecting to LiveKit API at %s", url)
	console.Info("Calling %s...", req.SIPCallTo)
	console.Info("Room: %s", req.RoomName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	info, err := client.CreateSIPParticipant(ctx, req)
	if err != nil {
		env.log.Error("create sip participant failed", zap.Error(err))
		printCallHints(console, err)
		return err
	}
	took := time.Since(start)

	env.log.Info("sip participant created",
		zap.String("participant_id", info.ParticipantID),
		zap.String("sip_call_id", info.SIPCallID),
		zap.Duration("took", took),
	)
	console.Success("Connection established in %.2f seconds", took.Seconds())
	console.Print(fmt.Sprintf("* Participant ID: %s\n", info.ParticipantID))
	console.Print(fmt.Sprintf("* SIP Call ID: %s\n", info.SIPCallID))
	console.Print(fmt.Sprintf("* Room: %s\n", info.RoomName))
	console.Print(strings.Repeat("-", 50) + "\n")
	console.Print("* The AI assistant should now be speaking to the caller\n")
	console.Print("* Metrics are being logged in real-time\n")
	return nil
}

func callRequest(lk config.LiveKitConfig) sip.CreateParticipantRequest {
	return sip.CreateParticipantRequest{
		SIPTrunkID:          firstNonEmpty(flagCallTrunk, lk.SIPTrunkID),
		SIPCallTo:           firstNonEmpty(flagCallPhone, lk.PhoneNumber),
		RoomName:            firstNonEmpty(flagCallRoom, lk.Room),
		ParticipantIdentity: firstNonEmpty(flagCallIdentity, lk.ParticipantIdentity),
		ParticipantName:     firstNonEmpty(flagCallName, lk.ParticipantName),
		KrispEnabled:        lk.KrispEnabled && !flagCallNoKrisp,
		WaitUntilAnswered:   lk.WaitUntilAnswered && !flagCallNoWait,
	}
}

func printCallHints(console *cli.Console, err error) {
	console.Error("Error creating SIP participant: %v", err)
	switch {
	case errors.Is(err, sip.ErrUnauthorized):
		console.Warn("Check LIVEKIT_API_KEY and LIVEKIT_API_SECRET")
	case errors.Is(err, sip.ErrNotFound):
		console.Warn("Check the SIP trunk id (--trunk or [livekit] sip_trunk_id)")
	}
	console.Print(" Make sure:\n")
	console.Print("   1. Your agent is running first\n")
	console.Print("   2. SIP trunk ID is correct\n")
	console.Print("   3. Phone number format is correct\n")
	console.Print("   4. LiveKit credentials are set\n")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
