// Command edgevox-receiver binds a local UDP endpoint, parses inbound RTP
// audio, and prints the RMS level of every received frame.
package main

import (
	"fmt"
	"math"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HCL-Hbot/edge-vox/pkg/rtp"
)

func rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func main() {
	cmd := &cobra.Command{
		Use:   "edgevox-receiver <local_ip> <port>",
		Short: "Receive RTP audio and print per-frame RMS level",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			port, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid port %q: %w", args[1], err)
			}

			logger, _ := zap.NewProduction()
			defer logger.Sync()

			rcv, err := rtp.NewReceiver(args[0], port, nil)
			if err != nil {
				return fmt.Errorf("new receiver: %w", err)
			}
			rcv.SetAudioCallback(func(samples []float32) {
				fmt.Printf("frame: %d samples, rms=%.4f\n", len(samples), rms(samples))
			})
			if err := rcv.Start(); err != nil {
				return fmt.Errorf("start: %w", err)
			}
			logger.Info("listening", zap.String("localIP", args[0]), zap.Int("port", port))

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			<-sigCh

			logger.Info("shutting down")
			return rcv.Stop()
		},
	}

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
