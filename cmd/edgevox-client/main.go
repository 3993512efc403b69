// Command edgevox-client streams microphone audio to an edgevox receiver
// over RTP/UDP and prints forwarded control-channel status lines.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HCL-Hbot/edge-vox/client"
	"github.com/HCL-Hbot/edge-vox/internal/config"
)

func main() {
	var (
		sampleRate  int
		bufferMs    int
		controlPort int
		packetSize  int
	)

	cmd := &cobra.Command{
		Use:   "edgevox-client <server_ip> <rtp_port>",
		Short: "Stream captured audio to an edgevox receiver over RTP",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			rtpPort, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid rtp_port %q: %w", args[1], err)
			}

			logger, _ := zap.NewProduction()
			defer logger.Sync()

			audioCfg := config.DefaultAudioConfig()
			audioCfg.SampleRate = sampleRate
			audioCfg.BufferMs = bufferMs

			streamCfg := config.DefaultStreamConfig()
			streamCfg.ServerIP = args[0]
			streamCfg.RtpPort = rtpPort
			streamCfg.ControlPort = controlPort
			streamCfg.PacketSize = packetSize

			c := client.New(logger, audioCfg, streamCfg)
			c.SetStatusCallback(func(status string) {
				fmt.Println("status:", status)
			})

			if err := c.Connect(args[0], rtpPort); err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			if err := c.StartStream(); err != nil {
				return fmt.Errorf("start_stream: %w", err)
			}
			logger.Info("streaming", zap.String("server", args[0]), zap.Int("rtpPort", rtpPort))

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			<-sigCh

			logger.Info("shutting down")
			return c.Disconnect()
		},
	}

	cmd.Flags().IntVar(&sampleRate, "sample-rate", config.DefaultAudioConfig().SampleRate, "capture sample rate in Hz")
	cmd.Flags().IntVar(&bufferMs, "buffer-ms", config.DefaultAudioConfig().BufferMs, "capture ring buffer window in ms")
	cmd.Flags().IntVar(&controlPort, "control-port", config.DefaultStreamConfig().ControlPort, "control channel port")
	cmd.Flags().IntVar(&packetSize, "packet-size", config.DefaultStreamConfig().PacketSize, "maximum RTP payload size in bytes")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
