// Package config loads the audio and stream configuration structs named in
// spec §6, applying EDGEVOX_*-prefixed environment overrides on top of the
// documented defaults.
package config

import (
	"os"
	"strconv"
)

// AudioConfig configures the capture/playback device format and window.
type AudioConfig struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	BufferMs      int
}

// StreamConfig configures the RTP destination and control channel.
type StreamConfig struct {
	ServerIP     string
	RtpPort      int
	ControlPort  int
	PacketSize   int
	ControlTopic string
}

// DefaultAudioConfig returns the documented defaults.
func DefaultAudioConfig() AudioConfig {
	return AudioConfig{
		SampleRate:    48000,
		Channels:      1,
		BitsPerSample: 16,
		BufferMs:      30,
	}
}

// DefaultStreamConfig returns the documented defaults.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		RtpPort:      5004,
		ControlPort:  1883,
		PacketSize:   512,
		ControlTopic: "status/server",
	}
}

// LoadAudioConfig applies EDGEVOX_* environment overrides to the defaults.
func LoadAudioConfig() AudioConfig {
	c := DefaultAudioConfig()
	c.SampleRate = getEnvInt("EDGEVOX_SAMPLE_RATE", c.SampleRate)
	c.Channels = getEnvInt("EDGEVOX_CHANNELS", c.Channels)
	c.BitsPerSample = getEnvInt("EDGEVOX_BITS_PER_SAMPLE", c.BitsPerSample)
	c.BufferMs = getEnvInt("EDGEVOX_BUFFER_MS", c.BufferMs)
	return c
}

// LoadStreamConfig applies EDGEVOX_* environment overrides to the defaults.
func LoadStreamConfig() StreamConfig {
	c := DefaultStreamConfig()
	c.ServerIP = getEnv("EDGEVOX_SERVER_IP", c.ServerIP)
	c.RtpPort = getEnvInt("EDGEVOX_RTP_PORT", c.RtpPort)
	c.ControlPort = getEnvInt("EDGEVOX_CONTROL_PORT", c.ControlPort)
	c.PacketSize = getEnvInt("EDGEVOX_PACKET_SIZE", c.PacketSize)
	c.ControlTopic = getEnv("EDGEVOX_CONTROL_TOPIC", c.ControlTopic)
	return c
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
