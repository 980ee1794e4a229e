// Package config loads the scanview JSON configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultConfigPath is the path to the canonical defaults file.
const DefaultConfigPath = "config/scan.defaults.json"

// Defaults for fields left out of the file.
const (
	DefaultMaxProjectionLength = 2500
	DefaultMaxPoints           = 360
	DefaultTrailWidth          = 2
	DefaultFrameDir            = "outputImages"
	DefaultFrameFormat         = "bmp"
	DefaultBaudRate            = 115200
	DefaultUDPListen           = ":21337"
	DefaultClientID            = 1
	DefaultPCAPSpeed           = 1.0
)

// ScanConfig is the root configuration. Every field is optional; the Get*
// methods supply defaults for anything not set.
type ScanConfig struct {
	// Rendering
	MaxProjectionLength *int `json:"max_projection_length,omitempty"`
	MaxPoints           *int `json:"max_points,omitempty"`
	TrailWidth          *int `json:"trail_width,omitempty"`

	// Frame persistence
	FrameDir      *string `json:"frame_dir,omitempty"`
	FrameFormat   *string `json:"frame_format,omitempty"`
	FrameInterval *string `json:"frame_interval,omitempty"` // duration string like "500ms"
	FrameRetain   *int    `json:"frame_retain,omitempty"`

	// Sources
	SerialPort *string  `json:"serial_port,omitempty"`
	BaudRate   *int     `json:"baud_rate,omitempty"`
	UDPListen  *string  `json:"udp_listen,omitempty"`
	ClientID   *int     `json:"client_id,omitempty"`
	PCAPSpeed  *float64 `json:"pcap_speed,omitempty"`
}

func ptrInt(v int) *int             { return &v }
func ptrString(v string) *string    { return &v }
func ptrFloat64(v float64) *float64 { return &v }

// EmptyScanConfig returns a ScanConfig with all fields unset.
func EmptyScanConfig() *ScanConfig {
	return &ScanConfig{}
}

// DefaultScanConfig returns a ScanConfig with every field set to its default.
func DefaultScanConfig() *ScanConfig {
	return &ScanConfig{
		MaxProjectionLength: ptrInt(DefaultMaxProjectionLength),
		MaxPoints:           ptrInt(DefaultMaxPoints),
		TrailWidth:          ptrInt(DefaultTrailWidth),
		FrameDir:            ptrString(DefaultFrameDir),
		FrameFormat:         ptrString(DefaultFrameFormat),
		FrameInterval:       ptrString("0s"),
		FrameRetain:         ptrInt(0),
		SerialPort:          ptrString(""),
		BaudRate:            ptrInt(DefaultBaudRate),
		UDPListen:           ptrString(DefaultUDPListen),
		ClientID:            ptrInt(DefaultClientID),
		PCAPSpeed:           ptrFloat64(DefaultPCAPSpeed),
	}
}

// LoadScanConfig loads a ScanConfig from a JSON file.
// The file must have a .json extension and be under 1MB. Fields omitted from
// the file fall back to their defaults, so partial configs are safe.
func LoadScanConfig(path string) (*ScanConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyScanConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching parent
// directories so tests can call it from any package. Panics if the file
// cannot be loaded.
func MustLoadDefaultConfig() *ScanConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadScanConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the values that are set.
func (c *ScanConfig) Validate() error {
	if c.MaxProjectionLength != nil && *c.MaxProjectionLength < 1 {
		return fmt.Errorf("max_projection_length must be at least 1, got %d", *c.MaxProjectionLength)
	}
	if c.MaxPoints != nil && *c.MaxPoints < 1 {
		return fmt.Errorf("max_points must be at least 1, got %d", *c.MaxPoints)
	}
	if c.TrailWidth != nil && *c.TrailWidth < 1 {
		return fmt.Errorf("trail_width must be at least 1, got %d", *c.TrailWidth)
	}
	if c.FrameFormat != nil {
		switch strings.ToLower(*c.FrameFormat) {
		case "bmp", "png":
		default:
			return fmt.Errorf("frame_format must be bmp or png, got %q", *c.FrameFormat)
		}
	}
	if c.FrameInterval != nil && *c.FrameInterval != "" {
		d, err := time.ParseDuration(*c.FrameInterval)
		if err != nil {
			return fmt.Errorf("invalid frame_interval '%s': %w", *c.FrameInterval, err)
		}
		if d < 0 {
			return fmt.Errorf("frame_interval must not be negative, got %s", *c.FrameInterval)
		}
	}
	if c.FrameRetain != nil && *c.FrameRetain < 0 {
		return fmt.Errorf("frame_retain must be non-negative, got %d", *c.FrameRetain)
	}
	if c.BaudRate != nil && *c.BaudRate <= 0 {
		return fmt.Errorf("baud_rate must be positive, got %d", *c.BaudRate)
	}
	if c.PCAPSpeed != nil && *c.PCAPSpeed < 0 {
		return fmt.Errorf("pcap_speed must be non-negative, got %f", *c.PCAPSpeed)
	}
	return nil
}

// GetMaxProjectionLength returns the max_projection_length value or the default.
func (c *ScanConfig) GetMaxProjectionLength() int {
	if c.MaxProjectionLength == nil {
		return DefaultMaxProjectionLength
	}
	return *c.MaxProjectionLength
}

// GetMaxPoints returns the max_points value or the default.
func (c *ScanConfig) GetMaxPoints() int {
	if c.MaxPoints == nil {
		return DefaultMaxPoints
	}
	return *c.MaxPoints
}

func (c *ScanConfig) GetTrailWidth() int {
	if c.TrailWidth == nil {
		return DefaultTrailWidth
	}
	return *c.TrailWidth
}

func (c *ScanConfig) GetFrameDir() string {
	if c.FrameDir == nil || *c.FrameDir == "" {
		return DefaultFrameDir
	}
	return *c.FrameDir
}

func (c *ScanConfig) GetFrameFormat() string {
	if c.FrameFormat == nil || *c.FrameFormat == "" {
		return DefaultFrameFormat
	}
	return strings.ToLower(*c.FrameFormat)
}

// GetFrameInterval parses and returns frame_interval. Zero saves every frame.
func (c *ScanConfig) GetFrameInterval() time.Duration {
	if c.FrameInterval == nil || *c.FrameInterval == "" {
		return 0
	}
	d, err := time.ParseDuration(*c.FrameInterval)
	if err != nil {
		return 0 // default on parse error
	}
	return d
}

// GetFrameRetain returns frame_retain; zero keeps every frame.
func (c *ScanConfig) GetFrameRetain() int {
	if c.FrameRetain == nil {
		return 0
	}
	return *c.FrameRetain
}

// GetSerialPort returns serial_port; empty means pick the last port found.
func (c *ScanConfig) GetSerialPort() string {
	if c.SerialPort == nil {
		return ""
	}
	return *c.SerialPort
}

func (c *ScanConfig) GetBaudRate() int {
	if c.BaudRate == nil {
		return DefaultBaudRate
	}
	return *c.BaudRate
}

func (c *ScanConfig) GetUDPListen() string {
	if c.UDPListen == nil || *c.UDPListen == "" {
		return DefaultUDPListen
	}
	return *c.UDPListen
}

func (c *ScanConfig) GetClientID() int {
	if c.ClientID == nil {
		return DefaultClientID
	}
	return *c.ClientID
}

// GetPCAPSpeed returns the replay speed multiplier; zero replays without
// pacing.
func (c *ScanConfig) GetPCAPSpeed() float64 {
	if c.PCAPSpeed == nil {
		return DefaultPCAPSpeed
	}
	return *c.PCAPSpeed
}
