// Package config loads bscan settings from defaults, an optional config file,
// BSCAN_* environment variables and command-line flags, in increasing order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/OpenTraceLab/bsio/pkg/bscan"
	"github.com/OpenTraceLab/bsio/pkg/cmsisdap"
	"github.com/OpenTraceLab/bsio/pkg/jtag"
)

const (
	// AppName is the application name and the config directory name.
	AppName = "bscan"
	// ConfigFileName is the config file name without extension.
	ConfigFileName = "bscan"
	// EnvPrefix prefixes every environment override (BSCAN_TAP_FAMILY).
	EnvPrefix = "BSCAN"
)

// Adapter kinds
const (
	AdapterSimulator = string(cmsisdap.InterfaceKindSim)
	AdapterCMSISDAP  = string(cmsisdap.InterfaceKindCMSISDAP)
)

// Config is the resolved configuration
type Config struct {
	Adapter AdapterConfig `mapstructure:"adapter"`
	TAP     TAPConfig     `mapstructure:"tap"`
	Sim     SimConfig     `mapstructure:"sim"`
	Log     LogConfig     `mapstructure:"log"`
}

// AdapterConfig selects and tunes the probe
type AdapterConfig struct {
	Kind    string        `mapstructure:"kind"`
	VID     uint16        `mapstructure:"vid"`
	PID     uint16        `mapstructure:"pid"`
	SpeedHz int           `mapstructure:"speed_hz"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// TAPConfig describes the target
type TAPConfig struct {
	Family      string `mapstructure:"family"`
	ResetClocks int    `mapstructure:"reset_clocks"`
}

// SimConfig shapes the simulated device
type SimConfig struct {
	IDCode     uint32 `mapstructure:"idcode"`
	UserLength int    `mapstructure:"user_length"`
}

// LogConfig controls the CLI logger
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() Config {
	sim := jtag.DefaultSimDevice()
	return Config{
		Adapter: AdapterConfig{
			Kind:    AdapterSimulator,
			VID:     cmsisdap.VendorIDRaspberryPi,
			PID:     cmsisdap.ProductIDCMSISDAP,
			SpeedHz: cmsisdap.DefaultSpeedHz,
			Timeout: cmsisdap.DefaultTimeout,
		},
		TAP: TAPConfig{
			Family:      bscan.FamilyCompact.String(),
			ResetClocks: bscan.DefaultResetClocks,
		},
		Sim: SimConfig{
			IDCode:     sim.IDCode,
			UserLength: sim.UserLength,
		},
		Log: LogConfig{Level: "info"},
	}
}

// flagKeys maps flag names to the keys they override.
var flagKeys = map[string]string{
	"adapter":      "adapter.kind",
	"vid":          "adapter.vid",
	"pid":          "adapter.pid",
	"speed":        "adapter.speed_hz",
	"timeout":      "adapter.timeout",
	"family":       "tap.family",
	"reset-clocks": "tap.reset_clocks",
	"log-level":    "log.level",
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := DefaultConfig()
	fs.String("config", "", "config file (default ./bscan.yaml or $XDG_CONFIG_HOME/bscan/bscan.yaml)")
	fs.String("adapter", d.Adapter.Kind, "adapter kind: simulator or cmsis-dap")
	fs.Uint16("vid", d.Adapter.VID, "probe USB vendor ID")
	fs.Uint16("pid", d.Adapter.PID, "probe USB product ID")
	fs.Int("speed", d.Adapter.SpeedHz, "TCK frequency in Hz")
	fs.Duration("timeout", d.Adapter.Timeout, "USB transfer timeout")
	fs.String("family", d.TAP.Family, "FPGA family: compact (6-bit IR) or extended (10-bit IR)")
	fs.Int("reset-clocks", d.TAP.ResetClocks, "TCK cycles with TMS high used for a TAP reset")
	fs.String("log-level", d.Log.Level, "log level: debug, info, warn, error")
}

// LoadOptions controls Load
type LoadOptions struct {
	// ConfigFile is used exclusively when set and must exist.
	ConfigFile string
	// Flags, when set, override every other source for flags the user changed.
	Flags *pflag.FlagSet
	// SearchPaths replaces the default directories searched for bscan.yaml.
	SearchPaths []string
}

// Load resolves the configuration and returns it with the path of the config
// file that was read, empty when none was found.
func Load(opts LoadOptions) (*Config, string, error) {
	v := viper.New()

	d := DefaultConfig()
	v.SetDefault("adapter.kind", d.Adapter.Kind)
	v.SetDefault("adapter.vid", d.Adapter.VID)
	v.SetDefault("adapter.pid", d.Adapter.PID)
	v.SetDefault("adapter.speed_hz", d.Adapter.SpeedHz)
	v.SetDefault("adapter.timeout", d.Adapter.Timeout)
	v.SetDefault("tap.family", d.TAP.Family)
	v.SetDefault("tap.reset_clocks", d.TAP.ResetClocks)
	v.SetDefault("sim.idcode", d.Sim.IDCode)
	v.SetDefault("sim.user_length", d.Sim.UserLength)
	v.SetDefault("log.level", d.Log.Level)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.Flags != nil {
		for name, key := range flagKeys {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, "", fmt.Errorf("bind flag --%s: %w", name, err)
				}
			}
		}
	}

	resolved, err := readConfigFile(v, opts)
	if err != nil {
		return nil, "", err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, resolved, nil
}

func readConfigFile(v *viper.Viper, opts LoadOptions) (string, error) {
	if opts.ConfigFile != "" {
		if _, err := os.Stat(opts.ConfigFile); err != nil {
			return "", fmt.Errorf("config file not found: %w", err)
		}
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return "", fmt.Errorf("failed to read config %s: %w", opts.ConfigFile, err)
		}
		return opts.ConfigFile, nil
	}

	paths := opts.SearchPaths
	if paths == nil {
		paths = []string{"."}
		if dir, err := os.UserConfigDir(); err == nil {
			paths = append(paths, filepath.Join(dir, AppName))
		}
	}
	v.SetConfigName(ConfigFileName)
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read config: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

// Validate checks values viper cannot type-check
func (c *Config) Validate() error {
	switch c.Adapter.Kind {
	case AdapterSimulator, AdapterCMSISDAP:
	default:
		return fmt.Errorf("adapter.kind: unknown adapter %q (want %s or %s)", c.Adapter.Kind, AdapterSimulator, AdapterCMSISDAP)
	}
	if _, err := c.Family(); err != nil {
		return fmt.Errorf("tap.family: %w", err)
	}
	if c.TAP.ResetClocks < 0 {
		return fmt.Errorf("tap.reset_clocks: must not be negative, got %d", c.TAP.ResetClocks)
	}
	if c.Sim.UserLength <= 0 {
		return fmt.Errorf("sim.user_length: must be positive, got %d", c.Sim.UserLength)
	}
	if _, err := c.LogLevel(); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// Family returns the parsed tap.family value.
func (c *Config) Family() (bscan.Family, error) {
	return bscan.ParseFamily(c.TAP.Family)
}

// LogLevel returns the parsed log.level value.
func (c *Config) LogLevel() (log.Level, error) {
	return log.ParseLevel(c.Log.Level)
}

// SimDevice returns the simulated device described by the sim section.
func (c *Config) SimDevice() jtag.SimDevice {
	dev := jtag.DefaultSimDevice()
	dev.IDCode = c.Sim.IDCode
	dev.UserLength = c.Sim.UserLength
	if f, err := c.Family(); err == nil {
		dev.IRLength = f.IRLength()
	}
	return dev
}
