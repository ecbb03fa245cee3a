package config

import (
	"os"
	"time"

	"codeberg.org/sorrel/hatctl/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configName = "hatctl"
	configPath = "/etc"

	// ConfigEnvVar overrides the config file location when set.
	ConfigEnvVar = "HATCTL_CONFIG"

	defaultInterface         = "eth0"
	defaultRenderInterval    = 250 * time.Millisecond
	defaultTelemetryInterval = time.Second
	defaultFanInterval       = 5 * time.Second
	defaultButtonInterval    = 20 * time.Millisecond
	defaultDiskTempInterval  = time.Minute
	defaultSPIDevice         = "SPI0.0"
	defaultResetPin          = "GPIO27"
	defaultDCPin             = "GPIO25"
	defaultBacklightPin      = "GPIO18"
	defaultFanPin            = "GPIO19"
	defaultButtonPin         = "GPIO20"
	defaultDatabase          = "/var/lib/hatctl/telemetry.db"

	// Button sampling must resolve press durations well under the
	// 0.5s short-press threshold.
	maxButtonInterval = 50 * time.Millisecond
)

type Config struct {
	Interface         string        `mapstructure:"interface"`
	Disks             []string      `mapstructure:"disks"`
	RenderInterval    time.Duration `mapstructure:"render_interval"`
	TelemetryInterval time.Duration `mapstructure:"telemetry_interval"`
	FanInterval       time.Duration `mapstructure:"fan_interval"`
	ButtonInterval    time.Duration `mapstructure:"button_interval"`
	DiskTempInterval  time.Duration `mapstructure:"disk_temp_interval"`
	SPIDevice         string        `mapstructure:"spi_device"`
	ResetPin          string        `mapstructure:"reset_pin"`
	DCPin             string        `mapstructure:"dc_pin"`
	BacklightPin      string        `mapstructure:"backlight_pin"`
	FanPin            string        `mapstructure:"fan_pin"`
	ButtonPin         string        `mapstructure:"button_pin"`
	Telemetry         bool          `mapstructure:"telemetry"`
	Database          string        `mapstructure:"database"`
	Monitor           bool          `mapstructure:"monitor"`
	Debug             bool          `mapstructure:"debug"`
	Verbose           bool          `mapstructure:"verbose"`
}

func Load() (*Config, error) {
	errFactory := errors.New()

	flags := pflag.NewFlagSet(configName, pflag.ContinueOnError)
	flags.Bool("debug", false, "Enable debugging mode")
	flags.Bool("verbose", false, "Enable verbose logging")
	flags.Bool("monitor", false, "Only monitor telemetry, do not drive outputs")
	flags.String("interface", "", "Network interface to report throughput for")
	flags.Duration("render-interval", 0, "Display refresh interval")
	flags.Duration("telemetry-interval", 0, "Telemetry poll interval")
	flags.Duration("fan-interval", 0, "Fan control interval")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	v := viper.New()
	setDefaults(v)

	if path := os.Getenv(ConfigEnvVar); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("toml")
		v.AddConfigPath(configPath)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && v.ConfigFileUsed() != "" {
			if _, statErr := os.Stat(v.ConfigFileUsed()); statErr == nil {
				return nil, errFactory.Wrap(errors.ErrReadConfig, err)
			}
		}
	}

	// Flags override file values
	flags.Visit(func(f *pflag.Flag) {
		key := flagToKey(f.Name)
		if f.Value.Type() == "bool" {
			b, _ := flags.GetBool(f.Name)
			v.Set(key, b)
			return
		}
		v.Set(key, f.Value.String())
	})

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("interface", defaultInterface)
	v.SetDefault("disks", []string{"sda", "sdb"})
	v.SetDefault("render_interval", defaultRenderInterval)
	v.SetDefault("telemetry_interval", defaultTelemetryInterval)
	v.SetDefault("fan_interval", defaultFanInterval)
	v.SetDefault("button_interval", defaultButtonInterval)
	v.SetDefault("disk_temp_interval", defaultDiskTempInterval)
	v.SetDefault("spi_device", defaultSPIDevice)
	v.SetDefault("reset_pin", defaultResetPin)
	v.SetDefault("dc_pin", defaultDCPin)
	v.SetDefault("backlight_pin", defaultBacklightPin)
	v.SetDefault("fan_pin", defaultFanPin)
	v.SetDefault("button_pin", defaultButtonPin)
	v.SetDefault("telemetry", false)
	v.SetDefault("database", defaultDatabase)
	v.SetDefault("monitor", false)
	v.SetDefault("debug", false)
	v.SetDefault("verbose", false)
}

func flagToKey(name string) string {
	switch name {
	case "render-interval":
		return "render_interval"
	case "telemetry-interval":
		return "telemetry_interval"
	case "fan-interval":
		return "fan_interval"
	default:
		return name
	}
}

// Validate fails fast on malformed values before any loop starts.
func (c *Config) Validate() error {
	errFactory := errors.New()

	for name, interval := range map[string]time.Duration{
		"render_interval":    c.RenderInterval,
		"telemetry_interval": c.TelemetryInterval,
		"fan_interval":       c.FanInterval,
		"button_interval":    c.ButtonInterval,
		"disk_temp_interval": c.DiskTempInterval,
	} {
		if interval <= 0 {
			return errFactory.WithData(errors.ErrInvalidInterval, name)
		}
	}

	if c.ButtonInterval > maxButtonInterval {
		return errFactory.WithData(errors.ErrInvalidInterval,
			"button_interval must sample at 20Hz or faster")
	}

	if len(c.Disks) != 2 {
		return errFactory.WithData(errors.ErrInvalidConfig, "exactly two disk identifiers required")
	}

	if c.Interface == "" {
		return errFactory.WithData(errors.ErrInvalidConfig, "interface must not be empty")
	}

	if c.Telemetry && c.Database == "" {
		return errFactory.WithData(errors.ErrInvalidConfig, "database path required when telemetry is enabled")
	}

	return nil
}
