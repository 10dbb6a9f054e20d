// Package config loads server configuration from defaults, an optional
// YAML file and COMMNET_* environment variables, in increasing priority.
//
// Nested keys map to environment variables with dots replaced by
// underscores, e.g. layout.tick_interval -> COMMNET_LAYOUT_TICK_INTERVAL.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/signalsfoundry/comms-designer/core"
	"github.com/signalsfoundry/comms-designer/internal/observability"
	"github.com/signalsfoundry/comms-designer/timectrl"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "COMMNET"

// Config is the full server configuration.
type Config struct {
	ListenAddress  string `mapstructure:"listen_address" validate:"required"`
	MetricsAddress string `mapstructure:"metrics_address"`
	ScenarioPath   string `mapstructure:"scenario_path"`

	Log     LogConfig     `mapstructure:"log"`
	Tracing TracingConfig `mapstructure:"tracing"`
	Layout  LayoutConfig  `mapstructure:"layout"`
}

// LogConfig mirrors logging.Config.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn warning error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// TracingConfig mirrors observability.TracingConfig.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Exporter    string  `mapstructure:"exporter" validate:"oneof=stdout otlp otlpgrpc"`
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio" validate:"gte=0,lte=1"`
}

// LayoutConfig holds canvas geometry, force constants and tick pacing.
type LayoutConfig struct {
	Width        float64       `mapstructure:"width" validate:"gt=0"`
	Height       float64       `mapstructure:"height" validate:"gt=0"`
	Padding      float64       `mapstructure:"padding" validate:"gte=0"`
	MaxTicks     int           `mapstructure:"max_ticks" validate:"gt=0"`
	KRepulse     float64       `mapstructure:"k_repulse" validate:"gte=0"`
	KAttract     float64       `mapstructure:"k_attract" validate:"gte=0"`
	TargetLength float64       `mapstructure:"target_length" validate:"gte=0"`
	KGravity     float64       `mapstructure:"k_gravity" validate:"gte=0"`
	MaxZoom      float64       `mapstructure:"max_zoom" validate:"gt=0"`
	TickInterval time.Duration `mapstructure:"tick_interval" validate:"gt=0"`
	Mode         string        `mapstructure:"mode" validate:"oneof=realtime accelerated"`
}

// ErrInvalid wraps every validation failure returned by Load.
var ErrInvalid = errors.New("invalid configuration")

func setDefaults(v *viper.Viper) {
	layout := core.DefaultLayoutParams()

	v.SetDefault("listen_address", ":50051")
	v.SetDefault("metrics_address", ":9090")
	v.SetDefault("scenario_path", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.exporter", "stdout")
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.service_name", observability.DefaultServiceName)
	v.SetDefault("tracing.sample_ratio", 1.0)

	v.SetDefault("layout.width", layout.Width)
	v.SetDefault("layout.height", layout.Height)
	v.SetDefault("layout.padding", layout.Padding)
	v.SetDefault("layout.max_ticks", layout.MaxTicks)
	v.SetDefault("layout.k_repulse", layout.KRepulse)
	v.SetDefault("layout.k_attract", layout.KAttract)
	v.SetDefault("layout.target_length", layout.TargetLength)
	v.SetDefault("layout.k_gravity", layout.KGravity)
	v.SetDefault("layout.max_zoom", layout.MaxZoom)
	v.SetDefault("layout.tick_interval", "30ms")
	v.SetDefault("layout.mode", "realtime")
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment are used.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
	cfg.Tracing.Exporter = strings.ToLower(cfg.Tracing.Exporter)
	cfg.Layout.Mode = strings.ToLower(cfg.Layout.Mode)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration produced by Load with no file and a
// clean environment.
func Default() Config {
	layout := core.DefaultLayoutParams()
	return Config{
		ListenAddress:  ":50051",
		MetricsAddress: ":9090",
		Log:            LogConfig{Level: "info", Format: "text"},
		Tracing: TracingConfig{
			Exporter:    "stdout",
			ServiceName: observability.DefaultServiceName,
			SampleRatio: 1,
		},
		Layout: LayoutConfig{
			Width:        layout.Width,
			Height:       layout.Height,
			Padding:      layout.Padding,
			MaxTicks:     layout.MaxTicks,
			KRepulse:     layout.KRepulse,
			KAttract:     layout.KAttract,
			TargetLength: layout.TargetLength,
			KGravity:     layout.KGravity,
			MaxZoom:      layout.MaxZoom,
			TickInterval: 30 * time.Millisecond,
			Mode:         "realtime",
		},
	}
}

var validate = validator.New()

// Validate checks field ranges and enumerations.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		if 2*c.Layout.Padding >= c.Layout.Width || 2*c.Layout.Padding >= c.Layout.Height {
			return fmt.Errorf("%w: layout padding %.0f leaves no drawable area", ErrInvalid, c.Layout.Padding)
		}
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: %s %s", fe.Namespace(), fe.Tag(), fe.Param()))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

// LayoutParams converts the layout section for the physics engine.
func (c Config) LayoutParams() core.LayoutParams {
	l := c.Layout
	return core.LayoutParams{
		Width:        l.Width,
		Height:       l.Height,
		Padding:      l.Padding,
		MaxTicks:     l.MaxTicks,
		KRepulse:     l.KRepulse,
		KAttract:     l.KAttract,
		TargetLength: l.TargetLength,
		KGravity:     l.KGravity,
		MaxZoom:      l.MaxZoom,
	}
}

// TickMode converts the layout pacing mode.
func (c Config) TickMode() timectrl.Mode {
	m, _ := timectrl.ParseMode(c.Layout.Mode)
	return m
}

// TracingConfig converts the tracing section.
func (c Config) TracingConfig() observability.TracingConfig {
	t := c.Tracing
	return observability.TracingConfig{
		Enabled:     t.Enabled,
		ServiceName: t.ServiceName,
		Exporter:    t.Exporter,
		Endpoint:    t.Endpoint,
		SampleRatio: t.SampleRatio,
	}
}
