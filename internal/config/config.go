package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dkeye/talkabout/internal/app/waitroom"
	"github.com/dkeye/talkabout/internal/domain"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type CountdownConfig struct {
	Ticks     int           `mapstructure:"ticks"`
	Interval  time.Duration `mapstructure:"interval"`
	AutoStart bool          `mapstructure:"auto_start"`
}

type LaunchConfig struct {
	CallBaseURL    string        `mapstructure:"call_base_url"`
	RoomPrefix     string        `mapstructure:"room_prefix"`
	LookupTimeout  time.Duration `mapstructure:"lookup_timeout"`
	Retries        int           `mapstructure:"retries"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	MarkAttendance bool          `mapstructure:"mark_attendance"`
	LaunchedTTL    time.Duration `mapstructure:"launched_ttl"`
}

type SignalConfig struct {
	RateLimit  float64 `mapstructure:"rate_limit"`
	RateBurst  int     `mapstructure:"rate_burst"`
	SendBuffer int     `mapstructure:"send_buffer"`
}

// SeedSlot is a slot loaded into the store at startup.
type SeedSlot struct {
	Slot     string   `mapstructure:"slot"`
	Capacity int      `mapstructure:"capacity"`
	Enrolled []string `mapstructure:"enrolled"`
}

type StoreConfig struct {
	Driver string     `mapstructure:"driver"`
	Path   string     `mapstructure:"path"`
	Seed   []SeedSlot `mapstructure:"seed"`
}

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	LogLevel   string        `mapstructure:"log_level"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`

	Countdown CountdownConfig `mapstructure:"countdown"`
	Launch    LaunchConfig    `mapstructure:"launch"`
	Signal    SignalConfig    `mapstructure:"signal"`
	Store     StoreConfig     `mapstructure:"store"`
}

const envPrefix = "WAITROOM"

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("secret", "change-me")

	v.SetDefault("countdown.ticks", 10)
	v.SetDefault("countdown.interval", "1s")
	v.SetDefault("countdown.auto_start", true)

	v.SetDefault("launch.call_base_url", "https://meet.jit.si")
	v.SetDefault("launch.room_prefix", "talkabout")
	v.SetDefault("launch.lookup_timeout", "5s")
	v.SetDefault("launch.retries", 2)
	v.SetDefault("launch.retry_delay", "250ms")
	v.SetDefault("launch.mark_attendance", false)
	v.SetDefault("launch.launched_ttl", "24h")

	v.SetDefault("signal.rate_limit", 5)
	v.SetDefault("signal.rate_burst", 10)
	v.SetDefault("signal.send_buffer", 32)

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.path", "./data/talkabout.db")
}

// Load reads config/config.<CONFIG_ENV>.yaml, falling back to defaults when
// the file is missing. WAITROOM_* variables, also read from .env, override
// file values; nested keys use underscores (WAITROOM_COUNTDOWN_TICKS).
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("module", "config").Msg("read .env")
	}

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("store", cfg.Store.Driver).Msg("config ready")
	return &cfg, nil
}

var ErrInvalidConfig = errors.New("invalid config")

func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.Countdown.Ticks < 1 {
		errs = append(errs, fmt.Errorf("countdown.ticks must be positive, got %d", c.Countdown.Ticks))
	}
	if c.Countdown.Interval <= 0 {
		errs = append(errs, fmt.Errorf("countdown.interval must be positive, got %s", c.Countdown.Interval))
	}
	if c.Launch.Retries < 0 {
		errs = append(errs, fmt.Errorf("launch.retries must not be negative, got %d", c.Launch.Retries))
	}
	if c.Launch.LookupTimeout <= 0 {
		errs = append(errs, fmt.Errorf("launch.lookup_timeout must be positive, got %s", c.Launch.LookupTimeout))
	}
	if c.Launch.LaunchedTTL < 0 {
		errs = append(errs, fmt.Errorf("launch.launched_ttl must not be negative, got %s", c.Launch.LaunchedTTL))
	}
	switch c.Store.Driver {
	case "memory":
	case "sqlite", "badger":
		if c.Store.Path == "" {
			errs = append(errs, fmt.Errorf("store.path required for driver %q", c.Store.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.driver %q", c.Store.Driver))
	}
	for i, seed := range c.Store.Seed {
		if seed.Slot == "" {
			errs = append(errs, fmt.Errorf("store.seed[%d]: slot required", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Settings is the waiting-room view of the config.
func (c *Config) Settings() waitroom.Settings {
	return waitroom.Settings{
		Ticks:          c.Countdown.Ticks,
		Interval:       c.Countdown.Interval,
		AutoStart:      c.Countdown.AutoStart,
		LookupTimeout:  c.Launch.LookupTimeout,
		LookupRetries:  c.Launch.Retries,
		RetryDelay:     c.Launch.RetryDelay,
		MarkAttendance: c.Launch.MarkAttendance,
		LaunchedTTL:    c.Launch.LaunchedTTL,
	}
}

func (c *Config) Seeds() []domain.SlotSeed {
	out := make([]domain.SlotSeed, 0, len(c.Store.Seed))
	for _, s := range c.Store.Seed {
		seed := domain.SlotSeed{Slot: domain.SlotID(s.Slot), Capacity: s.Capacity}
		for _, p := range s.Enrolled {
			seed.Enrolled = append(seed.Enrolled, domain.ParticipantID(p))
		}
		out = append(out, seed)
	}
	return out
}
