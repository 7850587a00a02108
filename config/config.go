// dashapi/config/config.go
package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Config struct {
	Port             string        `mapstructure:"PORT"`
	PythonBin        string        `mapstructure:"PYTHON_BIN"`
	DestDir          string        `mapstructure:"DEST_DIR"`
	ExtractTimeout   time.Duration `mapstructure:"EXTRACT_TIMEOUT"`
	ProbeTimeout     time.Duration `mapstructure:"PROBE_TIMEOUT"`
	MaxConcurrency   int           `mapstructure:"MAX_CONCURRENCY"`
	GraceWindow      time.Duration `mapstructure:"GRACE_WINDOW"`
	JobTTL           time.Duration `mapstructure:"JOB_TTL"`
	ThrottleCPU      float64       `mapstructure:"THROTTLE_CPU"`
	ThrottleFreeMem  int64         `mapstructure:"THROTTLE_FREEMEM"`
	ThrottleFreeDisk int64         `mapstructure:"THROTTLE_FREEDISK"`
	MaxProxySize     int64         `mapstructure:"MAX_PROXY_SIZE"`
	RateLimit        float64       `mapstructure:"RATE_LIMIT"`
	RateBurst        int           `mapstructure:"RATE_BURST"`
	UserAgent        string        `mapstructure:"USER_AGENT"`
	OpenRouterKey    string        `mapstructure:"OPENROUTER_KEY"`
	OpenRouterModel  string        `mapstructure:"OPENROUTER_MODEL"`
	OpenRouterBase   string        `mapstructure:"OPENROUTER_BASE"`
	ScriptDir        string
}

// stringToDurationHookFunc is a custom Viper hook for parsing Go's duration strings.
func stringToDurationHookFunc() mapstructure.DecodeHookFunc {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		return time.ParseDuration(data.(string))
	}
}

// stringToByteSizeHookFunc is a custom Viper hook for parsing human-readable size strings.
func stringToByteSizeHookFunc() mapstructure.DecodeHookFunc {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String || t.Kind() != reflect.Int64 {
			return data, nil
		}

		var size datasize.ByteSize
		err := size.UnmarshalText([]byte(data.(string)))
		if err != nil {
			// Not a valid size string, let other parsers handle it.
			return data, nil
		}

		return int64(size.Bytes()), nil
	}
}

func Load() (*Config, error) {
	// The completion-API credential usually lives in a .env file next to the binary.
	_ = godotenv.Load()

	vp := viper.New()

	vp.SetDefault("PORT", "3001")
	vp.SetDefault("PYTHON_BIN", "python3")
	vp.SetDefault("DEST_DIR", "")
	vp.SetDefault("EXTRACT_TIMEOUT", "30m")
	vp.SetDefault("PROBE_TIMEOUT", "90s")
	vp.SetDefault("MAX_CONCURRENCY", 2)
	vp.SetDefault("GRACE_WINDOW", "2s")
	vp.SetDefault("JOB_TTL", "1h")
	vp.SetDefault("THROTTLE_CPU", 50.0)
	vp.SetDefault("THROTTLE_FREEMEM", "200MB")
	vp.SetDefault("THROTTLE_FREEDISK", "500MB")
	vp.SetDefault("MAX_PROXY_SIZE", "4GB")
	vp.SetDefault("RATE_LIMIT", 50.0)
	vp.SetDefault("RATE_BURST", 100)
	vp.SetDefault("USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	vp.SetDefault("OPENROUTER_KEY", os.Getenv("OPENROUTER_API_KEY"))
	vp.SetDefault("OPENROUTER_MODEL", "x-ai/grok-4.1-fast:free")
	vp.SetDefault("OPENROUTER_BASE", "https://openrouter.ai/api/v1")

	// Load from config file
	vp.SetConfigName("dashapi_config")
	vp.SetConfigType("yaml")
	vp.AddConfigPath(".")
	vp.AddConfigPath("/etc/dashapi/")

	if err := vp.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	// Load from environment variables
	vp.SetEnvPrefix("DASHAPI")
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	var cfg Config
	err := vp.Unmarshal(&cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			stringToDurationHookFunc(),
			stringToByteSizeHookFunc(),
		),
	))
	if err != nil {
		return nil, err
	}

	if cfg.DestDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		cfg.DestDir = filepath.Join(home, "Downloads")
	}

	return &cfg, nil
}
