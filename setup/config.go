package setup

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration reads "30s" style values from TOML.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

type JudgeConfig struct {
	URL          string   `toml:"url"`
	APIKey       string   `toml:"api_key"`
	RapidAPIHost string   `toml:"rapidapi_host"`
	AuthToken    string   `toml:"auth_token"`
	Timeout      Duration `toml:"timeout"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Pretty bool   `toml:"pretty"`
}

type Config struct {
	HTTPAddr       string      `toml:"http_addr"`
	CORSOrigins    []string    `toml:"cors_origins"`
	ProblemsFile   string      `toml:"problems_file"`
	MaxParallel    int         `toml:"max_parallel"`
	ResultCacheTTL Duration    `toml:"result_cache_ttl"`
	EventBuffer    int         `toml:"event_buffer"`
	DBURL          string      `toml:"db_url"`
	MQURL          string      `toml:"mq_url"`
	Judge          JudgeConfig `toml:"judge"`
	Log            LogConfig   `toml:"log"`
}

func Default() Config {
	return Config{
		HTTPAddr:       ":8000",
		CORSOrigins:    []string{"http://localhost:3000"},
		ProblemsFile:   "problems.jsonl",
		ResultCacheTTL: Duration(10 * time.Minute),
		EventBuffer:    256,
		Judge: JudgeConfig{
			URL:     "http://localhost:2358",
			Timeout: Duration(30 * time.Second),
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadFile overlays the TOML file at path onto cfg.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http address must not be empty"))
	}
	if u, err := url.Parse(c.Judge.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("judge url %q is not an absolute URL", c.Judge.URL))
	}
	if c.Judge.Timeout <= 0 {
		errs = append(errs, errors.New("judge timeout must be positive"))
	}
	if c.MaxParallel < 0 {
		errs = append(errs, errors.New("max parallel must not be negative"))
	}
	if c.ResultCacheTTL <= 0 {
		errs = append(errs, errors.New("result cache ttl must be positive"))
	}
	if c.EventBuffer <= 0 {
		errs = append(errs, errors.New("event buffer must be positive"))
	}
	return errors.Join(errs...)
}
