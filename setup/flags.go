package setup

import (
	"github.com/urfave/cli/v3"
)

// Flags returns the command line flags shared by all commands. Each flag can
// also be given through the environment (or a .env file).
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "TOML configuration file", Sources: cli.EnvVars("CONFIG_FILE")},
		&cli.StringFlag{Name: "http-addr", Usage: "address the HTTP API listens on", Sources: cli.EnvVars("HTTP_ADDR")},
		&cli.StringSliceFlag{Name: "cors-origins", Usage: "origins allowed to call the API from a browser", Sources: cli.EnvVars("CORS_ORIGINS")},
		&cli.StringFlag{Name: "problems-file", Aliases: []string{"p"}, Usage: "newline-delimited JSON problem file, optionally .zst", Sources: cli.EnvVars("PROBLEMS_FILE")},
		&cli.IntFlag{Name: "max-parallel", Usage: "judge calls in flight per submission, 0 for unlimited", Sources: cli.EnvVars("MAX_PARALLEL")},
		&cli.DurationFlag{Name: "result-cache-ttl", Usage: "how long finished judge results are kept", Sources: cli.EnvVars("RESULT_CACHE_TTL")},
		&cli.StringFlag{Name: "judge-url", Usage: "Judge0 base URL", Sources: cli.EnvVars("JUDGE0_URL")},
		&cli.StringFlag{Name: "judge-api-key", Usage: "Judge0 API key", Sources: cli.EnvVars("JUDGE0_API_KEY")},
		&cli.StringFlag{Name: "judge-rapidapi-host", Usage: "RapidAPI host of a managed Judge0", Sources: cli.EnvVars("JUDGE0_RAPIDAPI_HOST")},
		&cli.StringFlag{Name: "judge-auth-token", Usage: "X-Auth-Token of a self-hosted Judge0", Sources: cli.EnvVars("JUDGE0_AUTH_TOKEN")},
		&cli.DurationFlag{Name: "judge-timeout", Usage: "timeout of a single judge call", Sources: cli.EnvVars("JUDGE0_TIMEOUT")},
		&cli.StringFlag{Name: "db-url", Usage: "Postgres URL for judge run history, empty to disable", Sources: cli.EnvVars("DB_URL")},
		&cli.StringFlag{Name: "mq-url", Usage: "RabbitMQ URL for submission events, empty to disable", Sources: cli.EnvVars("MQ_URL")},
		&cli.StringFlag{Name: "log-level", Usage: "trace, debug, info, warn or error", Sources: cli.EnvVars("LOG_LEVEL")},
		&cli.BoolFlag{Name: "log-pretty", Usage: "human readable logs instead of JSON", Sources: cli.EnvVars("LOG_PRETTY")},
	}
}

// Load builds the configuration from defaults, the optional TOML file and
// then any flag or environment variable that was set, in that order.
func Load(cmd *cli.Command) (Config, error) {
	cfg := Default()
	if path := cmd.String("config"); path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	setString(cmd, "http-addr", &cfg.HTTPAddr)
	setString(cmd, "problems-file", &cfg.ProblemsFile)
	setString(cmd, "judge-url", &cfg.Judge.URL)
	setString(cmd, "judge-api-key", &cfg.Judge.APIKey)
	setString(cmd, "judge-rapidapi-host", &cfg.Judge.RapidAPIHost)
	setString(cmd, "judge-auth-token", &cfg.Judge.AuthToken)
	setString(cmd, "db-url", &cfg.DBURL)
	setString(cmd, "mq-url", &cfg.MQURL)
	setString(cmd, "log-level", &cfg.Log.Level)
	setDuration(cmd, "result-cache-ttl", &cfg.ResultCacheTTL)
	setDuration(cmd, "judge-timeout", &cfg.Judge.Timeout)
	if cmd.IsSet("cors-origins") {
		cfg.CORSOrigins = cmd.StringSlice("cors-origins")
	}
	if cmd.IsSet("max-parallel") {
		cfg.MaxParallel = int(cmd.Int("max-parallel"))
	}
	if cmd.IsSet("log-pretty") {
		cfg.Log.Pretty = cmd.Bool("log-pretty")
	}

	return cfg, cfg.Validate()
}

func setString(cmd *cli.Command, name string, dst *string) {
	if cmd.IsSet(name) {
		*dst = cmd.String(name)
	}
}

func setDuration(cmd *cli.Command, name string, dst *Duration) {
	if cmd.IsSet(name) {
		*dst = Duration(cmd.Duration(name))
	}
}
