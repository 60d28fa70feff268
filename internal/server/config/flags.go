package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string        gRPC bind address (e.g., ":50051")
//	-d string        PostgreSQL DSN
//	-s string        JWT HMAC secret key
//	-t int           access token validity, minutes
//	-r int           refresh token validity, minutes
//	-b string        revocation backend: postgres, redis or memory
//	-redis string    Redis address
//	-prune duration  revocation prune interval (e.g., "10m"; 0 disables)
//	-l string        log level
//	-metrics string  metrics exporter: none, stdout or otlp
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-r", "-b", "-redis", "-prune", "-l", "-metrics"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")

	fs.StringVar(&config.RevocationBackend, "b", config.RevocationBackend, "revocation backend (postgres, redis, memory)")
	fs.StringVar(&config.RedisAddr, "redis", config.RedisAddr, "redis address")
	fs.DurationVar(&config.PruneInterval, "prune", config.PruneInterval, "revocation prune interval")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.MetricsExporter, "metrics", config.MetricsExporter, "metrics exporter (none, stdout, otlp)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// minute flags only override when given, so sub-minute values from
	// JSON or the environment survive
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
		case "r":
			config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
		}
	})
}
