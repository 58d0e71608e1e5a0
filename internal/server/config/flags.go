package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophfiles/internal/flagx"
)

var knownFlags = []string{
	"-env", "-a", "-grpc", "-d", "-s", "-storage", "-chunk",
	"-u", "-p", "-b", "-region", "-e",
	"-scheme", "-aliases", "-redis", "-cache-ttl",
	"-retention", "-sweep", "-stale", "-conceal", "-log",
}

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags:
//
//	-env string        deployment name (local, dev, prod)
//	-a string          HTTP bind address (e.g., ":45303")
//	-grpc string       gRPC health bind address (e.g., ":50051")
//	-d string          PostgreSQL DSN
//	-s string          JWT HMAC secret key
//	-storage string    chunk backend: postgres, s3 or memory
//	-chunk int         chunk size in bytes
//	-u, -p string      S3 root user and password
//	-b string          S3 bucket name
//	-region string     S3 region
//	-e string          S3 base endpoint
//	-scheme string     scheme of public links
//	-aliases string    ';'-separated host aliases of public links
//	-redis string      Redis address of the lookup cache
//	-cache-ttl int     cache TTL, minutes
//	-retention int     retention of non-persistent files, minutes (0 = forever)
//	-sweep int         reaper interval, minutes
//	-stale int         age of abandoned pending uploads, minutes
//	-conceal           report private files of other users as missing
//	-log string        log backend: slog or zap
//
// Duration flags are integers in minutes. Boolean flags take the -flag=value
// form when a value is given.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.Env, "env", config.Env, "deployment environment")
	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.EndpointAddrGRPC, "grpc", config.EndpointAddrGRPC, "gRPC health address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.StorageBackend, "storage", config.StorageBackend, "chunk storage backend")
	fs.IntVar(&config.ChunkSize, "chunk", config.ChunkSize, "chunk size in bytes")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "region", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.PublicScheme, "scheme", config.PublicScheme, "public link scheme")
	aliases := fs.String("aliases", strings.Join(config.HostAliases, ";"), "public host aliases, ';'-separated")
	fs.StringVar(&config.RedisAddr, "redis", config.RedisAddr, "redis address")

	cacheTTL := fs.Int("cache-ttl", int(config.CacheTTL.Minutes()), "cache TTL (in minutes)")
	retention := fs.Int("retention", int(config.RetentionPeriod.Minutes()), "retention period (in minutes)")
	sweep := fs.Int("sweep", int(config.SweepInterval.Minutes()), "sweep interval (in minutes)")
	stale := fs.Int("stale", int(config.StaleUploadAfter.Minutes()), "stale upload window (in minutes)")

	fs.BoolVar(&config.ConcealPrivate, "conceal", config.ConcealPrivate, "hide private files of other users")
	fs.StringVar(&config.LogBackend, "log", config.LogBackend, "log backend")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.HostAliases = flagx.SplitList(*aliases)
	config.CacheTTL = time.Duration(*cacheTTL) * time.Minute
	config.RetentionPeriod = time.Duration(*retention) * time.Minute
	config.SweepInterval = time.Duration(*sweep) * time.Minute
	config.StaleUploadAfter = time.Duration(*stale) * time.Minute
}
