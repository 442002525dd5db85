package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/civicsync/internal/flagx"
)

var serverFlags = []string{"-a", "-k", "-d", "-s", "-t", "-u", "-p", "-b", "-g", "-e", "-r", "-l", "-f", "-n", "-v"}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-k string   store backend: memory or postgres
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-r string   Redis address
//	-l int      issues per user per 24h
//	-f bool     seed fixtures (use -f=false to disable)
//	-n bool     allow progress notes
//	-v string   log level
func parseFlags(config *Config, osArgs []string) {
	args := flagx.FilterArgs(osArgs, serverFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	backend := fs.String("k", string(config.Backend), "store backend (memory|postgres)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.IntVar(&config.IssueRateLimit, "l", config.IssueRateLimit, "issues per user per 24h")
	fs.BoolVar(&config.SeedFixtures, "f", config.SeedFixtures, "seed fixtures into the memory backend")
	fs.BoolVar(&config.AllowProgressNotes, "n", config.AllowProgressNotes, "allow comment-only status updates")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.Backend = Backend(*backend)
	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
}
