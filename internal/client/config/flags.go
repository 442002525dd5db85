package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/civicsync/internal/flagx"
)

var cliFlags = []string{"-b", "-d", "-r", "-s", "-t", "-f", "-n", "-v"}

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-b string   backend: memory or postgres
//	-d string   PostgreSQL DSN
//	-r string   Redis address
//	-s string   session signing key
//	-t int      session validity, minutes
//	-f bool     seed fixtures
//	-n bool     allow progress notes
//	-v string   log level
//
// Only the flags above are looked at; everything else in args is ignored.
func parseFlags(cfg *Config, osArgs []string) {
	args := flagx.FilterArgs(osArgs, cliFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	backend := fs.String("b", string(cfg.Backend), "backend (memory|postgres)")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.RedisAddr, "r", cfg.RedisAddr, "redis address")
	fs.StringVar(&cfg.SecretKey, "s", cfg.SecretKey, "session signing key")
	validity := fs.Int("t", int(cfg.SessionValidity.Minutes()), "session validity (in minutes)")
	fs.BoolVar(&cfg.SeedFixtures, "f", cfg.SeedFixtures, "seed demo data")
	fs.BoolVar(&cfg.AllowProgressNotes, "n", cfg.AllowProgressNotes, "allow comment-only status updates")
	fs.StringVar(&cfg.LogLevel, "v", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.Backend = Backend(*backend)
	cfg.SessionValidity = time.Duration(*validity) * time.Minute
}
