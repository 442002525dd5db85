package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/civicsync/internal/flagx"
	"github.com/joho/godotenv"
)

// parseEnv loads dotenvFile (if it exists) into the process environment and
// then reads CIVICSYNC_* variables. Variables already set in the environment
// win over the file. Malformed numeric or boolean values panic, like the
// other config layers.
func parseEnv(config *Config, dotenvFile string) {
	if dotenvFile != "" {
		// a missing .env is normal outside development
		_ = godotenv.Load(dotenvFile)
	}

	config.HTTPAddr = flagx.EnvString("CIVICSYNC_HTTP_ADDR", config.HTTPAddr)
	config.Backend = Backend(flagx.EnvString("CIVICSYNC_BACKEND", string(config.Backend)))
	config.DatabaseDSN = flagx.EnvString("CIVICSYNC_DATABASE_DSN", config.DatabaseDSN)
	config.SecretKey = flagx.EnvString("CIVICSYNC_SECRET_KEY", config.SecretKey)
	config.S3RootUser = flagx.EnvString("CIVICSYNC_S3_ROOT_USER", config.S3RootUser)
	config.S3RootPassword = flagx.EnvString("CIVICSYNC_S3_ROOT_PASSWORD", config.S3RootPassword)
	config.S3Bucket = flagx.EnvString("CIVICSYNC_S3_BUCKET", config.S3Bucket)
	config.S3Region = flagx.EnvString("CIVICSYNC_S3_REGION", config.S3Region)
	config.S3BaseEndpoint = flagx.EnvString("CIVICSYNC_S3_BASE_ENDPOINT", config.S3BaseEndpoint)
	config.RedisAddr = flagx.EnvString("CIVICSYNC_REDIS_ADDR", config.RedisAddr)
	config.RedisPassword = flagx.EnvString("CIVICSYNC_REDIS_PASSWORD", config.RedisPassword)
	config.LogLevel = flagx.EnvString("CIVICSYNC_LOG_LEVEL", config.LogLevel)
	config.LogFormat = flagx.EnvString("CIVICSYNC_LOG_FORMAT", config.LogFormat)

	if v := flagx.EnvString("CIVICSYNC_ACCESS_TOKEN_VALIDITY", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			panic(err)
		}
		config.AccessTokenValidityDuration = d
	}
	if v := flagx.EnvString("CIVICSYNC_ISSUE_RATE_LIMIT", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(err)
		}
		config.IssueRateLimit = n
	}
	if v := flagx.EnvString("CIVICSYNC_SEED_FIXTURES", ""); v != "" {
		config.SeedFixtures = mustBool(v)
	}
	if v := flagx.EnvString("CIVICSYNC_ALLOW_PROGRESS_NOTES", ""); v != "" {
		config.AllowProgressNotes = mustBool(v)
	}
	if v := flagx.EnvString("CIVICSYNC_NATIONAL_IDS", ""); v != "" {
		config.NationalIDs = splitList(v)
	}
}

func mustBool(v string) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		panic(err)
	}
	return b
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
