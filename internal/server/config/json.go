package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/civicsync/internal/flagx"
	"github.com/dmitrijs2005/civicsync/internal/timex"
)

// JsonConfig is the on-disk shape of the server config file. Pointer fields
// distinguish "absent" from a zero value so that a partial file only
// overrides what it names.
type JsonConfig struct {
	HTTPAddr                    string          `json:"http_addr"`
	Backend                     string          `json:"backend"`
	DatabaseDSN                 string          `json:"database_dsn"`
	SecretKey                   string          `json:"secret_key"`
	AccessTokenValidityDuration *timex.Duration `json:"access_token_validity_duration"`
	S3RootUser                  string          `json:"s3_root_user"`
	S3RootPassword              string          `json:"s3_root_password"`
	S3Bucket                    string          `json:"s3_bucket"`
	S3Region                    string          `json:"s3_region"`
	S3BaseEndpoint              string          `json:"s3_base_endpoint"`
	RedisAddr                   string          `json:"redis_addr"`
	RedisPassword               string          `json:"redis_password"`
	IssueRateLimit              *int            `json:"issue_rate_limit"`
	SeedFixtures                *bool           `json:"seed_fixtures"`
	AllowProgressNotes          *bool           `json:"allow_progress_notes"`
	NationalIDs                 []string        `json:"national_ids"`
	LogLevel                    string          `json:"log_level"`
	LogFormat                   string          `json:"log_format"`
}

// parseJson loads the file named by -c/-config, if any, into config.
// An unreadable file or invalid JSON panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.HTTPAddr, c.HTTPAddr)
	if c.Backend != "" {
		config.Backend = Backend(c.Backend)
	}
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	if c.IssueRateLimit != nil {
		config.IssueRateLimit = *c.IssueRateLimit
	}
	if c.SeedFixtures != nil {
		config.SeedFixtures = *c.SeedFixtures
	}
	if c.AllowProgressNotes != nil {
		config.AllowProgressNotes = *c.AllowProgressNotes
	}
	if c.NationalIDs != nil {
		config.NationalIDs = c.NationalIDs
	}
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
