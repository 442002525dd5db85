package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/civicsync/internal/flagx"
	"github.com/dmitrijs2005/civicsync/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Absent
// fields leave the Config untouched.
type JsonConfig struct {
	Backend            string          `json:"backend"`
	DatabaseDSN        string          `json:"database_dsn"`
	RedisAddr          string          `json:"redis_addr"`
	SecretKey          string          `json:"secret_key"`
	SessionValidity    *timex.Duration `json:"session_validity"`
	SeedFixtures       *bool           `json:"seed_fixtures"`
	AllowProgressNotes *bool           `json:"allow_progress_notes"`
	LogLevel           string          `json:"log_level"`
}

// parseJson overlays cfg with the file named by -c/-config. Read or decode
// errors panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	jc.apply(cfg)
}

func (jc *JsonConfig) apply(cfg *Config) {
	if jc.Backend != "" {
		cfg.Backend = Backend(jc.Backend)
	}
	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.RedisAddr != "" {
		cfg.RedisAddr = jc.RedisAddr
	}
	if jc.SecretKey != "" {
		cfg.SecretKey = jc.SecretKey
	}
	if jc.SessionValidity != nil {
		cfg.SessionValidity = time.Duration(jc.SessionValidity.Duration)
	}
	if jc.SeedFixtures != nil {
		cfg.SeedFixtures = *jc.SeedFixtures
	}
	if jc.AllowProgressNotes != nil {
		cfg.AllowProgressNotes = *jc.AllowProgressNotes
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
}
