package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
	"github.com/dmitrijs2005/authkeeper/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "15m" and integer nanoseconds. Pointer fields tell
// an absent value apart from an explicit zero.
type JsonConfig struct {
	EndpointAddrGRPC             string          `json:"endpoint_addr_grpc"`
	DatabaseDSN                  string          `json:"database_dsn"`
	SecretKey                    string          `json:"secret_key"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration"`
	RevocationBackend            string          `json:"revocation_backend"`
	RedisAddr                    string          `json:"redis_addr"`
	RedisPassword                string          `json:"redis_password"`
	RedisDB                      *int            `json:"redis_db"`
	PruneInterval                *timex.Duration `json:"prune_interval"`
	BcryptCost                   *int            `json:"bcrypt_cost"`
	LogLevel                     string          `json:"log_level"`
	MetricsExporter              string          `json:"metrics_exporter"`
}

// parseJson loads configuration values from the JSON file named by the -c
// or -config flag, if any, into config. Only fields present in the file are
// copied. If the file cannot be read or contains invalid JSON, the function
// panics.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.RevocationBackend, c.RevocationBackend)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.MetricsExporter, c.MetricsExporter)

	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration != nil {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.PruneInterval != nil {
		config.PruneInterval = c.PruneInterval.Duration
	}
	if c.RedisDB != nil {
		config.RedisDB = *c.RedisDB
	}
	if c.BcryptCost != nil {
		config.BcryptCost = *c.BcryptCost
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
