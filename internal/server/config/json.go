package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/createsomethingtoday/identity/internal/flagx"
)

// Duration accepts both string values such as "15m" and integer nanoseconds
// when unmarshalling from JSON.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("invalid duration: %s", string(b))
	}
}

// JsonConfig is the intermediate DTO used only for reading JSON config
// files; its fields are copied into the runtime Config after unmarshalling.
type JsonConfig struct {
	EndpointAddrHTTP             string   `json:"endpoint_addr_http"`
	DatabaseDSN                  string   `json:"database_dsn"`
	Issuer                       string   `json:"issuer"`
	Audience                     []string `json:"audience"`
	AccessTokenValidityDuration  Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration Duration `json:"refresh_token_validity_duration"`
	UpgradeLegacyHashes          *bool    `json:"upgrade_legacy_hashes"`
}

// parseJson loads configuration values from the JSON file named by the
// -c/-config flags into config. Missing flag means nothing is loaded; an
// unreadable or invalid file panics, since running with half a config is
// worse than not starting.
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

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.EndpointAddrHTTP != "" {
		config.EndpointAddrHTTP = c.EndpointAddrHTTP
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.Issuer != "" {
		config.Issuer = c.Issuer
	}
	if len(c.Audience) > 0 {
		config.Audience = c.Audience
	}
	if c.AccessTokenValidityDuration.Duration != 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration.Duration != 0 {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.UpgradeLegacyHashes != nil {
		config.UpgradeLegacyHashes = *c.UpgradeLegacyHashes
	}
}
