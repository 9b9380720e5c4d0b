// Package config loads YAML config files into structs with viper.
package config

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Validator is implemented by configs that check their own values once loaded.
type Validator interface {
	Validate() error
}

// Load reads file into config, which must be a pointer to a struct. The values
// already in config act as defaults for keys missing from the file, and
// environment variables override both: redis.pubsub.prefix is read from
// REDIS_PUBSUB_PREFIX. When config implements Validator the loaded values are
// validated before Load returns.
func Load(file string, config any) error {
	v, err := withDefaults(config)
	if err != nil {
		return err
	}

	v.SetConfigFile(file)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config from file %s: %w", file, err)
	}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	if c, ok := config.(Validator); ok {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("invalid config %s: %w", file, err)
		}
	}

	return nil
}

// withDefaults seeds a viper instance with the current values of config, so every
// key is known to viper and can be overridden from the environment.
func withDefaults(config any) (*viper.Viper, error) {
	m := make(map[string]any)
	if err := mapstructure.Decode(config, &m); err != nil {
		return nil, fmt.Errorf("decode defaults: %w", err)
	}

	v := viper.New()
	if err := v.MergeConfigMap(m); err != nil {
		return nil, fmt.Errorf("merge defaults: %w", err)
	}

	return v, nil
}
