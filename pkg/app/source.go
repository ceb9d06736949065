package app

import (
	"context"
	"strings"

	"github.com/spf13/viper"

	"github.com/code-payments/ownership-nft/pkg/config"
)

type viperConfig struct {
	v   *viper.Viper
	key string
}

// newViperSource returns a config source keyed by environment variable
// name. Each key is bound to its variable and may also be set in the config
// file under its lower cased name.
func newViperSource(v *viper.Viper) func(key string) config.Config {
	return func(env string) config.Config {
		key := strings.ToLower(env)
		_ = v.BindEnv(key, env)
		return &viperConfig{v: v, key: key}
	}
}

// Get implements config.Config.Get
func (c *viperConfig) Get(_ context.Context) (interface{}, error) {
	if !c.v.IsSet(c.key) {
		return nil, config.ErrNoValue
	}

	val := strings.TrimSpace(c.v.GetString(c.key))
	if len(val) == 0 {
		return nil, config.ErrNoValue
	}
	return []byte(val), nil
}

// Shutdown implements config.Config.Shutdown
func (c *viperConfig) Shutdown() {
}
