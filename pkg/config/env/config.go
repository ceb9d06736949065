// Package env sources config values from environment variables.
package env

import (
	"context"
	"os"
	"strings"

	"github.com/code-payments/ownership-nft/pkg/config"
)

type variable string

// NewConfig reads the upper-cased key from the environment on every Get, so
// changes to the process environment are picked up without a restart. Blank
// values count as unset.
func NewConfig(key string) config.Config {
	return variable(strings.ToUpper(key))
}

func (v variable) Get(_ context.Context) (interface{}, error) {
	raw, ok := os.LookupEnv(string(v))
	if !ok {
		return nil, config.ErrNoValue
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, config.ErrNoValue
	}
	return []byte(raw), nil
}

func (v variable) Shutdown() {}
