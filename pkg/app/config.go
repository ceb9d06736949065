package app

import (
	"time"

	"github.com/spf13/viper"
)

// BaseConfig is the process level configuration of the issuance runner.
// Issuance settings themselves are read through Environment.ConfigSource.
type BaseConfig struct {
	LogLevel string `mapstructure:"log_level"`

	AppName string `mapstructure:"app_name"`

	RPCEndpoint string `mapstructure:"rpc_endpoint"`

	// PayerKeypair and AdminKeypair are URLs of Solana CLI keypair files.
	// Only the file scheme is supported. If no scheme is specified, file is
	// used.
	PayerKeypair string `mapstructure:"payer_keypair"`
	AdminKeypair string `mapstructure:"admin_keypair"`

	ShutdownGracePeriod time.Duration `mapstructure:"shutdown_grace_period"`

	// Metrics configuration across many providers
	NewRelicLicenseKey string `mapstructure:"new_relic_license_key"`
}

var defaultConfig = BaseConfig{
	LogLevel: "info",

	AppName: "ownership-nft-issuer",

	RPCEndpoint: "http://localhost:8899",

	ShutdownGracePeriod: 5 * time.Second,
}

var baseEnvBindings = map[string]string{
	"log_level":             "LOG_LEVEL",
	"app_name":              "APP_NAME",
	"rpc_endpoint":          "RPC_ENDPOINT",
	"payer_keypair":         "PAYER_KEYPAIR",
	"admin_keypair":         "ADMIN_KEYPAIR",
	"shutdown_grace_period": "SHUTDOWN_GRACE_PERIOD",
	"new_relic_license_key": "NEW_RELIC_LICENSE_KEY",
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, env := range baseEnvBindings {
		_ = v.BindEnv(key, env)
	}
	return v
}
