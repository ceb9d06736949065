package app

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/ownership-nft/pkg/issuance"
	"github.com/code-payments/ownership-nft/pkg/testutil"
)

func loadForTest(t *testing.T, path string) *Environment {
	env, err := Load(path)
	require.NoError(t, err)

	// Load configures the standard logger.
	t.Cleanup(testutil.DisableLogging())
	return env
}

func writeFile(t *testing.T, name string, contents []byte) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, contents, 0600))
	return path
}

func writeKeypair(t *testing.T) (string, []byte) {
	key := testutil.GenerateSolanaKeypair(t)
	return testutil.WriteKeypairFile(t, testutil.KeypairFileValues(key)), testutil.PublicKey(key)
}

func TestLoad_Defaults(t *testing.T) {
	env := loadForTest(t, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, defaultConfig, env.Config)
	assert.Nil(t, env.MetricsProvider)

	settings, err := issuance.LoadSettings(context.Background(), env.IssuanceConfig())
	require.NoError(t, err)
	assert.Equal(t, issuance.DefaultSettings(), settings)
}

func TestLoad_File(t *testing.T) {
	payerPath, payer := writeKeypair(t)
	adminPath, admin := writeKeypair(t)

	path := writeFile(t, "config.yaml", []byte(`
log_level: debug
rpc_endpoint: https://api.devnet.solana.com
payer_keypair: `+payerPath+`
admin_keypair: file://`+adminPath+`
shutdown_grace_period: 2s
ownership_nft_metadata_mode: self
ownership_nft_admin_public_key: `+base58.Encode(admin)+`
ownership_nft_compute_unit_price: 1000
`))

	env := loadForTest(t, path)
	assert.Equal(t, "https://api.devnet.solana.com", env.Config.RPCEndpoint)
	assert.Equal(t, 2*time.Second, env.Config.ShutdownGracePeriod)
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())

	loadedPayer, err := env.LoadPayer()
	require.NoError(t, err)
	assert.EqualValues(t, payer, testutil.PublicKey(loadedPayer))

	loadedAdmin, err := env.LoadAdmin()
	require.NoError(t, err)
	assert.EqualValues(t, admin, testutil.PublicKey(loadedAdmin))

	settings, err := issuance.LoadSettings(context.Background(), env.IssuanceConfig())
	require.NoError(t, err)
	assert.Equal(t, issuance.MetadataModeSelf, settings.MetadataMode)
	assert.EqualValues(t, admin, settings.Admin)
	assert.EqualValues(t, 1000, settings.ComputeUnitPrice)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "config.yaml", []byte("rpc_endpoint: http://file\nownership_nft_token_symbol: FILE\n"))

	t.Setenv("RPC_ENDPOINT", "http://env")
	t.Setenv(issuance.TokenSymbolConfigEnvName, "ENV")

	env := loadForTest(t, path)
	assert.Equal(t, "http://env", env.Config.RPCEndpoint)

	settings, err := issuance.LoadSettings(context.Background(), env.IssuanceConfig())
	require.NoError(t, err)
	assert.Equal(t, "ENV", settings.TokenSymbol)
}

func TestLoad_MissingKeypair(t *testing.T) {
	env := loadForTest(t, filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := env.LoadPayer()
	assert.Error(t, err)

	env.Config.AdminKeypair = filepath.Join(t.TempDir(), "missing.json")
	_, err = env.LoadAdmin()
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, "data", []byte("contents"))

	for _, fileURL := range []string{path, "file://" + path} {
		raw, err := LoadFile(fileURL)
		require.NoError(t, err)
		assert.Equal(t, []byte("contents"), raw)
	}

	t.Setenv("OWNERSHIP_NFT_TEST_KEYPAIR", "[1,2,3]")
	raw, err := LoadFile("env://OWNERSHIP_NFT_TEST_KEYPAIR")
	require.NoError(t, err)
	assert.Equal(t, []byte("[1,2,3]"), raw)

	for _, location := range []string{
		"s3://bucket/key",
		"env://OWNERSHIP_NFT_TEST_UNSET",
		filepath.Join(t.TempDir(), "missing"),
	} {
		_, err = LoadFile(location)
		assert.Error(t, err, location)
	}

	RegisterLoader("test", func(u *url.URL) ([]byte, error) {
		return []byte(u.Host), nil
	})
	raw, err = LoadFile("test://payer")
	require.NoError(t, err)
	assert.Equal(t, []byte("payer"), raw)
	assert.Panics(t, func() { RegisterLoader("test", nil) })
}
