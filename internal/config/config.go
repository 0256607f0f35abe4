// Package config resolves runtime configuration from flags and
// environment variables. Every flag is mirrored by an ETHBIND_* variable
// with dots and dashes flattened to underscores.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

const ENV_PREFIX = "ETHBIND"

// Flag names. Bound to viper keys through KebabToSnakeCase.
const (
	Debug = "debug"

	EthereumRpcBaseUrl = "ethereum.rpc-base-url"
	EthereumWsUrl      = "ethereum.ws-url"

	SignerPrivateKey = "signer.private-key"

	PipelinePollInterval  = "pipeline.poll-interval"
	PipelineMaxWait       = "pipeline.max-wait"
	PipelineConfirmations = "pipeline.confirmations"

	PrometheusEnabled = "prometheus.enabled"
	PrometheusPort    = "prometheus.port"
)

type EthereumRpcConfig struct {
	BaseUrl string
	WsUrl   string
}

type SignerConfig struct {
	// PrivateKey is the hex-encoded signing key. Prefer supplying it via
	// the ETHBIND_SIGNER_PRIVATE_KEY environment variable over a flag.
	PrivateKey string
}

type PipelineConfig struct {
	PollInterval  time.Duration
	MaxWait       time.Duration
	Confirmations uint64
}

type PrometheusConfig struct {
	Enabled bool
	Port    int
}

type Config struct {
	Debug             bool
	EthereumRpcConfig EthereumRpcConfig
	SignerConfig      SignerConfig
	PipelineConfig    PipelineConfig
	PrometheusConfig  PrometheusConfig
}

// KebabToSnakeCase flattens a flag name to the viper/env key form, e.g.
// "ethereum.rpc-base-url" to "ethereum_rpc_base_url".
func KebabToSnakeCase(s string) string {
	return strings.NewReplacer("-", "_", ".", "_").Replace(s)
}

// NewConfig materializes the configuration from the bound viper keys.
func NewConfig() *Config {
	return &Config{
		Debug: viper.GetBool(KebabToSnakeCase(Debug)),

		EthereumRpcConfig: EthereumRpcConfig{
			BaseUrl: viper.GetString(KebabToSnakeCase(EthereumRpcBaseUrl)),
			WsUrl:   viper.GetString(KebabToSnakeCase(EthereumWsUrl)),
		},

		SignerConfig: SignerConfig{
			PrivateKey: viper.GetString(KebabToSnakeCase(SignerPrivateKey)),
		},

		PipelineConfig: PipelineConfig{
			PollInterval:  viper.GetDuration(KebabToSnakeCase(PipelinePollInterval)),
			MaxWait:       viper.GetDuration(KebabToSnakeCase(PipelineMaxWait)),
			Confirmations: viper.GetUint64(KebabToSnakeCase(PipelineConfirmations)),
		},

		PrometheusConfig: PrometheusConfig{
			Enabled: viper.GetBool(KebabToSnakeCase(PrometheusEnabled)),
			Port:    viper.GetInt(KebabToSnakeCase(PrometheusPort)),
		},
	}
}
