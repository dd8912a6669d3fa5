package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cosmos/ibc-orchestration/internal/collections"
	"github.com/cosmos/ibc-orchestration/modules/apps/orchestration/types"
)

const (
	// EnvPrefix prefixes every environment variable read by the CLI, e.g.
	// ORCHESTRATION_ICA_VERSION.
	EnvPrefix = "ORCHESTRATION"

	flagConfig     = "config"
	flagOutput     = "output"
	flagICAVersion = "ica-version"
	flagEncoding   = "encoding"
	flagOrdering   = "ordering"
	flagTxType     = "tx-type"
	flagICQVersion = "icq-version"

	OutputJSON = "json"
	OutputYAML = "yaml"
)

// Config holds the channel address defaults and output settings, resolved
// from flags, ORCHESTRATION_* environment variables and an optional config
// file, in that order of precedence.
type Config struct {
	ICAVersion string `mapstructure:"ica-version"`
	Encoding   string `mapstructure:"encoding"`
	Ordering   string `mapstructure:"ordering"`
	TxType     string `mapstructure:"tx-type"`
	ICQVersion string `mapstructure:"icq-version"`
	Output     string `mapstructure:"output"`
}

// ICAChannelAddressOptions returns the channel address options of the config.
func (c Config) ICAChannelAddressOptions() types.ICAChannelAddressOptions {
	return types.ICAChannelAddressOptions{
		Version:  c.ICAVersion,
		Encoding: c.Encoding,
		Ordering: c.Ordering,
		TxType:   c.TxType,
	}
}

// Validate checks the output format and channel ordering.
func (c Config) Validate() error {
	if !collections.Contains(c.Output, []string{OutputJSON, OutputYAML}) {
		return fmt.Errorf("invalid output format %q, expected %s or %s", c.Output, OutputJSON, OutputYAML)
	}
	if !collections.Contains(c.Ordering, []string{types.OrderOrdered, types.OrderUnordered}) {
		return fmt.Errorf("invalid channel ordering %q, expected %s or %s", c.Ordering, types.OrderOrdered, types.OrderUnordered)
	}

	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	defaults := types.DefaultICAChannelAddressOptions()
	v.SetDefault(flagICAVersion, defaults.Version)
	v.SetDefault(flagEncoding, defaults.Encoding)
	v.SetDefault(flagOrdering, defaults.Ordering)
	v.SetDefault(flagTxType, defaults.TxType)
	v.SetDefault(flagICQVersion, types.DefaultICQVersion)
	v.SetDefault(flagOutput, OutputJSON)

	return v
}

// LoadConfig resolves the Config for cmd.
func LoadConfig(cmd *cobra.Command) (Config, error) {
	v := newViper()

	configFile, err := cmd.Flags().GetString(flagConfig)
	if err != nil {
		return Config{}, err
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, cfg.Validate()
}

func addICAAddressFlags(cmd *cobra.Command) {
	cmd.Flags().String(flagICAVersion, "", fmt.Sprintf("interchain account version (default %q)", types.DefaultICAVersion))
	cmd.Flags().String(flagEncoding, "", fmt.Sprintf("packet encoding (default %q)", types.DefaultEncoding))
	cmd.Flags().String(flagOrdering, "", fmt.Sprintf("channel ordering, %s or %s (default %q)", types.OrderOrdered, types.OrderUnordered, types.OrderOrdered))
	cmd.Flags().String(flagTxType, "", fmt.Sprintf("transaction type (default %q)", types.DefaultTxType))
}
