package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/cosmos/ibc-orchestration/modules/apps/orchestration/types"
)

// NewRootCmd returns the root command of the orchestration codec tool.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:                        "orchestrationd",
		Short:                      "Interchain account and interchain query codec utilities",
		SilenceUsage:               true,
		SuggestionsMinimumDistance: 2,
	}

	cmd.PersistentFlags().String(flagConfig, "", "path to a YAML, TOML or JSON config file with channel address defaults")
	cmd.PersistentFlags().StringP(flagOutput, "o", "", fmt.Sprintf("output format, %s or %s (default %q)", OutputJSON, OutputYAML, OutputJSON))

	cmd.AddCommand(
		NewAddressCmd(),
		NewPacketCmd(),
	)

	return cmd
}

// NewAddressCmd returns the channel address and account identifier subcommands
func NewAddressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:                        "address",
		Short:                      "Channel address and account identifier subcommands",
		SuggestionsMinimumDistance: 2,
	}

	cmd.AddCommand(
		getCmdICAAddress(),
		getCmdICQAddress(),
		getCmdAccountID(),
		getCmdBech32Prefix(),
	)

	return cmd
}

// NewPacketCmd returns the packet and acknowledgement subcommands
func NewPacketCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:                        "packet",
		Short:                      "Packet and acknowledgement subcommands",
		SuggestionsMinimumDistance: 2,
	}

	cmd.AddCommand(
		getCmdTxPacket(),
		getCmdQueryPacket(),
		getCmdParseTxAck(),
		getCmdParseQueryAck(),
	)

	return cmd
}

// printOutput renders v in the configured output format.
func printOutput(cmd *cobra.Command, cfg Config, v interface{}) error {
	var (
		bz  []byte
		err error
	)

	switch cfg.Output {
	case OutputYAML:
		bz, err = yaml.Marshal(v)
	default:
		bz, err = json.MarshalIndent(v, "", "  ")
		bz = append(bz, '\n')
	}
	if err != nil {
		return err
	}

	_, err = cmd.OutOrStdout().Write(bz)
	return err
}

func printLine(cmd *cobra.Command, s string) error {
	_, err := fmt.Fprintln(cmd.OutOrStdout(), s)
	return err
}

// accountIDOutput is the rendered form of a CAIP-10 account identifier.
type accountIDOutput struct {
	types.AccountID `yaml:",inline"`
	CAIP10          string `json:"caip10" yaml:"caip10"`
	FixedBytes      string `json:"fixedBytes,omitempty" yaml:"fixed_bytes,omitempty"`
}

// txAckOutput is the rendered form of a successful interchain account acknowledgement.
type txAckOutput struct {
	Result       string   `json:"result" yaml:"result"`
	MsgResponses []string `json:"msgResponses,omitempty" yaml:"msg_responses,omitempty"`
}
