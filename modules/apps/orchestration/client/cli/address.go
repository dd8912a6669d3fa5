package cli

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/cosmos/ibc-orchestration/modules/apps/orchestration/types"
)

const flagFixedBytes = "fixed-bytes"

func getCmdICAAddress() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ica [host-connection-id] [controller-connection-id]",
		Short: "Build the remote address used to request an interchain account channel",
		Example: fmt.Sprintf(`orchestrationd address ica connection-1 connection-0
ORCHESTRATION_ORDERING=%s orchestrationd address ica connection-1 connection-0`, types.OrderUnordered),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(cmd)
			if err != nil {
				return err
			}

			address, err := types.BuildICAChannelAddress(args[0], args[1], cfg.ICAChannelAddressOptions())
			if err != nil {
				return err
			}

			return printLine(cmd, address)
		},
	}

	addICAAddressFlags(cmd)
	return cmd
}

func getCmdICQAddress() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "icq [controller-connection-id]",
		Short:   "Build the remote address used to request an interchain query channel",
		Example: "orchestrationd address icq connection-0",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(cmd)
			if err != nil {
				return err
			}

			address, err := types.BuildICQChannelAddress(args[0], cfg.ICQVersion)
			if err != nil {
				return err
			}

			return printLine(cmd, address)
		},
	}

	cmd.Flags().String(flagICQVersion, "", fmt.Sprintf("interchain query version (default %q)", types.DefaultICQVersion))
	return cmd
}

func getCmdAccountID() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account-id [caip10 | chain-id address]",
		Short: "Parse a CAIP-10 account identifier, or derive one from a cosmos chain address",
		Example: `orchestrationd address account-id eip155:1:0x742d35Cc6634C0532925a3b844Bc454e4438f44e --fixed-bytes
orchestrationd address account-id cosmoshub-4 cosmos1n4f2eqt2gm5mh6gevf8aw2wrf75q25yru09yvn`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(cmd)
			if err != nil {
				return err
			}

			var arg types.AccountIDArg = types.CAIP10(args[0])
			if len(args) == 2 {
				arg = types.ChainAddress{ChainID: args[0], Value: args[1], Encoding: types.EncodingBech32}
			}

			accountID, err := types.ResolveAccountIDArg(arg)
			if err != nil {
				return err
			}

			out := accountIDOutput{AccountID: accountID, CAIP10: accountID.String()}

			fixedBytes, err := cmd.Flags().GetBool(flagFixedBytes)
			if err != nil {
				return err
			}
			if fixedBytes {
				bz, err := types.AccountIDToFixedBytes(out.CAIP10)
				if err != nil {
					return err
				}
				out.FixedBytes = hexutil.Encode(bz[:])
			}

			return printOutput(cmd, cfg, out)
		},
	}

	cmd.Flags().Bool(flagFixedBytes, false, "also render the account as 32 left-padded bytes (eip155 only)")
	return cmd
}

func getCmdBech32Prefix() *cobra.Command {
	return &cobra.Command{
		Use:     "bech32-prefix [address]",
		Short:   "Print the human readable part of a bech32 address",
		Example: "orchestrationd address bech32-prefix osmo1n4f2eqt2gm5mh6gevf8aw2wrf75q25yrmq6y8u",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix, err := types.ExtractBech32Prefix(args[0])
			if err != nil {
				return err
			}

			return printLine(cmd, prefix)
		},
	}
}
