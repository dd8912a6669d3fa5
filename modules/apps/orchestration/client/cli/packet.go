package cli

import (
	"encoding/json"
	"fmt"

	"github.com/cosmos/gogoproto/proto"
	"github.com/spf13/cobra"

	"github.com/cosmos/cosmos-sdk/codec"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	banktypes "github.com/cosmos/cosmos-sdk/x/bank/types"
	stakingtypes "github.com/cosmos/cosmos-sdk/x/staking/types"

	"github.com/cosmos/ibc-orchestration/modules/apps/orchestration/types"
)

const (
	flagMemo            = "memo"
	flagTimeoutHeight   = "timeout-height"
	flagDecodeResponses = "decode-responses"
)

const bankSendExample = `{
    "@type":"/cosmos.bank.v1beta1.MsgSend",
    "from_address":"cosmos15ccshhmp0gsx29qpqq6g4zmltnnvgmyu9ueuadh9y2nc5zj0szls5gtddz",
    "to_address":"cosmos10h9stc5v6ntgeygf5xf945njqq5h32r53uquvw",
    "amount": [{"denom": "stake", "amount": "1000"}]
}`

// newCodec returns a codec able to decode the messages accepted by tx-packet.
func newCodec() *codec.ProtoCodec {
	registry := codectypes.NewInterfaceRegistry()
	banktypes.RegisterInterfaces(registry)
	stakingtypes.RegisterInterfaces(registry)
	return codec.NewProtoCodec(registry)
}

func getCmdTxPacket() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx [message]",
		Short: "Build an interchain account EXECUTE_TX packet",
		Long: `tx accepts a message, or a JSON array of messages, and prints the
interchain account packet that executes them atomically on the host chain.`,
		Example: fmt.Sprintf("orchestrationd packet tx '%s' --memo memo", bankSendExample),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			memo, err := cmd.Flags().GetString(flagMemo)
			if err != nil {
				return err
			}

			timeoutHeight, err := cmd.Flags().GetUint64(flagTimeoutHeight)
			if err != nil {
				return err
			}

			packet, err := generateTxPacket(newCodec(), []byte(args[0]), types.TxOptions{Memo: memo, TimeoutHeight: timeoutHeight})
			if err != nil {
				return err
			}

			return printLine(cmd, packet)
		},
	}

	cmd.Flags().String(flagMemo, "", "an optional memo to be included in the transaction body")
	cmd.Flags().Uint64(flagTimeoutHeight, 0, "an optional host block height after which the transaction is rejected")
	return cmd
}

// generateTxPacket decodes msgBytes into messages and builds the packet.
func generateTxPacket(cdc *codec.ProtoCodec, msgBytes []byte, opts types.TxOptions) (string, error) {
	protoMessages, err := convertBytesIntoProtoMessages(cdc, msgBytes)
	if err != nil {
		return "", err
	}

	msgs := make([]types.Msg, len(protoMessages))
	for i, protoMessage := range protoMessages {
		if msgs[i], err = types.NewMsg(protoMessage); err != nil {
			return "", err
		}
	}

	return types.BuildTxPacket(msgs, opts)
}

// convertBytesIntoProtoMessages returns a list of proto messages from bytes. The bytes can be in the form of a single
// message, or a json array of messages.
func convertBytesIntoProtoMessages(cdc *codec.ProtoCodec, msgBytes []byte) ([]proto.Message, error) {
	var rawMessages []json.RawMessage
	if err := json.Unmarshal(msgBytes, &rawMessages); err != nil {
		var msg sdk.Msg
		if err := cdc.UnmarshalInterfaceJSON(msgBytes, &msg); err != nil {
			return nil, err
		}

		return []proto.Message{msg}, nil
	}

	protoMessages := make([]proto.Message, len(rawMessages))
	for i, anyJSON := range rawMessages {
		var msg sdk.Msg
		if err := cdc.UnmarshalInterfaceJSON(anyJSON, &msg); err != nil {
			return nil, err
		}

		protoMessages[i] = msg
	}

	return protoMessages, nil
}

func getCmdQueryPacket() *cobra.Command {
	return &cobra.Command{
		Use:   "query [requests]",
		Short: "Build an interchain query packet",
		Long: `query accepts a JSON array of ABCI query requests and prints the
interchain query packet batching them. Request data is base64 encoded.`,
		Example: `orchestrationd packet query '[{"path":"/cosmos.bank.v1beta1.Query/AllBalances","data":"CgZjb3Ntb3M="}]'`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var reqs []types.QueryRequest
			if err := json.Unmarshal([]byte(args[0]), &reqs); err != nil {
				return fmt.Errorf("failed to unmarshal query requests: %w", err)
			}

			packet, err := types.BuildQueryPacket(reqs)
			if err != nil {
				return err
			}

			return printLine(cmd, packet)
		},
	}
}

func getCmdParseTxAck() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "parse-tx-ack [acknowledgement]",
		Short:   "Parse an interchain account acknowledgement",
		Example: `orchestrationd packet parse-tx-ack '{"result":"EiYKJC9jb3Ntb3MuYmFuay52MWJldGExLk1zZ1NlbmRSZXNwb25zZQ=="}' --decode-responses`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(cmd)
			if err != nil {
				return err
			}

			result, err := types.ParseTxAck(args[0])
			if err != nil {
				return err
			}

			out := txAckOutput{Result: result}

			decode, err := cmd.Flags().GetBool(flagDecodeResponses)
			if err != nil {
				return err
			}
			if decode {
				msgResponses, err := types.DecodeTxMsgResponses(result)
				if err != nil {
					return err
				}
				for _, msgResponse := range msgResponses {
					out.MsgResponses = append(out.MsgResponses, msgResponse.TypeUrl)
				}
			}

			return printOutput(cmd, cfg, out)
		},
	}

	cmd.Flags().Bool(flagDecodeResponses, false, "decode the result as TxMsgData and list the message response types")
	return cmd
}

func getCmdParseQueryAck() *cobra.Command {
	return &cobra.Command{
		Use:   "parse-query-ack [acknowledgement]",
		Short: "Parse an interchain query acknowledgement into its responses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(cmd)
			if err != nil {
				return err
			}

			responses, err := types.ParseQueryAck(args[0])
			if err != nil {
				return err
			}

			return printOutput(cmd, cfg, responses)
		},
	}
}
