package types

import (
	"encoding/base64"
	"encoding/json"

	errorsmod "cosmossdk.io/errors"
	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/cosmos/gogoproto/proto"
	icqtypes "github.com/cosmos/ibc-apps/modules/async-icq/v8/types"
	icatypes "github.com/cosmos/ibc-go/v8/modules/apps/27-interchain-accounts/types"

	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	txtypes "github.com/cosmos/cosmos-sdk/types/tx"
)

// Msg is an opaque protobuf message destined for the host chain.
type Msg struct {
	TypeURL string `json:"typeUrl" yaml:"type_url"`
	Value   []byte `json:"value" yaml:"value"`
}

// NewMsg packs a protobuf message into a Msg.
func NewMsg(msg proto.Message) (Msg, error) {
	protoAny, err := codectypes.NewAnyWithValue(msg)
	if err != nil {
		return Msg{}, err
	}

	return Msg{TypeURL: protoAny.TypeUrl, Value: protoAny.Value}, nil
}

func (m Msg) toAny() *codectypes.Any {
	return &codectypes.Any{TypeUrl: m.TypeURL, Value: m.Value}
}

func toAnys(msgs []Msg) []*codectypes.Any {
	if len(msgs) == 0 {
		return nil
	}
	anys := make([]*codectypes.Any, len(msgs))
	for i, msg := range msgs {
		anys[i] = msg.toAny()
	}
	return anys
}

// TxOptions are the non-message fields of the TxBody executed on the host.
type TxOptions struct {
	Memo                        string `json:"memo,omitempty" yaml:"memo"`
	TimeoutHeight               uint64 `json:"timeoutHeight,omitempty" yaml:"timeout_height"`
	ExtensionOptions            []Msg  `json:"extensionOptions,omitempty" yaml:"extension_options"`
	NonCriticalExtensionOptions []Msg  `json:"nonCriticalExtensionOptions,omitempty" yaml:"non_critical_extension_options"`
}

// txPacket is the JSON envelope of an ICS-27 packet. Field order is part of
// the wire format.
type txPacket struct {
	Type int32  `json:"type"`
	Data []byte `json:"data"`
	Memo string `json:"memo"`
}

// BuildTxPacket serializes msgs and opts into a TxBody and wraps it in an
// EXECUTE_TX packet. The output is a pure function of the input.
func BuildTxPacket(msgs []Msg, opts TxOptions) (string, error) {
	if len(msgs) == 0 {
		return "", errorsmod.Wrap(ErrMissingArgument, "at least one message is required")
	}
	for i, msg := range msgs {
		if msg.TypeURL == "" {
			return "", errorsmod.Wrapf(ErrMissingArgument, "message %d has no type url", i)
		}
	}

	body := &txtypes.TxBody{
		Messages:                    toAnys(msgs),
		Memo:                        opts.Memo,
		TimeoutHeight:               opts.TimeoutHeight,
		ExtensionOptions:            toAnys(opts.ExtensionOptions),
		NonCriticalExtensionOptions: toAnys(opts.NonCriticalExtensionOptions),
	}
	bz, err := body.Marshal()
	if err != nil {
		return "", errorsmod.Wrap(ErrInvalidPacket, err.Error())
	}

	packetData := icatypes.InterchainAccountPacketData{
		Type: icatypes.EXECUTE_TX,
		Data: bz,
	}
	if err := packetData.ValidateBasic(); err != nil {
		return "", errorsmod.Wrap(ErrInvalidPacket, err.Error())
	}

	return marshalPacket(txPacket{
		Type: int32(packetData.Type),
		Data: packetData.Data,
		Memo: packetData.Memo,
	})
}

// QueryRequest is a generic ABCI query sent over an interchain query channel.
type QueryRequest struct {
	Path   string `json:"path" yaml:"path"`
	Data   []byte `json:"data" yaml:"data"`
	Height int64  `json:"height,omitempty" yaml:"height"`
	Prove  bool   `json:"prove,omitempty" yaml:"prove"`
}

// queryPacket is the JSON envelope of an interchain query packet.
type queryPacket struct {
	Data []byte `json:"data"`
	Memo string `json:"memo"`
}

// BuildQueryPacket batches reqs into a CosmosQuery and wraps it in an
// interchain query packet.
func BuildQueryPacket(reqs []QueryRequest) (string, error) {
	if len(reqs) == 0 {
		return "", errorsmod.Wrap(ErrMissingArgument, "at least one query request is required")
	}

	requests := make([]abci.RequestQuery, len(reqs))
	for i, req := range reqs {
		if req.Path == "" {
			return "", errorsmod.Wrapf(ErrMissingArgument, "query request %d has no path", i)
		}
		requests[i] = abci.RequestQuery{
			Path:   req.Path,
			Data:   req.Data,
			Height: req.Height,
			Prove:  req.Prove,
		}
	}

	query := icqtypes.CosmosQuery{Requests: requests}
	bz, err := query.Marshal()
	if err != nil {
		return "", errorsmod.Wrap(ErrInvalidPacket, err.Error())
	}

	return marshalPacket(queryPacket{Data: bz})
}

func marshalPacket(v interface{}) (string, error) {
	bz, err := json.Marshal(v)
	if err != nil {
		return "", errorsmod.Wrap(ErrInvalidPacket, err.Error())
	}
	return string(bz), nil
}

// acknowledgement is the JSON ack returned for a packet. Exactly one of
// Result or Error is expected.
type acknowledgement struct {
	Result *string `json:"result"`
	Error  *string `json:"error"`
}

// parseAck returns the base64 result of ack, a RemoteError, or a decode
// failure carrying the raw ack.
func parseAck(ack string) (string, error) {
	var a acknowledgement
	if err := json.Unmarshal([]byte(ack), &a); err != nil {
		return "", errorsmod.Wrapf(ErrDecodeFailure, "acknowledgement is not JSON: %s: %q", err, ack)
	}

	switch {
	case a.Result != nil:
		return *a.Result, nil
	case a.Error != nil:
		return "", &RemoteError{Reason: *a.Error}
	default:
		return "", errorsmod.Wrapf(ErrDecodeFailure, "expected either result or error: %q", ack)
	}
}

// ParseTxAck returns the base64 encoded response bytes of an interchain
// account acknowledgement, or a RemoteError with the remote text.
func ParseTxAck(ack string) (string, error) {
	return parseAck(ack)
}

// QueryResponse is a JSON safe ABCI query response. Key and Value are base64.
type QueryResponse struct {
	Code      uint32 `json:"code" yaml:"code"`
	Log       string `json:"log" yaml:"log"`
	Info      string `json:"info" yaml:"info"`
	Index     int64  `json:"index" yaml:"index"`
	Key       string `json:"key" yaml:"key"`
	Value     string `json:"value" yaml:"value"`
	Height    int64  `json:"height" yaml:"height"`
	Codespace string `json:"codespace" yaml:"codespace"`
}

// queryAckData is the inner envelope carried by a successful query ack.
type queryAckData struct {
	Data []byte `json:"data"`
}

// ParseQueryAck decodes an interchain query acknowledgement into the ordered
// list of responses, one per request.
func ParseQueryAck(ack string) ([]QueryResponse, error) {
	result, err := parseAck(ack)
	if err != nil {
		return nil, err
	}

	envelope, err := base64.StdEncoding.DecodeString(result)
	if err != nil {
		return nil, errorsmod.Wrapf(ErrDecodeFailure, "result is not base64: %s: %q", err, ack)
	}

	var inner queryAckData
	if err := json.Unmarshal(envelope, &inner); err != nil {
		return nil, errorsmod.Wrapf(ErrDecodeFailure, "result is not a query ack envelope: %s: %q", err, ack)
	}

	var cosmosResponse icqtypes.CosmosResponse
	if err := cosmosResponse.Unmarshal(inner.Data); err != nil {
		return nil, errorsmod.Wrapf(ErrDecodeFailure, "failed to unmarshal query responses: %s: %q", err, ack)
	}
	if len(cosmosResponse.Responses) == 0 {
		return nil, errorsmod.Wrapf(ErrDecodeFailure, "acknowledgement carries no query responses: %q", ack)
	}

	responses := make([]QueryResponse, len(cosmosResponse.Responses))
	for i, resp := range cosmosResponse.Responses {
		responses[i] = QueryResponse{
			Code:      resp.Code,
			Log:       resp.Log,
			Info:      resp.Info,
			Index:     resp.Index,
			Key:       base64.StdEncoding.EncodeToString(resp.Key),
			Value:     base64.StdEncoding.EncodeToString(resp.Value),
			Height:    resp.Height,
			Codespace: resp.Codespace,
		}
	}

	return responses, nil
}

// DecodeTxMsgResponses decodes the per-message responses from the base64
// result of an interchain account acknowledgement.
func DecodeTxMsgResponses(result string) ([]*codectypes.Any, error) {
	bz, err := base64.StdEncoding.DecodeString(result)
	if err != nil {
		return nil, errorsmod.Wrapf(ErrDecodeFailure, "result is not base64: %s", err)
	}

	var txMsgData sdk.TxMsgData
	if err := txMsgData.Unmarshal(bz); err != nil {
		return nil, errorsmod.Wrapf(ErrDecodeFailure, "failed to unmarshal tx msg data: %s", err)
	}

	return txMsgData.MsgResponses, nil
}
