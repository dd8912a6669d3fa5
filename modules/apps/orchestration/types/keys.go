package types

import (
	"fmt"

	icqtypes "github.com/cosmos/ibc-apps/modules/async-icq/v8/types"
	icatypes "github.com/cosmos/ibc-go/v8/modules/apps/27-interchain-accounts/types"
)

const (
	// ModuleName defines the orchestration module name
	ModuleName = "orchestration"

	// DefaultICAVersion is the ICS-27 application version requested by default
	DefaultICAVersion = icatypes.Version

	// DefaultEncoding is the ICS-27 message encoding requested by default
	DefaultEncoding = icatypes.EncodingProtobuf

	// DefaultTxType is the ICS-27 transaction type requested by default
	DefaultTxType = icatypes.TxTypeSDKMultiMsg

	// DefaultICQVersion is the interchain query application version requested by default
	DefaultICQVersion = icqtypes.Version

	// OrderOrdered and OrderUnordered are the channel orderings understood by the channel address codec
	OrderOrdered   = "ordered"
	OrderUnordered = "unordered"

	// ICAHostPortID is the port the interchain accounts host module binds to on the remote chain
	ICAHostPortID = icatypes.HostPortID

	// ICQHostPortID is the port the interchain query host module binds to on the remote chain
	ICQHostPortID = icqtypes.PortID

	// ICAControllerPortPrefix prefixes every locally bound interchain account port
	ICAControllerPortPrefix = icatypes.ControllerPortPrefix

	// ICQControllerPortPrefix prefixes every locally bound interchain query port
	ICQControllerPortPrefix = "icqcontroller-"

	// UnparsableChainAddress is stored as the chain address value when the
	// remote address reported during the channel handshake has no usable
	// account address.
	UnparsableChainAddress = "UNPARSABLE_CHAIN_ADDRESS"

	// CosmosNamespace is the CAIP-2 namespace of Cosmos SDK chains
	CosmosNamespace = "cosmos"

	// EIP155Namespace is the CAIP-2 namespace of EVM chains
	EIP155Namespace = "eip155"
)

var (
	// PortNonceKey is the store key of the last allocated controller port nonce
	PortNonceKey = []byte("portNonce")

	// ConnectionStatePrefix prefixes every stored connection state
	ConnectionStatePrefix = []byte("connectionState/")
)

// ControllerPortPath returns the port path bound for a new controller port
func ControllerPortPath(prefix string, nonce uint64) string {
	return fmt.Sprintf("/ibc-port/%s%d", prefix, nonce)
}

// KeyConnectionState creates and returns the store key of the state for the provided local port
func KeyConnectionState(portID string) []byte {
	return append(append([]byte{}, ConnectionStatePrefix...), portID...)
}
