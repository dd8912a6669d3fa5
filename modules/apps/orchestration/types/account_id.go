package types

import (
	"fmt"
	"strings"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Address encodings understood by ChainAddress
const (
	EncodingBech32   = "bech32"
	EncodingEthereum = "ethereum"
)

// FixedBytesLength is the size of the fixed-width account encoding used for
// cross-chain mint recipients.
const FixedBytesLength = 32

// ChainAddress identifies an account on a specific chain.
type ChainAddress struct {
	ChainID  string `json:"chainId" yaml:"chain_id"`
	Value    string `json:"value" yaml:"value"`
	Encoding string `json:"encoding" yaml:"encoding"`
}

// AccountID returns the CAIP-10 identifier of a cosmos chain address.
func (ca ChainAddress) AccountID() AccountID {
	return AccountID{
		Namespace:      CosmosNamespace,
		Reference:      ca.ChainID,
		AccountAddress: ca.Value,
	}
}

func (ChainAddress) isAccountIDArg() {}

// AccountID is a parsed CAIP-10 account identifier.
type AccountID struct {
	Namespace      string `json:"namespace" yaml:"namespace"`
	Reference      string `json:"reference" yaml:"reference"`
	AccountAddress string `json:"accountAddress" yaml:"account_address"`
}

// String renders the identifier as namespace:reference:address.
func (id AccountID) String() string {
	return fmt.Sprintf("%s:%s:%s", id.Namespace, id.Reference, id.AccountAddress)
}

// CAIP10 is an unparsed CAIP-10 account identifier string.
type CAIP10 string

func (CAIP10) isAccountIDArg() {}

// AccountIDArg is either a ChainAddress or a CAIP10 string.
type AccountIDArg interface {
	isAccountIDArg()
}

var (
	_ AccountIDArg = ChainAddress{}
	_ AccountIDArg = CAIP10("")
)

// ParseAccountID splits a CAIP-10 string into its three parts. The parts
// themselves are not validated.
func ParseAccountID(accountID string) (AccountID, error) {
	parts := strings.Split(accountID, ":")
	if len(parts) != 3 {
		return AccountID{}, errorsmod.Wrapf(ErrMalformedAccountID, "expected namespace:reference:address, got %q", accountID)
	}

	return AccountID{
		Namespace:      parts[0],
		Reference:      parts[1],
		AccountAddress: parts[2],
	}, nil
}

// ResolveAccountIDArg returns the AccountID for a ChainAddress or a CAIP-10
// string. ChainAddresses are never string-parsed.
func ResolveAccountIDArg(arg AccountIDArg) (AccountID, error) {
	switch a := arg.(type) {
	case ChainAddress:
		return a.AccountID(), nil
	case *ChainAddress:
		if a == nil {
			return AccountID{}, errorsmod.Wrap(ErrMissingArgument, "chain address cannot be nil")
		}
		return a.AccountID(), nil
	case CAIP10:
		return ParseAccountID(string(a))
	default:
		return AccountID{}, errorsmod.Wrapf(ErrMalformedAccountID, "unsupported account id argument %T", arg)
	}
}

// AccountIDToFixedBytes returns the 32 byte encoding of a CAIP-10 account.
// Only eip155 accounts are supported: the 20 byte hex address is left-padded
// with zeros.
func AccountIDToFixedBytes(accountID string) ([FixedBytesLength]byte, error) {
	var out [FixedBytesLength]byte

	id, err := ParseAccountID(accountID)
	if err != nil {
		return out, err
	}

	switch id.Namespace {
	case EIP155Namespace:
		bz, err := hexutil.Decode(id.AccountAddress)
		if err != nil {
			return out, errorsmod.Wrapf(ErrMalformedAddress, "invalid hex address %q: %s", id.AccountAddress, err)
		}
		if len(bz) != common.AddressLength {
			return out, errorsmod.Wrapf(ErrMalformedAddress, "address %q is %d bytes, expected %d", id.AccountAddress, len(bz), common.AddressLength)
		}
		copy(out[:], common.LeftPadBytes(bz, FixedBytesLength))
		return out, nil
	default:
		return out, errorsmod.Wrapf(ErrUnsupportedNamespace, "namespace %q", id.Namespace)
	}
}
