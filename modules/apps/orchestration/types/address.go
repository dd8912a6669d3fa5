package types

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	errorsmod "cosmossdk.io/errors"
	"github.com/tidwall/gjson"
)

// ICAChannelAddressOptions overrides the ICS-27 channel parameters requested
// when opening an interchain account channel. Empty fields take defaults.
type ICAChannelAddressOptions struct {
	Version  string `json:"version,omitempty" yaml:"version"`
	Encoding string `json:"encoding,omitempty" yaml:"encoding"`
	Ordering string `json:"ordering,omitempty" yaml:"ordering"`
	TxType   string `json:"txType,omitempty" yaml:"tx_type"`
}

// DefaultICAChannelAddressOptions returns the options used when none are overridden
func DefaultICAChannelAddressOptions() ICAChannelAddressOptions {
	return ICAChannelAddressOptions{
		Version:  DefaultICAVersion,
		Encoding: DefaultEncoding,
		Ordering: OrderOrdered,
		TxType:   DefaultTxType,
	}
}

// WithDefaults fills every empty field with its default value.
func (o ICAChannelAddressOptions) WithDefaults() ICAChannelAddressOptions {
	def := DefaultICAChannelAddressOptions()
	if o.Version == "" {
		o.Version = def.Version
	}
	if o.Encoding == "" {
		o.Encoding = def.Encoding
	}
	if o.Ordering == "" {
		o.Ordering = def.Ordering
	}
	if o.TxType == "" {
		o.TxType = def.TxType
	}
	return o
}

// icaConnectionParams is the JSON blob embedded in an ICA channel address.
// Field order is part of the wire format.
type icaConnectionParams struct {
	Version                string `json:"version"`
	ControllerConnectionID string `json:"controllerConnectionId"`
	HostConnectionID       string `json:"hostConnectionId"`
	Address                string `json:"address"`
	Encoding               string `json:"encoding"`
	TxType                 string `json:"txType"`
}

// BuildICAChannelAddress returns the remote address used to request an
// interchain account channel:
//
//	/ibc-hop/{controllerConnectionId}/ibc-port/icahost/{ordering}/{json}
//
// The embedded account address is left empty; the host fills it in when it
// acknowledges the channel opening.
func BuildICAChannelAddress(hostConnectionID, controllerConnectionID string, opts ICAChannelAddressOptions) (string, error) {
	if strings.TrimSpace(hostConnectionID) == "" {
		return "", errorsmod.Wrap(ErrMissingArgument, "host connection id cannot be empty")
	}
	if strings.TrimSpace(controllerConnectionID) == "" {
		return "", errorsmod.Wrap(ErrMissingArgument, "controller connection id cannot be empty")
	}

	opts = opts.WithDefaults()
	if opts.Ordering != OrderOrdered && opts.Ordering != OrderUnordered {
		return "", errorsmod.Wrapf(ErrInvalidOrdering, "%q, expected %s or %s", opts.Ordering, OrderOrdered, OrderUnordered)
	}

	bz, err := json.Marshal(icaConnectionParams{
		Version:                opts.Version,
		ControllerConnectionID: controllerConnectionID,
		HostConnectionID:       hostConnectionID,
		Address:                "",
		Encoding:               opts.Encoding,
		TxType:                 opts.TxType,
	})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("/ibc-hop/%s/ibc-port/%s/%s/%s", controllerConnectionID, ICAHostPortID, opts.Ordering, bz), nil
}

// BuildICQChannelAddress returns the remote address used to request an
// interchain query channel. An empty version selects DefaultICQVersion.
func BuildICQChannelAddress(controllerConnectionID, version string) (string, error) {
	if strings.TrimSpace(controllerConnectionID) == "" {
		return "", errorsmod.Wrap(ErrMissingArgument, "controller connection id cannot be empty")
	}
	if version == "" {
		version = DefaultICQVersion
	}

	return fmt.Sprintf("/ibc-hop/%s/ibc-port/%s/%s/%s", controllerConnectionID, ICQHostPortID, OrderUnordered, version), nil
}

var jsonBlobRegex = regexp.MustCompile(`\{.*?\}`)

// ParseRemoteAddressField extracts the account address from the JSON blob
// embedded in a remote channel address. It never fails: a missing or
// malformed blob, a blob without an address, or an empty address all
// report false.
func ParseRemoteAddressField(remoteAddress string) (string, bool) {
	blob := jsonBlobRegex.FindString(remoteAddress)
	if blob == "" || !gjson.Valid(blob) {
		return "", false
	}

	address := gjson.Get(blob, "address")
	if address.Type != gjson.String || address.Str == "" {
		return "", false
	}

	return address.Str, true
}

// ExtractBech32Prefix returns the human readable part of a bech32 address,
// which is everything before the last "1".
func ExtractBech32Prefix(address string) (string, error) {
	split := strings.LastIndex(address, "1")
	switch {
	case split == -1:
		return "", errorsmod.Wrapf(ErrMalformedAddress, "no separator character found in %q", address)
	case split == 0:
		return "", errorsmod.Wrapf(ErrMalformedAddress, "missing prefix for %q", address)
	}

	return address[:split], nil
}
