package types

import (
	"strings"

	errorsmod "cosmossdk.io/errors"
)

// ConnectionStatus is the lifecycle status of an account or query connection.
type ConnectionStatus string

const (
	// StatusUnbound means no channel has been requested yet
	StatusUnbound ConnectionStatus = "UNBOUND"
	// StatusPending means the port is bound and the channel open was requested
	StatusPending ConnectionStatus = "PENDING"
	// StatusOpen means the channel handshake completed
	StatusOpen ConnectionStatus = "OPEN"
	// StatusClosed means the channel was closed or the handshake failed
	StatusClosed ConnectionStatus = "CLOSED"
	// StatusReactivating means a closed connection is re-dialing its original remote address
	StatusReactivating ConnectionStatus = "REACTIVATING"
)

// IsKnown reports whether s is one of the defined statuses.
func (s ConnectionStatus) IsKnown() bool {
	switch s {
	case StatusUnbound, StatusPending, StatusOpen, StatusClosed, StatusReactivating:
		return true
	default:
		return false
	}
}

// ConnectionKind distinguishes interchain account connections from query connections.
type ConnectionKind string

const (
	KindICA ConnectionKind = "ica"
	KindICQ ConnectionKind = "icq"
)

// ConnectionState is the serializable snapshot of a connection. It is what
// the embedding application persists and later hands back to rehydrate the
// connection.
type ConnectionState struct {
	Kind                   ConnectionKind   `json:"kind" yaml:"kind"`
	Status                 ConnectionStatus `json:"status" yaml:"status"`
	PortID                 string           `json:"port_id" yaml:"port_id"`
	ChainID                string           `json:"chain_id,omitempty" yaml:"chain_id"`
	ControllerConnectionID string           `json:"controller_connection_id,omitempty" yaml:"controller_connection_id"`
	RequestedRemoteAddress string           `json:"requested_remote_address" yaml:"requested_remote_address"`
	LocalAddress           string           `json:"local_address,omitempty" yaml:"local_address"`
	RemoteAddress          string           `json:"remote_address,omitempty" yaml:"remote_address"`
	ChainAddress           *ChainAddress    `json:"chain_address,omitempty" yaml:"chain_address"`
}

// Validate performs basic validation of a connection state snapshot.
func (cs ConnectionState) Validate() error {
	if cs.Kind != KindICA && cs.Kind != KindICQ {
		return errorsmod.Wrapf(ErrInvalidConnectionState, "unknown kind %q", cs.Kind)
	}
	if !cs.Status.IsKnown() {
		return errorsmod.Wrapf(ErrInvalidConnectionState, "unknown status %q", cs.Status)
	}
	if strings.TrimSpace(cs.PortID) == "" {
		return errorsmod.Wrap(ErrInvalidConnectionState, "port id cannot be empty")
	}
	if strings.TrimSpace(cs.RequestedRemoteAddress) == "" {
		return errorsmod.Wrap(ErrInvalidConnectionState, "requested remote address cannot be empty")
	}
	if cs.Status == StatusOpen && cs.RemoteAddress == "" {
		return errorsmod.Wrap(ErrInvalidConnectionState, "open connection must have a remote address")
	}
	if cs.Kind == KindICA && cs.ChainID == "" {
		return errorsmod.Wrap(ErrInvalidConnectionState, "interchain account must have a chain id")
	}
	if cs.Kind == KindICQ && cs.ControllerConnectionID == "" {
		return errorsmod.Wrap(ErrInvalidConnectionState, "query connection must have a controller connection id")
	}

	return nil
}
