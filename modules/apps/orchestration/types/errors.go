package types

import (
	errorsmod "cosmossdk.io/errors"
)

var (
	ErrMissingArgument         = errorsmod.Register(ModuleName, 2, "missing argument")
	ErrMalformedAddress        = errorsmod.Register(ModuleName, 3, "malformed address")
	ErrMalformedAccountID      = errorsmod.Register(ModuleName, 4, "malformed CAIP-10 account id")
	ErrUnsupportedNamespace    = errorsmod.Register(ModuleName, 5, "unsupported namespace")
	ErrConnectionNotAvailable  = errorsmod.Register(ModuleName, 6, "connection not available")
	ErrRemote                  = errorsmod.Register(ModuleName, 7, "remote error")
	ErrDecodeFailure           = errorsmod.Register(ModuleName, 8, "failed to decode acknowledgement")
	ErrNotYetAvailable         = errorsmod.Register(ModuleName, 9, "not yet available")
	ErrInvalidState            = errorsmod.Register(ModuleName, 10, "invalid connection state transition")
	ErrNotImplemented          = errorsmod.Register(ModuleName, 11, "not implemented")
	ErrInvalidConnectionState  = errorsmod.Register(ModuleName, 12, "invalid connection state")
	ErrInvalidPacket           = errorsmod.Register(ModuleName, 13, "invalid outgoing packet")
	ErrConnectionStateNotFound = errorsmod.Register(ModuleName, 14, "connection state not found")
	ErrInvalidOrdering         = errorsmod.Register(ModuleName, 15, "invalid channel ordering")
)

// RemoteError is returned when an acknowledgement carries an error from the
// remote chain or relayer. Its message is the remote text, unmodified.
type RemoteError struct {
	Reason string
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	return e.Reason
}

// Is reports whether target is ErrRemote so callers can use errors.Is.
func (e *RemoteError) Is(target error) bool {
	return target == ErrRemote
}
