package types

import (
	"context"
)

// Network binds local ports on the IBC transport.
type Network interface {
	BindPort(ctx context.Context, portPath string) (Port, error)
}

// Port is a locally bound transport port.
type Port interface {
	// LocalAddress returns the address of the bound port.
	LocalAddress() string

	// Connect requests a channel to remoteAddress. Completion of the
	// handshake is reported through handler.OnOpen; failure of an
	// already-initiated handshake through handler.OnClose.
	Connect(ctx context.Context, remoteAddress string, handler ConnectionHandler) error
}

// Connection is an open channel end.
type Connection interface {
	// Send transmits a packet and blocks until its acknowledgement arrives.
	Send(ctx context.Context, packet string) (string, error)

	// Close closes the channel.
	Close(ctx context.Context) error
}

// ConnectionHandler receives channel lifecycle callbacks from the transport.
type ConnectionHandler interface {
	OnOpen(conn Connection, localAddress, remoteAddress string)
	OnClose(conn Connection, reason error)
}
