package mock

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cosmos/ibc-orchestration/modules/apps/orchestration/types"
)

var (
	_ types.Network    = (*Network)(nil)
	_ types.Port       = (*Port)(nil)
	_ types.Connection = (*Connection)(nil)

	// ErrConnectionClosed is returned by Send on a closed mock connection
	ErrConnectionClosed = errors.New("mock connection closed")

	// ErrPortAlreadyBound is returned when a port path is bound twice
	ErrPortAlreadyBound = errors.New("mock port already bound")
)

// Network is an in-memory transport. Handshakes and acknowledgements are
// driven explicitly by tests through Dial, Connection and Packet.
type Network struct {
	mu    sync.Mutex
	ports map[string]*Port
	order []string

	// BindErr, when set, is returned by the next BindPort calls
	BindErr error
	// ConnectErr, ConnectGate and RemoteAddressFn are copied onto every newly
	// bound port
	ConnectErr      error
	ConnectGate     chan struct{}
	RemoteAddressFn func(requested string) string
}

// NewNetwork returns an empty mock network
func NewNetwork() *Network {
	return &Network{ports: make(map[string]*Port)}
}

// BindPort implements types.Network
func (n *Network) BindPort(_ context.Context, portPath string) (types.Port, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.BindErr != nil {
		return nil, n.BindErr
	}
	if _, found := n.ports[portPath]; found {
		return nil, fmt.Errorf("%w: %s", ErrPortAlreadyBound, portPath)
	}

	port := &Port{
		address:         portPath,
		dials:           make(chan *Dial, 16),
		ConnectErr:      n.ConnectErr,
		ConnectGate:     n.ConnectGate,
		RemoteAddressFn: n.RemoteAddressFn,
	}
	n.ports[portPath] = port
	n.order = append(n.order, portPath)
	return port, nil
}

// Port returns the port bound at portPath
func (n *Network) Port(portPath string) (*Port, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	port, found := n.ports[portPath]
	return port, found
}

// BoundPorts returns the bound port paths in binding order
func (n *Network) BoundPorts() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.order...)
}

// Port is a bound mock port. Every Connect call is recorded as a Dial.
type Port struct {
	address string
	dials   chan *Dial

	mu sync.Mutex
	// ConnectErr, when set, is returned by Connect
	ConnectErr error
	// ConnectGate, when set, holds Connect until it is closed, simulating a
	// slow transport
	ConnectGate chan struct{}
	// RemoteAddressFn, when set, completes the handshake synchronously inside
	// Connect, reporting the returned remote address.
	RemoteAddressFn func(requested string) string
}

// LocalAddress implements types.Port
func (p *Port) LocalAddress() string {
	return p.address
}

// Connect implements types.Port
func (p *Port) Connect(ctx context.Context, remoteAddress string, handler types.ConnectionHandler) error {
	p.mu.Lock()
	connectErr, gate, remoteFn := p.ConnectErr, p.ConnectGate, p.RemoteAddressFn
	p.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if connectErr != nil {
		return connectErr
	}

	dial := &Dial{RemoteAddress: remoteAddress, port: p, handler: handler}
	if remoteFn != nil {
		dial.Open(remoteFn(remoteAddress))
		return nil
	}

	p.dials <- dial
	return nil
}

// NextDial returns the next pending Connect call, failing if none arrives
// before ctx is done.
func (p *Port) NextDial(ctx context.Context) (*Dial, error) {
	select {
	case dial := <-p.dials:
		return dial, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Dial is a channel open request awaiting the remote side.
type Dial struct {
	RemoteAddress string

	port    *Port
	handler types.ConnectionHandler
}

// Open completes the handshake, reporting remoteAddress as the negotiated address.
func (d *Dial) Open(remoteAddress string) *Connection {
	conn := &Connection{
		handler: d.handler,
		packets: make(chan *Packet, 16),
		done:    make(chan struct{}),
	}
	d.handler.OnOpen(conn, d.port.address, remoteAddress)
	return conn
}

// Fail aborts the handshake.
func (d *Dial) Fail(reason error) {
	d.handler.OnClose(nil, reason)
}

// Connection is an open mock channel. Sent packets are queued until the
// test acknowledges them.
type Connection struct {
	handler types.ConnectionHandler
	packets chan *Packet
	done    chan struct{}

	mu     sync.Mutex
	closed bool

	// CloseErr, when set, is returned by Close and leaves the connection open
	CloseErr error
}

// Send implements types.Connection
func (c *Connection) Send(ctx context.Context, data string) (string, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", ErrConnectionClosed
	}
	c.mu.Unlock()

	packet := &Packet{Data: data, ack: make(chan ackResult, 1)}
	select {
	case c.packets <- packet:
	case <-c.done:
		return "", ErrConnectionClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}

	select {
	case res := <-packet.ack:
		return res.ack, res.err
	case <-c.done:
		return "", ErrConnectionClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close implements types.Connection. The handler is notified synchronously.
func (c *Connection) Close(_ context.Context) error {
	if c.CloseErr != nil {
		return c.CloseErr
	}
	c.shutdown(nil)
	return nil
}

// Timeout simulates the remote side closing the channel, e.g. after a
// packet timeout on an ordered channel.
func (c *Connection) Timeout(reason error) {
	c.shutdown(reason)
}

func (c *Connection) shutdown(reason error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	// the owner learns of the close before pending sends are released
	c.handler.OnClose(c, reason)
	close(c.done)
}

// ReplayClose delivers another close notification for this connection, as
// a transport may after the owner has already moved to a new connection.
func (c *Connection) ReplayClose(reason error) {
	c.handler.OnClose(c, reason)
}

// IsClosed reports whether the connection was closed
func (c *Connection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// NextPacket returns the next sent packet, failing if none arrives before
// ctx is done.
func (c *Connection) NextPacket(ctx context.Context) (*Packet, error) {
	select {
	case packet := <-c.packets:
		return packet, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type ackResult struct {
	ack string
	err error
}

// Packet is a sent packet awaiting its acknowledgement.
type Packet struct {
	Data string

	ack chan ackResult
}

// Acknowledge delivers ack to the sender of this packet.
func (p *Packet) Acknowledge(ack string) {
	p.ack <- ackResult{ack: ack}
}

// Reject fails the send of this packet with err.
func (p *Packet) Reject(err error) {
	p.ack <- ackResult{err: err}
}
