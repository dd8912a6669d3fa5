package keeper

import (
	"context"
	"sync"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	metrics "github.com/hashicorp/go-metrics"

	"github.com/cosmos/cosmos-sdk/telemetry"

	"github.com/cosmos/ibc-orchestration/modules/apps/orchestration/types"
)

// ICQConnection is an unordered interchain query channel to a remote chain.
// Queries may be issued concurrently; the transport pairs each
// acknowledgement with the send that produced it.
type ICQConnection struct {
	logger   log.Logger
	recorder stateRecorder

	port                   types.Port
	portID                 string
	controllerConnectionID string
	requestedRemoteAddress string

	mu            sync.Mutex
	status        types.ConnectionStatus
	connection    types.Connection
	localAddress  string
	remoteAddress string
	closed        chan struct{}
}

func newICQConnection(logger log.Logger, recorder stateRecorder, port types.Port, portID, controllerConnectionID, requestedRemoteAddress string) *ICQConnection {
	closed := make(chan struct{})
	close(closed)

	return &ICQConnection{
		logger:                 logger.With("port", portID, "connection_id", controllerConnectionID),
		recorder:               recorder,
		port:                   port,
		portID:                 portID,
		controllerConnectionID: controllerConnectionID,
		requestedRemoteAddress: requestedRemoteAddress,
		status:                 types.StatusUnbound,
		closed:                 closed,
	}
}

type icqHandler struct {
	conn *ICQConnection
}

var _ types.ConnectionHandler = icqHandler{}

func (h icqHandler) OnOpen(conn types.Connection, localAddress, remoteAddress string) {
	h.conn.onOpen(conn, localAddress, remoteAddress)
}

func (h icqHandler) OnClose(conn types.Connection, reason error) {
	h.conn.onClose(conn, reason)
}

func (c *ICQConnection) connect(ctx context.Context) error {
	err := c.port.Connect(ctx, c.requestedRemoteAddress, icqHandler{conn: c})

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		if c.status != types.StatusOpen {
			c.setStatus(types.StatusClosed)
		}
		c.logger.Error("failed to request interchain query channel", "error", err)
		return errorsmod.Wrapf(err, "failed to connect to %s", c.requestedRemoteAddress)
	}

	if c.status == types.StatusUnbound || c.status == types.StatusReactivating {
		c.setStatus(types.StatusPending)
	}
	return nil
}

// redial requests a new channel on the existing port when the connection is
// CLOSED. Connections that are open or mid-handshake are left alone.
func (c *ICQConnection) redial(ctx context.Context) error {
	c.mu.Lock()
	if c.status != types.StatusClosed {
		c.mu.Unlock()
		return nil
	}
	c.setStatus(types.StatusReactivating)
	c.mu.Unlock()

	c.logger.Info("re-requesting interchain query channel", "remote_address", c.requestedRemoteAddress)
	return c.connect(ctx)
}

func (c *ICQConnection) onOpen(conn types.Connection, localAddress, remoteAddress string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == types.StatusOpen || c.status == types.StatusClosed {
		c.logger.Debug("ignoring channel open outside of handshake", "status", c.status)
		return
	}

	c.connection = conn
	c.localAddress = localAddress
	c.remoteAddress = remoteAddress
	c.closed = make(chan struct{})
	c.setStatus(types.StatusOpen)

	c.logger.Info("interchain query channel opened", "remote_address", remoteAddress)
	telemetry.IncrCounterWithLabels(
		[]string{"ibc", types.ModuleName, "channel_open"},
		1,
		[]metrics.Label{telemetry.NewLabel(LabelConnectionID, c.controllerConnectionID)},
	)
}

func (c *ICQConnection) onClose(conn types.Connection, reason error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if conn != nil && conn != c.connection {
		c.logger.Debug("ignoring close of stale connection", "reason", reason)
		return
	}
	if c.status == types.StatusClosed {
		return
	}

	c.markClosed()
	c.logger.Info("interchain query channel closed", "reason", reason)
}

// markClosed must be called with mu held.
func (c *ICQConnection) markClosed() {
	c.connection = nil
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}
	c.setStatus(types.StatusClosed)

	telemetry.IncrCounterWithLabels(
		[]string{"ibc", types.ModuleName, "channel_close"},
		1,
		[]metrics.Label{telemetry.NewLabel(LabelConnectionID, c.controllerConnectionID)},
	)
}

// setStatus must be called with mu held.
func (c *ICQConnection) setStatus(status types.ConnectionStatus) {
	c.status = status
	if c.recorder != nil {
		c.recorder.recordState(c.stateLocked())
	}
}

func (c *ICQConnection) stateLocked() types.ConnectionState {
	return types.ConnectionState{
		Kind:                   types.KindICQ,
		Status:                 c.status,
		PortID:                 c.portID,
		ControllerConnectionID: c.controllerConnectionID,
		RequestedRemoteAddress: c.requestedRemoteAddress,
		LocalAddress:           c.localAddress,
		RemoteAddress:          c.remoteAddress,
	}
}

// State returns a snapshot of the connection state.
func (c *ICQConnection) State() types.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Status returns the lifecycle status of the connection.
func (c *ICQConnection) Status() types.ConnectionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// GetPort returns the local port owned by the connection.
func (c *ICQConnection) GetPort() types.Port {
	return c.port
}

// ControllerConnectionID returns the local connection the channel runs over.
func (c *ICQConnection) ControllerConnectionID() string {
	return c.controllerConnectionID
}

// GetLocalAddress returns the local channel address reported by the transport.
func (c *ICQConnection) GetLocalAddress() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.localAddress == "" {
		return "", errorsmod.Wrap(types.ErrNotYetAvailable, "local address is not available until the channel opens")
	}
	return c.localAddress, nil
}

// GetRemoteAddress returns the remote channel address reported by the transport.
func (c *ICQConnection) GetRemoteAddress() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.remoteAddress == "" {
		return "", errorsmod.Wrap(types.ErrNotYetAvailable, "remote address is not available until the channel opens")
	}
	return c.remoteAddress, nil
}

func (c *ICQConnection) openConnection() (types.Connection, <-chan struct{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != types.StatusOpen || c.connection == nil {
		return nil, nil, errorsmod.Wrapf(types.ErrConnectionNotAvailable, "interchain query connection on port %s is %s", c.portID, c.status)
	}
	return c.connection, c.closed, nil
}

// Query sends reqs as one batched packet and returns one response per
// request, in request order.
func (c *ICQConnection) Query(ctx context.Context, reqs []types.QueryRequest) (responses []types.QueryResponse, err error) {
	defer func() {
		reportPacket("query", []metrics.Label{telemetry.NewLabel(LabelConnectionID, c.controllerConnectionID)}, err)
	}()

	conn, closed, err := c.openConnection()
	if err != nil {
		return nil, err
	}

	packet, err := types.BuildQueryPacket(reqs)
	if err != nil {
		return nil, err
	}

	ack, err := sendPacket(ctx, conn, closed, packet)
	if err != nil {
		return nil, err
	}

	return types.ParseQueryAck(ack)
}

// Close closes the query channel.
func (c *ICQConnection) Close(ctx context.Context) error {
	conn, _, err := c.openConnection()
	if err != nil {
		return err
	}

	if err := conn.Close(ctx); err != nil {
		return errorsmod.Wrap(err, "failed to close interchain query channel")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connection == conn {
		c.markClosed()
		c.logger.Info("interchain query channel closed by owner")
	}
	return nil
}
