package keeper

import (
	"context"
	"sync"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	"github.com/cosmos/gogoproto/proto"
	metrics "github.com/hashicorp/go-metrics"

	"github.com/cosmos/cosmos-sdk/telemetry"

	"github.com/cosmos/ibc-orchestration/modules/apps/orchestration/types"
)

// stateRecorder persists connection snapshots on every transition.
type stateRecorder interface {
	recordState(state types.ConnectionState)
}

// Account is an interchain account on a remote chain, reached over an
// ordered ICS-27 channel. Its state is only changed by its own handshake
// callbacks and by Close and Reactivate.
type Account struct {
	logger   log.Logger
	recorder stateRecorder

	port                   types.Port
	portID                 string
	chainID                string
	requestedRemoteAddress string

	// sendMu keeps at most one packet in flight, matching channel ordering
	sendMu sync.Mutex

	mu            sync.Mutex
	status        types.ConnectionStatus
	connection    types.Connection
	localAddress  string
	remoteAddress string
	chainAddress  *types.ChainAddress
	closed        chan struct{}
}

func newAccount(logger log.Logger, recorder stateRecorder, port types.Port, portID, chainID, requestedRemoteAddress string) *Account {
	closed := make(chan struct{})
	close(closed)

	return &Account{
		logger:                 logger.With("port", portID, "chain_id", chainID),
		recorder:               recorder,
		port:                   port,
		portID:                 portID,
		chainID:                chainID,
		requestedRemoteAddress: requestedRemoteAddress,
		status:                 types.StatusUnbound,
		closed:                 closed,
	}
}

// restoreAccount rebuilds a closed account from a stored snapshot.
func restoreAccount(logger log.Logger, recorder stateRecorder, port types.Port, state types.ConnectionState) *Account {
	a := newAccount(logger, recorder, port, state.PortID, state.ChainID, state.RequestedRemoteAddress)
	a.status = types.StatusClosed
	a.localAddress = state.LocalAddress
	a.remoteAddress = state.RemoteAddress
	if state.ChainAddress != nil {
		chainAddress := *state.ChainAddress
		a.chainAddress = &chainAddress
	}
	return a
}

// accountHandler receives transport callbacks for an Account. It is kept
// separate so that only the transport can drive the handshake.
type accountHandler struct {
	account *Account
}

var _ types.ConnectionHandler = accountHandler{}

func (h accountHandler) OnOpen(conn types.Connection, localAddress, remoteAddress string) {
	h.account.onOpen(conn, localAddress, remoteAddress)
}

func (h accountHandler) OnClose(conn types.Connection, reason error) {
	h.account.onClose(conn, reason)
}

// connect requests the channel to the original remote address. The
// handshake may complete before Connect returns.
func (a *Account) connect(ctx context.Context) error {
	err := a.port.Connect(ctx, a.requestedRemoteAddress, accountHandler{account: a})

	a.mu.Lock()
	defer a.mu.Unlock()

	if err != nil {
		if a.status != types.StatusOpen {
			a.setStatus(types.StatusClosed)
		}
		a.logger.Error("failed to request interchain account channel", "error", err)
		return errorsmod.Wrapf(err, "failed to connect to %s", a.requestedRemoteAddress)
	}

	if a.status == types.StatusUnbound || a.status == types.StatusReactivating {
		a.setStatus(types.StatusPending)
	}
	return nil
}

func (a *Account) onOpen(conn types.Connection, localAddress, remoteAddress string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.status == types.StatusOpen || a.status == types.StatusClosed {
		a.logger.Debug("ignoring channel open outside of handshake", "status", a.status)
		return
	}

	address, ok := types.ParseRemoteAddressField(remoteAddress)
	if !ok {
		a.logger.Error("unable to parse account address from remote address", "remote_address", remoteAddress)
		address = types.UnparsableChainAddress
	}

	a.connection = conn
	a.localAddress = localAddress
	a.remoteAddress = remoteAddress
	a.chainAddress = &types.ChainAddress{
		ChainID:  a.chainID,
		Value:    address,
		Encoding: types.EncodingBech32,
	}
	a.closed = make(chan struct{})
	a.setStatus(types.StatusOpen)

	a.logger.Info("interchain account channel opened", "address", address, "remote_address", remoteAddress)
	telemetry.IncrCounterWithLabels(
		[]string{"ibc", types.ModuleName, "channel_open"},
		1,
		[]metrics.Label{telemetry.NewLabel(LabelChainID, a.chainID)},
	)
}

func (a *Account) onClose(conn types.Connection, reason error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// a callback from a connection this account no longer holds is stale
	if conn != nil && conn != a.connection {
		a.logger.Debug("ignoring close of stale connection", "reason", reason)
		return
	}
	if a.status == types.StatusClosed {
		return
	}

	a.markClosed()
	if reason != nil {
		a.logger.Info("interchain account channel closed", "reason", reason)
	} else {
		a.logger.Info("interchain account channel closed")
	}
}

// markClosed must be called with mu held.
func (a *Account) markClosed() {
	a.connection = nil
	select {
	case <-a.closed:
	default:
		close(a.closed)
	}
	a.setStatus(types.StatusClosed)

	telemetry.IncrCounterWithLabels(
		[]string{"ibc", types.ModuleName, "channel_close"},
		1,
		[]metrics.Label{telemetry.NewLabel(LabelChainID, a.chainID)},
	)
}

// setStatus must be called with mu held.
func (a *Account) setStatus(status types.ConnectionStatus) {
	a.status = status
	if a.recorder != nil {
		a.recorder.recordState(a.stateLocked())
	}
}

func (a *Account) stateLocked() types.ConnectionState {
	state := types.ConnectionState{
		Kind:                   types.KindICA,
		Status:                 a.status,
		PortID:                 a.portID,
		ChainID:                a.chainID,
		RequestedRemoteAddress: a.requestedRemoteAddress,
		LocalAddress:           a.localAddress,
		RemoteAddress:          a.remoteAddress,
	}
	if a.chainAddress != nil {
		chainAddress := *a.chainAddress
		state.ChainAddress = &chainAddress
	}
	return state
}

// State returns a snapshot of the account state.
func (a *Account) State() types.ConnectionState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stateLocked()
}

// Status returns the lifecycle status of the account.
func (a *Account) Status() types.ConnectionStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// GetAddress returns the address of the account on the remote chain. The
// value is UnparsableChainAddress when the host reported no usable address.
func (a *Account) GetAddress() (types.ChainAddress, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.chainAddress == nil {
		return types.ChainAddress{}, errorsmod.Wrap(types.ErrNotYetAvailable, "interchain account address is not available until the channel opens")
	}
	return *a.chainAddress, nil
}

// GetLocalAddress returns the local channel address reported by the transport.
func (a *Account) GetLocalAddress() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.localAddress == "" {
		return "", errorsmod.Wrap(types.ErrNotYetAvailable, "local address is not available until the channel opens")
	}
	return a.localAddress, nil
}

// GetRemoteAddress returns the remote channel address reported by the transport.
func (a *Account) GetRemoteAddress() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.remoteAddress == "" {
		return "", errorsmod.Wrap(types.ErrNotYetAvailable, "remote address is not available until the channel opens")
	}
	return a.remoteAddress, nil
}

// GetPort returns the local port owned by the account.
func (a *Account) GetPort() types.Port {
	return a.port
}

// PortID returns the identifier of the local port.
func (a *Account) PortID() string {
	return a.portID
}

// ChainID returns the chain the account lives on.
func (a *Account) ChainID() string {
	return a.chainID
}

// GetBalance is not available on interchain accounts; balances must be
// queried over an interchain query connection.
func (a *Account) GetBalance(_ context.Context, denom string) (string, error) {
	return "", errorsmod.Wrapf(types.ErrNotImplemented, "balance query for %s on interchain accounts", denom)
}

// GetBalances is not available on interchain accounts.
func (a *Account) GetBalances(_ context.Context) ([]string, error) {
	return nil, errorsmod.Wrap(types.ErrNotImplemented, "balances query on interchain accounts")
}

// ExecuteTx executes msgs atomically as the interchain account and returns
// the base64 encoded response bytes from the host. Packets are sent one at a
// time; a later call waits until the earlier one has its acknowledgement.
func (a *Account) ExecuteTx(ctx context.Context, msgs []types.Msg, opts types.TxOptions) (result string, err error) {
	defer func() {
		reportPacket("execute_tx", []metrics.Label{telemetry.NewLabel(LabelChainID, a.chainID)}, err)
	}()

	if _, _, err := a.openConnection(); err != nil {
		return "", err
	}

	packet, err := types.BuildTxPacket(msgs, opts)
	if err != nil {
		return "", err
	}

	a.sendMu.Lock()
	defer a.sendMu.Unlock()

	// the channel may have closed while waiting for the previous packet
	conn, closed, err := a.openConnection()
	if err != nil {
		return "", err
	}

	ack, err := sendPacket(ctx, conn, closed, packet)
	if err != nil {
		return "", err
	}

	return types.ParseTxAck(ack)
}

// ExecuteMsgs packs protobuf messages and executes them with ExecuteTx.
func (a *Account) ExecuteMsgs(ctx context.Context, msgs []proto.Message, opts types.TxOptions) (string, error) {
	packed := make([]types.Msg, len(msgs))
	for i, msg := range msgs {
		var err error
		if packed[i], err = types.NewMsg(msg); err != nil {
			return "", err
		}
	}

	return a.ExecuteTx(ctx, packed, opts)
}

func (a *Account) openConnection() (types.Connection, <-chan struct{}, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.status != types.StatusOpen || a.connection == nil {
		return nil, nil, errorsmod.Wrapf(types.ErrConnectionNotAvailable, "interchain account on port %s is %s", a.portID, a.status)
	}
	return a.connection, a.closed, nil
}

// Close closes the channel. The account can later be reactivated.
func (a *Account) Close(ctx context.Context) error {
	conn, _, err := a.openConnection()
	if err != nil {
		return err
	}

	if err := conn.Close(ctx); err != nil {
		return errorsmod.Wrap(err, "failed to close interchain account channel")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// the transport may already have reported the close
	if a.connection == conn {
		a.markClosed()
		a.logger.Info("interchain account channel closed by owner")
	}
	return nil
}

// Reactivate reopens a closed account by requesting a channel to the same
// remote address as the original, so the host resumes the same account.
func (a *Account) Reactivate(ctx context.Context) error {
	a.mu.Lock()
	switch a.status {
	case types.StatusOpen:
		a.mu.Unlock()
		return errorsmod.Wrap(types.ErrInvalidState, "interchain account is already open")
	case types.StatusPending, types.StatusReactivating:
		a.mu.Unlock()
		return errorsmod.Wrapf(types.ErrInvalidState, "interchain account is %s", a.status)
	}
	a.setStatus(types.StatusReactivating)
	a.mu.Unlock()

	a.logger.Info("reactivating interchain account", "remote_address", a.requestedRemoteAddress)
	return a.connect(ctx)
}
