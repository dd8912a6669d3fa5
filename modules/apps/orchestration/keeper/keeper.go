package keeper

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	dbm "github.com/cosmos/cosmos-db"
	"golang.org/x/sync/errgroup"

	"github.com/cosmos/ibc-orchestration/internal/collections"
	"github.com/cosmos/ibc-orchestration/internal/validate"
	"github.com/cosmos/ibc-orchestration/modules/apps/orchestration/types"
)

// Keeper creates and tracks interchain accounts and interchain query
// connections. Every connection gets its own freshly bound port.
type Keeper struct {
	network types.Network
	db      dbm.DB
	logger  log.Logger

	mu             sync.Mutex
	accounts       map[string]*Account
	icqConnections map[string]*ICQConnection
}

// NewKeeper creates a new orchestration Keeper instance
func NewKeeper(network types.Network, db dbm.DB, logger log.Logger) *Keeper {
	if network == nil {
		panic("orchestration keeper requires a network to bind ports on")
	}
	if db == nil {
		panic("orchestration keeper requires a database")
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}

	return &Keeper{
		network:        network,
		db:             db,
		logger:         logger.With("module", fmt.Sprintf("x/%s", types.ModuleName)),
		accounts:       make(map[string]*Account),
		icqConnections: make(map[string]*ICQConnection),
	}
}

// Logger returns the keeper logger, scoped to the module
func (k *Keeper) Logger() log.Logger {
	return k.logger
}

// bindControllerPort allocates the next port nonce and binds the port.
// Callers must hold k.mu.
func (k *Keeper) bindControllerPort(ctx context.Context, prefix string) (types.Port, string, error) {
	nonce, err := k.nextPortNonce()
	if err != nil {
		return nil, "", errorsmod.Wrap(err, "failed to allocate port nonce")
	}

	portID := prefix + strconv.FormatUint(nonce, 10)
	port, err := k.network.BindPort(ctx, types.ControllerPortPath(prefix, nonce))
	if err != nil {
		return nil, "", errorsmod.Wrapf(err, "unable to bind port %s", portID)
	}

	return port, portID, nil
}

// MakeAccount binds a new controller port and requests an interchain
// account channel to the host chain. The returned account is PENDING until
// the transport reports the handshake; it may already be OPEN if the
// transport completes the handshake synchronously.
//
// If the channel request fails the account stays registered in the CLOSED
// state, so it can be retrieved with GetAccount and reactivated.
func (k *Keeper) MakeAccount(ctx context.Context, chainID, hostConnectionID, controllerConnectionID string, opts types.ICAChannelAddressOptions) (*Account, error) {
	if err := validate.AccountRequest(chainID, hostConnectionID, controllerConnectionID); err != nil {
		return nil, err
	}

	remoteAddress, err := types.BuildICAChannelAddress(hostConnectionID, controllerConnectionID, opts)
	if err != nil {
		return nil, err
	}

	k.mu.Lock()
	port, portID, err := k.bindControllerPort(ctx, types.ICAControllerPortPrefix)
	if err != nil {
		k.mu.Unlock()
		return nil, err
	}

	account := newAccount(k.Logger(), k, port, portID, chainID, remoteAddress)
	k.accounts[portID] = account
	k.mu.Unlock()

	account.mu.Lock()
	account.setStatus(types.StatusUnbound)
	account.mu.Unlock()

	k.Logger().Info("requesting interchain account", "port", portID, "chain_id", chainID, "host_connection_id", hostConnectionID, "controller_connection_id", controllerConnectionID)

	if err := account.connect(ctx); err != nil {
		return nil, err
	}

	return account, nil
}

// ProvideICQConnection returns the interchain query connection for the
// controller connection, requesting a new channel only on first use. A
// connection that has since closed, or whose channel request failed, is
// re-dialed on its original port.
func (k *Keeper) ProvideICQConnection(ctx context.Context, controllerConnectionID, version string) (*ICQConnection, error) {
	if err := validate.ConnectionIDs(controllerConnectionID); err != nil {
		return nil, err
	}

	remoteAddress, err := types.BuildICQChannelAddress(controllerConnectionID, version)
	if err != nil {
		return nil, err
	}

	k.mu.Lock()
	if conn, found := k.icqConnections[controllerConnectionID]; found {
		k.mu.Unlock()

		if err := conn.redial(ctx); err != nil {
			return nil, err
		}
		return conn, nil
	}

	port, portID, err := k.bindControllerPort(ctx, types.ICQControllerPortPrefix)
	if err != nil {
		k.mu.Unlock()
		return nil, err
	}

	conn := newICQConnection(k.Logger(), k, port, portID, controllerConnectionID, remoteAddress)
	k.icqConnections[controllerConnectionID] = conn
	k.mu.Unlock()

	conn.mu.Lock()
	conn.setStatus(types.StatusUnbound)
	conn.mu.Unlock()

	k.Logger().Info("requesting interchain query connection", "port", portID, "controller_connection_id", controllerConnectionID)

	if err := conn.connect(ctx); err != nil {
		return nil, err
	}

	return conn, nil
}

// GetAccount returns the account owning the provided port.
func (k *Keeper) GetAccount(portID string) (*Account, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	account, found := k.accounts[portID]
	return account, found
}

// GetICQConnection returns the query connection for the controller connection.
func (k *Keeper) GetICQConnection(controllerConnectionID string) (*ICQConnection, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	conn, found := k.icqConnections[controllerConnectionID]
	return conn, found
}

// Accounts returns every known account, ordered by port.
func (k *Keeper) Accounts() []*Account {
	k.mu.Lock()
	defer k.mu.Unlock()

	portIDs := collections.SortedKeys(k.accounts)
	accounts := make([]*Account, len(portIDs))
	for i, portID := range portIDs {
		accounts[i] = k.accounts[portID]
	}
	return accounts
}

// RestoreAccounts rehydrates connections from stored snapshots. Transport
// connections do not survive a restart: accounts are rebound on their
// original port and come back CLOSED with their chain address, ready for
// Reactivate; query connections are rebound and re-dialed. Connections that
// are already registered are skipped.
func (k *Keeper) RestoreAccounts(ctx context.Context) ([]*Account, []*ICQConnection, error) {
	states, err := k.GetAllConnectionStates()
	if err != nil {
		return nil, nil, err
	}

	var (
		accounts       []*Account
		icqConnections []*ICQConnection
	)
	for _, state := range states {
		if err := state.Validate(); err != nil {
			return accounts, icqConnections, err
		}

		switch state.Kind {
		case types.KindICA:
			account, err := k.restoreAccount(ctx, state)
			if err != nil {
				return accounts, icqConnections, err
			}
			if account != nil {
				accounts = append(accounts, account)
			}
		case types.KindICQ:
			conn, err := k.restoreICQConnection(ctx, state)
			if err != nil {
				return accounts, icqConnections, err
			}
			if conn != nil {
				icqConnections = append(icqConnections, conn)
			}
		}
	}

	return accounts, icqConnections, nil
}

func (k *Keeper) restoreAccount(ctx context.Context, state types.ConnectionState) (*Account, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if _, found := k.accounts[state.PortID]; found {
		return nil, nil
	}

	port, err := k.network.BindPort(ctx, portPathFromID(state.PortID))
	if err != nil {
		return nil, errorsmod.Wrapf(err, "unable to rebind port %s", state.PortID)
	}

	account := restoreAccount(k.Logger(), k, port, state)
	k.accounts[state.PortID] = account

	account.mu.Lock()
	account.setStatus(types.StatusClosed)
	account.mu.Unlock()

	k.Logger().Info("restored interchain account", "port", state.PortID, "chain_id", state.ChainID)
	return account, nil
}

func (k *Keeper) restoreICQConnection(ctx context.Context, state types.ConnectionState) (*ICQConnection, error) {
	k.mu.Lock()
	if _, found := k.icqConnections[state.ControllerConnectionID]; found {
		k.mu.Unlock()
		return nil, nil
	}

	port, err := k.network.BindPort(ctx, portPathFromID(state.PortID))
	if err != nil {
		k.mu.Unlock()
		return nil, errorsmod.Wrapf(err, "unable to rebind port %s", state.PortID)
	}

	conn := newICQConnection(k.Logger(), k, port, state.PortID, state.ControllerConnectionID, state.RequestedRemoteAddress)
	k.icqConnections[state.ControllerConnectionID] = conn
	k.mu.Unlock()

	k.Logger().Info("restoring interchain query connection", "port", state.PortID, "controller_connection_id", state.ControllerConnectionID)
	if err := conn.connect(ctx); err != nil {
		return nil, err
	}
	return conn, nil
}

// CloseAll closes every open account and query channel concurrently.
func (k *Keeper) CloseAll(ctx context.Context) error {
	k.mu.Lock()
	accounts := make([]*Account, 0, len(k.accounts))
	for _, account := range k.accounts {
		accounts = append(accounts, account)
	}
	icqConnections := make([]*ICQConnection, 0, len(k.icqConnections))
	for _, conn := range k.icqConnections {
		icqConnections = append(icqConnections, conn)
	}
	k.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, account := range accounts {
		account := account
		if account.Status() != types.StatusOpen {
			continue
		}
		g.Go(func() error {
			return account.Close(gctx)
		})
	}
	for _, conn := range icqConnections {
		conn := conn
		if conn.Status() != types.StatusOpen {
			continue
		}
		g.Go(func() error {
			return conn.Close(gctx)
		})
	}

	return g.Wait()
}

func portPathFromID(portID string) string {
	return "/ibc-port/" + portID
}
