package keeper

import (
	"encoding/json"

	errorsmod "cosmossdk.io/errors"
	dbm "github.com/cosmos/cosmos-db"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/cosmos/ibc-orchestration/modules/apps/orchestration/types"
)

// recordState implements stateRecorder. Persistence failures are logged;
// the in-memory transition has already happened.
func (k *Keeper) recordState(state types.ConnectionState) {
	if err := k.SetConnectionState(state); err != nil {
		k.Logger().Error("failed to persist connection state", "port", state.PortID, "status", state.Status, "error", err)
	}
}

// SetConnectionState stores the snapshot keyed by its port.
func (k *Keeper) SetConnectionState(state types.ConnectionState) error {
	if err := state.Validate(); err != nil {
		return err
	}

	bz, err := json.Marshal(state)
	if err != nil {
		return errorsmod.Wrapf(types.ErrInvalidConnectionState, "failed to marshal state: %s", err)
	}

	return k.db.Set(types.KeyConnectionState(state.PortID), bz)
}

// GetConnectionState returns the stored snapshot for the provided port.
func (k *Keeper) GetConnectionState(portID string) (types.ConnectionState, error) {
	bz, err := k.db.Get(types.KeyConnectionState(portID))
	if err != nil {
		return types.ConnectionState{}, err
	}
	if bz == nil {
		return types.ConnectionState{}, errorsmod.Wrapf(types.ErrConnectionStateNotFound, "port %s", portID)
	}

	var state types.ConnectionState
	if err := json.Unmarshal(bz, &state); err != nil {
		return types.ConnectionState{}, errorsmod.Wrapf(types.ErrInvalidConnectionState, "failed to unmarshal state for port %s: %s", portID, err)
	}
	return state, nil
}

// GetAllConnectionStates returns every stored snapshot, ordered by port.
func (k *Keeper) GetAllConnectionStates() ([]types.ConnectionState, error) {
	iterator, err := dbm.IteratePrefix(k.db, types.ConnectionStatePrefix)
	if err != nil {
		return nil, err
	}
	defer iterator.Close()

	var states []types.ConnectionState
	for ; iterator.Valid(); iterator.Next() {
		var state types.ConnectionState
		if err := json.Unmarshal(iterator.Value(), &state); err != nil {
			return nil, errorsmod.Wrapf(types.ErrInvalidConnectionState, "failed to unmarshal state at key %s: %s", iterator.Key(), err)
		}
		states = append(states, state)
	}

	return states, iterator.Error()
}

// GetPortNonce returns the last allocated controller port nonce.
func (k *Keeper) GetPortNonce() (uint64, error) {
	bz, err := k.db.Get(types.PortNonceKey)
	if err != nil {
		return 0, err
	}
	if bz == nil {
		return 0, nil
	}
	return sdk.BigEndianToUint64(bz), nil
}

// nextPortNonce allocates a new port nonce. Callers must hold k.mu.
func (k *Keeper) nextPortNonce() (uint64, error) {
	nonce, err := k.GetPortNonce()
	if err != nil {
		return 0, err
	}

	nonce++
	if err := k.db.Set(types.PortNonceKey, sdk.Uint64ToBigEndian(nonce)); err != nil {
		return 0, err
	}
	return nonce, nil
}
