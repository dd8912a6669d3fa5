package validate

import (
	"strings"

	errorsmod "cosmossdk.io/errors"

	"github.com/cosmos/ibc-orchestration/modules/apps/orchestration/types"
)

// AccountRequest validates the arguments of an interchain account request.
// Connection identifiers are validated when the channel address is built.
func AccountRequest(chainID, hostConnectionID, controllerConnectionID string) error {
	if strings.TrimSpace(chainID) == "" {
		return errorsmod.Wrap(types.ErrMissingArgument, "chain id cannot be empty")
	}
	if strings.ContainsAny(chainID, " \t\n") {
		return errorsmod.Wrapf(types.ErrMissingArgument, "chain id %q contains whitespace", chainID)
	}

	return ConnectionIDs(hostConnectionID, controllerConnectionID)
}

// ConnectionIDs validates that every provided connection identifier is non-empty.
func ConnectionIDs(connectionIDs ...string) error {
	for i, id := range connectionIDs {
		if strings.TrimSpace(id) == "" {
			return errorsmod.Wrapf(types.ErrMissingArgument, "connection id at position %d cannot be empty", i)
		}
	}

	return nil
}
