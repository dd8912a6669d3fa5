package keeper

import (
	"context"
	"strconv"

	errorsmod "cosmossdk.io/errors"
	metrics "github.com/hashicorp/go-metrics"

	"github.com/cosmos/cosmos-sdk/telemetry"

	"github.com/cosmos/ibc-orchestration/modules/apps/orchestration/types"
)

// Telemetry label names
const (
	LabelChainID      = "chain_id"
	LabelConnectionID = "connection_id"
	LabelSuccess      = "success"
)

type sendResult struct {
	ack string
	err error
}

// sendPacket sends packet on conn and waits for its acknowledgement. The
// wait is abandoned with ErrConnectionNotAvailable when closed is closed,
// so a packet in flight on a channel that goes away never hangs.
func sendPacket(ctx context.Context, conn types.Connection, closed <-chan struct{}, packet string) (string, error) {
	select {
	case <-closed:
		return "", errorsmod.Wrap(types.ErrConnectionNotAvailable, "channel closed before send")
	default:
	}

	resCh := make(chan sendResult, 1)
	go func() {
		ack, err := conn.Send(ctx, packet)
		resCh <- sendResult{ack: ack, err: err}
	}()

	select {
	case res := <-resCh:
		if res.err == nil {
			return res.ack, nil
		}
		select {
		case <-closed:
			return "", errorsmod.Wrapf(types.ErrConnectionNotAvailable, "channel closed with packet in flight: %s", res.err)
		default:
		}
		return "", errorsmod.Wrap(res.err, "failed to send packet")
	case <-closed:
		// an ack that raced the close still wins
		select {
		case res := <-resCh:
			if res.err == nil {
				return res.ack, nil
			}
		default:
		}
		return "", errorsmod.Wrap(types.ErrConnectionNotAvailable, "channel closed with packet in flight")
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func reportPacket(kind string, labels []metrics.Label, err error) {
	labels = append(labels, telemetry.NewLabel(LabelSuccess, strconv.FormatBool(err == nil)))
	telemetry.IncrCounterWithLabels([]string{"ibc", types.ModuleName, kind}, 1, labels)
}
