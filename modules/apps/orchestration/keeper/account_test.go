package keeper_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	txtypes "github.com/cosmos/cosmos-sdk/types/tx"
	banktypes "github.com/cosmos/cosmos-sdk/x/bank/types"
	"github.com/cosmos/gogoproto/proto"

	"github.com/cosmos/ibc-orchestration/modules/apps/orchestration/keeper"
	"github.com/cosmos/ibc-orchestration/modules/apps/orchestration/types"
	"github.com/cosmos/ibc-orchestration/testing/mock"
)

type executeResult struct {
	result string
	err    error
}

func (suite *KeeperTestSuite) msgSend(amount int64) *banktypes.MsgSend {
	return &banktypes.MsgSend{
		FromAddress: TestAccountAddress,
		ToAddress:   "cosmos1qyqszqgpqyqszqgpqyqszqgpqyqszqgpjnp7du",
		Amount:      sdk.NewCoins(sdk.NewInt64Coin("uatom", amount)),
	}
}

// txAck returns a successful acknowledgement carrying one MsgSendResponse
// per executed message, along with its base64 result.
func (suite *KeeperTestSuite) txAck(numMsgs int) (string, string) {
	txMsgData := sdk.TxMsgData{}
	for i := 0; i < numMsgs; i++ {
		msgResponse, err := codectypes.NewAnyWithValue(&banktypes.MsgSendResponse{})
		suite.Require().NoError(err)
		txMsgData.MsgResponses = append(txMsgData.MsgResponses, msgResponse)
	}

	bz, err := txMsgData.Marshal()
	suite.Require().NoError(err)

	result := base64.StdEncoding.EncodeToString(bz)
	return fmt.Sprintf(`{"result":"%s"}`, result), result
}

func (suite *KeeperTestSuite) executeAsync(account *keeper.Account, msgs ...proto.Message) <-chan executeResult {
	resCh := make(chan executeResult, 1)
	go func() {
		result, err := account.ExecuteMsgs(suite.ctx, msgs, types.TxOptions{})
		resCh <- executeResult{result, err}
	}()
	return resCh
}

func (suite *KeeperTestSuite) nextPacket(conn *mock.Connection) *mock.Packet {
	packet, err := conn.NextPacket(suite.ctx)
	suite.Require().NoError(err)
	return packet
}

func (suite *KeeperTestSuite) awaitResult(resCh <-chan executeResult) executeResult {
	select {
	case res := <-resCh:
		return res
	case <-suite.ctx.Done():
		suite.FailNow("timed out waiting for execution result")
		return executeResult{}
	}
}

func (suite *KeeperTestSuite) TestAccountLifecycle() {
	account, dial := suite.makeAccount()

	_, err := account.GetAddress()
	suite.Require().ErrorIs(err, types.ErrNotYetAvailable)
	_, err = account.GetLocalAddress()
	suite.Require().ErrorIs(err, types.ErrNotYetAvailable)
	_, err = account.GetRemoteAddress()
	suite.Require().ErrorIs(err, types.ErrNotYetAvailable)

	_, err = account.ExecuteMsgs(suite.ctx, []proto.Message{suite.msgSend(1)}, types.TxOptions{})
	suite.Require().ErrorIs(err, types.ErrConnectionNotAvailable)

	remoteAddress := hostAddress(dial.RemoteAddress)
	conn := dial.Open(remoteAddress)
	suite.Require().Equal(types.StatusOpen, account.Status())

	address, err := account.GetAddress()
	suite.Require().NoError(err)
	suite.Require().Equal(types.ChainAddress{
		ChainID:  TestChainID,
		Value:    TestAccountAddress,
		Encoding: types.EncodingBech32,
	}, address)

	localAddress, err := account.GetLocalAddress()
	suite.Require().NoError(err)
	suite.Require().Equal("/ibc-port/icacontroller-1", localAddress)

	actualRemote, err := account.GetRemoteAddress()
	suite.Require().NoError(err)
	suite.Require().Equal(remoteAddress, actualRemote)

	resCh := suite.executeAsync(account, suite.msgSend(1), suite.msgSend(2))
	packet := suite.nextPacket(conn)

	var envelope struct {
		Type int32  `json:"type"`
		Data []byte `json:"data"`
		Memo string `json:"memo"`
	}
	suite.Require().NoError(json.Unmarshal([]byte(packet.Data), &envelope))
	suite.Require().Equal(int32(1), envelope.Type)

	var body txtypes.TxBody
	suite.Require().NoError(body.Unmarshal(envelope.Data))
	suite.Require().Len(body.Messages, 2)

	ack, expResult := suite.txAck(2)
	packet.Acknowledge(ack)

	res := suite.awaitResult(resCh)
	suite.Require().NoError(res.err)
	suite.Require().Equal(expResult, res.result)

	responses, err := types.DecodeTxMsgResponses(res.result)
	suite.Require().NoError(err)
	suite.Require().Len(responses, 2)

	suite.Require().NoError(account.Close(suite.ctx))
	suite.Require().Equal(types.StatusClosed, account.Status())
	suite.Require().True(conn.IsClosed())

	_, err = account.ExecuteMsgs(suite.ctx, []proto.Message{suite.msgSend(1)}, types.TxOptions{})
	suite.Require().ErrorIs(err, types.ErrConnectionNotAvailable)

	// the address survives the close
	address, err = account.GetAddress()
	suite.Require().NoError(err)
	suite.Require().Equal(TestAccountAddress, address.Value)

	err = account.Close(suite.ctx)
	suite.Require().ErrorIs(err, types.ErrConnectionNotAvailable)

	suite.Require().Contains(suite.logger.Messages(), "interchain account channel opened")
	suite.Require().Contains(suite.logger.Messages(), "interchain account channel closed")
}

func (suite *KeeperTestSuite) TestExecuteTxRemoteError() {
	account, conn := suite.openAccount()

	resCh := suite.executeAsync(account, suite.msgSend(1))
	suite.nextPacket(conn).Acknowledge(`{"error":"ABCI code: 5: error handling packet: see events for details"}`)

	res := suite.awaitResult(resCh)
	suite.Require().ErrorIs(res.err, types.ErrRemote)

	var remoteErr *types.RemoteError
	suite.Require().True(errors.As(res.err, &remoteErr))
	suite.Require().Equal("ABCI code: 5: error handling packet: see events for details", remoteErr.Error())

	// a remote error leaves the channel usable
	suite.Require().Equal(types.StatusOpen, account.Status())
}

func (suite *KeeperTestSuite) TestExecuteTxValidation() {
	account, _ := suite.openAccount()

	_, err := account.ExecuteTx(suite.ctx, nil, types.TxOptions{})
	suite.Require().ErrorIs(err, types.ErrMissingArgument)

	_, err = account.ExecuteTx(suite.ctx, []types.Msg{{Value: []byte{0x01}}}, types.TxOptions{})
	suite.Require().ErrorIs(err, types.ErrMissingArgument)
}

func (suite *KeeperTestSuite) TestExecuteTxSerialized() {
	account, conn := suite.openAccount()

	first := suite.executeAsync(account, suite.msgSend(1))
	firstPacket := suite.nextPacket(conn)

	second := suite.executeAsync(account, suite.msgSend(2))

	// the second packet is held back until the first is acknowledged
	shortCtx, cancel := context.WithTimeout(suite.ctx, 100*time.Millisecond)
	_, err := conn.NextPacket(shortCtx)
	cancel()
	suite.Require().Error(err)

	ack, expResult := suite.txAck(1)
	firstPacket.Acknowledge(ack)
	suite.Require().Equal(expResult, suite.awaitResult(first).result)

	suite.nextPacket(conn).Acknowledge(ack)
	res := suite.awaitResult(second)
	suite.Require().NoError(res.err)
	suite.Require().Equal(expResult, res.result)
}

func (suite *KeeperTestSuite) TestExecuteTxInFlightOnClose() {
	account, conn := suite.openAccount()

	resCh := suite.executeAsync(account, suite.msgSend(1))
	suite.nextPacket(conn)

	conn.Timeout(errors.New("packet timed out"))

	res := suite.awaitResult(resCh)
	suite.Require().ErrorIs(res.err, types.ErrConnectionNotAvailable)
	suite.Require().Equal(types.StatusClosed, account.Status())

	// no reconnect is attempted on our behalf
	_, err := account.ExecuteMsgs(suite.ctx, []proto.Message{suite.msgSend(1)}, types.TxOptions{})
	suite.Require().ErrorIs(err, types.ErrConnectionNotAvailable)
}

func (suite *KeeperTestSuite) TestReactivate() {
	account, dial := suite.makeAccount()
	requested := dial.RemoteAddress

	err := account.Reactivate(suite.ctx)
	suite.Require().ErrorIs(err, types.ErrInvalidState, "reactivating a pending account")

	conn := dial.Open(hostAddress(requested))
	err = account.Reactivate(suite.ctx)
	suite.Require().ErrorIs(err, types.ErrInvalidState, "reactivating an open account")

	conn.Timeout(errors.New("channel closed by counterparty"))
	suite.Require().Equal(types.StatusClosed, account.Status())

	suite.Require().NoError(account.Reactivate(suite.ctx))
	suite.Require().Equal(types.StatusPending, account.Status())

	redial := suite.nextDial(account.GetPort())
	suite.Require().Equal(requested, redial.RemoteAddress)

	newConn := redial.Open(hostAddress(redial.RemoteAddress))
	suite.Require().Equal(types.StatusOpen, account.Status())

	resCh := suite.executeAsync(account, suite.msgSend(3))
	ack, expResult := suite.txAck(1)
	suite.nextPacket(newConn).Acknowledge(ack)
	suite.Require().Equal(expResult, suite.awaitResult(resCh).result)
}

func (suite *KeeperTestSuite) TestReactivateHandshakeFailure() {
	account, conn := suite.openAccount()
	suite.Require().NoError(account.Close(suite.ctx))
	suite.Require().True(conn.IsClosed())

	suite.Require().NoError(account.Reactivate(suite.ctx))
	suite.nextDial(account.GetPort()).Fail(errors.New("host rejected channel"))
	suite.Require().Equal(types.StatusClosed, account.Status())

	// a failed attempt can be retried
	suite.Require().NoError(account.Reactivate(suite.ctx))
	suite.Require().Equal(types.StatusPending, account.Status())
}

func (suite *KeeperTestSuite) TestStaleCloseIgnored() {
	account, oldConn := suite.openAccount()
	oldConn.Timeout(errors.New("packet timed out"))

	suite.Require().NoError(account.Reactivate(suite.ctx))
	dial := suite.nextDial(account.GetPort())
	newConn := dial.Open(hostAddress(dial.RemoteAddress))
	suite.Require().Equal(types.StatusOpen, account.Status())

	oldConn.ReplayClose(errors.New("late notification"))
	suite.Require().Equal(types.StatusOpen, account.Status())
	suite.Require().False(newConn.IsClosed())
}

func (suite *KeeperTestSuite) TestUnparsableRemoteAddress() {
	account, dial := suite.makeAccount()

	// the requested address carries an empty account address
	dial.Open(dial.RemoteAddress)
	suite.Require().Equal(types.StatusOpen, account.Status())

	address, err := account.GetAddress()
	suite.Require().NoError(err)
	suite.Require().Equal(types.UnparsableChainAddress, address.Value)
	suite.Require().Equal(TestChainID, address.ChainID)
	suite.Require().NotEmpty(suite.logger.ErrorLogs)
}

func (suite *KeeperTestSuite) TestCloseFailure() {
	account, conn := suite.openAccount()
	conn.CloseErr = errors.New("close rejected")

	err := account.Close(suite.ctx)
	suite.Require().ErrorContains(err, "close rejected")
	suite.Require().Equal(types.StatusOpen, account.Status())
}

func (suite *KeeperTestSuite) TestGetBalance() {
	account, _ := suite.openAccount()

	_, err := account.GetBalance(suite.ctx, "uatom")
	suite.Require().ErrorIs(err, types.ErrNotImplemented)

	_, err = account.GetBalances(suite.ctx)
	suite.Require().ErrorIs(err, types.ErrNotImplemented)
}
