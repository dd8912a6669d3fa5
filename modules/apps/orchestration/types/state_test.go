package types_test

import (
	"github.com/cosmos/ibc-orchestration/modules/apps/orchestration/types"
)

func (suite *TypesTestSuite) TestConnectionStateValidate() {
	var state types.ConnectionState

	testCases := []struct {
		name     string
		malleate func()
		expErr   error
	}{
		{
			"success",
			func() {},
			nil,
		},
		{
			"success icq",
			func() {
				state.Kind = types.KindICQ
				state.ChainID = ""
				state.ControllerConnectionID = TestControllerConnectionID
			},
			nil,
		},
		{
			"unknown kind",
			func() {
				state.Kind = "ics20"
			},
			types.ErrInvalidConnectionState,
		},
		{
			"unknown status",
			func() {
				state.Status = "HALF_OPEN"
			},
			types.ErrInvalidConnectionState,
		},
		{
			"empty port",
			func() {
				state.PortID = " "
			},
			types.ErrInvalidConnectionState,
		},
		{
			"empty requested remote address",
			func() {
				state.RequestedRemoteAddress = ""
			},
			types.ErrInvalidConnectionState,
		},
		{
			"open without remote address",
			func() {
				state.RemoteAddress = ""
			},
			types.ErrInvalidConnectionState,
		},
		{
			"account without chain id",
			func() {
				state.ChainID = ""
			},
			types.ErrInvalidConnectionState,
		},
		{
			"query connection without controller connection",
			func() {
				state.Kind = types.KindICQ
			},
			types.ErrInvalidConnectionState,
		},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			state = types.ConnectionState{
				Kind:                   types.KindICA,
				Status:                 types.StatusOpen,
				PortID:                 "icacontroller-1",
				ChainID:                TestChainID,
				RequestedRemoteAddress: "/ibc-hop/connection-0/ibc-port/icahost/ordered/{}",
				LocalAddress:           "/ibc-port/icacontroller-1",
				RemoteAddress:          "/ibc-hop/connection-0/ibc-port/icahost/ordered/{}/ibc-channel/channel-1",
				ChainAddress:           &types.ChainAddress{ChainID: TestChainID, Value: TestBech32Address, Encoding: types.EncodingBech32},
			}

			tc.malleate()

			err := state.Validate()
			if tc.expErr == nil {
				suite.Require().NoError(err)
			} else {
				suite.Require().ErrorIs(err, tc.expErr)
			}
		})
	}
}

func (suite *TypesTestSuite) TestKeyConnectionState() {
	key := types.KeyConnectionState("icacontroller-3")
	suite.Require().Equal("connectionState/icacontroller-3", string(key))

	// the shared prefix must not be mutated by key construction
	suite.Require().Equal("connectionState/", string(types.ConnectionStatePrefix))
}

func (suite *TypesTestSuite) TestControllerPortPath() {
	suite.Require().Equal("/ibc-port/icacontroller-4", types.ControllerPortPath(types.ICAControllerPortPrefix, 4))
	suite.Require().Equal("/ibc-port/icqcontroller-0", types.ControllerPortPath(types.ICQControllerPortPrefix, 0))
}
