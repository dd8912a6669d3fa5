package types_test

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/cosmos/ibc-orchestration/modules/apps/orchestration/types"
)

func (suite *TypesTestSuite) TestParseAccountID() {
	testCases := []struct {
		name      string
		accountID string
		expValue  types.AccountID
		expErr    error
	}{
		{
			"eip155",
			"eip155:1:0xABC0000000000000000000000000000000000DEF",
			types.AccountID{Namespace: "eip155", Reference: "1", AccountAddress: "0xABC0000000000000000000000000000000000DEF"},
			nil,
		},
		{
			"cosmos",
			"cosmos:cosmoshub-4:" + TestBech32Address,
			types.AccountID{Namespace: "cosmos", Reference: "cosmoshub-4", AccountAddress: TestBech32Address},
			nil,
		},
		{
			"parts are not validated",
			"::",
			types.AccountID{},
			nil,
		},
		{"too few parts", "eip155:0xABC", types.AccountID{}, types.ErrMalformedAccountID},
		{"no colons", "0xABC", types.AccountID{}, types.ErrMalformedAccountID},
		{"too many parts", "eip155:1:0xABC:extra", types.AccountID{}, types.ErrMalformedAccountID},
		{"empty", "", types.AccountID{}, types.ErrMalformedAccountID},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			id, err := types.ParseAccountID(tc.accountID)

			if tc.expErr == nil {
				suite.Require().NoError(err)
				suite.Require().Equal(tc.expValue, id)
				suite.Require().Equal(tc.accountID, id.String())
			} else {
				suite.Require().ErrorIs(err, tc.expErr)
			}
		})
	}
}

func (suite *TypesTestSuite) TestResolveAccountIDArg() {
	chainAddress := types.ChainAddress{ChainID: "osmosis-1", Value: "osmo1xyz", Encoding: types.EncodingBech32}
	expected := types.AccountID{Namespace: types.CosmosNamespace, Reference: "osmosis-1", AccountAddress: "osmo1xyz"}

	id, err := types.ResolveAccountIDArg(chainAddress)
	suite.Require().NoError(err)
	suite.Require().Equal(expected, id)

	id, err = types.ResolveAccountIDArg(&chainAddress)
	suite.Require().NoError(err)
	suite.Require().Equal(expected, id)

	// chain ids may contain colons; a chain address is never string-parsed
	colonChain := types.ChainAddress{ChainID: "a:b", Value: "addr"}
	id, err = types.ResolveAccountIDArg(colonChain)
	suite.Require().NoError(err)
	suite.Require().Equal("a:b", id.Reference)

	id, err = types.ResolveAccountIDArg(types.CAIP10("cosmos:osmosis-1:osmo1xyz"))
	suite.Require().NoError(err)
	suite.Require().Equal(expected, id)

	_, err = types.ResolveAccountIDArg(types.CAIP10("osmo1xyz"))
	suite.Require().ErrorIs(err, types.ErrMalformedAccountID)

	var nilAddress *types.ChainAddress
	_, err = types.ResolveAccountIDArg(nilAddress)
	suite.Require().ErrorIs(err, types.ErrMissingArgument)
}

func (suite *TypesTestSuite) TestAccountIDToFixedBytes() {
	evmAddress := "0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984"

	var expected [types.FixedBytesLength]byte
	copy(expected[12:], common.HexToAddress(evmAddress).Bytes())

	testCases := []struct {
		name      string
		accountID string
		expValue  [types.FixedBytesLength]byte
		expErr    error
	}{
		{"eip155 address is left padded", "eip155:42161:" + evmAddress, expected, nil},
		{"cosmos namespace unsupported", "cosmos:noble-1:noble1abc", [types.FixedBytesLength]byte{}, types.ErrUnsupportedNamespace},
		{"solana namespace unsupported", "solana:mainnet:abc", [types.FixedBytesLength]byte{}, types.ErrUnsupportedNamespace},
		{"malformed account id", "eip155:" + evmAddress, [types.FixedBytesLength]byte{}, types.ErrMalformedAccountID},
		{"missing 0x prefix", "eip155:1:1f9840a85d5aF5bf1D1762F925BDADdC4201F984", [types.FixedBytesLength]byte{}, types.ErrMalformedAddress},
		{"not hex", "eip155:1:0xzz", [types.FixedBytesLength]byte{}, types.ErrMalformedAddress},
		{"too long", "eip155:1:0x" + "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff00", [types.FixedBytesLength]byte{}, types.ErrMalformedAddress},
		{"empty hex address", "eip155:1:0x", [types.FixedBytesLength]byte{}, types.ErrMalformedAddress},
		{"single byte address", "eip155:1:0x01", [types.FixedBytesLength]byte{}, types.ErrMalformedAddress},
		{"21 byte address", "eip155:1:0x" + strings.Repeat("ab", 21), [types.FixedBytesLength]byte{}, types.ErrMalformedAddress},
		{"32 byte address", "eip155:1:0x" + strings.Repeat("ab", 32), [types.FixedBytesLength]byte{}, types.ErrMalformedAddress},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			bz, err := types.AccountIDToFixedBytes(tc.accountID)

			if tc.expErr == nil {
				suite.Require().NoError(err)
				suite.Require().Equal(tc.expValue, bz)
			} else {
				suite.Require().ErrorIs(err, tc.expErr)
			}
		})
	}
}

func (suite *TypesTestSuite) TestAccountIDToFixedBytesFixture() {
	bz, err := types.AccountIDToFixedBytes("eip155:1:0x20E68F6c276AC6E297aC46c84Ab260928276691D")
	suite.Require().NoError(err)
	suite.Require().Equal(
		"0x00000000000000000000000020e68f6c276ac6e297ac46c84ab260928276691d",
		hexutil.Encode(bz[:]),
	)
}
