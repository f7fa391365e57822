package abi_test

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/exposure-labs/subnet-relay/contract/abi"
)

var (
	transferTopic         = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
	testEventTopic        = crypto.Keccak256Hash([]byte("TestEvent(uint256,uint256)"))
	testIndexedEventTopic = crypto.Keccak256Hash([]byte("TestIndexedEvent(uint256,uint256)"))
	aliceAddr             = common.HexToAddress("0x01")
	alice                 = common.BytesToHash(aliceAddr.Bytes())
	bobAddr               = common.HexToAddress("0x02")
	bob                   = common.BytesToHash(bobAddr.Bytes())
)

func newTestABI() *abi.ABI {
	return abi.MustParseSignatures(
		"event Transfer(address indexed sender, address indexed receiver, uint256 value)",
		"event TestEvent(uint256 a, uint256 b)",
		"event TestIndexedEvent(uint256 indexed a, uint256 indexed b)",
		"function balanceOf(address owner) view returns (uint256)",
		"function updateMultiple(address[] tokens, uint256[] prices)",
	)
}

func TestParseSignatures(t *testing.T) {
	t.Parallel()

	testABI := newTestABI()

	balanceOf, ok := testABI.Methods["balanceOf"]
	require.True(t, ok)
	require.Equal(t, "view", balanceOf.StateMutability)
	require.True(t, balanceOf.IsConstant())
	require.Equal(t, crypto.Keccak256([]byte("balanceOf(address)"))[:4], balanceOf.ID)
	require.Len(t, balanceOf.Outputs, 1)

	update, ok := testABI.Methods["updateMultiple"]
	require.True(t, ok)
	require.False(t, update.IsConstant())
	require.Equal(t, crypto.Keccak256([]byte("updateMultiple(address[],uint256[])"))[:4], update.ID)

	require.Equal(t, transferTopic, testABI.Events["Transfer"].ID)
	require.Equal(t, testIndexedEventTopic, testABI.Events["TestIndexedEvent"].ID)
}

func TestParseSignatures_Defaults(t *testing.T) {
	t.Parallel()

	for _, sigs := range [][]string{abi.MainnetBridge, abi.SubnetBridge, abi.MainnetOracle, abi.SubnetOracle, abi.DexRouter, abi.DexFactory, abi.ERC20} {
		_, err := abi.ParseSignatures(sigs...)
		require.NoError(t, err)
	}

	bridge := abi.MustParseSignatures(abi.SubnetBridge...)
	require.Equal(t,
		crypto.Keccak256Hash([]byte("BridgeToMainnet(address,address,address,uint256,uint256,uint256,string,string)")),
		bridge.Events["BridgeToMainnet"].ID,
	)
}

func TestParseSignatures_Errors(t *testing.T) {
	t.Parallel()

	for _, sig := range []string{
		"",
		"event",
		"constructor(uint256 a)",
		"event Broken(uint256 a",
		"function f(uint256 indexed a)",
		"function f(uint257 a)",
		"function f((uint256,address) a)",
		"function f(uint256 a) sometimes",
		"function f(uint256 a) view returns uint256",
	} {
		_, err := abi.ParseSignatures(sig)
		require.Error(t, err, sig)
	}
}

func TestABI_FindMatchingEventABI(t *testing.T) {
	t.Parallel()

	testABI := newTestABI()

	event := testABI.FindMatchingEventABI([]common.Hash{transferTopic, alice, bob})
	require.NotNil(t, event)
	require.Equal(t, "Transfer", event.Name)
	event = testABI.FindMatchingEventABI([]common.Hash{transferTopic, alice})
	require.Nil(t, event)
	event = testABI.FindMatchingEventABI([]common.Hash{transferTopic, alice, bob, alice})
	require.Nil(t, event)
	event = testABI.FindMatchingEventABI([]common.Hash{testEventTopic})
	require.NotNil(t, event)
	require.Equal(t, "TestEvent", event.Name)
	require.Nil(t, testABI.FindMatchingEventABI(nil))
}

func TestABI_ParseLog(t *testing.T) {
	t.Parallel()

	testABI := newTestABI()

	value := big.NewInt(100)
	valueHash := common.BigToHash(value)
	logData := valueHash.Bytes()

	t.Run("should parse valid transfer event", func(t *testing.T) {
		t.Parallel()
		log := &types.Log{Topics: []common.Hash{transferTopic, alice, bob}, Data: logData}
		event, data, err := testABI.ParseLog(log)
		require.NoError(t, err)
		require.Equal(t, "event Transfer(address indexed sender, address indexed receiver, uint256 value)", event)
		require.Equal(t, map[string]interface{}{
			"sender":   aliceAddr,
			"receiver": bobAddr,
			"value":    value,
		}, data)
	})

	t.Run("should not parse anonymous event", func(t *testing.T) {
		t.Parallel()
		log := &types.Log{Data: logData}
		event, data, err := testABI.ParseLog(log)
		require.ErrorIs(t, err, abi.ErrInvalidEvent)
		require.Empty(t, event)
		require.Empty(t, data)
	})

	t.Run("should skip unknown event", func(t *testing.T) {
		t.Parallel()
		log := &types.Log{Topics: []common.Hash{transferTopic}, Data: logData}
		event, data, err := testABI.ParseLog(log)
		require.NoError(t, err)
		require.Empty(t, event)
		require.Empty(t, data)
	})

	t.Run("should decode event without indexed fields", func(t *testing.T) {
		t.Parallel()
		log := &types.Log{Topics: []common.Hash{testEventTopic}, Data: bytes.Repeat(logData, 2)}
		event, data, err := testABI.ParseLog(log)
		require.NoError(t, err)
		require.Equal(t, "event TestEvent(uint256 a, uint256 b)", event)
		require.Equal(t, map[string]interface{}{
			"a": value,
			"b": value,
		}, data)
	})

	t.Run("should decode event with only indexed fields", func(t *testing.T) {
		t.Parallel()
		log := &types.Log{Topics: []common.Hash{testIndexedEventTopic, valueHash, valueHash}}
		event, data, err := testABI.ParseLog(log)
		require.NoError(t, err)
		require.Equal(t, "event TestIndexedEvent(uint256 indexed a, uint256 indexed b)", event)
		require.Equal(t, map[string]interface{}{
			"a": value,
			"b": value,
		}, data)
	})

	t.Run("should fail to decode event with incompatible ABI", func(t *testing.T) {
		t.Parallel()
		log := &types.Log{Topics: []common.Hash{testEventTopic}, Data: logData}
		event, data, err := testABI.ParseLog(log)
		require.Error(t, err)
		require.Contains(t, err.Error(), "length insufficient")
		require.Empty(t, event)
		require.Empty(t, data)
	})
}
