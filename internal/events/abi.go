package events

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const poolEventsABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "sender", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "receiver", "type": "address"},
      {"indexed": false, "internalType": "bool", "name": "xToY", "type": "bool"},
      {"indexed": false, "internalType": "uint256", "name": "amountIn", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "amountOut", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "fee", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "sqrtPriceX80", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "liquidity", "type": "uint256"},
      {"indexed": false, "internalType": "int24", "name": "tick", "type": "int24"}
    ],
    "name": "Swap",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint256", "name": "positionId", "type": "uint256"},
      {"indexed": true, "internalType": "address", "name": "owner", "type": "address"},
      {"indexed": false, "internalType": "int24", "name": "tickLower", "type": "int24"},
      {"indexed": false, "internalType": "int24", "name": "tickUpper", "type": "int24"},
      {"indexed": false, "internalType": "uint256", "name": "liquidity", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "amountX", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "amountY", "type": "uint256"}
    ],
    "name": "PositionSet",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint256", "name": "positionId", "type": "uint256"},
      {"indexed": true, "internalType": "address", "name": "owner", "type": "address"},
      {"indexed": false, "internalType": "int256", "name": "liquidityDelta", "type": "int256"},
      {"indexed": false, "internalType": "int256", "name": "amountX", "type": "int256"},
      {"indexed": false, "internalType": "int256", "name": "amountY", "type": "int256"},
      {"indexed": false, "internalType": "uint256", "name": "feeX", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "feeY", "type": "uint256"}
    ],
    "name": "PositionUpdated",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "from", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "to", "type": "address"},
      {"indexed": true, "internalType": "uint256", "name": "positionId", "type": "uint256"}
    ],
    "name": "PositionTransferred",
    "type": "event"
  }
]`

var (
	poolEventsABI     abi.ABI
	poolEventsABIOnce sync.Once
	poolEventsABIErr  error
)

// PoolEventsABI returns the parsed pool events ABI.
func PoolEventsABI() (abi.ABI, error) {
	poolEventsABIOnce.Do(func() {
		poolEventsABI, poolEventsABIErr = abi.JSON(strings.NewReader(poolEventsABIJSON))
	})
	return poolEventsABI, poolEventsABIErr
}
