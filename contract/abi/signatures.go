package abi

const (
	BridgeToSubnetEvent  = "event BridgeToSubnet(address indexed user, address indexed asset, uint256 indexed amount, uint256 _bridgeRequestID, string name_, string symbol_)"
	BridgeToMainnetEvent = "event BridgeToMainnet(address indexed user, address indexed assetMainnet, address indexed assetSubnet, uint256 amount, uint256 _bridgeRequestID, uint256 chainId, string name_, string symbol_)"

	BridgeToSubnetMethod          = "function bridgeToSubnet(address asset, address user, uint256 amount, uint256 _bridgeRequestID, string name_, string symbol_)"
	BridgeToMainnetMethod         = "function bridgeToMainnet(address asset, address user, uint256 amount, uint256 _bridgeRequestID, string symbol_)"
	BridgeRequestIsCompleteMethod = "function bridgeRequestIsComplete(uint256 requestId) view returns (bool)"

	PriceMethod                   = "function price(address target) view returns (uint256)"
	MarketCapMethod               = "function marketCap(address target) view returns (uint256)"
	MainnetUpdateMultipleMethod   = "function updateMultiple(address[] pairs, address[] tokens, address[] quotes)"
	SubnetUpdateMultipleMethod    = "function updateMultiple(address[] tokens, uint256[] prices)"
	UpdateMultipleMarketCapMethod = "function updateMultipleMarketCap(address[] tokens, uint256[] mcaps)"

	FactoryMethod   = "function factory() view returns (address)"
	GetPairMethod   = "function getPair(address tokenA, address tokenB) view returns (address pair)"
	BalanceOfMethod = "function balanceOf(address owner) view returns (uint256)"
)

// Default declarations used when a network config carries no abi list.
var (
	MainnetBridge = []string{BridgeToSubnetEvent, BridgeToMainnetMethod, BridgeRequestIsCompleteMethod}
	SubnetBridge  = []string{BridgeToMainnetEvent, BridgeToSubnetMethod, BridgeRequestIsCompleteMethod}
	MainnetOracle = []string{PriceMethod, MarketCapMethod, MainnetUpdateMultipleMethod}
	SubnetOracle  = []string{PriceMethod, MarketCapMethod, SubnetUpdateMultipleMethod, UpdateMultipleMarketCapMethod}
	DexRouter     = []string{FactoryMethod}
	DexFactory    = []string{GetPairMethod}
	ERC20         = []string{BalanceOfMethod}
)
