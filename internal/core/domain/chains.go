package domain

type ChainID uint64
type NetworkName string

const (
	// Chain IDs
	ChainIDEthereum ChainID = 1
	ChainIDGoerli   ChainID = 5
	ChainIDPolygon  ChainID = 137

	// Network names as used in configuration
	NetworkEthereum NetworkName = "ethereum"
	NetworkGoerli   NetworkName = "goerli"
	NetworkPolygon  NetworkName = "polygon"
)

// NetworkToChainID maps a configured network to its chain id.
var NetworkToChainID = map[NetworkName]ChainID{
	NetworkEthereum: ChainIDEthereum,
	NetworkGoerli:   ChainIDGoerli,
	NetworkPolygon:  ChainIDPolygon,
}

// ChainIDToNetwork maps a chain id back to its network name.
var ChainIDToNetwork = map[ChainID]NetworkName{
	ChainIDEthereum: NetworkEthereum,
	ChainIDGoerli:   NetworkGoerli,
	ChainIDPolygon:  NetworkPolygon,
}
