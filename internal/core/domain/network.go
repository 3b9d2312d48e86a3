package domain

import "fmt"

// Network identifies a subtensor network in the round-robin set.
type Network string

const (
	NetworkLocal     Network = "local"
	NetworkFinney    Network = "finney"
	NetworkSubvortex Network = "subvortex"
)

// DefaultEndpointDomain is the domain used to derive remote chain endpoints.
const DefaultEndpointDomain = "opentensor.ai"

// DefaultNetworks is the failover order: local -> finney -> subvortex -> local.
var DefaultNetworks = []Network{NetworkLocal, NetworkFinney, NetworkSubvortex}

// EndpointURL resolves the chain endpoint for a network. The local network
// uses no explicit remote address and resolves to the default local node.
func (n Network) EndpointURL(domain string) string {
	if n == NetworkLocal {
		return "ws://127.0.0.1:9944"
	}
	if domain == "" {
		domain = DefaultEndpointDomain
	}
	return fmt.Sprintf("wss://entrypoint-%s.%s:443", n, domain)
}

// BlockTime is the expected seconds per block on subtensor chains.
const BlockTime = 12
