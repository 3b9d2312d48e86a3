// Package subtensor provides the chain-client contract the workflows run
// against, a JSON-RPC implementation of it, and round-robin endpoint
// failover.
package subtensor

import (
	"context"

	"github.com/jbonilla-tao/sn35-vali-burn/internal/core/domain"
)

// Client is the chain collaborator contract. Implementations may block on
// every call and report errors the caller must classify; they never panic.
type Client interface {
	// GetCurrentBlock returns the current chain height.
	GetCurrentBlock(ctx context.Context) (uint64, error)
	// GetNextEpochStartBlock returns the next epoch boundary at or after
	// block. ok is false when the node cannot provide it.
	GetNextEpochStartBlock(ctx context.Context, netuid int, block uint64) (next uint64, ok bool, err error)
	// Tempo returns the subnet's blocks-per-epoch.
	Tempo(ctx context.Context, netuid int) (uint64, error)

	// GetOwnedHotkeys lists hotkeys owned by a coldkey.
	GetOwnedHotkeys(ctx context.Context, coldkey string) ([]string, error)
	// GetStake returns the stake for a (coldkey, hotkey, netuid) triple.
	GetStake(ctx context.Context, coldkey, hotkey string, netuid int) (domain.Balance, error)
	// IsHotkeyRegisteredOnSubnet reports subnet registration of a hotkey.
	IsHotkeyRegisteredOnSubnet(ctx context.Context, hotkey string, netuid int) (bool, error)
	// GetUIDForHotkey resolves a hotkey to its subnet UID.
	GetUIDForHotkey(ctx context.Context, hotkey string, netuid int) (int, error)

	// MoveStake moves stake between hotkeys under the same coldkey.
	MoveStake(ctx context.Context, p MoveStakeParams) (bool, error)
	// TransferStake transfers stake to another coldkey.
	TransferStake(ctx context.Context, p TransferStakeParams) (bool, error)
	// SetWeights submits a weight-setting transaction. The message carries
	// the chain's rejection text when ok is false.
	SetWeights(ctx context.Context, p SetWeightsParams) (ok bool, message string, err error)

	// QueryState performs a generic key-value chain-state query in the
	// subtensor module (e.g. "ValidatorPermit", "WeightsVersionKey").
	QueryState(ctx context.Context, name string, params ...any) (any, error)

	// Close releases the underlying connection.
	Close() error
}

// MoveStakeParams describes a hotkey-to-hotkey stake move.
type MoveStakeParams struct {
	OriginHotkey      string
	DestinationHotkey string
	OriginNetuid      int
	DestinationNetuid int
	MoveAllStake      bool
	Amount            domain.Balance // ignored when MoveAllStake
}

// TransferStakeParams describes a stake transfer to another coldkey.
type TransferStakeParams struct {
	DestinationColdkey  string
	Hotkey              string
	OriginNetuid        int
	DestinationNetuid   int
	Amount              domain.Balance
	WaitForInclusion    bool
	WaitForFinalization bool
}

// SetWeightsParams describes a weight-setting submission.
type SetWeightsParams struct {
	Netuid              int
	UIDs                []int
	Weights             []float64
	VersionKey          uint64
	WaitForInclusion    bool
	WaitForFinalization bool
}
