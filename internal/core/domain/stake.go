package domain

import "fmt"

// Balance is a stake amount in rao (1 tao = 1e9 rao).
type Balance uint64

const raoPerTao = 1_000_000_000

// Tao returns the balance in tao for display.
func (b Balance) Tao() float64 {
	return float64(b) / raoPerTao
}

func (b Balance) String() string {
	return fmt.Sprintf("%.9fτ", b.Tao())
}

// IsZero reports whether there is no stake.
func (b Balance) IsZero() bool { return b == 0 }

// StakeSnapshot is a point-in-time (hotkey, balance) reading. It is
// recomputed on demand and never cached beyond a single reporting pass.
type StakeSnapshot struct {
	Hotkey string
	Stake  Balance
}

// TruncateAddress shortens an SS58 address for notifications and logs.
func TruncateAddress(addr string) string {
	if len(addr) <= 8 {
		return addr
	}
	return "..." + addr[len(addr)-8:]
}
