package ledger

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// MemoryLedger is the in-process ShareLedger implementation. It snapshots by
// copying its balance map, which is cheap at the holder counts a single vault
// sees.
type MemoryLedger struct {
	balances  map[string]sdkmath.Int
	total     sdkmath.Int
	snapshots []ledgerSnapshot
}

type ledgerSnapshot struct {
	balances map[string]sdkmath.Int
	total    sdkmath.Int
}

// NewMemoryLedger creates an empty share ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances: make(map[string]sdkmath.Int),
		total:    sdkmath.ZeroInt(),
	}
}

func (l *MemoryLedger) Mint(holder string, amount sdkmath.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	l.balances[holder] = l.BalanceOf(holder).Add(amount)
	l.total = l.total.Add(amount)
	return nil
}

func (l *MemoryLedger) Burn(holder string, amount sdkmath.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	balance := l.BalanceOf(holder)
	if balance.LT(amount) {
		return fmt.Errorf("%w: %s holds %s, burn of %s requested",
			ErrInsufficientShares, holder, balance, amount)
	}
	l.balances[holder] = balance.Sub(amount)
	l.total = l.total.Sub(amount)
	return nil
}

func (l *MemoryLedger) Transfer(from, to string, amount sdkmath.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	balance := l.BalanceOf(from)
	if balance.LT(amount) {
		return fmt.Errorf("%w: %s holds %s, transfer of %s requested",
			ErrInsufficientShares, from, balance, amount)
	}
	l.balances[from] = balance.Sub(amount)
	l.balances[to] = l.BalanceOf(to).Add(amount)
	return nil
}

func (l *MemoryLedger) BalanceOf(holder string) sdkmath.Int {
	if balance, ok := l.balances[holder]; ok {
		return balance
	}
	return sdkmath.ZeroInt()
}

func (l *MemoryLedger) TotalSupply() sdkmath.Int {
	return l.total
}

// Snapshot implements types.Snapshotter.
func (l *MemoryLedger) Snapshot() int {
	l.snapshots = append(l.snapshots, ledgerSnapshot{
		balances: copyBalances(l.balances),
		total:    l.total,
	})
	return len(l.snapshots) - 1
}

// RevertTo implements types.Snapshotter.
func (l *MemoryLedger) RevertTo(id int) error {
	if id < 0 || id >= len(l.snapshots) {
		return fmt.Errorf("%w: %d", ErrUnknownSnapshot, id)
	}
	snap := l.snapshots[id]
	l.balances = snap.balances
	l.total = snap.total
	l.snapshots = l.snapshots[:id]
	return nil
}

// Release implements types.Snapshotter.
func (l *MemoryLedger) Release(id int) error {
	if id < 0 || id >= len(l.snapshots) {
		return fmt.Errorf("%w: %d", ErrUnknownSnapshot, id)
	}
	l.snapshots = l.snapshots[:id]
	return nil
}

func copyBalances(src map[string]sdkmath.Int) map[string]sdkmath.Int {
	dst := make(map[string]sdkmath.Int, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// MemoryBank is the in-process AssetBank implementation, keyed by account and
// denom, with ERC20-style allowances so the vault can pull deposits with
// TransferFrom after an Approve.
type MemoryBank struct {
	balances   map[string]map[string]sdkmath.Int // account -> denom -> amount
	allowances map[string]sdkmath.Int            // owner|spender|denom -> amount
	snapshots  []bankSnapshot
}

type bankSnapshot struct {
	balances   map[string]map[string]sdkmath.Int
	allowances map[string]sdkmath.Int
}

// NewMemoryBank creates an empty asset bank.
func NewMemoryBank() *MemoryBank {
	return &MemoryBank{
		balances:   make(map[string]map[string]sdkmath.Int),
		allowances: make(map[string]sdkmath.Int),
	}
}

func allowanceKey(owner, spender, denom string) string {
	return owner + "|" + spender + "|" + denom
}

func (b *MemoryBank) Transfer(from, to, denom string, amount sdkmath.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	balance := b.BalanceOf(from, denom)
	if balance.LT(amount) {
		return fmt.Errorf("%w: %s holds %s %s, transfer of %s requested",
			ErrInsufficientBalance, from, balance, denom, amount)
	}
	b.setBalance(from, denom, balance.Sub(amount))
	b.setBalance(to, denom, b.BalanceOf(to, denom).Add(amount))
	return nil
}

func (b *MemoryBank) TransferFrom(spender, from, to, denom string, amount sdkmath.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if spender != from {
		allowance := b.Allowance(from, spender, denom)
		if allowance.LT(amount) {
			return fmt.Errorf("%w: %s may move %s %s for %s, %s requested",
				ErrInsufficientAllowance, spender, allowance, denom, from, amount)
		}
		b.allowances[allowanceKey(from, spender, denom)] = allowance.Sub(amount)
	}
	return b.Transfer(from, to, denom, amount)
}

func (b *MemoryBank) Approve(owner, spender, denom string, amount sdkmath.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	b.allowances[allowanceKey(owner, spender, denom)] = amount
	return nil
}

func (b *MemoryBank) Allowance(owner, spender, denom string) sdkmath.Int {
	if allowance, ok := b.allowances[allowanceKey(owner, spender, denom)]; ok {
		return allowance
	}
	return sdkmath.ZeroInt()
}

func (b *MemoryBank) BalanceOf(holder, denom string) sdkmath.Int {
	if denoms, ok := b.balances[holder]; ok {
		if balance, ok := denoms[denom]; ok {
			return balance
		}
	}
	return sdkmath.ZeroInt()
}

func (b *MemoryBank) Mint(holder, denom string, amount sdkmath.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	b.setBalance(holder, denom, b.BalanceOf(holder, denom).Add(amount))
	return nil
}

func (b *MemoryBank) setBalance(holder, denom string, amount sdkmath.Int) {
	denoms, ok := b.balances[holder]
	if !ok {
		denoms = make(map[string]sdkmath.Int)
		b.balances[holder] = denoms
	}
	denoms[denom] = amount
}

// Snapshot implements types.Snapshotter.
func (b *MemoryBank) Snapshot() int {
	balances := make(map[string]map[string]sdkmath.Int, len(b.balances))
	for holder, denoms := range b.balances {
		balances[holder] = copyBalances(denoms)
	}
	b.snapshots = append(b.snapshots, bankSnapshot{
		balances:   balances,
		allowances: copyBalances(b.allowances),
	})
	return len(b.snapshots) - 1
}

// RevertTo implements types.Snapshotter.
func (b *MemoryBank) RevertTo(id int) error {
	if id < 0 || id >= len(b.snapshots) {
		return fmt.Errorf("%w: %d", ErrUnknownSnapshot, id)
	}
	snap := b.snapshots[id]
	b.balances = snap.balances
	b.allowances = snap.allowances
	b.snapshots = b.snapshots[:id]
	return nil
}

// Release implements types.Snapshotter.
func (b *MemoryBank) Release(id int) error {
	if id < 0 || id >= len(b.snapshots) {
		return fmt.Errorf("%w: %d", ErrUnknownSnapshot, id)
	}
	b.snapshots = b.snapshots[:id]
	return nil
}
