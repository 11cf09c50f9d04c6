package ledger

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLedgerMintBurnTransfer(t *testing.T) {
	l := NewMemoryLedger()

	require.NoError(t, l.Mint("alice", sdkmath.NewInt(1000)))
	require.NoError(t, l.Mint("bob", sdkmath.NewInt(500)))
	assert.Equal(t, sdkmath.NewInt(1500), l.TotalSupply())

	require.NoError(t, l.Transfer("alice", "bob", sdkmath.NewInt(200)))
	assert.Equal(t, sdkmath.NewInt(800), l.BalanceOf("alice"))
	assert.Equal(t, sdkmath.NewInt(700), l.BalanceOf("bob"))
	assert.Equal(t, sdkmath.NewInt(1500), l.TotalSupply(), "transfers must not change supply")

	require.NoError(t, l.Burn("bob", sdkmath.NewInt(700)))
	assert.True(t, l.BalanceOf("bob").IsZero())
	assert.Equal(t, sdkmath.NewInt(800), l.TotalSupply())
}

func TestMemoryLedgerRejectsOverdraw(t *testing.T) {
	l := NewMemoryLedger()
	require.NoError(t, l.Mint("alice", sdkmath.NewInt(100)))

	err := l.Burn("alice", sdkmath.NewInt(101))
	require.ErrorIs(t, err, ErrInsufficientShares)

	err = l.Transfer("alice", "bob", sdkmath.NewInt(101))
	require.ErrorIs(t, err, ErrInsufficientShares)

	err = l.Burn("nobody", sdkmath.NewInt(1))
	require.ErrorIs(t, err, ErrInsufficientShares)
}

func TestMemoryLedgerRejectsInvalidAmounts(t *testing.T) {
	l := NewMemoryLedger()

	require.ErrorIs(t, l.Mint("alice", sdkmath.Int{}), ErrInvalidAmount)
	require.ErrorIs(t, l.Mint("alice", sdkmath.NewInt(-5)), ErrInvalidAmount)
}

func TestMemoryLedgerSnapshotRevert(t *testing.T) {
	l := NewMemoryLedger()
	require.NoError(t, l.Mint("alice", sdkmath.NewInt(1000)))

	id := l.Snapshot()
	require.NoError(t, l.Mint("bob", sdkmath.NewInt(400)))
	require.NoError(t, l.Burn("alice", sdkmath.NewInt(100)))

	require.NoError(t, l.RevertTo(id))
	assert.Equal(t, sdkmath.NewInt(1000), l.BalanceOf("alice"))
	assert.Equal(t, sdkmath.ZeroInt(), l.BalanceOf("bob"))
	assert.Equal(t, sdkmath.NewInt(1000), l.TotalSupply())

	require.ErrorIs(t, l.RevertTo(id), ErrUnknownSnapshot, "handles are single-use")
}

func TestMemoryBankTransferAndBalances(t *testing.T) {
	b := NewMemoryBank()
	require.NoError(t, b.Mint("alice", "ujoe", sdkmath.NewInt(1000)))

	require.NoError(t, b.Transfer("alice", "bob", "ujoe", sdkmath.NewInt(300)))
	assert.Equal(t, sdkmath.NewInt(700), b.BalanceOf("alice", "ujoe"))
	assert.Equal(t, sdkmath.NewInt(300), b.BalanceOf("bob", "ujoe"))
	assert.Equal(t, sdkmath.ZeroInt(), b.BalanceOf("bob", "uwavax"), "denoms are independent")

	err := b.Transfer("bob", "alice", "ujoe", sdkmath.NewInt(301))
	require.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestMemoryBankAllowanceGatesTransferFrom(t *testing.T) {
	b := NewMemoryBank()
	require.NoError(t, b.Mint("alice", "ujoe", sdkmath.NewInt(1000)))

	// No approval yet.
	err := b.TransferFrom("vault", "alice", "vault", "ujoe", sdkmath.NewInt(100))
	require.ErrorIs(t, err, ErrInsufficientAllowance)

	require.NoError(t, b.Approve("alice", "vault", "ujoe", sdkmath.NewInt(250)))
	require.NoError(t, b.TransferFrom("vault", "alice", "vault", "ujoe", sdkmath.NewInt(100)))
	assert.Equal(t, sdkmath.NewInt(150), b.Allowance("alice", "vault", "ujoe"), "spending decrements the allowance")

	err = b.TransferFrom("vault", "alice", "vault", "ujoe", sdkmath.NewInt(200))
	require.ErrorIs(t, err, ErrInsufficientAllowance)

	// Moving one's own funds needs no allowance.
	require.NoError(t, b.TransferFrom("alice", "alice", "bob", "ujoe", sdkmath.NewInt(50)))
}

func TestMemoryBankSnapshotRevert(t *testing.T) {
	b := NewMemoryBank()
	require.NoError(t, b.Mint("alice", "ujoe", sdkmath.NewInt(1000)))
	require.NoError(t, b.Approve("alice", "vault", "ujoe", sdkmath.NewInt(500)))

	id := b.Snapshot()
	require.NoError(t, b.TransferFrom("vault", "alice", "vault", "ujoe", sdkmath.NewInt(400)))
	require.NoError(t, b.Mint("bob", "uwavax", sdkmath.NewInt(7)))

	require.NoError(t, b.RevertTo(id))
	assert.Equal(t, sdkmath.NewInt(1000), b.BalanceOf("alice", "ujoe"))
	assert.True(t, b.BalanceOf("vault", "ujoe").IsZero())
	assert.Equal(t, sdkmath.NewInt(500), b.Allowance("alice", "vault", "ujoe"), "allowances revert too")
	assert.Equal(t, sdkmath.ZeroInt(), b.BalanceOf("bob", "uwavax"))
}

func TestMemoryLedgerReleaseKeepsStateAndDropsHandle(t *testing.T) {
	l := NewMemoryLedger()
	require.NoError(t, l.Mint("alice", sdkmath.NewInt(1000)))

	id := l.Snapshot()
	require.NoError(t, l.Mint("bob", sdkmath.NewInt(400)))

	require.NoError(t, l.Release(id))
	assert.Equal(t, sdkmath.NewInt(400), l.BalanceOf("bob"), "release keeps mutations")
	require.ErrorIs(t, l.RevertTo(id), ErrUnknownSnapshot, "released handles are gone")

	// The next snapshot reuses the freed handle, so released copies are not
	// retained across repeated operations.
	assert.Equal(t, id, l.Snapshot())
}

func TestMemoryBankReleaseKeepsStateAndDropsHandle(t *testing.T) {
	b := NewMemoryBank()
	require.NoError(t, b.Mint("alice", "ujoe", sdkmath.NewInt(1000)))

	id := b.Snapshot()
	require.NoError(t, b.Transfer("alice", "bob", "ujoe", sdkmath.NewInt(300)))

	require.NoError(t, b.Release(id))
	assert.Equal(t, sdkmath.NewInt(300), b.BalanceOf("bob", "ujoe"))
	require.ErrorIs(t, b.RevertTo(id), ErrUnknownSnapshot)
	require.ErrorIs(t, b.Release(id), ErrUnknownSnapshot)

	assert.Equal(t, id, b.Snapshot())
}
