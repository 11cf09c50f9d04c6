package vault

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakeworks/acv/internal/types"
)

func newTestKeypair(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return pub, priv
}

func TestRegisterAuthorizedKeyIsOwnerGated(t *testing.T) {
	rig := newTestRig(t, rigOptions{params: testParams()})
	pub, _ := newTestKeypair(t)

	err := rig.vault.RegisterAuthorizedKey(types.DirectCaller(testAlice), testAlice, pub)
	require.ErrorIs(t, err, ErrPermission)

	err = rig.vault.RegisterAuthorizedKey(types.DirectCaller(testOwner), "", pub)
	require.ErrorIs(t, err, ErrConfiguration)

	err = rig.vault.RegisterAuthorizedKey(types.DirectCaller(testOwner), testAlice, pub[:16])
	require.ErrorIs(t, err, ErrConfiguration)

	require.NoError(t, rig.vault.RegisterAuthorizedKey(types.DirectCaller(testOwner), testAlice, pub))
}

func TestDepositWithAuthorization(t *testing.T) {
	rig := newTestRig(t, rigOptions{params: testParams()})
	pub, priv := newTestKeypair(t)
	require.NoError(t, rig.vault.RegisterAuthorizedKey(types.DirectCaller(testOwner), testAlice, pub))
	rig.fundDepositor(t, testAlice, 1_000)

	token, err := NewDepositAuthorization(priv, testAlice, sdkmath.NewInt(1_000), time.Now().Add(time.Hour))
	require.NoError(t, err)

	// Anyone may submit the token; the deposit lands on the signing account.
	require.NoError(t, rig.vault.DepositWithAuthorization(token))
	assert.Equal(t, sdkmath.NewInt(1_000), rig.vault.SharesOf(testAlice))
	assert.True(t, rig.bank.BalanceOf(testAlice, testDepositAsset.Denom).IsZero())
}

func TestDepositWithAuthorizationExpired(t *testing.T) {
	rig := newTestRig(t, rigOptions{params: testParams()})
	pub, priv := newTestKeypair(t)
	require.NoError(t, rig.vault.RegisterAuthorizedKey(types.DirectCaller(testOwner), testAlice, pub))
	rig.fundDepositor(t, testAlice, 1_000)

	token, err := NewDepositAuthorization(priv, testAlice, sdkmath.NewInt(1_000), time.Now().Add(-time.Minute))
	require.NoError(t, err)

	err = rig.vault.DepositWithAuthorization(token)
	require.ErrorIs(t, err, ErrAuthorization)
	assert.True(t, rig.vault.SharesOf(testAlice).IsZero())
}

func TestDepositWithAuthorizationWrongKey(t *testing.T) {
	rig := newTestRig(t, rigOptions{params: testParams()})
	pub, _ := newTestKeypair(t)
	_, otherPriv := newTestKeypair(t)
	require.NoError(t, rig.vault.RegisterAuthorizedKey(types.DirectCaller(testOwner), testAlice, pub))
	rig.fundDepositor(t, testAlice, 1_000)

	token, err := NewDepositAuthorization(otherPriv, testAlice, sdkmath.NewInt(1_000), time.Now().Add(time.Hour))
	require.NoError(t, err)

	err = rig.vault.DepositWithAuthorization(token)
	require.ErrorIs(t, err, ErrAuthorization)
}

func TestDepositWithAuthorizationUnregisteredAccount(t *testing.T) {
	rig := newTestRig(t, rigOptions{params: testParams()})
	_, priv := newTestKeypair(t)

	token, err := NewDepositAuthorization(priv, testBob, sdkmath.NewInt(1_000), time.Now().Add(time.Hour))
	require.NoError(t, err)

	err = rig.vault.DepositWithAuthorization(token)
	require.ErrorIs(t, err, ErrAuthorization)
}

func TestDepositWithAuthorizationGarbageToken(t *testing.T) {
	rig := newTestRig(t, rigOptions{params: testParams()})

	err := rig.vault.DepositWithAuthorization("not-a-token")
	require.ErrorIs(t, err, ErrAuthorization)
}

func TestNewDepositAuthorizationValidation(t *testing.T) {
	_, priv := newTestKeypair(t)

	_, err := NewDepositAuthorization(priv[:16], testAlice, sdkmath.NewInt(1), time.Now().Add(time.Hour))
	require.ErrorIs(t, err, ErrConfiguration)

	_, err = NewDepositAuthorization(priv, testAlice, sdkmath.ZeroInt(), time.Now().Add(time.Hour))
	require.ErrorIs(t, err, ErrZeroAmount)

	_, err = NewDepositAuthorization(priv, testAlice, sdkmath.Int{}, time.Now().Add(time.Hour))
	require.ErrorIs(t, err, ErrZeroAmount)
}
