/*

This file contains deposit-with-signed-authorization: a depositor signs a
short-lived Ed25519 token carrying the account, the amount and a deadline, and
anyone may submit it. The effect is identical to the account calling deposit
itself; the vault verifies the signature against the account's registered key,
so the submitter needs no spending rights of their own.

*/

package vault

import (
	"crypto/ed25519"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/golang-jwt/jwt/v5"

	"github.com/stakeworks/acv/internal/types"
)

// depositClaims is the payload of a signed deposit authorization.
type depositClaims struct {
	Amount string `json:"amt"` // base-10 integer string, deposit-asset base units
	jwt.RegisteredClaims
}

// RegisterAuthorizedKey records the Ed25519 public key deposit authorizations
// from account are verified against. Owner-only: key registration is part of
// onboarding an account, not a user operation.
func (v *Vault) RegisterAuthorizedKey(caller types.Caller, account string, key ed25519.PublicKey) error {
	if err := v.requireOwner(caller); err != nil {
		return err
	}
	if account == "" || len(key) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: account and a valid Ed25519 key are required", ErrConfiguration)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.authKeys[account] = key
	v.logger.Info().Str("account", account).Msg("Deposit authorization key registered")
	return nil
}

// DepositWithAuthorization verifies a signed deposit authorization and
// executes it as a deposit by the signing account.
func (v *Vault) DepositWithAuthorization(token string) error {
	claims := &depositClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		account := claims.Subject
		if account == "" {
			return nil, fmt.Errorf("authorization has no subject account")
		}
		v.mu.Lock()
		key, ok := v.authKeys[account]
		v.mu.Unlock()
		if !ok {
			return nil, fmt.Errorf("no key registered for account %s", account)
		}
		return key, nil
	}, jwt.WithExpirationRequired(), jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAuthorization, err)
	}
	if !parsed.Valid {
		return fmt.Errorf("%w: token is not valid", ErrAuthorization)
	}

	amount, ok := sdkmath.NewIntFromString(claims.Amount)
	if !ok || !amount.IsPositive() {
		return fmt.Errorf("%w: amount %q is not a positive integer", ErrAuthorization, claims.Amount)
	}

	// The signer both pays and receives; the signature stands in for their
	// direct call.
	return v.depositFor(types.DirectCaller(claims.Subject), claims.Subject, amount)
}

// NewDepositAuthorization signs a deposit authorization for account over
// amount, expiring at deadline. Wallets and tests mint tokens through this.
func NewDepositAuthorization(key ed25519.PrivateKey, account string, amount sdkmath.Int, deadline time.Time) (string, error) {
	if len(key) != ed25519.PrivateKeySize {
		return "", fmt.Errorf("%w: a valid Ed25519 private key is required", ErrConfiguration)
	}
	if amount.IsNil() || !amount.IsPositive() {
		return "", ErrZeroAmount
	}
	claims := depositClaims{
		Amount: amount.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account,
			ExpiresAt: jwt.NewNumericDate(deadline),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(key)
}
