package vault

import "errors"

// Error definitions for zero-tolerance error handling
var (
	ErrConfiguration      = errors.New("vault configuration is invalid")
	ErrDepositsDisabled   = errors.New("deposits are disabled")
	ErrTransfer           = errors.New("asset transfer failed")
	ErrZeroAmount         = errors.New("amount resolves to zero after fee deduction")
	ErrPoolFee            = errors.New("pool fee rate is implausible")
	ErrBelowThreshold     = errors.New("estimated reward is below the reinvest threshold")
	ErrInsufficientRescue = errors.New("rescued amount is below the acceptable minimum")
	ErrPermission         = errors.New("caller is not permitted to perform this operation")
	ErrAuthorization      = errors.New("deposit authorization is invalid")
)
