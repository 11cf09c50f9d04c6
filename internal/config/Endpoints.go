package config

import (
	"github.com/rs/zerolog/log"
)

// Endpoint configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// FarmRPC is the JSON-RPC endpoint of the staking-pool node.
	FarmRPC string
	// SwapRPC is the JSON-RPC endpoint of the swap venue.
	SwapRPC string
	// BankRPC is the JSON-RPC endpoint of the node's bank module. Harvest
	// proceeds and swap output land in node-side balances, so farm mode
	// must read and move assets there.
	BankRPC string
)

// loadEndpointConfig loads endpoint configuration from environment variables.
// This function is called by LoadConfig() in General.go.
func loadEndpointConfig() error {
	log.Info().Msg("Loading endpoint configuration from environment variables...")

	var err error

	FarmRPC, err = getEnv("FARM_RPC")
	if err != nil {
		return err
	}

	SwapRPC, err = getEnv("SWAP_RPC")
	if err != nil {
		return err
	}

	BankRPC, err = getEnv("BANK_RPC")
	if err != nil {
		return err
	}

	log.Debug().
		Str("FarmRPC", FarmRPC).
		Str("SwapRPC", SwapRPC).
		Str("BankRPC", BankRPC).
		Msg("Endpoint configuration loaded successfully.")

	return nil
}
