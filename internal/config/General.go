package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/stakeworks/acv/internal/types"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// PoolID is the staking-pool position this vault instance compounds.
	PoolID uint64

	// VaultAddress is the vault's own account on the asset bank.
	VaultAddress string
	// OwnerAddress is the only account allowed to call admin operations.
	OwnerAddress string
	// AdminFeeAddress receives the admin share of harvested rewards.
	AdminFeeAddress string
	// DevFeeAddress receives the dev share of harvested rewards.
	DevFeeAddress string

	// PoolSpenderAddress is the account the staking pool pulls stakes through.
	PoolSpenderAddress string
	// SwapSpenderAddress is the account the swap venue pulls inputs through.
	SwapSpenderAddress string

	// DepositAsset is the asset users deposit and the vault stakes.
	DepositAsset types.Asset
	// RewardAsset is the asset harvested rewards are converted into.
	RewardAsset types.Asset
	// PoolRewardAsset is the pool-native token the staking pool pays out.
	PoolRewardAsset types.Asset
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// All environment variables are required and must be set.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	PoolID, err = getEnvAsUint64("ACV_POOL_ID")
	if err != nil {
		return err
	}

	VaultAddress, err = getEnv("ACV_VAULT_ADDRESS")
	if err != nil {
		return err
	}

	OwnerAddress, err = getEnv("ACV_OWNER_ADDRESS")
	if err != nil {
		return err
	}

	AdminFeeAddress, err = getEnv("ACV_ADMIN_FEE_ADDRESS")
	if err != nil {
		return err
	}

	DevFeeAddress, err = getEnv("ACV_DEV_FEE_ADDRESS")
	if err != nil {
		return err
	}

	PoolSpenderAddress, err = getEnv("ACV_POOL_SPENDER_ADDRESS")
	if err != nil {
		return err
	}

	SwapSpenderAddress, err = getEnv("ACV_SWAP_SPENDER_ADDRESS")
	if err != nil {
		return err
	}

	DepositAsset, err = loadAsset("DEPOSIT")
	if err != nil {
		return err
	}

	RewardAsset, err = loadAsset("REWARD")
	if err != nil {
		return err
	}

	PoolRewardAsset, err = loadAsset("POOL_REWARD")
	if err != nil {
		return err
	}

	// Load endpoint configuration
	if err := loadEndpointConfig(); err != nil {
		return err
	}

	log.Debug().
		Uint64("PoolID", PoolID).
		Str("VaultAddress", VaultAddress).
		Str("DepositDenom", DepositAsset.Denom).
		Str("RewardDenom", RewardAsset.Denom).
		Msg("Configuration loaded successfully.")

	return nil
}

// loadAsset reads <PREFIX>_SYMBOL, <PREFIX>_DENOM and <PREFIX>_PRECISION into an Asset.
func loadAsset(prefix string) (types.Asset, error) {
	symbol, err := getEnv(prefix + "_SYMBOL")
	if err != nil {
		return types.Asset{}, err
	}
	denom, err := getEnv(prefix + "_DENOM")
	if err != nil {
		return types.Asset{}, err
	}
	precision, err := getEnvAsInt(prefix + "_PRECISION")
	if err != nil {
		return types.Asset{}, err
	}
	if precision < 0 || precision > 18 {
		return types.Asset{}, errors.New("environment variable " + prefix + "_PRECISION must be between 0 and 18")
	}
	return types.Asset{Symbol: symbol, Denom: denom, Precision: precision}, nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvAsUint64 retrieves an environment variable as a uint64. Returns error if not set or invalid.
func getEnvAsUint64(key string) (uint64, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid uint64, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsInt retrieves an environment variable as an int. Returns error if not set or invalid.
func getEnvAsInt(key string) (int, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid integer, got: " + valueStr)
	}
	return value, nil
}
