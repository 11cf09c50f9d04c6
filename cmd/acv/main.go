package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/stakeworks/acv/internal/config"
	"github.com/stakeworks/acv/internal/engine"
	"github.com/stakeworks/acv/internal/ledger"
	"github.com/stakeworks/acv/internal/logger"
	"github.com/stakeworks/acv/internal/staking"
	"github.com/stakeworks/acv/internal/state"
	"github.com/stakeworks/acv/internal/swap"
	"github.com/stakeworks/acv/internal/types"
	"github.com/stakeworks/acv/internal/vault"
	"github.com/stakeworks/acv/internal/web"
)

const (
	DEFAULT_COMPOUND_SCHEDULE = "@every 15m"
	DEFAULT_MAX_SLIPPAGE_BIPS = 100
)

// main is the entry point for the ACV system.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("ACV Core Logic Starting...")

	// Initialize Database Connection
	dbCfg := state.DBConfig{
		Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
		User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
		DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	// Load Vault Parameters
	vaultParams, err := state.LoadActiveVaultParameters(engine.DEFAULT_PARAMS_CONFIG_NAME)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load active vault parameters, using defaults and saving.")
		defaultParams := config.DefaultVaultParameters
		if _, err := state.SaveVaultParameters(defaultParams, engine.DEFAULT_PARAMS_CONFIG_NAME, engine.DEFAULT_PARAMS_CONFIG_VERSION, true); err != nil {
			log.Fatal().Err(err).Msg("Failed to save initial default vault parameters.")
		}
		vaultParams = &defaultParams
	}
	log.Info().Msg("Vault parameters loaded successfully.")

	// --- 2. Collaborator Initialization (with Safety Switch) ---
	var (
		bank      ledger.AssetBank
		shares    ledger.ShareLedger
		pool      staking.Adapter
		converter swap.Converter
	)

	maxSlippageBips := uint64(mustAtoi(os.Getenv("ACV_MAX_SLIPPAGE_BIPS"), DEFAULT_MAX_SLIPPAGE_BIPS))

	acvMode := os.Getenv("ACV_MODE")
	switch acvMode {
	case "farm":
		log.Warn().Msg("Initializing ACV in FARM mode. Real staking and swap calls will be issued.")

		farmPool, err := staking.NewFarmAdapter(config.FarmRPC, config.VaultAddress)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize farm adapter")
		}
		venue, err := swap.NewVenueClient(config.SwapRPC, config.VaultAddress, maxSlippageBips)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize swap venue client")
		}

		// Harvest proceeds and swap output are credited node-side, so the
		// asset bank must be the node's. Shares are vault bookkeeping and
		// stay in process.
		nodeBank, err := ledger.NewNodeBank(config.BankRPC)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize node bank")
		}
		bank = nodeBank
		shares = ledger.NewMemoryLedger()
		pool = farmPool
		converter = venue

	case "sim":
		log.Info().Msg("Initializing ACV in SIM mode. All collaborators are in-process.")

		memoryBank := ledger.NewMemoryBank()
		memoryPool, err := staking.NewMemoryAdapter(staking.MemoryAdapterConfig{
			Bank:            memoryBank,
			Account:         config.VaultAddress,
			Escrow:          config.PoolSpenderAddress,
			DepositDenom:    config.DepositAsset.Denom,
			PoolRewardDenom: config.PoolRewardAsset.Denom,
			DepositFeeBips:  uint64(mustAtoi(os.Getenv("SIM_DEPOSIT_FEE_BIPS"), 0)),
			WithdrawFeeBips: uint64(mustAtoi(os.Getenv("SIM_WITHDRAW_FEE_BIPS"), 0)),
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize sim staking pool")
		}
		memoryConverter, err := swap.NewMemoryConverter(memoryBank, config.VaultAddress, config.SwapSpenderAddress, maxSlippageBips)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize sim converter")
		}
		// 1:1 sim prices keep the compound pipeline observable end to end.
		if err := memoryConverter.SetPrice(config.PoolRewardAsset.Denom, config.RewardAsset.Denom, 1, 1); err != nil {
			log.Fatal().Err(err).Msg("Failed to seed sim price")
		}
		if err := memoryConverter.SetPrice(config.RewardAsset.Denom, config.DepositAsset.Denom, 1, 1); err != nil {
			log.Fatal().Err(err).Msg("Failed to seed sim price")
		}

		bank = memoryBank
		shares = ledger.NewMemoryLedger()
		pool = memoryPool
		converter = memoryConverter

	default:
		log.Fatal().Msg("ACV_MODE is not set to 'farm' or 'sim'. Halting to prevent accidental execution.")
	}

	// --- 3. Vault Initialization ---
	recorder := state.PostgresRecorder{}
	acv, err := vault.NewVault(vault.Config{
		Address:         config.VaultAddress,
		Owner:           config.OwnerAddress,
		DepositAsset:    config.DepositAsset,
		RewardAsset:     config.RewardAsset,
		PoolRewardAsset: config.PoolRewardAsset,
		PoolID:          types.PoolID(config.PoolID),
		AdminFeeAddress: config.AdminFeeAddress,
		DevFeeAddress:   config.DevFeeAddress,
		PoolSpender:     config.PoolSpenderAddress,
		SwapSpender:     config.SwapSpenderAddress,
		Params:          *vaultParams,
		Shares:          shares,
		Bank:            bank,
		Pool:            pool,
		Converter:       converter,
		Recorder:        recorder,
		ParamSink:       persistParameters,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize vault")
	}

	// --- Start Web Server ---
	webPort := os.Getenv("WEB_PORT")
	if webPort == "" {
		webPort = "8080"
	}

	webServer := web.NewWebServer(webPort, acv)
	go func() {
		log.Info().Str("port", webPort).Str("url", "http://localhost:"+webPort).Msg("Starting ACV web dashboard")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// --- 4. Start Compound Engine ---
	schedule := os.Getenv("ACV_COMPOUND_SCHEDULE")
	if schedule == "" {
		schedule = DEFAULT_COMPOUND_SCHEDULE
	}

	compoundEngine, err := engine.NewEngine(engine.Config{
		Vault:          acv,
		Operator:       config.OwnerAddress,
		Schedule:       schedule,
		AssetPrecision: config.DepositAsset.Precision,
		ConfigName:     engine.DEFAULT_PARAMS_CONFIG_NAME,
		ConfigVersion:  engine.DEFAULT_PARAMS_CONFIG_VERSION,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create compound engine")
	}

	// Graceful shutdown on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Str("schedule", schedule).Msg("Starting compound engine")
	if err := compoundEngine.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Compound engine failed")
	}
}

// persistParameters writes the mutated parameter set as a new active version.
func persistParameters(params types.VaultParameters) error {
	version, err := state.NextParameterVersion(engine.DEFAULT_PARAMS_CONFIG_NAME)
	if err != nil {
		return err
	}
	_, err = state.SaveVaultParameters(params, engine.DEFAULT_PARAMS_CONFIG_NAME, version, true)
	return err
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}
