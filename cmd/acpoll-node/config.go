package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/vocdoni/acpoll/db"
	"github.com/vocdoni/acpoll/internal"
	"github.com/vocdoni/acpoll/service"
)

const (
	defaultAPIHost         = "0.0.0.0"
	defaultAPIPort         = 9090
	defaultBlockTime       = 12 * time.Second
	defaultMonitorInterval = time.Minute
	defaultLogLevel        = "info"
	defaultLogOutput       = "stdout"
	defaultDatadir         = ".acpoll" // Will be prefixed with user's home directory
)

// Version is the build version, set at build time with -ldflags
var Version = internal.Version

// Config holds the application configuration
type Config struct {
	API       APIConfig
	DB        DBConfig
	Chain     ChainConfig
	Service   ServiceConfig
	Finalizer FinalizerConfig
	Log       LogConfig
	Datadir   string
}

// APIConfig holds the API-specific configuration
type APIConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	NoLog      bool   `mapstructure:"nolog"`
	Enabled    bool   `mapstructure:"enabled"`
	Signatures bool   `mapstructure:"signatures"`
}

// DBConfig selects the database backend
type DBConfig struct {
	Type string `mapstructure:"type"`
}

// ChainConfig holds the local block producer configuration
type ChainConfig struct {
	BlockTime time.Duration `mapstructure:"blocktime"`
}

// ServiceConfig holds the poll service limits
type ServiceConfig struct {
	MaxPolls           int    `mapstructure:"maxpolls"`
	MaxPublicKeyLength int    `mapstructure:"maxpubkeylen"`
	MaxVerifyKeyLength int    `mapstructure:"maxvklen"`
	Verifier           string `mapstructure:"verifier"`
}

// FinalizerConfig holds the merge worker configuration
type FinalizerConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Output string `mapstructure:"output"`
}

// loadConfig loads configuration from flags, environment variables, and defaults
func loadConfig() (*Config, error) {
	v := viper.New()

	userHomeDir, err := os.UserHomeDir()
	if err != nil {
		userHomeDir = "."
	}
	defaultDatadirPath := filepath.Join(userHomeDir, defaultDatadir)
	defaults := service.DefaultConfig()

	v.SetDefault("api.host", defaultAPIHost)
	v.SetDefault("api.port", defaultAPIPort)
	v.SetDefault("api.enabled", true)
	v.SetDefault("db.type", db.TypePebble)
	v.SetDefault("chain.blocktime", defaultBlockTime)
	v.SetDefault("service.maxpolls", defaults.MaxCoordinatorPolls)
	v.SetDefault("service.maxpubkeylen", defaults.MaxPublicKeyLength)
	v.SetDefault("service.maxvklen", defaults.MaxVerifyKeyLength)
	v.SetDefault("service.verifier", verifierGroth16)
	v.SetDefault("finalizer.interval", defaultMonitorInterval)
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("log.output", defaultLogOutput)
	v.SetDefault("datadir", defaultDatadirPath)

	flag.StringP("api.host", "a", defaultAPIHost, "API host")
	flag.IntP("api.port", "p", defaultAPIPort, "API port")
	flag.Bool("api.enabled", true, "serve the HTTP API")
	flag.Bool("api.nolog", false, "disable API request logging")
	flag.Bool("api.signatures", false, "require requests to be signed by the account they act as")
	flag.String("db.type", db.TypePebble, fmt.Sprintf("database backend %v", dbTypes))
	flag.DurationP("chain.blocktime", "b", defaultBlockTime, "time between local blocks (i.e 12s or 1m)")
	flag.Int("service.maxpolls", defaults.MaxCoordinatorPolls, "max polls per coordinator (0 means unlimited)")
	flag.Int("service.maxpubkeylen", defaults.MaxPublicKeyLength, "max coordinator public key length in bytes")
	flag.Int("service.maxvklen", defaults.MaxVerifyKeyLength, "max coordinator verifying key length in bytes")
	flag.String("service.verifier", verifierGroth16, fmt.Sprintf("batch proof verifier %v", verifierTypes))
	flag.Duration("finalizer.interval", defaultMonitorInterval, "interval between scans for polls to merge (0 disables the scan)")
	flag.StringP("log.level", "l", defaultLogLevel, "log level (debug, info, warn, error, fatal)")
	flag.StringP("log.output", "o", defaultLogOutput, "log output (stdout, stderr or filepath)")
	flag.StringP("datadir", "d", defaultDatadirPath, "data directory for database and storage files")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "acpoll-node v%s\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: acpoll-node [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment variables are also available with the same name as flags,\n")
		fmt.Fprintf(os.Stderr, "  except for dots (.) which are replaced by underscores (_).\n")
		fmt.Fprintf(os.Stderr, "  For example, ACPOLL_API_PORT or ACPOLL_CHAIN_BLOCKTIME\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Start with default settings\n")
		fmt.Fprintf(os.Stderr, "  acpoll-node\n\n")
		fmt.Fprintf(os.Stderr, "  # Fast blocks on an in-memory database\n")
		fmt.Fprintf(os.Stderr, "  acpoll-node --db.type=inmem --chain.blocktime=1s --log.level=debug\n")
	}

	flag.CommandLine.SortFlags = false
	flag.Parse()

	v.SetEnvPrefix("ACPOLL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(flag.CommandLine); err != nil {
		return nil, fmt.Errorf("error binding flags: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return cfg, nil
}

var dbTypes = []string{db.TypePebble, db.TypeLevelDB, db.TypeInMem}

const (
	// verifierShape only checks the proof and public inputs are well formed.
	// Intended for tests and local tooling.
	verifierShape = "shape"
	// verifierGroth16 verifies snarkjs Groth16 proofs over BN254.
	verifierGroth16 = "groth16"
)

var verifierTypes = []string{verifierShape, verifierGroth16}

// validateConfig validates the loaded configuration
func validateConfig(cfg *Config) error {
	if !slices.Contains(dbTypes, cfg.DB.Type) {
		return fmt.Errorf("invalid database type %s, available types: %v", cfg.DB.Type, dbTypes)
	}
	if !slices.Contains(verifierTypes, cfg.Service.Verifier) {
		return fmt.Errorf("invalid verifier %s, available verifiers: %v", cfg.Service.Verifier, verifierTypes)
	}
	if cfg.Chain.BlockTime <= 0 {
		return fmt.Errorf("block time must be positive, got %s", cfg.Chain.BlockTime)
	}
	if cfg.Finalizer.Interval < 0 {
		return fmt.Errorf("finalizer interval must not be negative, got %s", cfg.Finalizer.Interval)
	}
	if cfg.Service.MaxPolls < 0 {
		return fmt.Errorf("max polls must not be negative, got %d", cfg.Service.MaxPolls)
	}
	if cfg.API.Enabled && (cfg.API.Port <= 0 || cfg.API.Port > 65535) {
		return fmt.Errorf("invalid API port %d", cfg.API.Port)
	}
	return nil
}
