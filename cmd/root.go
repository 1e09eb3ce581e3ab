package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"tachyon/constellation/internal/config"
	"tachyon/constellation/internal/db"
)

var (
	dbPath     string
	configPath string
	seed       uint64
	verbose    bool

	appCfg = config.Default()
)

var rootCmd = &cobra.Command{
	Use:           "constellation",
	Short:         "Explore car financing scenarios as an expanding constellation",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		appCfg = cfg
		level := cfg.Level()
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return nil
	},
}

// Execute runs the root command and exits non-zero on error
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to .tachyon.db database")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.yaml (default $XDG_CONFIG_HOME/tachyon/config.yaml)")
	rootCmd.PersistentFlags().Uint64Var(&seed, "seed", 0, "Seed for placement jitter (0 seeds from the clock)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")
}

// DiscoverDB finds the database path using priority: flag > env/config > walk-up > XDG fallback.
// The fallback location is created when missing.
func DiscoverDB() (string, error) {
	// 1. CLI flag
	if dbPath != "" {
		return dbPath, nil
	}

	// 2. Environment variable, then config file
	if envPath := os.Getenv("TACHYON_DB"); envPath != "" {
		return envPath, nil
	}
	if appCfg.DBPath != "" {
		return appCfg.DBPath, nil
	}

	// 3. Walk up from CWD
	dir, err := os.Getwd()
	if err == nil {
		for {
			candidate := filepath.Join(dir, ".tachyon.db")
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	// 4. XDG fallback
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("no .tachyon.db found and no home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	dir = filepath.Join(dataDir, "tachyon")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating data directory: %w", err)
	}
	return filepath.Join(dir, "tachyon.db"), nil
}

// OpenDatabase discovers and opens the database
func OpenDatabase() (*db.DB, error) {
	path, err := DiscoverDB()
	if err != nil {
		return nil, err
	}
	slog.Debug("opening database", "path", path)
	return db.OpenDB(path)
}
