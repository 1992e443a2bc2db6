// Command latentvault serves and maintains a local Latent Vault.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yangwenmai/latentvault/internal/config"
	"github.com/yangwenmai/latentvault/internal/store"
	"github.com/yangwenmai/latentvault/internal/vault"
)

var (
	// Global flags
	dbPath  string
	verbose bool

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "latentvault",
	Short: "Latent Vault: persistent, ranked store of generated artifacts",
	Long: `latentvault keeps generated image artifacts in a local SQLite vault,
ranks them by favourite status and preference score, and feeds the four
vault slots (Identity, Env, Style, Light) into new generation requests.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if dbPath == "" {
			dbPath = cfg.DBPath
		}

		zcfg := zap.NewProductionConfig()
		if level, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
			zcfg.Level = zap.NewAtomicLevelAt(level)
		}
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "vault database path (default $DB_PATH or latentvault.db)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// openVault opens the database at dbPath and wraps it in a vault service.
// The returned func closes the database.
func openVault() (*vault.Service, func() error, error) {
	db, err := store.OpenSQLite(dbPath)
	if err != nil {
		return nil, nil, err
	}
	s, err := store.New(db)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("init store: %w", err)
	}
	logger.Debug("vault opened", zap.String("path", dbPath))
	return vault.NewService(s, nil), db.Close, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
