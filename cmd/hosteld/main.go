package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"hostel-allocation-backend/config"
	"hostel-allocation-backend/internal/logging"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
	Commit  = "unknown"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hosteld",
	Short: "Hostel allocation backend",
	Long: `hosteld serves the hostel allocation API: students apply for a hostel,
wardens approve or reject applications and assign rooms, and inventory is
imported from the upstream provisioning API.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("hosteld version %s\nCommit: %s\n", Version, Commit))

	defaultPath := os.Getenv("CONFIG_PATH")
	if defaultPath == "" {
		defaultPath = "./config/config.yaml" // Default path for local development
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultPath, "path to the YAML configuration file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(provisionCmd)
	rootCmd.AddCommand(tokenCmd)
}

// loadConfig reads .env (if present) before the YAML file so HOSTEL_*
// variables can be kept out of the config, then initializes logging.
func loadConfig() (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
	}

	logging.Init(logging.Config{Level: cfg.Log.Level, JSONOutput: cfg.Log.JSON})
	logging.Logger.Info().Str("path", configPath).Msg("configuration loaded")
	return cfg, nil
}
