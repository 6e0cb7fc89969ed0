package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/persistorai/dashsync/internal/config"
)

const (
	defaultEnvFile = ".env"
	defaultAPIURL  = "http://localhost:5000/api"
)

var (
	flagEnvFile string
	flagFmt     string
	flagURL     string
)

func versionString() string {
	return fmt.Sprintf("dashsync version %s", config.Version)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "dashsync",
		Short:   "dashsync keeps dashboard data in sync with the insights backend",
		Version: versionString(),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnvFile(flagEnvFile)
		},
		SilenceUsage: true,
	}
	root.SetVersionTemplate("{{.Version}}\n")

	root.PersistentFlags().StringVar(&flagEnvFile, "env-file", defaultEnvFile, "Environment file loaded before reading configuration")
	root.PersistentFlags().StringVar(&flagFmt, "format", "json", "Output format: json|table|quiet")
	root.PersistentFlags().StringVar(&flagURL, "url", "", "Backend base URL including the API prefix (env: DASH_API_URL)")

	root.AddCommand(newServeCmd())
	root.AddCommand(newProbeCmd())
	root.AddCommand(newInsertCmd())

	return root
}

// loadEnvFile applies variables from path without overriding the process
// environment. A missing default file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}

	err := godotenv.Load(path)
	if err == nil {
		return nil
	}

	if errors.Is(err, fs.ErrNotExist) && path == defaultEnvFile {
		return nil
	}

	return fmt.Errorf("loading %s: %w", path, err)
}

// apiURL resolves the backend URL: flag, then environment, then default.
func apiURL() string {
	if flagURL != "" {
		return flagURL
	}
	if v := os.Getenv("DASH_API_URL"); v != "" {
		return v
	}

	return defaultAPIURL
}
