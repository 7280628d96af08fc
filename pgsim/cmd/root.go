// Package cmd provides the command-line interface of pgsim.
package cmd

import (
	"errors"
	"io"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

var (
	verbose bool
	envFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pgsim",
	Short: "pgsim simulates the power gating of the engines of a chip.",
	Long: `pgsim simulates the power gating of the engines of a chip. ` +
		`Defaults of the flags can be given as PGSIM_* environment variables ` +
		`or in a .env file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := loadEnv(envFile); err != nil {
			return err
		}

		return applyEnv(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Print the diagnostics of the controllers to stderr.")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env",
		"File with PGSIM_* variables.")
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

// loadEnv loads the variables of a .env file. A missing file is not an
// error. Variables that are already set are kept.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}

	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return err
}

// envFlags maps the environment variables to the flags they set.
var envFlags = map[string]string{
	"PGSIM_CTRLS":        "ctrls",
	"PGSIM_MONITOR_PORT": "monitor-port",
	"PGSIM_DB":           "db",
	"PGSIM_DURATION_MS":  "duration-ms",
	"PGSIM_SEED":         "seed",
}

// applyEnv sets the flags that are not given on the command line from the
// environment.
func applyEnv(cmd *cobra.Command) error {
	for env, name := range envFlags {
		flag := cmd.Flags().Lookup(name)
		if flag == nil || flag.Changed {
			continue
		}

		value, ok := os.LookupEnv(env)
		if !ok {
			continue
		}

		if err := cmd.Flags().Set(name, value); err != nil {
			return err
		}
	}

	return nil
}

func newLogger() *log.Logger {
	if !verbose {
		return log.New(io.Discard, "", 0)
	}

	return log.New(os.Stderr, "", 0)
}
