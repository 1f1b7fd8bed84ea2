package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
	quiet   bool
	jsonOut bool
	devices int
)

// version, commit and date are overridden at build time via
// -ldflags "-X main.version=... -X main.commit=... -X main.date=...". They
// back both `--version` and `gpumempoolctl version` so the two never drift
// apart the way a separately hardcoded version string would.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "gpumempoolctl",
	Short: "Exercise and inspect the caching device-memory allocator",
	Long: `gpumempoolctl drives the gpumempool caching allocator against its
built-in simulated runtime. It is a development and demonstration tool, not
a production control surface: every run starts from an empty pool and talks
to an in-process simulated device, never real hardware.`,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().IntVar(&devices, "devices", 1, "Number of simulated devices")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
  commit: ` + commit + `
  built:  ` + date + "\n")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s\n  commit: %s\n  built:  %s\n", rootCmd.Name(), version, commit, date)
		},
	})
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
