// Command actiontrace records synchronized mouse, keyboard, screen, window,
// browser, and audio activity into a self-contained capture directory for
// later replay and agent training.
package main

import (
	"fmt"
	"os"

	"github.com/actiontrace/capture/internal/logging"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	cfgFile string
)

var log = logging.L("main")

var rootCmd = &cobra.Command{
	Use:   "actiontrace",
	Short: "ActionTrace desktop activity recorder",
	Long:  `ActionTrace captures mouse, keyboard, screen, window, browser, and audio activity into a recording directory.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("actiontrace v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is the platform config directory)")

	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
