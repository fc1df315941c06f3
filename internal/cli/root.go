// Package cli implements n50osm's command-line surface (spec.md §6), in
// the same cobra-root-plus-subcommand-plus-viper-binding layout as the
// teacher pack's watercolormap CLI (internal/cmd/root.go).
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/n50osm/n50osm/internal/config"
)

var logger *slog.Logger

var rootCmd = &cobra.Command{
	Use:   "n50osm",
	Short: "Convert Norwegian N50 topographic data to OSM XML",
	Long: `n50osm converts N50 GML data for one municipality and data category
into an OSM XML file, resolving coastline and lake topology, coalescing
shared nodes, and attaching SSR place names and NVE lake attributes.`,
}

// Execute runs the root command, exiting the process on error.
func Execute() {
	if logger == nil {
		initLogging()
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initLogging)

	rootCmd.PersistentFlags().String("config", "", "config file (default ./n50osm.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	if err := viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level")); err != nil {
		panic(fmt.Sprintf("failed to bind flag: %v", err))
	}
}

func initConfig() {
	if f := rootCmd.PersistentFlags().Lookup("config").Value.String(); f != "" {
		viper.SetConfigFile(f)
	}
}

func initLogging() {
	levelStr := strings.ToLower(viper.GetString("log-level"))
	level := slog.LevelInfo
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error", "err":
		level = slog.LevelError
	default:
		fmt.Fprintf(os.Stderr, "Unknown log level %q, defaulting to info\n", levelStr)
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

func loadConfig() (config.Config, error) {
	return config.Load(viper.GetViper())
}
