// Command weftc is the command-line companion of the weft compiler. It
// compiles the built-in demo program, decodes compiled envelope files and
// validates their extension requirements against the bundled registry and
// the project's weft.yaml pins.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/weftlang/weft/internal/config"
)

var (
	configPath string
	debugMode  bool

	cfg    = config.DefaultConfig()
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "weftc",
	Short: "Weft compiler tooling",
	Long: `weftc works with compiled weft programs: it inspects envelope files,
validates their extension requirements and reports what the bundled
compiler supports.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		if err := loadProjectConfig(); err != nil {
			return err
		}
		if cfg.Debug || debugMode {
			l, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			logger = l
		}
		return nil
	},
}

// loadProjectConfig resolves weft.yaml: the --config path when given,
// otherwise the nearest weft.yaml up the directory tree.
func loadProjectConfig() error {
	path := configPath
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		path, err = config.FindConfig(wd)
		if err != nil {
			return err
		}
	}
	if path == "" {
		return nil
	}
	loaded, err := config.LoadConfig(path)
	if err != nil {
		return err
	}
	cfg = loaded
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&configPath,
		"config",
		"",
		"path to weft.yaml (default: nearest weft.yaml up the tree)",
	)
	rootCmd.PersistentFlags().BoolVar(
		&debugMode,
		"debug",
		false,
		"enable verbose compiler logging",
	)
}
