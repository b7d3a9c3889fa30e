package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/weftlang/weft/internal/exts"
	"github.com/weftlang/weft/internal/loom"
)

var inspectYAML bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <envelope>",
	Short: "Decode a compiled envelope and validate its extension requirements",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		env, err := loom.DecodeEnvelope(data)
		if err != nil {
			return errors.Wrapf(err, "decoding %s", args[0])
		}
		if inspectYAML {
			out, err := yaml.Marshal(env)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		}
		return printSummary(env)
	},
}

func printSummary(env *loom.Envelope) error {
	fmt.Printf("version: %d\n", env.Version)
	for _, m := range env.Meta {
		fmt.Printf("%s: %s\n", m.Key, m.Value)
	}

	funcs := 0
	for _, n := range env.Nodes {
		if n.Op == "core.func_defn" || n.Op == "core.func_decl" {
			funcs++
		}
	}
	fmt.Printf("nodes: %d (functions: %d)\n", len(env.Nodes), funcs)
	fmt.Printf("links: %d, order edges: %d\n", len(env.Links), len(env.Order))

	reg := exts.Builtins()
	failed := 0
	for _, req := range env.Extensions {
		status := colorize("ok", colorGreen)
		if err := checkRequirement(reg, req); err != nil {
			status = colorize(err.Error(), colorRed)
			failed++
		}
		fmt.Printf("extension %s %s: %s\n", req.Name, req.Constraint, status)
	}
	if failed > 0 {
		return errors.Errorf("%d extension requirement(s) not satisfied", failed)
	}
	return nil
}

// checkRequirement validates one envelope requirement against the bundled
// registry and, when the project pins the extension, against the pin.
func checkRequirement(reg *exts.Registry, req loom.Requirement) error {
	if err := reg.Check(req.Name, req.Constraint); err != nil {
		return err
	}
	if pin := cfg.PinFor(req.Name); pin != nil {
		e, _ := reg.Lookup(req.Name)
		if !pin.Check(e.Version) {
			return errors.Errorf("version %s is outside the pinned range", e.Version)
		}
	}
	return nil
}

const (
	colorGreen = "32"
	colorRed   = "31"
)

func colorize(s, code string) string {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return s
	}
	return "\x1b[" + code + "m" + s + "\x1b[0m"
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectYAML, "yaml", false, "dump the full decoded envelope as YAML")
	rootCmd.AddCommand(inspectCmd)
}
