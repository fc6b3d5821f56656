// Package cli provides shared CLI utilities for docpipe and docpiped.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const helpJSONFlag = "help-json"

// FlagSchema describes one command flag.
type FlagSchema struct {
	Name        string `json:"name"`
	Shorthand   string `json:"shorthand,omitempty"`
	Type        string `json:"type"`
	Default     string `json:"default,omitempty"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// CommandSchema is a machine-readable description of a command tree, used by
// scripts that drive the CLIs.
type CommandSchema struct {
	Name           string          `json:"name"`
	Use            string          `json:"use,omitempty"`
	Description    string          `json:"description,omitempty"`
	Long           string          `json:"long,omitempty"`
	Flags          []FlagSchema    `json:"flags,omitempty"`
	InheritedFlags []FlagSchema    `json:"inherited_flags,omitempty"`
	Subcommands    []CommandSchema `json:"subcommands,omitempty"`
}

// GenerateSchema describes cmd and its visible subcommands.
func GenerateSchema(cmd *cobra.Command) CommandSchema {
	schema := CommandSchema{
		Name:           cmd.Name(),
		Use:            cmd.Use,
		Description:    cmd.Short,
		Long:           cmd.Long,
		Flags:          flagSchemas(cmd.LocalFlags()),
		InheritedFlags: flagSchemas(cmd.InheritedFlags()),
	}
	for _, sub := range cmd.Commands() {
		if sub.Name() == "help" || sub.Hidden {
			continue
		}
		schema.Subcommands = append(schema.Subcommands, GenerateSchema(sub))
	}
	return schema
}

func flagSchemas(set *pflag.FlagSet) []FlagSchema {
	var out []FlagSchema
	set.VisitAll(func(f *pflag.Flag) {
		if f.Hidden || f.Name == helpJSONFlag || f.Name == "help" {
			return
		}
		_, required := f.Annotations[cobra.BashCompOneRequiredFlag]
		out = append(out, FlagSchema{
			Name:        f.Name,
			Shorthand:   f.Shorthand,
			Type:        f.Value.Type(),
			Default:     f.DefValue,
			Description: f.Usage,
			Required:    required,
		})
	})
	return out
}

// WriteSchema writes the schema of cmd as indented JSON.
func WriteSchema(w io.Writer, cmd *cobra.Command) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(GenerateSchema(cmd))
}

// AddHelpJSONFlag adds the --help-json flag to a command.
func AddHelpJSONFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().Bool(helpJSONFlag, false, "Output command schema as JSON")
}

// CheckHelpJSON prints the schema of the command named in os.Args and exits
// when --help-json is present. It runs before Execute so required arguments
// and flags are not validated.
func CheckHelpJSON(rootCmd *cobra.Command) {
	target, ok := helpJSONTarget(rootCmd, os.Args[1:])
	if !ok {
		return
	}
	if err := WriteSchema(os.Stdout, target); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating schema: %v\n", err)
		os.Exit(1)
	}
	os.Exit(0)
}

// helpJSONTarget resolves the command preceding --help-json in args.
func helpJSONTarget(rootCmd *cobra.Command, args []string) (*cobra.Command, bool) {
	i := slices.Index(args, "--"+helpJSONFlag)
	if i < 0 {
		return nil, false
	}
	target, _, err := rootCmd.Find(args[:i])
	if err != nil {
		return rootCmd, true
	}
	return target, true
}
