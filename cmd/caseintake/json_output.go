package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

// jsonOutput backs the --json flag shared by the intake commands.
type jsonOutput struct {
	enabled bool
}

func (o *jsonOutput) bind(cmd *cobra.Command, usage string) {
	if usage == "" {
		usage = "Emit JSON"
	}
	cmd.Flags().BoolVar(&o.enabled, "json", false, usage)
}

// print writes v as indented JSON when --json is set and hands the writer to
// human otherwise. A nil pointer encodes as null.
func (o *jsonOutput) print(cmd *cobra.Command, v any, human func(w io.Writer)) error {
	out := cmd.OutOrStdout()
	if !o.enabled {
		human(out)
		return nil
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
