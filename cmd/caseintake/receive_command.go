package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"caseintake/internal/api"
	"caseintake/internal/config"
)

func newReceiveCommand(ctx *commandContext) *cobra.Command {
	var orderID, warehouseID, filePath string
	var output jsonOutput

	cmd := &cobra.Command{
		Use:   "receive [code...]",
		Short: "Receive master cases into a warehouse",
		Long: "Receive master cases by code. Codes may be passed as arguments, read from\n" +
			"a file with --file, or piped on stdin. Pasted text is split on lines, tabs,\n" +
			"commas, and semicolons, and tracking URLs are reduced to their code.",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readRawInput(cmd, filePath, len(args) > 0)
			if err != nil {
				return err
			}
			req := api.ReceiveRequest{
				OrderID:        strings.TrimSpace(orderID),
				WarehouseOrgID: strings.TrimSpace(warehouseID),
				Codes:          args,
				Raw:            raw,
			}
			return ctx.withIntake(cmd, func(c context.Context, env *intakeEnv) error {
				resp, err := env.service.SubmitReceive(c, req)
				if err != nil {
					if fields := api.FieldErrors(err); len(fields) > 0 {
						return fmt.Errorf("invalid request: %s", formatFieldErrors(fields))
					}
					return err
				}
				return output.print(cmd, resp, func(w io.Writer) { renderReceiveResults(w, resp) })
			})
		},
	}

	cmd.Flags().StringVarP(&orderID, "order", "o", "", "Order the cases must belong to")
	cmd.Flags().StringVarP(&warehouseID, "warehouse", "w", "", "Receiving warehouse organization")
	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Read codes from a file (- for stdin)")
	output.bind(cmd, "Emit per-code results as JSON instead of a table")
	_ = cmd.MarkFlagRequired("order")
	_ = cmd.MarkFlagRequired("warehouse")
	return cmd
}

// readRawInput returns free text from --file, or from piped stdin when no
// codes were given as arguments.
func readRawInput(cmd *cobra.Command, filePath string, haveArgs bool) (string, error) {
	filePath = strings.TrimSpace(filePath)
	switch {
	case filePath == "-":
		return readAll(cmd.InOrStdin())
	case filePath != "":
		expanded, err := config.ExpandPath(filePath)
		if err != nil {
			return "", fmt.Errorf("resolve input path: %w", err)
		}
		data, err := os.ReadFile(expanded)
		if err != nil {
			return "", fmt.Errorf("read codes: %w", err)
		}
		return string(data), nil
	case haveArgs:
		return "", nil
	}

	in := cmd.InOrStdin()
	if isTerminal(in) {
		return "", errors.New("no codes given: pass codes as arguments, use --file, or pipe them on stdin")
	}
	return readAll(in)
}

func readAll(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read codes: %w", err)
	}
	return string(data), nil
}

func formatFieldErrors(fields map[string]string) string {
	parts := make([]string, 0, len(fields))
	for _, name := range sortedKeys(fields) {
		parts = append(parts, name+": "+fields[name])
	}
	return strings.Join(parts, "; ")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
