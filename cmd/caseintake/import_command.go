package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"caseintake/internal/cases"
	"caseintake/internal/codes"
	"caseintake/internal/config"
	"caseintake/internal/store"
)

var importColumns = []string{"code", "order_id", "batch_id", "warehouse_org_id", "status", "case_number", "product_count", "expected_units"}

func newImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <cases.csv>",
		Short: "Load master cases from a CSV export",
		Long: "Load master cases from CSV. The header row names the columns; code and\n" +
			"order_id are required, and any of " + strings.Join(importColumns[2:], ", ") + "\n" +
			"may follow. Rows with a batch_id also register the batch.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve csv path: %w", err)
			}
			file, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open csv: %w", err)
			}
			defer file.Close()

			rows, err := readCaseRows(file)
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				inserted, batches, err := importCases(cmd, st, rows)
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d master case(s) across %d batch(es)\n", inserted, batches)
				return err
			})
		},
	}
}

func readCaseRows(r io.Reader) ([]cases.MasterCase, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range importColumns[:2] {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("csv header is missing %q", required)
		}
	}

	var out []cases.MasterCase
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		field := func(name string) string {
			if i, ok := index[name]; ok && i < len(record) {
				return strings.TrimSpace(record[i])
			}
			return ""
		}
		number := func(name string) (int, error) {
			value := field(name)
			if value == "" {
				return 0, nil
			}
			n, err := strconv.Atoi(value)
			if err != nil {
				return 0, fmt.Errorf("csv line %d: %s: %w", line, name, err)
			}
			return n, nil
		}

		mc := cases.MasterCase{
			Code:           codes.Normalize(field("code")),
			OrderID:        field("order_id"),
			BatchID:        field("batch_id"),
			WarehouseOrgID: field("warehouse_org_id"),
			RawStatus:      field("status"),
		}
		if mc.Code == "" || mc.OrderID == "" {
			return nil, fmt.Errorf("csv line %d: code and order_id are required", line)
		}
		if mc.CaseNumber, err = number("case_number"); err != nil {
			return nil, err
		}
		if mc.ProductCount, err = number("product_count"); err != nil {
			return nil, err
		}
		if mc.ExpectedUnits, err = number("expected_units"); err != nil {
			return nil, err
		}
		out = append(out, mc)
	}
	return out, nil
}

func importCases(cmd *cobra.Command, st *store.Store, rows []cases.MasterCase) (int, int, error) {
	ctx := cmd.Context()
	batches := collectBatches(rows)
	for _, batch := range batches {
		if err := st.UpsertBatch(ctx, batch); err != nil {
			return 0, 0, fmt.Errorf("import batch %s: %w", batch.BatchID, err)
		}
	}
	inserted := 0
	for _, mc := range rows {
		if _, err := st.InsertMasterCase(ctx, mc); err != nil {
			return inserted, len(batches), fmt.Errorf("import %s: %w", mc.Code, err)
		}
		inserted++
	}
	return inserted, len(batches), nil
}

// collectBatches returns one batch per batch_id in first-seen order. The
// warehouse is the first non-blank warehouse_org_id among the batch's rows.
func collectBatches(rows []cases.MasterCase) []cases.Batch {
	index := make(map[string]int)
	var out []cases.Batch
	for _, mc := range rows {
		if mc.BatchID == "" {
			continue
		}
		i, ok := index[mc.BatchID]
		if !ok {
			index[mc.BatchID] = len(out)
			out = append(out, cases.Batch{BatchID: mc.BatchID, OrderID: mc.OrderID, WarehouseOrgID: mc.WarehouseOrgID})
			continue
		}
		if out[i].WarehouseOrgID == "" {
			out[i].WarehouseOrgID = mc.WarehouseOrgID
		}
	}
	return out
}
