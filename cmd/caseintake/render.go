package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"caseintake/internal/api"
	"caseintake/internal/receiving"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

func shouldColorize(writer io.Writer) bool {
	return isTerminal(writer)
}

func isTerminal(v any) bool {
	file, ok := v.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func outcomeColor(outcome string) string {
	switch receiving.Outcome(outcome) {
	case receiving.OutcomeReceived:
		return ansiGreen
	case receiving.OutcomeAlreadyReceived, receiving.OutcomeDuplicateRequest:
		return ansiBlue
	case receiving.OutcomeError:
		return ansiRed
	default:
		return ansiYellow
	}
}

func colorize(value, color string, enabled bool) string {
	if !enabled || color == "" {
		return value
	}
	return color + value + ansiReset
}

func renderReceiveResults(w io.Writer, resp *api.ReceiveResponse) {
	color := shouldColorize(w)
	rows := make([][]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		message := r.Message
		if r.DuplicateOf != nil {
			message = fmt.Sprintf("%s (see #%d)", message, *r.DuplicateOf+1)
		}
		rows = append(rows, []string{
			strconv.Itoa(r.Index + 1),
			r.Code,
			colorize(r.Outcome, outcomeColor(r.Outcome), color),
			message,
		})
	}
	fmt.Fprintln(w, renderTable([]column{{title: "#", count: true}, {title: "Code"}, {title: "Outcome"}, {title: "Message"}}, rows))
	fmt.Fprintln(w, summaryLine(resp.Summary))
	if resp.Parse.Invalid > 0 {
		fmt.Fprintf(w, "Skipped %d unreadable token(s)\n", resp.Parse.Invalid)
	}
}

func summaryLine(s receiving.Summary) string {
	parts := []string{fmt.Sprintf("%d received", s.Received)}
	extra := []struct {
		label string
		count int
	}{
		{"already received", s.AlreadyReceived},
		{"already shipped", s.AlreadyShipped},
		{"wrong order", s.WrongOrder},
		{"not found", s.NotFound},
		{"invalid status", s.InvalidStatus},
		{"duplicate", s.DuplicateRequest},
		{"invalid format", s.InvalidFormat},
		{"errors", s.Errors},
	}
	for _, e := range extra {
		if e.count > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", e.count, e.label))
		}
	}
	return fmt.Sprintf("Total %d: %s", s.Total, strings.Join(parts, ", "))
}

func renderBatchStatus(w io.Writer, st api.BatchStatus) {
	rows := [][]string{
		{"Batch", st.BatchID},
		{"Status", st.Status},
		{"Progress", strconv.Itoa(st.ProgressCount)},
		{"Stale", yesNo(st.IsStale)},
	}
	if st.OrderID != "" {
		rows = append(rows, []string{"Order", st.OrderID})
	}
	if st.HeartbeatAt != "" {
		rows = append(rows, []string{"Heartbeat", st.HeartbeatAt})
	}
	if st.WorkerID != "" {
		rows = append(rows, []string{"Worker", st.WorkerID})
	}
	if st.LastError != "" {
		rows = append(rows, []string{"Last error", st.LastError})
	}
	fmt.Fprintln(w, renderTable(textColumns("Field", "Value"), rows))
}

func renderOverview(w io.Writer, ov *api.Overview) {
	if ov == nil {
		fmt.Fprintln(w, "No master cases found for this order")
		return
	}
	rows := make([][]string, 0, len(ov.Stages))
	for _, stage := range ov.Stages {
		rows = append(rows, []string{
			stage,
			strconv.Itoa(ov.StageCounts[stage]),
			strconv.Itoa(ov.Cumulative[stage]),
		})
	}
	cols := []column{{title: "Stage"}, {title: "Cases", count: true}, {title: "At or beyond", count: true}}
	fmt.Fprintln(w, renderTable(cols, rows, "Total", strconv.Itoa(ov.TotalCases)))
	fmt.Fprintf(w, "Order %s: %d cases, %d units, completion %s%% (score %s)\n",
		ov.OrderID, ov.TotalCases, ov.TotalUnits, ov.CompletionPercent, ov.CompletionScore)
}
