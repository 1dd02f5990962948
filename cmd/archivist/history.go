package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/fentz26/archivist/internal/report"
	"github.com/fentz26/archivist/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past batches",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [batch-id]",
	Short: "Print the report of a past batch",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyAuditCmd = &cobra.Command{
	Use:   "audit [batch-id]",
	Short: "Show the decision records of a past batch",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryAudit,
}

var (
	historyLimit      int
	historyAuditLimit int
	historyReport     string
)

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of batches to list")
	historyShowCmd.Flags().StringVar(&historyReport, "report", "", "Write the report to this file instead of stdout")
	historyAuditCmd.Flags().IntVar(&historyAuditLimit, "limit", 200, "Maximum number of records to show")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyAuditCmd)
}

func openStore() (*store.Store, error) {
	return store.New(cfg.DBPath)
}

func runHistory(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	batches, err := s.ListBatches(context.Background(), historyLimit)
	if err != nil {
		return err
	}
	if len(batches) == 0 {
		fmt.Println("No batches recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSOURCE\tBACKEND\tTOTAL\tOK\tFAILED\tFINISHED")
	for _, b := range batches {
		status := fmt.Sprintf("%d", b.Failed)
		if b.Failure != nil {
			status = "aborted"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			shortID(b.ID), b.Source, b.Backend, b.Total, b.Succeeded, status, humanize.Time(b.FinishedAt))
	}
	return w.Flush()
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	id, err := resolveBatchID(s, args[0])
	if err != nil {
		return err
	}
	r, err := s.GetBatch(context.Background(), id)
	if err != nil {
		return err
	}
	if r == nil {
		return fmt.Errorf("batch not found: %s", args[0])
	}

	if historyReport != "" {
		if err := report.WriteFile(historyReport, r); err != nil {
			return err
		}
		fmt.Printf("Report written to %s\n", historyReport)
		return nil
	}
	return report.Write(os.Stdout, r)
}

func runHistoryAudit(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	id, err := resolveBatchID(s, args[0])
	if err != nil {
		return err
	}
	records, err := s.ListPDR(context.Background(), id, historyAuditLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No records.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tACTION\tOUTCOME\tDETAILS")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Timestamp.Format(report.TimeLayout), r.Action, r.Outcome, r.Details)
	}
	return w.Flush()
}

// resolveBatchID expands an ID prefix as printed by `history`.
func resolveBatchID(s *store.Store, prefix string) (string, error) {
	batches, err := s.ListBatches(context.Background(), 0)
	if err != nil {
		return "", err
	}
	var match string
	for _, b := range batches {
		if !strings.HasPrefix(b.ID, prefix) {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("batch id %q is ambiguous", prefix)
		}
		match = b.ID
	}
	if match == "" {
		return "", fmt.Errorf("batch not found: %s", prefix)
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
