package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/plx30080-ctrl/LeadGen/internal/ingest"
	"github.com/plx30080-ctrl/LeadGen/internal/resilience"
)

var importCmd = &cobra.Command{
	Use:   "import [file.csv]",
	Short: "Import and deduplicate a CSV of candidates",
	Long:  "Reads candidate rows from a CSV file and resolves them against the stored entity graph, creating or merging companies, contacts, postings, and leads.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("import"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		f, err := os.Open(args[0])
		if err != nil {
			return eris.Wrapf(err, "import: open %s", args[0])
		}
		defer f.Close()

		candidates, err := ingest.ReadCandidatesCSV(f)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		resolver := newIngestResolver(st)
		result, err := resolver.ResolveBatch(ctx, candidates)
		if err != nil {
			return err
		}

		retries, _ := cmd.Flags().GetInt("retries")
		for i := 0; i < retries && result.Failed > 0; i++ {
			pending := resolver.DeadLetters(resilience.DLQFilter{ErrorType: "transient"})
			if len(pending) == 0 {
				break
			}
			zap.L().Info("import: retrying dead letters", zap.Int("pending", len(pending)))
			if _, err := resolver.RetryDeadLetters(ctx); err != nil {
				return err
			}
		}

		fmt.Printf("batch %s: %d created, %d merged, %d ambiguous, %d failed, %d leads\n",
			result.BatchID, len(result.Created), len(result.Merged),
			result.Ambiguous, result.Failed, len(result.LeadIDs))
		return nil
	},
}

func init() {
	importCmd.Flags().Int("retries", 0, "retry passes over transient failures")
	rootCmd.AddCommand(importCmd)
}
