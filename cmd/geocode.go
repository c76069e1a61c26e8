package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/plx30080-ctrl/LeadGen/internal/model"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode [lead-id...]",
	Short: "Backfill coordinates for leads",
	Long:  "Resolves and caches coordinates for the given leads' company addresses, writing them back to the company rows.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("geocode"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ids := make([]int64, 0, len(args))
		for _, raw := range args {
			var id int64
			if _, err := fmt.Sscanf(raw, "%d", &id); err != nil {
				return eris.Wrapf(model.ErrValidation, "geocode: bad lead id %q", raw)
			}
			ids = append(ids, id)
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		details, err := st.GetLeadDetails(ctx, ids)
		if err != nil {
			return err
		}
		if len(details) == 0 {
			return eris.Wrap(model.ErrNotFound, "geocode: no leads found")
		}

		resolver := newGeoResolver(st)
		companies := make([]*model.Company, len(details))
		for i := range details {
			companies[i] = &details[i].Company
		}
		points, errs := resolver.ResolveCompanies(ctx, companies)

		var resolved, failed int
		for i := range details {
			if errs[i] != nil || points[i] == nil {
				failed++
				zap.L().Warn("geocode: unresolvable",
					zap.Int64("lead_id", details[i].Lead.ID),
					zap.String("company", details[i].Company.Name),
					zap.Error(errs[i]),
				)
				continue
			}
			resolved++
		}

		fmt.Printf("%d resolved, %d failed\n", resolved, failed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(geocodeCmd)
}
