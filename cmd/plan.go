package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/plx30080-ctrl/LeadGen/internal/model"
)

var planCmd = &cobra.Command{
	Use:   "plan [lead-id...]",
	Short: "Plan a visit route over leads",
	Long:  "Geocodes the leads' companies, orders them with the route optimizer, persists the plan, and prints it as JSON.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("plan"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ids := make([]int64, 0, len(args))
		for _, raw := range args {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return eris.Wrapf(model.ErrValidation, "plan: bad lead id %q", raw)
			}
			ids = append(ids, id)
		}

		start, _ := cmd.Flags().GetString("start")
		noOptimize, _ := cmd.Flags().GetBool("no-optimize")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		planner := newPlanner(st, newGeoResolver(st))

		plan, err := planner.Plan(ctx, model.RoutePlanRequest{
			LeadIDs:       ids,
			StartLocation: start,
			Optimize:      !noOptimize,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(plan), "plan: encode")
	},
}

func init() {
	planCmd.Flags().String("start", "", "free-text start location")
	planCmd.Flags().Bool("no-optimize", false, "keep the given lead order")
	rootCmd.AddCommand(planCmd)
}
