package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/plx30080-ctrl/LeadGen/internal/match"
	"github.com/plx30080-ctrl/LeadGen/internal/model"
)

// resolveCmd classifies a single candidate against the stored graph without
// persisting anything. Useful for checking why a row matched (or didn't).
var resolveCmd = &cobra.Command{
	Use:   "resolve [candidate.json]",
	Short: "Dry-run match a single candidate",
	Long:  "Reads one candidate as JSON (from a file or stdin) and prints the match verdict without writing to the store.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("resolve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		in := io.Reader(os.Stdin)
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				return eris.Wrapf(err, "resolve: open %s", args[0])
			}
			defer f.Close()
			in = f
		}

		var cand model.Candidate
		if err := json.NewDecoder(in).Decode(&cand); err != nil {
			return eris.Wrap(model.ErrValidation, "resolve: malformed candidate json")
		}
		if cand.Type == "" {
			cand.Type = model.CandidateCompany
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		matcher := match.New(st,
			match.WithThreshold(cfg.Matcher.Threshold),
			match.WithTieMargin(cfg.Matcher.TieMargin),
			match.WithCandidateLimit(cfg.Matcher.CandidateLimit),
		)

		var result model.MatchResult
		switch cand.Type {
		case model.CandidateCompany:
			_, result, err = matcher.ResolveCompany(ctx, cand)
		case model.CandidateContact:
			companyID, _ := cmd.Flags().GetInt64("company")
			if companyID == 0 {
				return eris.Wrap(model.ErrValidation, "resolve: contact candidates need --company")
			}
			_, result, err = matcher.ResolveContact(ctx, companyID, cand)
		case model.CandidateJobPosting:
			_, result, err = matcher.ResolvePosting(ctx, cand)
		default:
			return eris.Wrapf(model.ErrValidation, "resolve: unknown candidate type %q", cand.Type)
		}
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return eris.Wrap(err, "resolve: encode result")
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	resolveCmd.Flags().Int64("company", 0, "company id scoping a contact candidate")
	rootCmd.AddCommand(resolveCmd)
}
