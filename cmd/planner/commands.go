package main

import (
	"encoding/json"
	"errors"
	"finance_planner/internal/amortization"
	"finance_planner/internal/config"
	"finance_planner/internal/domain"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func newProcessDueCmd(opts *rootOptions) *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "process-due",
		Short: "Materialize every recurring occurrence due on or before a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			date := time.Now().UTC()
			if asOf != "" {
				parsed, err := time.Parse(time.DateOnly, asOf)
				if err != nil {
					return fmt.Errorf("invalid --as-of %q: %w", asOf, err)
				}
				date = parsed
			}

			a, err := buildApp(cmd.Context(), opts.env, opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			report, runErr := a.recurring.ProcessDue(cmd.Context(), date)
			if err := printJSON(cmd, report); err != nil {
				return err
			}
			if runErr != nil {
				return runErr
			}
			if len(report.Errors) > 0 {
				return fmt.Errorf("%d definitions failed", len(report.Errors))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "Process occurrences due on or before this date (YYYY-MM-DD, default today)")
	return cmd
}

func newAmortizeCmd(opts *rootOptions) *cobra.Command {
	var (
		principal    float64
		rate         float64
		term         int
		promoRate    float64
		promoMonths  int
		withSchedule bool
	)

	cmd := &cobra.Command{
		Use:   "amortize",
		Short: "Compute the payment, total cost and schedule of a fixed-rate loan",
		RunE: func(cmd *cobra.Command, args []string) error {
			loan, err := domain.NewLoanParameters(principal, rate, term)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("promo-rate") {
				if loan, err = loan.WithPromotion(promoRate, promoMonths); err != nil {
					return err
				}
			}

			result, err := amortization.Compute(loan)
			if err != nil {
				return err
			}
			if !withSchedule {
				result.Schedule = nil
			}
			return printJSON(cmd, result)
		},
	}
	cmd.Flags().Float64Var(&principal, "principal", 0, "Loan principal")
	cmd.Flags().Float64Var(&rate, "rate", 0, "Annual interest rate in percent")
	cmd.Flags().IntVar(&term, "term", 0, "Term in months")
	cmd.Flags().Float64Var(&promoRate, "promo-rate", 0, "Promotional annual rate in percent")
	cmd.Flags().IntVar(&promoMonths, "promo-months", 0, "Length of the promotional period in months")
	cmd.Flags().BoolVar(&withSchedule, "schedule", false, "Include the month-by-month schedule")
	_ = cmd.MarkFlagRequired("principal")
	_ = cmd.MarkFlagRequired("term")
	return cmd
}

type scenariosOutput struct {
	Scenarios  []domain.ScenarioResult `json:"scenarios"`
	Comparison any                     `json:"comparison"`
	Analysis   any                     `json:"analysis"`
}

func newScenariosCmd(opts *rootOptions) *cobra.Command {
	var (
		planFile string
		planID   string
	)

	cmd := &cobra.Command{
		Use:   "scenarios",
		Short: "Generate, compare and analyze the standard scenario set for a plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (planFile == "") == (planID == "") {
				return errors.New("exactly one of --file or --plan must be set")
			}

			a, err := buildApp(cmd.Context(), opts.env, opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if planFile != "" {
				var plan domain.PlanRecord
				if err := readJSONFile(planFile, &plan); err != nil {
					return err
				}
				if err := a.planning.CreatePlan(ctx, &plan); err != nil {
					return err
				}
				planID = plan.ID
			}

			results, err := a.planning.GenerateScenarios(ctx, planID)
			if err != nil {
				return err
			}
			comparison, err := a.planning.Compare(ctx, planID)
			if err != nil {
				return err
			}
			analysis, err := a.planning.Analyze(ctx, planID)
			if err != nil {
				return err
			}
			return printJSON(cmd, scenariosOutput{
				Scenarios:  results,
				Comparison: comparison,
				Analysis:   analysis,
			})
		},
	}
	cmd.Flags().StringVarP(&planFile, "file", "f", "", "JSON plan record to store and evaluate")
	cmd.Flags().StringVar(&planID, "plan", "", "ID of a stored plan")
	return cmd
}

func newImportOffersCmd(opts *rootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import-offers",
		Short: "Load lender offers from a JSON array into the offer catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			var offers []domain.LenderOffer
			if err := readJSONFile(file, &offers); err != nil {
				return err
			}

			a, err := buildApp(cmd.Context(), opts.env, opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			for _, offer := range offers {
				if err := offer.Validate(); err != nil {
					return fmt.Errorf("offer %s: %w", offer.ID, err)
				}
				if err := a.offers.SaveOffer(cmd.Context(), offer); err != nil {
					return fmt.Errorf("saving offer %s: %w", offer.ID, err)
				}
			}
			opts.logger.InfoContext(cmd.Context(), "Offers imported",
				slog.Int("count", len(offers)),
				slog.String("driver", opts.env.StoreDriver))
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d offers\n", len(offers))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file with an array of offers")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.Write(cmd.OutOrStdout(), opts.cfg)
		},
	}
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
