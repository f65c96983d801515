package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/selltide/autoship/internal/catalog"
	"github.com/selltide/autoship/internal/store"
)

// RulesOptions holds flags for the rules command.
type RulesOptions struct {
	*RootOptions
	Database string
}

// NewRulesCommand creates the rules command.
func NewRulesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RulesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List enabled delivery rules and their stock",
		Long: `List the enabled delivery rules with their card, delivery counter
and remaining stock. Data cards report the number of unconsumed stock
lines; other card types report unlimited stock.

Example:
  autoship rules --db ./autoship.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRules(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runRules(ctx context.Context, opts *RulesOptions, out io.Writer) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	pairs, err := st.EnabledRules(ctx, "")
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load rules", err)
	}

	type ruleRow struct {
		RuleID    int64  `json:"rule_id"`
		Keyword   string `json:"keyword"`
		CardID    int64  `json:"card_id"`
		Card      string `json:"card"`
		CardType  string `json:"card_type"`
		Delivered int64  `json:"delivered"`
		Stock     *int   `json:"stock"` // nil means unlimited
	}
	rows := make([]ruleRow, len(pairs))
	for i, p := range pairs {
		row := ruleRow{
			RuleID:    p.Rule.ID,
			Keyword:   p.Rule.Keyword,
			CardID:    p.Card.ID,
			Card:      p.Card.Name,
			CardType:  string(p.Card.Type),
			Delivered: p.Rule.DeliveryTimes,
		}
		if p.Card.Type == catalog.CardTypeData {
			n, err := st.StockCount(ctx, p.Card.ID)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to count stock", err)
			}
			row.Stock = &n
		}
		rows[i] = row
	}

	f := &OutputFormatter{Format: opts.Format, Writer: out}
	return f.Emit(rows, func(w io.Writer) error {
		if len(rows) == 0 {
			_, err := fmt.Fprintln(w, "no enabled rules")
			return err
		}
		for _, r := range rows {
			stock := "unlimited"
			if r.Stock != nil {
				stock = fmt.Sprintf("%d", *r.Stock)
			}
			if _, err := fmt.Fprintf(w, "rule %d  keyword %q  card %q (%s)  delivered %d  stock %s\n",
				r.RuleID, r.Keyword, r.Card, r.CardType, r.Delivered, stock); err != nil {
				return err
			}
		}
		return nil
	})
}
