package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/selltide/autoship/internal/catalog"
	"github.com/selltide/autoship/internal/match"
	"github.com/selltide/autoship/internal/store"
)

// MatchOptions holds flags for the match command.
type MatchOptions struct {
	*RootOptions
	Database  string
	SpecName  string
	SpecValue string
}

// NewMatchCommand creates the match command.
func NewMatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "match <text>",
		Short: "Match text against the delivery rules",
		Long: `Rank the enabled delivery rules against a piece of text and print
the candidates in fulfillment order. Pass --spec-name and --spec-value
to restrict matching to a purchased specification.

Example:
  autoship match --db ./autoship.db "蓝色手机壳"
  autoship match --db ./autoship.db --spec-name 颜色 --spec-value 蓝色 "手机壳"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(cmd.Context(), opts, args[0], cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.SpecName, "spec-name", "", "specification name to match")
	cmd.Flags().StringVar(&opts.SpecValue, "spec-value", "", "specification value to match")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runMatch(ctx context.Context, opts *MatchOptions, text string, out io.Writer) error {
	if (opts.SpecName == "") != (opts.SpecValue == "") {
		return NewExitError(ExitCommandError, "--spec-name and --spec-value must be set together")
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	pairs, err := st.EnabledRules(ctx, text)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load rules", err)
	}

	snapshot := make([]match.Entry, len(pairs))
	for i, p := range pairs {
		snapshot[i] = match.Entry{Rule: p.Rule, Card: p.Card}
	}

	var spec *catalog.Spec
	if opts.SpecName != "" {
		spec = &catalog.Spec{Name: opts.SpecName, Value: opts.SpecValue}
	}

	candidates := match.Match(snapshot, text, spec)

	type candidateRow struct {
		RuleID  int64  `json:"rule_id"`
		Keyword string `json:"keyword"`
		CardID  int64  `json:"card_id"`
		Card    string `json:"card"`
		Score   int    `json:"score"`
	}
	rows := make([]candidateRow, len(candidates))
	for i, c := range candidates {
		rows[i] = candidateRow{
			RuleID:  c.Rule.ID,
			Keyword: c.Rule.Keyword,
			CardID:  c.Card.ID,
			Card:    c.Card.Name,
			Score:   c.Score,
		}
	}

	f := &OutputFormatter{Format: opts.Format, Writer: out}
	return f.Emit(rows, func(w io.Writer) error {
		if len(rows) == 0 {
			_, err := fmt.Fprintln(w, "no matching rules")
			return err
		}
		for _, r := range rows {
			if _, err := fmt.Fprintf(w, "rule %d  score %d  keyword %q  card %q\n", r.RuleID, r.Score, r.Keyword, r.Card); err != nil {
				return err
			}
		}
		return nil
	})
}
