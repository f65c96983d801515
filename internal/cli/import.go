package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/cobra"

	"github.com/selltide/autoship/internal/compiler"
	"github.com/selltide/autoship/internal/store"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Database string
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <catalog.cue>",
		Short: "Import a CUE catalog of cards and delivery rules",
		Long: `Compile a CUE catalog definition and import its cards and rules
into the database.

Example:
  autoship import --db ./autoship.db ./catalog.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), opts, args[0], cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runImport(ctx context.Context, opts *ImportOptions, path string, out io.Writer) error {
	cat, err := compileCatalogFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to compile catalog", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	cardIDs, ruleIDs, err := importCatalog(ctx, st, cat)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to import catalog", err)
	}

	f := &OutputFormatter{Format: opts.Format, Writer: out}
	return f.Emit(
		map[string]any{"cards": cardIDs, "rules": ruleIDs},
		func(w io.Writer) error {
			_, err := fmt.Fprintf(w, "imported %d cards and %d rules\n", len(cardIDs), len(ruleIDs))
			return err
		},
	)
}

// compileCatalogFile loads one CUE file and compiles its catalog struct.
func compileCatalogFile(path string) (*compiler.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	cuectx := cuecontext.New()
	v := cuectx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	catVal := v.LookupPath(cue.ParsePath("catalog"))
	if !catVal.Exists() {
		return nil, fmt.Errorf("%s: top-level \"catalog\" struct not found", path)
	}

	return compiler.CompileCatalog(catVal)
}

// importCatalog writes the compiled catalog to the store, resolving rule
// card labels to the freshly assigned card ids.
func importCatalog(ctx context.Context, st *store.Store, cat *compiler.Catalog) (cardIDs map[string]int64, ruleIDs []int64, err error) {
	cardIDs = make(map[string]int64, len(cat.Cards))
	for _, def := range cat.Cards {
		id, err := st.SaveCard(ctx, def.Card)
		if err != nil {
			return nil, nil, fmt.Errorf("card %q: %w", def.Label, err)
		}
		cardIDs[def.Label] = id
	}

	for _, def := range cat.Rules {
		rule := def.Rule
		rule.CardID = cardIDs[def.CardLabel]
		id, err := st.SaveRule(ctx, rule)
		if err != nil {
			return nil, nil, fmt.Errorf("rule %q: %w", rule.Keyword, err)
		}
		ruleIDs = append(ruleIDs, id)
	}
	return cardIDs, ruleIDs, nil
}
