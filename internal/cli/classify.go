package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/selltide/autoship/internal/classify"
	"github.com/selltide/autoship/internal/event"
)

// ClassifyOptions holds flags for the classify command.
type ClassifyOptions struct {
	*RootOptions
}

// NewClassifyCommand creates the classify command.
func NewClassifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClassifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "classify [event.json]",
		Short: "Classify a platform event as payment or non-payment",
		Long: `Read a platform event as JSON and report whether it signals a
completed payment, and which order id it correlates to. Reads from
stdin when no file is given.

Example:
  autoship classify ./event.json
  cat event.json | autoship classify --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to open event file", err)
				}
				defer f.Close()
				in = f
			}
			return runClassify(opts, in, cmd.OutOrStdout())
		},
	}

	return cmd
}

func runClassify(opts *ClassifyOptions, in io.Reader, out io.Writer) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read event", err)
	}

	ev, err := event.Decode(data)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to decode event", err)
	}

	clf, err := classify.New()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build classifier", err)
	}
	verdict := clf.Classify(ev)

	f := &OutputFormatter{Format: opts.Format, Writer: out}
	return f.Emit(
		map[string]any{"is_payment": verdict.IsPayment, "order_id": verdict.OrderID},
		func(w io.Writer) error {
			if !verdict.IsPayment {
				_, err := fmt.Fprintln(w, "not a payment event")
				return err
			}
			if verdict.OrderID == "" {
				_, err := fmt.Fprintln(w, "payment detected, no order id resolved")
				return err
			}
			_, err := fmt.Fprintf(w, "payment detected, order %s\n", verdict.OrderID)
			return err
		},
	)
}
