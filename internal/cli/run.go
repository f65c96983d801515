package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/selltide/autoship/internal/catalog"
	"github.com/selltide/autoship/internal/classify"
	"github.com/selltide/autoship/internal/event"
	"github.com/selltide/autoship/internal/fulfill"
	"github.com/selltide/autoship/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	ConfigPath string
	Database   string
	Workers    int
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run [events.ndjson]",
		Short: "Run the fulfillment engine over an inbound task stream",
		Long: `Start the fulfillment engine and feed it tasks from a newline
delimited JSON stream. Each line is one task envelope:

  {"chat_id": "c1", "item_id": "i1", "buyer_channel": "b1",
   "event": { ... platform event ... }}

or a buyer chat message:

  {"chat_id": "c1", "item_id": "i1", "buyer_channel": "b1",
   "text": "我已付款，等待你发货"}

Reads from stdin when no file is given. The engine drains the queue
and exits when the stream ends or on SIGINT/SIGTERM.

Example:
  autoship run --config ./autoship.yaml ./events.ndjson
  tail -f events.ndjson | autoship run --db ./autoship.db`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to open event stream", err)
				}
				defer f.Close()
				in = f
			}
			return runEngine(cmd.Context(), opts, in, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "worker pool size (overrides config)")

	return cmd
}

// taskEnvelope is one NDJSON line on the inbound stream. Lines carrying an
// "event" member are platform events; lines carrying "text" are buyer chat
// messages. An "order" member carries order detail the outer integration
// fetched (spec, quantity), which the chat events themselves never include;
// it is upserted before the task is enqueued and may stand alone on a line.
type taskEnvelope struct {
	ChatID       string          `json:"chat_id"`
	ItemID       string          `json:"item_id"`
	BuyerChannel string          `json:"buyer_channel"`
	Event        json.RawMessage `json:"event,omitempty"`
	Text         string          `json:"text,omitempty"`
	Order        *orderDetail    `json:"order,omitempty"`
}

// orderDetail mirrors the order record as the outer integration reports it.
type orderDetail struct {
	OrderID   string `json:"order_id"`
	ItemID    string `json:"item_id,omitempty"`
	BuyerID   string `json:"buyer_id,omitempty"`
	SpecName  string `json:"spec_name,omitempty"`
	SpecValue string `json:"spec_value,omitempty"`
	Quantity  string `json:"quantity,omitempty"`
	Status    string `json:"status,omitempty"`
}

func runEngine(ctx context.Context, opts *RunOptions, in io.Reader, out io.Writer) error {
	cfg := DefaultConfig()
	if opts.ConfigPath != "" {
		loaded, err := LoadConfig(opts.ConfigPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load config", err)
		}
		cfg = loaded
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	if opts.Workers > 0 {
		cfg.Workers = opts.Workers
	}
	if cfg.Database == "" {
		return NewExitError(ExitCommandError, "no database configured (set --db or database: in config)")
	}

	st, err := store.Open(cfg.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	clf, err := classify.New()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build classifier", err)
	}

	sender := &writerSender{w: out, maxDelaySeconds: cfg.MaxDelaySeconds}
	pipeline := fulfill.NewPipeline(clf, st, sender)
	engine := fulfill.NewEngine(pipeline, fulfill.WithWorkers(cfg.Workers))

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Feed the queue from the stream; the engine drains it concurrently.
	go func() {
		defer engine.Stop()
		feedTasks(ctx, engine, st, in)
	}()

	if err := engine.Run(ctx); err != nil {
		return WrapExitError(ExitFailure, "engine stopped with error", err)
	}
	return nil
}

// feedTasks reads envelopes line by line and enqueues them until the stream
// ends or the context is cancelled. Malformed lines are logged and skipped.
func feedTasks(ctx context.Context, engine *fulfill.Engine, st *store.Store, in io.Reader) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		if ctx.Err() != nil {
			return
		}
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var env taskEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			slog.Warn("skipping malformed task line", "line", line, "error", err)
			continue
		}

		if env.Order != nil {
			err := st.SaveOrder(ctx, catalog.Order{
				OrderID:   env.Order.OrderID,
				ItemID:    env.Order.ItemID,
				BuyerID:   env.Order.BuyerID,
				SpecName:  env.Order.SpecName,
				SpecValue: env.Order.SpecValue,
				Quantity:  env.Order.Quantity,
				Status:    env.Order.Status,
			})
			if err != nil {
				slog.Warn("skipping order detail", "line", line, "error", err)
			}
		}

		task := fulfill.Task{
			Session: fulfill.Session{
				ChatID:       env.ChatID,
				ItemID:       env.ItemID,
				BuyerChannel: env.BuyerChannel,
				Text:         env.Text,
			},
		}
		switch {
		case len(env.Event) > 0:
			ev, err := event.Decode(env.Event)
			if err != nil {
				slog.Warn("skipping undecodable event", "line", line, "error", err)
				continue
			}
			task.Kind = fulfill.TaskKindEvent
			task.Raw = ev
		case env.Text != "":
			task.Kind = fulfill.TaskKindMessage
			task.Text = env.Text
		case env.Order != nil:
			// Order-detail-only line; nothing to enqueue.
			continue
		default:
			slog.Warn("skipping empty task line", "line", line)
			continue
		}

		if !engine.Enqueue(task) {
			slog.Warn("queue closed, dropping remaining stream", "line", line)
			return
		}
	}
	if err := scanner.Err(); err != nil {
		slog.Error("event stream read failed", "error", err)
	}
}

// writerSender prints fulfillments to the output stream. It stands in for
// a real messaging integration and caps the configured per-card delay.
type writerSender struct {
	w               io.Writer
	maxDelaySeconds int
}

func (s *writerSender) OnFulfilled(buyerChannel, content string, delaySeconds int) {
	if s.maxDelaySeconds > 0 && delaySeconds > s.maxDelaySeconds {
		delaySeconds = s.maxDelaySeconds
	}
	fmt.Fprintf(s.w, "deliver to=%s delay=%ds content=%s\n", buyerChannel, delaySeconds, content)
}

func (s *writerSender) OnSkippedOrFailed(reason string) {
	slog.Debug("no delivery", "reason", reason)
}
