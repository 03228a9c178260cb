package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/OmarEhab007/cargoparts-sub002/pkg/db"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/outbox"
)

const dlqUsage = "usage: outbox-publisher dlq list [limit] | dlq replay <event-id>..."

// runDLQCommand serves the operator subcommands:
//
//	outbox-publisher dlq list [limit]
//	outbox-publisher dlq replay <event-id>...
//
// Replayed rows are picked up by the next publisher poll.
func runDLQCommand(ctx context.Context, args []string, tx db.TxRunner, dlq *outbox.DLQRepository, out io.Writer) error {
	if len(args) == 0 {
		return errors.New(dlqUsage)
	}
	switch args[0] {
	case "list":
		limit := 0
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				return fmt.Errorf("limit must be a positive integer, got %q", args[1])
			}
			limit = n
		}
		return listDLQ(ctx, dlq, limit, out)
	case "replay":
		if len(args) < 2 {
			return errors.New(dlqUsage)
		}
		ids := make([]uuid.UUID, 0, len(args)-1)
		for _, raw := range args[1:] {
			id, err := uuid.Parse(raw)
			if err != nil {
				return fmt.Errorf("invalid event id %q", raw)
			}
			ids = append(ids, id)
		}
		err := tx.WithTx(ctx, func(tx *gorm.DB) error {
			for _, id := range ids {
				if err := dlq.Requeue(ctx, tx, id); err != nil {
					return fmt.Errorf("requeue %s: %w", id, err)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "requeued %d event(s)\n", len(ids))
		return nil
	default:
		return errors.New(dlqUsage)
	}
}

func listDLQ(ctx context.Context, dlq *outbox.DLQRepository, limit int, out io.Writer) error {
	rows, err := dlq.ListRecent(ctx, limit)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "EVENT ID\tTYPE\tAGGREGATE\tREASON\tATTEMPTS\tFAILED AT")
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s/%s\t%s\t%d\t%s\n",
			row.EventID, row.EventType, row.AggregateType, row.AggregateID,
			row.ErrorReason, row.AttemptCount, row.FailedAt.UTC().Format(time.RFC3339))
	}
	return w.Flush()
}
