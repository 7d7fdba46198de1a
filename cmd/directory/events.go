package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/gartstein/directory/internal/directory/events"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newEventsCmd(a *app) *cobra.Command {
	var groupID string

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Follow the employee event topic and log every event",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(a.cfg.KafkaBrokers) == 0 {
				return errors.New("KAFKA_BROKERS is not set")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			consumer := events.NewConsumer(a.cfg.KafkaBrokers, groupID, a.cfg.Topic, a.logger)
			defer consumer.Close()

			consumer.RegisterHandler(func(_ context.Context, ev events.Event) error {
				fields := []zap.Field{
					zap.String("event_type", string(ev.Type)),
					zap.Time("occurred_at", ev.OccurredAt),
				}
				if ev.Employee != nil {
					fields = append(fields, zap.String("employee_id", ev.Employee.EmployeeID))
				}
				a.logger.Info("employee event", fields...)
				return nil
			})
			consumer.Run(ctx)
			return nil
		},
	}

	cmd.Flags().StringVar(&groupID, "group", "directory-events-tail", "consumer group id")
	return cmd
}
