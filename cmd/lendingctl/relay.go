package main

import (
	"errors"

	"github.com/spf13/cobra"

	"doccenter/pkg/platform/outbox"
)

func newRelayCmd(a *app) *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Publish pending audit outbox rows to Kafka",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			k := a.cfg.Kafka
			if len(k.Brokers) == 0 {
				return errors.New("DOCCENTER_KAFKA_BROKERS is empty")
			}

			db, err := a.openSQL(ctx, false)
			if err != nil {
				return err
			}
			defer db.Close()

			client, err := outbox.NewKafkaClient(k.Brokers, "lendingctl")
			if err != nil {
				return err
			}
			defer client.Close()
			if err := outbox.EnsureTopic(ctx, client, k.AuditTopic, 3, 1); err != nil {
				return err
			}

			relay := outbox.NewRelay(db, outbox.NewKafkaProducer(client, k.AuditTopic),
				outbox.WithLogger(a.log),
				outbox.WithInterval(k.RelayInterval),
				outbox.WithBatchSize(k.RelayBatch),
			)
			if !once {
				return relay.Run(ctx)
			}
			total := 0
			for {
				n, err := relay.RunOnce(ctx)
				if err != nil {
					return err
				}
				if n == 0 {
					break
				}
				total += n
			}
			return writeJSON(cmd, map[string]int{"published": total})
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "drain the outbox and exit instead of polling")
	return cmd
}
