package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/fintweet/internal/adapters/driving/amqp"
)

var (
	consumeURL   string
	consumeQueue string
)

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Ingest records published to a RabbitMQ queue",
	Long: `Consumes a durable RabbitMQ queue. Each message is a JSON record or an
array of records and is ingested as one batch.

Messages that cannot be decoded or fail validation are rejected. Messages
that fail because the embedding backend is unavailable are requeued.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{needsStore: "true"},
	RunE:        runConsume,
}

func init() {
	consumeCmd.Flags().StringVar(&consumeURL, "url", "", "AMQP URL (default amqp.url)")
	consumeCmd.Flags().StringVar(&consumeQueue, "queue", "", "queue name (default amqp.queue)")
	rootCmd.AddCommand(consumeCmd)
}

func runConsume(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}
	settings, err := currentSettings()
	if err != nil {
		return err
	}

	url, queue := settings.AMQP.URL, settings.AMQP.Queue
	if consumeURL != "" {
		url = consumeURL
	}
	if consumeQueue != "" {
		queue = consumeQueue
	}

	ctx := cmd.Context()
	conn, err := amqp.Dial(ctx, url)
	if err != nil {
		return err
	}
	defer conn.Close()

	consumer := amqp.NewConsumer(conn, ingestService, queue)
	if err := consumer.Start(ctx); err != nil {
		return err
	}
	defer consumer.Close()

	cmd.Printf("Consuming from %s (Ctrl+C to stop)\n", queue)

	select {
	case <-ctx.Done():
		return nil
	case <-consumer.Done():
		if ctx.Err() != nil {
			return nil
		}
		return errors.New("broker closed the delivery channel")
	}
}
