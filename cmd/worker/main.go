// Worker consumes security events from Kafka and pushes them to Loki.
// Set KAFKA_BROKERS, TELEMETRY_KAFKA_TOPIC, KAFKA_GROUP_ID and LOKI_URL.
package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"course-guard/internal/config"
	"course-guard/internal/logging"
	"course-guard/internal/telemetry/loki"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logging.Setup(cfg.LogLevel, cfg.LogPretty)

	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		log.Fatal().Msg("worker: KAFKA_BROKERS is required")
	}
	if cfg.LokiURL == "" {
		log.Fatal().Msg("worker: LOKI_URL is required")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          cfg.KafkaTopic,
		GroupID:        cfg.KafkaGroupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		CommitInterval: time.Second,
	})
	defer reader.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := loki.NewClient(cfg.LokiURL)
	log.Info().
		Str("topic", cfg.KafkaTopic).
		Str("group", cfg.KafkaGroupID).
		Str("loki", cfg.LokiURL).
		Msg("worker: consuming")

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info().Msg("worker: stopped")
				return
			}
			log.Warn().Err(err).Msg("worker: kafka read error")
			continue
		}

		pushCtx, pushCancel := context.WithTimeout(ctx, 10*time.Second)
		if err := client.PushEventJSON(pushCtx, msg.Value); err != nil {
			log.Warn().Err(err).Int64("offset", msg.Offset).Msg("worker: loki push failed")
		}
		pushCancel()
	}
}
