package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/BearBump/trackrecon/config"
	"github.com/BearBump/trackrecon/internal/app"
	"github.com/BearBump/trackrecon/internal/broker/kafka"
	"github.com/pkg/errors"
)

func main() {
	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}
	app.SetupLogger(cfg.Service.LogLevel)

	grpcAddr := cfg.Service.GRPCAddr
	if grpcAddr == "" {
		grpcAddr = ":50051"
	}
	httpAddr := cfg.Service.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	consumerGroup := cfg.Service.KafkaConsumerGroup
	if consumerGroup == "" {
		consumerGroup = "track-api"
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	deps, err := app.Build(ctx, cfg)
	if err != nil {
		panic(err)
	}
	defer deps.Close()

	consumer := kafka.NewConsumer(app.KafkaBrokers(cfg.Kafka), cfg.Kafka.WebhookTopicName, consumerGroup)
	defer func() { _ = consumer.Close() }()

	if err := runTrackAPI(ctx, trackAPIOpts{
		grpcAddr:      grpcAddr,
		httpAddr:      httpAddr,
		grpcDialAddr:  grpcAddr,
		swaggerPath:   os.Getenv("swaggerPath"),
		topic:         cfg.Kafka.WebhookTopicName,
		consumerGroup: consumerGroup,
	}, deps.Service, consumer); err != nil && !errors.Is(err, context.Canceled) {
		panic(err)
	}
}
