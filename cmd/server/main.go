package main

import (
	"context"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"

	"otp-verification-service/internal/config"
	"otp-verification-service/internal/delivery"
	"otp-verification-service/internal/otp"
	"otp-verification-service/internal/server"
	"otp-verification-service/internal/server/interceptors"
	"otp-verification-service/internal/telemetry"
	oteltelemetry "otp-verification-service/internal/telemetry/otel"
	"otp-verification-service/internal/telemetry/producer"
	"otp-verification-service/internal/verification/service"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	providers, err := oteltelemetry.NewProviders(ctx, oteltelemetry.Config{
		Endpoint:       cfg.OTelEndpoint,
		Insecure:       cfg.OTelInsecure,
		ServiceName:    cfg.ServiceName,
		ServiceVersion: version,
		Environment:    cfg.Env,
	})
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()

	logger := oteltelemetry.NewLogger(oteltelemetry.LoggerOptions{
		ServiceName: cfg.ServiceName,
		Level:       cfg.LogLevel,
		Provider:    providers.LoggerProvider,
	})
	slog.SetDefault(logger)

	kafkaProducer, err := producer.NewKafkaProducer(cfg.TelemetryKafkaBrokersList(), cfg.TelemetryKafkaTopic)
	if err != nil {
		logger.Error("kafka producer", "error", err)
		os.Exit(1)
	}
	emitters := []telemetry.EventEmitter{oteltelemetry.NewEventEmitter(providers.LoggerProvider)}
	if kafkaProducer != nil {
		emitters = append(emitters, kafkaProducer)
		logger.Info("telemetry events published to kafka", "topic", cfg.TelemetryKafkaTopic)
	}
	emitter := telemetry.Multi(emitters...)

	store := otp.NewStore(otp.Config{Validity: cfg.Validity(), MaxAttempts: cfg.OTPMaxAttempts})
	channel, err := delivery.NewChannel(delivery.Options{
		Name:       cfg.DeliveryChannel,
		Validity:   store.Config().Validity,
		SMSAPIKey:  cfg.SMSLocalAPIKey,
		SMSBaseURL: cfg.SMSLocalBaseURL,
		SMSSender:  cfg.SMSLocalSender,
		SMTP: delivery.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		},
		Logger: logger,
	})
	if err != nil {
		logger.Error("delivery channel", "error", err)
		os.Exit(1)
	}

	identityKind := service.IdentityEmail
	if cfg.DeliveryChannel == delivery.ChannelSMS {
		identityKind = service.IdentityPhone
	}
	if cfg.OTPReturnToClient {
		logger.Warn("OTP_RETURN_TO_CLIENT is enabled; codes are returned in IssueCode responses")
	}
	svc, err := service.NewService(store, channel, service.Options{
		IdentityKind:   identityKind,
		AllowedDomains: cfg.AllowedDomains(),
		ReturnCode:     cfg.OTPReturnToClient,
		Logger:         logger,
		Emitter:        emitter,
	})
	if err != nil {
		logger.Error("verification service", "error", err)
		os.Exit(1)
	}

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	if interval := cfg.SweepInterval(); interval > 0 {
		go store.RunSweeper(sweepCtx, interval, svc.OnSweep)
		logger.Info("otp sweeper started", "interval", interval.String())
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Error("listen", "addr", cfg.GRPCAddr, "error", err)
		os.Exit(1)
	}
	defer lis.Close()

	s := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.RequestID(),
			interceptors.TelemetryUnary(emitter, map[string]bool{server.HealthCheckMethod: true}),
		),
	)
	healthSrv := health.NewServer()
	server.RegisterServices(s, server.Deps{OTP: svc, Health: healthSrv})

	go func() {
		logger.Info("gRPC server listening", "addr", cfg.GRPCAddr, "channel", cfg.DeliveryChannel)
		if err := s.Serve(lis); err != nil {
			logger.Error("serve", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down gRPC server...")
	healthSrv.Shutdown()
	stopSweeper()
	s.GracefulStop()

	// Let in-flight async emits finish before the exporters and the Kafka writer go away.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if kafkaProducer != nil {
		if err := kafkaProducer.Close(); err != nil {
			logger.Warn("kafka producer close", "error", err)
		}
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("otel shutdown: %v", err)
	}
	log.Println("gRPC server stopped")
}
