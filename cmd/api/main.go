package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/otp-identity-api/internal/application/notification"
	"github.com/otp-identity-api/internal/config"
	"github.com/otp-identity-api/internal/infrastructure/awscfg"
	"github.com/otp-identity-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/otp-identity-api/internal/infrastructure/jwt"
	s3infra "github.com/otp-identity-api/internal/infrastructure/s3"
	"github.com/otp-identity-api/internal/infrastructure/smtp"
	"github.com/otp-identity-api/internal/infrastructure/sns"
	"github.com/otp-identity-api/internal/pkg/otp"
	transporthttp "github.com/otp-identity-api/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	ctx := context.Background()
	awsCfg, err := awscfg.Load(ctx, cfg, cfg.AWSRegion)
	if err != nil {
		log.Fatalf("aws config: %v", err)
	}

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(awsCfg)
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		log.Fatalf("jwt provider: %v", err)
	}

	s3Store := s3infra.NewStore(s3infra.NewClient(awsCfg, cfg.AWSEndpointURL != ""), cfg.S3BucketName)

	// SNS SMS sender (optional: codes still go out by email without it).
	var smsSender sns.SMSSender
	if snsCfg, err := awscfg.Load(ctx, cfg, cfg.SNSRegion); err == nil {
		smsSender = sns.NewSender(snsCfg, cfg.SMSCountryCode)
	} else {
		log.Printf("WARN: SNS sender not available: %v", err)
	}

	dispatcher := notification.NewDispatcher(smtp.NewMailer(cfg), smsSender, cfg.DispatchWorkers, cfg.DispatchQueueSize)

	deps := &transporthttp.Deps{
		UserRepo:          dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables),
		SessionRepo:       dynamo.NewSessionRepo(dynamoClient, cfg.DynamoTables.Sessions),
		VerificationRepo:  dynamo.NewVerificationRepo(dynamoClient, cfg.DynamoTables),
		PasswordResetRepo: dynamo.NewPasswordResetRepo(dynamoClient, cfg.DynamoTables),
		KYCRepo:           dynamo.NewKYCRepo(dynamoClient, cfg.DynamoTables.KYCDocuments),
		ObjectStore:       s3Store,
		Notifier:          dispatcher,
		CodeGenerator:     otp.NewGenerator(nil),
		JWTProvider:       jwtProvider,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}
	// Requests are drained, so no new codes can be queued.
	dispatcher.Close()
	log.Println("Server stopped")
}
