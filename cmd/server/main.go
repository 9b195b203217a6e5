package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ganatech/academy/internal/config"
	"github.com/ganatech/academy/internal/handlers"
	"github.com/ganatech/academy/internal/middleware"
	"github.com/ganatech/academy/internal/models"
	"github.com/ganatech/academy/internal/notification"
	"github.com/ganatech/academy/internal/repository"
	"github.com/ganatech/academy/internal/service"
	"github.com/ganatech/academy/internal/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if level, err := logrus.ParseLevel(cfg.Server.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mongoClient, err := repository.ConnectMongo(ctx, cfg.Mongo.URI, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer disconnectMongo(mongoClient, logger)

	db := mongoClient.Database(cfg.Mongo.Database)
	if err := repository.EnsureMongoIndexes(ctx, db); err != nil {
		logger.WithError(err).Fatal("Failed to create MongoDB indexes")
	}

	var dynamoClient *dynamodb.Client
	if cfg.Store.Backend == "dynamodb" || cfg.Pending.Backend == "dynamodb" {
		dynamoClient, err = initDynamoDB(ctx, cfg, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize DynamoDB")
		}
	}

	var redisClient *redis.Client
	if cfg.Pending.Backend == "redis" {
		redisClient, err = initRedis(ctx, cfg, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Redis")
		}
		defer redisClient.Close()
	}

	pendingRepo := initPendingRepository(ctx, cfg, redisClient, dynamoClient, logger)

	jwtService, err := service.NewJWTService(&cfg.JWT, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize JWT service")
	}

	notifier := initNotifier(cfg, logger)

	var verificationServices []*service.VerificationService
	for _, kind := range models.Kinds {
		var identityRepo repository.IdentityRepository
		if cfg.Store.Backend == "dynamodb" {
			identityRepo = repository.NewDynamoIdentityRepository(dynamoClient, cfg.DynamoDB.TableName, kind, logger)
		} else {
			identityRepo = repository.NewMongoIdentityRepository(db, kind, logger)
		}
		verificationServices = append(verificationServices, service.NewVerificationService(
			kind,
			identityRepo,
			pendingRepo,
			notifier,
			jwtService,
			&cfg.OTP,
			cfg.SMS.CountryCode,
			logger,
		))
	}

	adminService := service.NewAdminService(repository.NewMongoAdminRepository(db), jwtService, logger)
	if cfg.Admin.Username != "" && cfg.Admin.Password != "" {
		if err := adminService.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password); err != nil {
			logger.WithError(err).Fatal("Failed to seed admin")
		}
	}

	fileStore, uploadDir := initFileStore(cfg, logger)
	courseService := service.NewCourseService(repository.NewMongoCourseRepository(db), fileStore, cfg.Upload.MaxBytes, logger)

	router := handlers.NewRouter(handlers.RouterConfig{
		Identities:     handlers.NewIdentityHandlers(verificationServices, cfg.IsProduction(), logger),
		Admins:         handlers.NewAdminHandlers(adminService, logger),
		Courses:        handlers.NewCourseHandlers(courseService, cfg.Upload.MaxBytes, logger),
		Auth:           middleware.NewAuthMiddleware(adminService, logger),
		OTPRateLimit:   middleware.OTPRateLimit(redisClient, cfg.OTP.RateLimitPerMin, logger),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		UploadDir:      uploadDir,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	<-ctx.Done()

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

func initDynamoDB(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*dynamodb.Client, error) {
	var awsCfg aws.Config
	var err error

	if cfg.DynamoDB.Endpoint != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.DynamoDB.Region),
			awsconfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
				func(service, region string, options ...interface{}) (aws.Endpoint, error) {
					return aws.Endpoint{
						URL:           cfg.DynamoDB.Endpoint,
						SigningRegion: cfg.DynamoDB.Region,
					}, nil
				})),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.DynamoDB.Region))
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg)
	logger.Info("DynamoDB client initialized")
	return client, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	logger.Info("Redis client initialized")
	return client, nil
}

func initPendingRepository(
	ctx context.Context,
	cfg *config.Config,
	redisClient *redis.Client,
	dynamoClient *dynamodb.Client,
	logger *logrus.Logger,
) repository.PendingRepository {
	switch cfg.Pending.Backend {
	case "redis":
		return repository.NewRedisPendingRepository(redisClient, cfg.Pending.Retention, logger)
	case "dynamodb":
		return repository.NewDynamoPendingRepository(dynamoClient, cfg.DynamoDB.TableName, cfg.Pending.Retention, logger)
	default:
		logger.Warn("Using in-memory pending store; pending signups are lost on restart")
		pending := repository.NewMemoryPendingRepository(cfg.Pending.Retention, logger)
		go pending.Run(ctx, cfg.Pending.SweepInterval)
		return pending
	}
}

func initNotifier(cfg *config.Config, logger *logrus.Logger) notification.Notifier {
	if cfg.SMS.Provider == "twilio" {
		return notification.NewTwilioNotifier(cfg.SMS.AccountSID, cfg.SMS.AuthToken, cfg.SMS.FromNumber, logger)
	}
	if cfg.IsProduction() {
		logger.Warn("SMS_PROVIDER=log in production: OTPs are written to the log")
	}
	return notification.NewLogNotifier(logger)
}

// initFileStore returns the course file store and, for local storage, the directory to serve.
func initFileStore(cfg *config.Config, logger *logrus.Logger) (storage.FileStore, string) {
	if cfg.Upload.Backend == "cloudinary" {
		store, err := storage.NewCloudinaryFileStore(
			cfg.Cloudinary.CloudName,
			cfg.Cloudinary.APIKey,
			cfg.Cloudinary.APISecret,
			cfg.Cloudinary.Folder,
			logger,
		)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize Cloudinary")
		}
		return store, ""
	}

	store, err := storage.NewLocalFileStore(cfg.Upload.Dir, "/uploads/", logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize upload dir")
	}
	return store, store.Dir()
}

func disconnectMongo(client *mongo.Client, logger *logrus.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		logger.WithError(err).Error("Failed to disconnect MongoDB")
	}
}
