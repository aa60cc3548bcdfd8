package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"slack-connect/domain/repository"
	"slack-connect/infrastructure/cache"
	"slack-connect/infrastructure/clients/slackapi"
	"slack-connect/infrastructure/configuration"
	"slack-connect/infrastructure/logger"
	"slack-connect/infrastructure/metrics"
	"slack-connect/infrastructure/persistence"
	"slack-connect/infrastructure/pubsub"
	"slack-connect/infrastructure/realtime"
	"slack-connect/infrastructure/servicebus"
	"slack-connect/infrastructure/utils"
	httpHandler "slack-connect/interfaces/http"
	"slack-connect/server"
	"slack-connect/usecase"

	"golang.org/x/sync/errgroup"
)

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

// stores holds the credential and message stores for the configured vendor.
type stores struct {
	db       *sql.DB
	creds    repository.ICredential
	messages repository.IScheduledMessage
}

func main() {
	defer recoverPanic()

	// Load env from files (non-destructive; OS env still has precedence)
	if loaded := configuration.LoadEnvFromFile("config.env", ".env"); len(loaded) > 0 {
		configuration.Reload()
		logger.GetLogger().WithField("files", loaded).Info("Loaded env files")
	}

	// `slack-connect token <subject>` prints an API bearer token signed with SECRET_KEY.
	if len(os.Args) > 2 && os.Args[1] == "token" {
		os.Exit(printToken(os.Args[2]))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	app := configuration.C.App
	mt := metrics.NewMetrics("slack_connect")

	st, err := InitiateStores(configuration.C.Database.Vendor)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Database initialization failed")
		os.Exit(1)
	}
	if st.db != nil {
		defer st.db.Close()
	}

	slackCfg := slackapi.Config{
		ClientID:     configuration.C.Slack.ClientID,
		ClientSecret: configuration.C.Slack.ClientSecret,
		RedirectURL:  configuration.C.Slack.RedirectURI,
		Scopes:       configuration.C.Slack.Scopes,
		APIURL:       configuration.C.Slack.APIURL,
		Timeout:      time.Duration(configuration.C.Scheduler.RequestTimeoutSeconds) * time.Second,
	}
	slackClient := slackapi.NewClient(slackCfg)
	slackOAuth := slackapi.NewOAuth(slackCfg)

	var channelCache repository.IChannelCache
	if configuration.C.RedisClient.Host != "" {
		redisClient, err := cache.NewCache(
			ctx,
			fmt.Sprintf("%s:%s", configuration.C.RedisClient.Host, configuration.C.RedisClient.Port),
			configuration.C.RedisClient.Username,
			configuration.C.RedisClient.Password,
		)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("Redis ping failed - channel cache degraded")
		}
		channelCache = cache.NewChannelCache(redisClient, time.Duration(configuration.C.RedisClient.ChannelCacheTTLSeconds)*time.Second)
		logger.GetLogger().Info("Redis channel cache initialized")
	}

	hub := realtime.NewDeliveryHub()
	notifiers := []repository.IDeliveryNotifier{hub}
	var audit repository.IDeliveryAudit

	if uri := configuration.C.Database.Mongo.URI; uri != "" {
		mongoClient, err := persistence.NewMongoDb(ctx, uri)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("MongoDB not available - continuing without delivery audit")
		} else {
			defer func() { _ = mongoClient.Disconnect(context.Background()) }()
			auditRepo := persistence.NewDeliveryAuditRepository(mongoClient, configuration.C.Database.Mongo.Name, configuration.C.Database.Mongo.Collection)
			if err := auditRepo.EnsureIndexes(ctx); err != nil {
				logger.GetLogger().WithField("error", err).Warn("Failed ensuring delivery audit indexes")
			}
			notifiers = append(notifiers, auditRepo)
			audit = auditRepo
			logger.GetLogger().Info("MongoDB delivery audit connected")
		}
	}

	if pubSubClient, err := pubsub.NewPubSub(ctx, configuration.C.Pubsub.ProjectID); err != nil {
		logger.GetLogger().WithField("error", err).Info("PubSub not configured - delivery events not published")
	} else {
		defer pubSubClient.Close()
		publisher, err := pubsub.NewDeliveryPublisher(ctx, pubSubClient, configuration.C.Pubsub.Topic)
		if err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while preparing PubSub topic")
		} else {
			defer publisher.Stop()
			notifiers = append(notifiers, publisher)
		}
	}

	if sbClient, err := servicebus.NewServiceBus(ctx, configuration.C.ServiceBus.Namespace); err != nil {
		logger.GetLogger().WithField("error", err).Info("Azure Service Bus not configured - delivery events not queued")
	} else {
		defer func() { _ = sbClient.Close(context.Background()) }()
		publisher, err := servicebus.NewDeliveryPublisher(sbClient, configuration.C.ServiceBus.Queue)
		if err == nil {
			defer publisher.Close(context.Background())
			notifiers = append(notifiers, publisher)
		}
	}

	requestTimeout := time.Duration(configuration.C.Scheduler.RequestTimeoutSeconds) * time.Second
	credentialManager := usecase.NewCredentialManager(st.creds, slackOAuth,
		usecase.WithRefreshThreshold(time.Duration(configuration.C.Scheduler.RefreshThresholdSeconds)*time.Second),
		usecase.WithRequestTimeout(requestTimeout),
		usecase.WithCredentialMetrics(mt),
	)
	scheduler := usecase.NewDeliveryScheduler(st.messages, credentialManager, slackClient,
		usecase.WithNotifiers(notifiers...),
		usecase.WithSendTimeout(requestTimeout),
		usecase.WithSchedulerMetrics(mt),
	)

	msgOpts := []usecase.MessageUsecaseOption{
		usecase.WithCancelNotifiers(notifiers...),
		usecase.WithMessageTimeout(requestTimeout),
	}
	if channelCache != nil {
		msgOpts = append(msgOpts, usecase.WithChannelCache(channelCache))
	}
	if audit != nil {
		msgOpts = append(msgOpts, usecase.WithDeliveryAudit(audit))
	}
	messageUsecase := usecase.NewMessageUsecase(st.messages, credentialManager, slackClient, slackClient, msgOpts...)
	workspaceUsecase := usecase.NewWorkspaceUsecase(st.creds, slackOAuth, channelCache)

	var pinger httpHandler.Pinger
	if st.db != nil {
		pinger = st.db
	}
	router := server.InitiateRouter(
		server.RouterConfig{AllowOrigins: configuration.C.Cors.AllowOrigins, SecretKey: app.SecretKey},
		httpHandler.NewSlackAuthHandler(workspaceUsecase, app.FrontendURL),
		httpHandler.NewMessageHandler(messageUsecase, scheduler),
		httpHandler.NewHealthHandler(pinger),
		hub,
		mt,
	)

	if configuration.C.Scheduler.SchedulerEnabled() {
		scheduler.Start(time.Duration(configuration.C.Scheduler.TickIntervalSeconds) * time.Second)
	} else {
		logger.GetLogger().Info("Delivery scheduler disabled by configuration")
	}

	port := app.Port
	logger.GetLogger().WithFields(map[string]interface{}{"port": port, "tls": app.TLSEnabled, "vendor": configuration.C.Database.Vendor}).Info("Starting application")
	// No WriteTimeout: the delivery stream is long-lived.
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		if app.TLSEnabled {
			cert := app.TLSCertFile
			key := app.TLSKeyFile
			if cert == "" || key == "" {
				logger.GetLogger().Error("TLS enabled but cert or key path empty; falling back to HTTP")
			} else {
				logger.GetLogger().WithFields(map[string]interface{}{"cert": cert, "key": key}).Info("Serving HTTPS")
				if err := httpServer.ListenAndServeTLS(cert, key); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			}
		}
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	select {
	case <-interrupt:
		logger.GetLogger().Info("Application shutdown requested")
	case <-ctx.Done():
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = httpServer.Shutdown(shutdownCtx)
	// Waits for an in-flight tick so no dispatched message is left unrecorded.
	scheduler.Stop()

	if err := g.Wait(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		os.Exit(2)
	}
	logger.GetLogger().Info("Application stopped")
}

// InitiateStores opens the database for vendor (postgres, mssql or memory) and
// ensures its schema.
func InitiateStores(vendor string) (*stores, error) {
	switch vendor {
	case "memory":
		logger.GetLogger().Warn("Using in-memory stores; credentials and schedules are lost on restart")
		return &stores{
			creds:    persistence.NewMemoryCredentialRepository(),
			messages: persistence.NewMemoryScheduledMessageRepository(),
		}, nil
	case "mssql":
		db, err := persistence.NewMSSQLDB()
		if err != nil {
			logger.GetLogger().WithField("error", err).Error("Cannot connect to MSSQL")
			return nil, err
		}
		if err := persistence.EnsureSchemaMSSQL(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &stores{
			db:       db,
			creds:    persistence.NewCredentialRepositoryMSSQL(db),
			messages: persistence.NewScheduledMessageRepositoryMSSQL(db),
		}, nil
	case "postgres", "":
		db, err := persistence.NewPostgreSQLDB()
		if err != nil {
			logger.GetLogger().WithField("error", err).Error("Cannot connect to PostgreSQL")
			return nil, err
		}
		if err := persistence.EnsureSchema(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &stores{
			db:       db,
			creds:    persistence.NewCredentialRepository(db),
			messages: persistence.NewScheduledMessageRepository(db),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported database vendor %q", vendor)
	}
}

func printToken(subject string) int {
	secret := configuration.C.App.SecretKey
	if secret == "" {
		fmt.Fprintln(os.Stderr, "SECRET_KEY is not set; API auth is disabled")
		return 1
	}
	token, err := utils.GenerateToken(subject, 24*time.Hour, secret)
	if err != nil {
		return 1
	}
	fmt.Println(token)
	return 0
}
