package main

import (
	"context"
	"log"
	"strings"

	api "mailsentry/cmd/api"
	accountdomain "mailsentry/internal/account/domain"
	accountrepo "mailsentry/internal/account/repository"
	"mailsentry/internal/intake"
	triagedelivery "mailsentry/internal/triage/delivery"
	triagedomain "mailsentry/internal/triage/domain"
	triagerepo "mailsentry/internal/triage/repository"
	"mailsentry/internal/triage/usecase"
	"mailsentry/internal/watch"
	"mailsentry/pkg/ai"
	"mailsentry/pkg/config"
	"mailsentry/pkg/database"
	"mailsentry/pkg/gmail"
	"mailsentry/pkg/telegram"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(
		&accountdomain.Account{},
		&triagedomain.Notification{},
		&triagedomain.Suppression{},
		&triagedomain.UsageDaily{},
		&triagedomain.AppState{},
	); err != nil {
		log.Fatal("Failed to migrate database: ", err)
	}

	// Initialize repositories (dependency injection)
	accountRepository := accountrepo.NewAccountRepository(db)
	notificationRepo := triagerepo.NewNotificationRepository(db)
	suppressionRepo := triagerepo.NewSuppressionRepository(db)
	usageRepo := triagerepo.NewUsageRepository(db)
	appStateRepo := triagerepo.NewAppStateRepository(db)

	// Upsert the configured mailboxes and build the runtime account maps.
	watchLabelIDs := strings.Join(cfg.GmailWatchLabelIDs, ",")
	accountsByEmail := make(map[string]accountdomain.Runtime)
	accountsByID := make(map[string]accountdomain.Runtime)
	var runtimeAccounts []accountdomain.Runtime
	for _, accountCfg := range cfg.Accounts {
		account, err := accountRepository.Ensure(accountCfg.Email, watchLabelIDs)
		if err != nil {
			log.Fatal("Failed to register account ", accountCfg.Email, ": ", err)
		}
		runtime := accountdomain.Runtime{
			AccountID:    account.ID,
			Email:        account.Email,
			RefreshToken: accountCfg.RefreshToken,
		}
		accountsByEmail[runtime.Email] = runtime
		accountsByID[runtime.AccountID] = runtime
		runtimeAccounts = append(runtimeAccounts, runtime)
	}
	log.Printf("Watching %d mailbox(es)", len(runtimeAccounts))

	// Initialize Gmail service
	gmailService := gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret)

	// Initialize AI classifier
	classifier, err := ai.NewClassifier(ai.Config{
		Provider:     ai.ProviderType(cfg.AIProvider),
		OpenAIAPIKey: cfg.OpenAIAPIKey,
		OpenAIModel:  cfg.OpenAIModel,
		GeminiAPIKey: cfg.GeminiAPIKey,
	})
	if err != nil {
		log.Fatal("Failed to initialize classifier: ", err)
	}

	// Initialize Telegram client
	telegramClient := telegram.NewClient(cfg.TelegramBotToken)

	// Initialize use cases (dependency injection)
	watchLabelID := cfg.GmailWatchLabelIDs[0]
	discovery := usecase.NewChangeDiscovery(accountRepository, gmailService, watchLabelID)
	ingestor := usecase.NewMessageIngestor(notificationRepo, gmailService, cfg.LLMMaxInputTokens)
	classifierAdapter := usecase.NewClassifierAdapter(classifier)
	suppressionEngine := usecase.NewSuppressionEngine(suppressionRepo)
	accountant := usecase.NewUsageAccountant(usageRepo, usecase.Prices{
		InputPer1M:       cfg.PriceInputPer1M,
		CachedInputPer1M: cfg.PriceCachedInputPer1M,
		OutputPer1M:      cfg.PriceOutputPer1M,
	})
	syncService := usecase.NewSyncService(
		discovery,
		ingestor,
		classifierAdapter,
		suppressionEngine,
		accountant,
		telegramClient,
		accountRepository,
		notificationRepo,
		appStateRepo,
		accountsByEmail,
		cfg.LowConfidenceThreshold,
	)
	dispatcher := usecase.NewActionDispatcher(
		notificationRepo,
		suppressionRepo,
		gmailService,
		telegramClient,
		accountsByID,
		cfg.LowConfidenceThreshold,
	)

	// Initialize Pub/Sub intake
	topicName := cfg.GmailWatchTopic
	if parts := strings.Split(topicName, "/"); len(parts) > 1 {
		topicName = parts[len(parts)-1]
	}
	subscriber, err := intake.NewSubscriber(cfg.GoogleProjectID, topicName, cfg.PubSubSubscription, syncService, cfg.GoogleCredentials)
	if err != nil {
		log.Fatal("Failed to initialize intake subscriber: ", err)
	}
	go subscriber.Start(context.Background())

	// Start the watch renewal scheduler
	watchScheduler := watch.NewScheduler(accountRepository, gmailService, runtimeAccounts, cfg.GmailWatchTopic, cfg.GmailWatchLabelIDs)
	watchScheduler.Start()

	// Initialize HTTP handler
	telegramHandler := triagedelivery.NewTelegramHandler(dispatcher, telegramClient, appStateRepo, cfg.TelegramWebhookSecret, cfg.TelegramAllowedUserIDs)
	usageHandler := triagedelivery.NewUsageHandler(usageRepo)
	handler := api.NewHandler(telegramHandler, usageHandler)

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}
