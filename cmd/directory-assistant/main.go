// cmd/directory-assistant/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"directory-assistant/internal/api"
	"directory-assistant/internal/common/aws"
	"directory-assistant/internal/common/camunda"
	"directory-assistant/internal/common/config"
	"directory-assistant/internal/common/database"
	"directory-assistant/internal/common/logger"
	"directory-assistant/internal/common/observability"
	"directory-assistant/internal/common/zoho"

	chatcompletion "directory-assistant/internal/workers/ai-conversation/chat-completion"
	classifyintent "directory-assistant/internal/workers/ai-conversation/classify-intent"
	conversationhistory "directory-assistant/internal/workers/ai-conversation/conversation-history"
	generalchat "directory-assistant/internal/workers/ai-conversation/general-chat"
	messagelog "directory-assistant/internal/workers/dialogue/message-log"
	routemessage "directory-assistant/internal/workers/dialogue/route-message"
	leadrepository "directory-assistant/internal/workers/leads/lead-repository"
	notifylead "directory-assistant/internal/workers/leads/notify-lead"
	evictexpiredcache "directory-assistant/internal/workers/maintenance/evict-expired-cache"
	externalplaces "directory-assistant/internal/workers/search/external-places"
	hybridsearch "directory-assistant/internal/workers/search/hybrid-search"
	internalcatalog "directory-assistant/internal/workers/search/internal-catalog"
	resultcache "directory-assistant/internal/workers/search/result-cache"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	bootLog := logger.New("info", "console")

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("config load failed", zap.Error(err))
	}
	_ = bootLog.Sync()

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).With(map[string]interface{}{
		"app":     cfg.App.Name,
		"version": cfg.App.Version,
	})

	zapLog.Info("starting directory assistant", zap.String("environment", cfg.App.Environment))

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]api.ReadinessCheck{}

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "postgres connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	checks["postgres"] = pg.Ping

	var schema []string
	schema = append(schema, resultcache.Schema...)
	schema = append(schema, messagelog.Schema...)
	schema = append(schema, leadrepository.Schema...)
	if err := pg.EnsureSchema(ctx, schema...); err != nil {
		zapLog.Fatal("schema setup failed", zap.Error(err))
	}

	// --- Retrieval ---
	catalogCfg := &internalcatalog.Config{
		MaxResults:    cfg.Search.MaxInternal,
		DefaultRadius: cfg.Search.DefaultRadius,
		BusinessIndex: cfg.Database.Elasticsearch.BusinessIndex,
		Timeout:       config.GetDuration(cfg.Search.Timeout),
	}
	catalog := internalcatalog.NewPostgresCatalog(catalogCfg, pg.DB, log)

	var finder internalcatalog.BusinessFinder = catalog
	if cfg.Search.CatalogBackend == "elasticsearch" {
		var es *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		created, err := es.EnsureBusinessIndex(ctx)
		if err != nil {
			zapLog.Fatal("business index setup failed", zap.Error(err))
		}
		if created {
			zapLog.Info("business index created", zap.String("index", es.BusinessIndex))
		}
		finder = internalcatalog.NewElasticsearchFinder(catalogCfg, es.Client, log)
		checks["elasticsearch"] = es.Ping
	}

	var store resultcache.Store
	switch cfg.Cache.Backend {
	case "redis":
		var rc *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			rc, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rc.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rc.Close()
		store = resultcache.NewRedisStore(rc.Client, cfg.Cache.KeyPrefix, log)
		checks["redis"] = rc.Ping
	default:
		store = resultcache.NewPostgresStore(pg.DB, log)
	}

	places := externalplaces.NewProvider(&externalplaces.Config{
		BaseURL:    cfg.APIs.Places.BaseURL,
		APIKey:     cfg.APIs.Places.APIKey,
		Language:   cfg.APIs.Places.Language,
		MaxResults: cfg.APIs.Places.MaxResults,
		Confidence: cfg.APIs.Places.Confidence,
		Timeout:    config.GetDuration(cfg.APIs.Places.Timeout),
	}, log)
	if !places.Configured() {
		zapLog.Warn("places api key missing, external search returns no rows")
	}

	search := hybridsearch.NewHandler(&hybridsearch.Config{
		InternalThreshold: cfg.Search.InternalThreshold,
		CacheTTL:          cfg.CacheTTL(),
		DedupeInFlight:    cfg.Search.DedupeInFlight,
		Timeout:           config.GetDuration(cfg.Search.Timeout),
	}, finder, places, store, resultcache.NewKeyer(), log)

	// --- Conversation ---
	completionCfg := &chatcompletion.Config{
		Provider:       cfg.APIs.Completion.Provider,
		BaseURL:        cfg.APIs.Completion.BaseURL,
		APIKey:         cfg.APIs.Completion.APIKey,
		Model:          cfg.APIs.Completion.Model,
		Timeout:        config.GetDuration(cfg.APIs.Completion.Timeout),
		ConnectTimeout: config.GetDuration(cfg.APIs.Completion.ConnectTimeout),
		MaxRetries:     cfg.APIs.Completion.MaxRetries,
	}
	completer, err := chatcompletion.New(ctx, completionCfg, log)
	if err != nil {
		// every call then fails fast and callers fall back to their defaults
		zapLog.Warn("completion backend unavailable", zap.Error(err))
		completer = chatcompletion.NewHTTPClient(completionCfg, log)
	}

	classifier := classifyintent.NewHandler(classifyintent.LoadConfig(), completer, log)

	history := conversationhistory.NewStore(&conversationhistory.Config{
		MaxMessages: cfg.History.MaxMessages,
	})

	chatCfg := generalchat.LoadConfig()
	chatCfg.Temperature = cfg.APIs.Completion.Temperature
	chatCfg.MaxTokens = cfg.APIs.Completion.MaxTokens
	chatCfg.TopP = cfg.APIs.Completion.TopP
	chat := generalchat.NewHandler(chatCfg, history, completer, log)

	// --- Leads ---
	leads := leadrepository.NewPostgresRepository(pg.DB, log)
	messages := messagelog.NewPostgresLog(pg.DB, log)

	var crm notifylead.CRM
	if cfg.Integrations.Zoho.Enabled {
		crm = zoho.NewCRMClient(cfg.Integrations.Zoho.BaseURL, cfg.Integrations.Zoho.AuthToken,
			config.GetDuration(cfg.Notifications.Timeout))
	}

	var email notifylead.EmailSender
	if cfg.Notifications.Email.Enabled && cfg.Integrations.AWS.SES.Enabled {
		ses, err := aws.NewSESClient(ctx, cfg.Integrations.AWS.Region, cfg.Integrations.AWS.SES.FromEmail)
		if err != nil {
			zapLog.Warn("ses client unavailable, lead emails disabled", zap.Error(err))
		} else {
			email = ses
		}
	}

	var sms notifylead.Publisher
	if cfg.Notifications.SMS.Enabled && cfg.Integrations.AWS.SNS.Enabled {
		sns, err := aws.NewSNSClient(ctx, cfg.Integrations.AWS.Region, cfg.Integrations.AWS.SNS.TopicARN)
		if err != nil {
			zapLog.Warn("sns client unavailable, lead sms disabled", zap.Error(err))
		} else {
			sms = sns
		}
	}

	notifyCfg := notifylead.LoadConfig()
	notifyCfg.EmailTo = cfg.Notifications.Email.To
	notifyCfg.Timeout = config.GetDuration(cfg.Notifications.Timeout)
	followUp := notifylead.NewHandler(notifyCfg, crm, email, sms, leads, log)

	// --- Router ---
	routerCfg := &routemessage.Config{
		Channel:             cfg.Dialogue.Channel,
		ConfidenceThreshold: cfg.Dialogue.ConfidenceThreshold,
		MaxInternalRows:     cfg.Dialogue.MaxInternalRows,
		MaxExternalRows:     cfg.Dialogue.MaxExternalRows,
		MaxProducts:         cfg.Dialogue.MaxProducts,
		MaxPrices:           cfg.Dialogue.MaxPrices,
		NearbyLimit:         cfg.Dialogue.NearbyLimit,
		DefaultLatitude:     cfg.Search.DefaultLatitude,
		DefaultLongitude:    cfg.Search.DefaultLongitude,
		DefaultRadius:       cfg.Search.DefaultRadius,
		LogTimeout:          config.GetDuration(cfg.Dialogue.LogTimeout),
		FollowUpTimeout:     config.GetDuration(cfg.Dialogue.FollowUpTimeout),
		ConsentTTL:          config.GetDuration(cfg.Dialogue.ConsentTTL),
		Timeout:             config.GetDuration(cfg.Server.WriteTimeout),
	}
	router := routemessage.NewHandler(routerCfg, routemessage.Dependencies{
		Classifier: classifier,
		Search:     search,
		Catalog:    catalog,
		Chat:       chat,
		History:    history,
		Leads:      leads,
		Messages:   messages,
		FollowUp:   followUp,
		Metrics:    obs,
	}, log)

	// --- Maintenance ---
	evictor := evictexpiredcache.NewHandler(&evictexpiredcache.Config{
		Interval: config.GetDuration(cfg.Maintenance.EvictionInterval),
		Timeout:  2 * time.Minute,
	}, search, log)
	go evictor.Run(ctx)

	// --- Zeebe workers ---
	var (
		zeebe   *camunda.Client
		workers []*camunda.Worker
	)
	if cfg.Camunda.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClient(camunda.ClientConfigFrom(cfg.Camunda))
			return err
		}, 10, 2*time.Second, zapLog, "zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		checks["zeebe"] = zeebe.HealthCheck

		handlers := map[string]camunda.JobHandler{
			routemessage.TaskType:      router,
			hybridsearch.TaskType:      search,
			classifyintent.TaskType:    classifier,
			notifylead.TaskType:        followUp,
			evictexpiredcache.TaskType: evictor,
		}
		for taskType, handler := range handlers {
			if !config.IsWorkerEnabled(cfg, taskType) {
				zapLog.Info("worker disabled", zap.String("taskType", taskType))
				continue
			}
			workers = append(workers, camunda.NewWorker(zeebe.Raw(), taskType, config.GetWorkerConfig(cfg, taskType), handler, log))
		}
	}

	// --- HTTP ---
	srv := api.NewServer(
		cfg.Server.Address,
		api.NewRouter(router, checks, log).Setup(),
		config.GetDuration(cfg.Server.ReadTimeout),
		config.GetDuration(cfg.Server.WriteTimeout),
	)
	go func() {
		zapLog.Info("http server listening", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("http server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zapLog.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("http server shutdown failed", zap.Error(err))
	}
	for _, w := range workers {
		w.Stop(shutdownCtx)
	}

	done := make(chan struct{})
	go func() {
		router.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		zapLog.Warn("pending exchange logs and lead follow-ups abandoned")
	}

	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("error closing zeebe client", zap.Error(err))
		}
	}

	zapLog.Info("directory assistant stopped")
}
