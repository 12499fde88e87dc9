package server

import (
	"ledger-service/internal/cache"
	"ledger-service/internal/config"
	hrest "ledger-service/internal/handler/rest"
	"ledger-service/internal/pub"
	"ledger-service/internal/repository"
	"ledger-service/internal/usecase"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewLedgerRestServer wires the full stack and serves the HTTP API. It
// blocks until the listener fails.
func NewLedgerRestServer(cfg config.AppConfig, logger *zap.Logger) {
	// --- DB connection ---
	dbpool, err := config.ConnectDB(logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer dbpool.Close()

	// --- Redis client ---
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       0,
	})
	balanceCache := cache.NewBalanceCache(rdb, logger)

	// --- Kafka publisher ---
	var publisher pub.Publisher = pub.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = pub.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	}

	// --- Repositories ---
	txm := repository.NewTxManager(dbpool)
	headerRepo := repository.NewHeaderRepo(dbpool)
	accountRepo := repository.NewAccountRepo(dbpool)
	transactionRepo := repository.NewTransactionRepo(dbpool)
	entryRepo := repository.NewEntryRepo(dbpool)
	eventRepo := repository.NewEventRepo(dbpool)
	historicalRepo := repository.NewHistoricalRepo(dbpool)
	fiscalYearRepo := repository.NewFiscalYearRepo(dbpool)
	checkRangeRepo := repository.NewCheckRangeRepo(dbpool)

	// --- Usecases ---
	chartUC := usecase.NewChartUsecase(txm, headerRepo, accountRepo, transactionRepo, historicalRepo, balanceCache, logger)
	entryUC := usecase.NewEntryUsecase(txm, accountRepo, transactionRepo, entryRepo, fiscalYearRepo, balanceCache, publisher, logger)
	txUC := usecase.NewTransactionUsecase(txm, accountRepo, transactionRepo)
	eventUC := usecase.NewEventUsecase(txm, eventRepo)
	fiscalUC := usecase.NewFiscalYearUsecase(txm, chartUC, accountRepo, transactionRepo, entryRepo, eventRepo, historicalRepo, fiscalYearRepo, balanceCache, publisher, logger)
	importUC := usecase.NewBankImportUsecase(accountRepo, transactionRepo, entryRepo, checkRangeRepo, logger)

	// --- REST handler ---
	handler := hrest.NewLedgerRestHandler(chartUC, entryUC, txUC, eventUC, fiscalUC, importUC)

	logger.Info("ledger REST server listening", zap.String("addr", cfg.HTTPAddr))
	if err := handler.Start(cfg.HTTPAddr); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}
}
