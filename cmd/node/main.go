package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/spotdex/params"
	"github.com/uhyunpark/spotdex/pkg/api"
	"github.com/uhyunpark/spotdex/pkg/app/core"
	"github.com/uhyunpark/spotdex/pkg/app/core/exchange"
	"github.com/uhyunpark/spotdex/pkg/app/core/token"
	"github.com/uhyunpark/spotdex/pkg/events"
	"github.com/uhyunpark/spotdex/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("")

	logger, err := util.NewLoggerWithFile(cfg.Node.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Node.LogFile)

	// ---- Exchange core ----
	ex, err := exchange.Open(exchange.Config{
		FeeAccount: cfg.Exchange.FeeAccount,
		FeePercent: cfg.Exchange.FeePercent,
	}, cfg.Node.DBPath, exchange.WithLogger(sugar))
	if err != nil {
		sugar.Fatalw("exchange_open_failed", "db", cfg.Node.DBPath, "err", err)
	}
	defer ex.Close()

	sugar.Infow("exchange_started",
		"fee_account", cfg.Exchange.FeeAccount.Hex(),
		"fee_percent", cfg.Exchange.FeePercent,
		"orders", ex.OrderCount(),
	)

	// ---- Event sinks ----
	ex.Feed().Attach(events.LogSink{Log: sugar})

	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink := events.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic, sugar)
		defer kafkaSink.Close()
		ex.Feed().Attach(kafkaSink)
		sugar.Infow("kafka_sink_attached", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	// ---- Devnet seeding ----
	if cfg.Node.DevMode {
		deployer := common.HexToAddress("0xDe9107e900000000000000000000000000000000")
		demo := token.NewStandard("Demo Token", "DEMO", 10*core.Ether, deployer)
		ex.RegisterToken(demo)
		sugar.Infow("dev_token_registered",
			"symbol", demo.Symbol(),
			"asset", demo.Address().Hex(),
			"deployer", deployer.Hex(),
		)
	}

	// ---- API ----
	server := api.NewServer(ex, sugar)
	go func() {
		if err := server.Start(cfg.Node.APIAddr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	sugar.Infow("shutting_down", "signal", sig.String())
}
