package params

import (
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

// Exchange holds the fee parameters. Both are fixed at construction and
// immutable for the lifetime of the instance.
type Exchange struct {
	FeeAccount common.Address
	FeePercent uint64
}

type Node struct {
	APIAddr string
	DBPath  string
	LogFile string
	// DevMode seeds a demo token and funded accounts so the API is usable
	// without an external token deployment.
	DevMode bool
}

// Kafka configures the optional trade broadcaster. Empty Brokers disables it.
type Kafka struct {
	Brokers []string
	Topic   string
}

type Config struct {
	Exchange Exchange
	Node     Node
	Kafka    Kafka
}

func Default() Config {
	return Config{
		Exchange: Exchange{
			FeeAccount: common.HexToAddress("0xFee0000000000000000000000000000000000000"),
			FeePercent: 10,
		},
		Node: Node{
			APIAddr: ":8080",
			DBPath:  "data/exchange.db",
			LogFile: "data/node.log",
			DevMode: true,
		},
		Kafka: Kafka{
			Topic: "spotdex.events",
		},
	}
}

// LoadFromEnv loads configuration from a .env file (if it exists) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	if acct := os.Getenv("FEE_ACCOUNT"); acct != "" && common.IsHexAddress(acct) {
		cfg.Exchange.FeeAccount = common.HexToAddress(acct)
	}
	if pct := os.Getenv("FEE_PERCENT"); pct != "" {
		if v, err := strconv.ParseUint(pct, 10, 64); err == nil {
			cfg.Exchange.FeePercent = v
		}
	}

	if addr := os.Getenv("API_ADDR"); addr != "" {
		cfg.Node.APIAddr = addr
	}
	if path := os.Getenv("DB_PATH"); path != "" {
		cfg.Node.DBPath = path
	}
	if logFile := os.Getenv("LOG_FILE"); logFile != "" {
		cfg.Node.LogFile = logFile
	}
	if dev := os.Getenv("DEV_MODE"); dev != "" {
		cfg.Node.DevMode = dev == "true"
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = strings.Split(brokers, ",")
	}
	if topic := os.Getenv("KAFKA_TOPIC"); topic != "" {
		cfg.Kafka.Topic = topic
	}

	return cfg
}
