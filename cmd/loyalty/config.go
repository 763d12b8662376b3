package main

import (
	"crypto/rand"
	"encoding/base64"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/Renal37/go-musthave-loyalty-ledger/internal/services"
)

type Config struct {
	endpoint          string
	ordersEndpoint    string
	dsn               string
	logLevel          string
	env               string
	authSecretKey     string
	kafkaBrokers      []string
	redisAddress      string
	programConfigPath string
	sweepSchedule     string
}

func generateRandomString(length int) string {
	b := make([]byte, length)
	_, err := rand.Read(b)
	if err != nil {
		panic(err)
	}
	return base64.StdEncoding.EncodeToString(b)
}

func NewConfig() Config {
	var (
		endpoint          string
		ordersEndpoint    string
		dsn               string
		logLevel          string
		env               string
		authSecretKey     string
		kafkaBrokers      string
		redisAddress      string
		programConfigPath string
		sweepSchedule     string
	)

	flag.StringVar(&endpoint, "a", "localhost:8090", "address and port to run server")
	flag.StringVar(&ordersEndpoint, "r", "", "address of orders service used for status reconciliation")
	flag.StringVar(&dsn, "d", "", "data source name for database connection, in-memory storage when empty")
	flag.StringVar(&programConfigPath, "c", "", "path to loyalty program YAML")
	flag.StringVar(&kafkaBrokers, "k", "", "comma separated kafka brokers for order status events")
	flag.StringVar(&redisAddress, "cache", "", "redis address for balance cache")
	flag.StringVar(&sweepSchedule, "sweep", services.DefaultSweepSchedule, "cron schedule (with seconds) of expiration sweep")
	flag.Parse()

	if address := os.Getenv("RUN_ADDRESS"); address != "" {
		endpoint = address
	}

	if ordersAddress := os.Getenv("ORDERS_SERVICE_ADDRESS"); ordersAddress != "" {
		ordersEndpoint = ordersAddress
	}

	if d := os.Getenv("DATABASE_URI"); d != "" {
		dsn = d
	}

	if p := os.Getenv("LOYALTY_CONFIG"); p != "" {
		programConfigPath = p
	}

	if b := os.Getenv("KAFKA_BROKERS"); b != "" {
		kafkaBrokers = b
	}

	if r := os.Getenv("REDIS_ADDRESS"); r != "" {
		redisAddress = r
	}

	if s := os.Getenv("SWEEP_CRON"); s != "" {
		sweepSchedule = s
	}

	if l := os.Getenv("LOG_LEVEL"); l != "" {
		logLevel = l
	} else {
		logLevel = "error"
	}

	if e := os.Getenv("ENV"); e != "" {
		env = e
	} else {
		env = "production"
	}

	if secret := os.Getenv("AUTH_SECRET_KEY"); secret != "" {
		authSecretKey = secret
	} else {
		if env == "production" {
			authSecretKey = generateRandomString(10)
			log.Printf("WARNING: AUTH_SECRET_KEY has to be defined for production environment\n")
		} else {
			authSecretKey = "development-key"
		}
	}

	return Config{
		endpoint:          endpoint,
		ordersEndpoint:    strings.TrimRight(ordersEndpoint, "/"),
		dsn:               dsn,
		logLevel:          logLevel,
		env:               env,
		authSecretKey:     authSecretKey,
		kafkaBrokers:      splitList(kafkaBrokers),
		redisAddress:      redisAddress,
		programConfigPath: programConfigPath,
		sweepSchedule:     sweepSchedule,
	}
}

func splitList(value string) []string {
	var result []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}
	return result
}
