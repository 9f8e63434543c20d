// cmd/inventory-service/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-zookeeper/zk"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"stockflow/internal/pkg/bootstrap"
	"stockflow/internal/pkg/logger"
	"stockflow/internal/pkg/mq"
	"stockflow/internal/service/inventory/application"
	"stockflow/internal/service/inventory/domain"
	"stockflow/internal/service/inventory/infrastructure"
	"stockflow/internal/service/inventory/interfaces"
)

const serviceName = "inventory-service"

// Ledger entries are never trusted to the cache for longer than any
// plausible broker redelivery window; the DB row outlives the TTL.
const dedupCacheTTL = 7 * 24 * time.Hour

var tracer = otel.Tracer(serviceName)

func main() {
	bootstrap.Init()
	logger.Init(serviceName)
	cfg := bootstrap.GetCurrentConfig()

	db, err := gorm.Open(mysql.Open(cfg.Infra.Mysql.InventoryDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("FATAL: failed to connect to inventory database: %v", err)
	}

	store := infrastructure.NewGormInventoryStore(db)
	if err := store.AutoMigrate(); err != nil {
		log.Fatalf("FATAL: failed to migrate inventory schema: %v", err)
	}

	var cache domain.DedupCache
	if cfg.Infra.Redis.Enabled {
		cache = infrastructure.NewRedisDedupCache(redis.NewClient(&redis.Options{
			Addr: cfg.Infra.Redis.Addr,
		}))
	}

	var locks domain.ProductLocker
	if cfg.Infra.Zookeeper.Enabled {
		conn, _, err := zk.Connect(cfg.Infra.Zookeeper.Servers, 10*time.Second)
		if err != nil {
			log.Fatalf("FATAL: failed to connect to zookeeper: %v", err)
		}
		defer conn.Close()
		locks = infrastructure.NewZkProductLocker(conn)
	}

	feed := interfaces.NewOpsFeed()

	applier := application.NewDebitApplier(store, cache, locks, feed, dedupCacheTTL, tracer)

	brokers := cfg.Infra.Kafka.Brokers
	retryWriter := mq.NewKafkaWriter(brokers, cfg.Infra.Kafka.DebitTopic)
	dltWriter := mq.NewKafkaWriter(brokers, cfg.Infra.Kafka.DeadLetterTopic)
	failures := mq.NewFailureHandler(retryWriter, dltWriter, cfg.Inventory.MaxAttempts)

	consumerCtx, stopConsumers := context.WithCancel(context.Background())

	debitReader := mq.NewKafkaReader(brokers, cfg.Inventory.ConsumerGroup, cfg.Infra.Kafka.DebitTopic)
	consumer := interfaces.NewDebitConsumer(
		debitReader, applier, failures,
		cfg.Inventory.Workers, cfg.Inventory.RetryBackoff.Std(),
	)
	if err := consumer.Start(consumerCtx); err != nil {
		log.Fatalf("FATAL: failed to start debit consumer: %v", err)
	}

	dltReader := mq.NewKafkaReader(brokers, cfg.Inventory.ConsumerGroup+"-dlt", cfg.Infra.Kafka.DeadLetterTopic)
	dltConsumer := interfaces.NewDltConsumer(dltReader, feed)
	if err := dltConsumer.Start(consumerCtx); err != nil {
		log.Fatalf("FATAL: failed to start DLT consumer: %v", err)
	}

	productHandler := interfaces.NewProductHandler(store)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        8082,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			appCtx.Mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
			appCtx.Mux.Handle("/metrics", promhttp.Handler())
			appCtx.Mux.Handle("/ops/feed", feed)
			productHandler.RegisterRoutes(appCtx.Mux)
		},
		Cleanup: func(ctx context.Context) {
			consumer.Stop(ctx)
			dltConsumer.Stop(ctx)
			stopConsumers()
			feed.Close()
			if err := retryWriter.Close(); err != nil {
				log.Printf("Error closing retry writer: %v", err)
			}
			if err := dltWriter.Close(); err != nil {
				log.Printf("Error closing DLT writer: %v", err)
			}
		},
	})
}
