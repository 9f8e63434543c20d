// cmd/order-service/main.go
package main

import (
	"context"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"stockflow/internal/pkg/bootstrap"
	"stockflow/internal/pkg/httpclient"
	"stockflow/internal/pkg/logger"
	"stockflow/internal/pkg/mq"
	"stockflow/internal/service/order/application"
	"stockflow/internal/service/order/infrastructure"
	"stockflow/internal/service/order/infrastructure/adapter"
	"stockflow/internal/service/order/interfaces"
)

const serviceName = "order-service"

var tracer = otel.Tracer(serviceName)

// main is the composition root: it builds every dependency and wires
// them together, then hands the lifecycle to bootstrap.
func main() {
	bootstrap.Init()
	logger.Init(serviceName)
	cfg := bootstrap.GetCurrentConfig()

	db, err := gorm.Open(mysql.Open(cfg.Infra.Mysql.OrdersDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("FATAL: failed to connect to orders database: %v", err)
	}

	orderRepo := infrastructure.NewGormOrderRepository(db)
	if err := orderRepo.AutoMigrate(); err != nil {
		log.Fatalf("FATAL: failed to migrate orders schema: %v", err)
	}

	debitWriter := mq.NewKafkaWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.DebitTopic)
	publisher := infrastructure.NewKafkaDebitPublisher(debitWriter, cfg.Order.PublishTimeout.Std())

	products := adapter.NewProductHTTPAdapter(
		httpclient.NewClient(tracer),
		cfg.Order.ProductServiceURL,
	)

	orderService := application.NewOrderApplicationService(
		orderRepo, products, publisher, cfg.Order.LookupTimeout.Std(), tracer,
	)

	sweeper := application.NewResendSweeper(
		orderRepo, publisher,
		cfg.Order.Resend.Interval.Std(), cfg.Order.Resend.Grace.Std(), cfg.Order.Resend.Batch,
		tracer,
	)
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go sweeper.Run(sweepCtx)

	handler := interfaces.NewOrderHandler(orderService, interfaces.AllowAll{})

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        8081,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			appCtx.Mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
			appCtx.Mux.Handle("/metrics", promhttp.Handler())
			handler.RegisterRoutes(appCtx.Mux)
		},
		Cleanup: func(ctx context.Context) {
			stopSweep()
			if err := debitWriter.Close(); err != nil {
				log.Printf("Error closing kafka writer: %v", err)
			}
		},
	})
}
