package main

import (
	"context"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"shopcart/internal/pkg/bootstrap"
	"shopcart/internal/pkg/httpclient"
	"shopcart/internal/pkg/logger"
	"shopcart/internal/service/order/application"
	"shopcart/internal/service/order/domain/port"
	"shopcart/internal/service/order/infrastructure"
	"shopcart/internal/service/order/infrastructure/adapter"
	"shopcart/internal/service/order/interfaces"
	"shopcart/internal/zookeeper"
)

const serviceName = "order-service"

func main() {
	logger.Init(serviceName)
	log := logger.Logger

	cfg, err := bootstrap.LoadConfig("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("loading config")
	}
	cfg.Service.Name = serviceName

	db, err := gorm.Open(mysql.Open(cfg.Infra.MysqlDSN), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("connecting to mysql")
	}
	repo := infrastructure.NewGormOrderRepository(db)
	if os.Getenv("AUTO_MIGRATE") == "true" {
		if err := repo.AutoMigrate(); err != nil {
			log.Fatal().Err(err).Msg("migrating schema")
		}
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Infra.RedisAddr})
	cache := adapter.NewRedisTrackingCache(rdb, cfg.Gateways.TrackingTTL.Std())

	publisher := infrastructure.NewKafkaEventPublisher(cfg.Infra.KafkaBrokers)

	var locker port.OrderLocker = infrastructure.NewLocalOrderLocker()
	var zkConn *zookeeper.Conn
	if len(cfg.Infra.ZkServers) > 0 {
		zkConn, err = zookeeper.Connect(cfg.Infra.ZkServers, 10*time.Second)
		if err != nil {
			log.Fatal().Err(err).Msg("connecting to zookeeper")
		}
		locker = zookeeper.NewOrderLocker(zkConn)
	}

	bootstrap.StartService(bootstrap.AppInfo{
		Config: cfg,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			var resolver httpclient.Resolver = httpclient.StaticResolver{
				adapter.InventoryService: cfg.Gateways.StockURL,
				adapter.ShippingService:  cfg.Gateways.LogisticsURL,
			}
			if appCtx.Nacos != nil {
				resolver = appCtx.Nacos
			}

			tracer := otel.Tracer(serviceName)
			client := httpclient.New(tracer, resolver, cfg.Gateways.CallTimeout.Std())

			service := application.NewOrderService(
				repo,
				adapter.NewInventoryHTTPAdapter(client),
				adapter.NewShippingHTTPAdapter(client),
				locker,
				publisher,
				cache,
				tracer,
			)
			interfaces.NewOrderHandler(service).RegisterRoutes(appCtx.Mux)
		},
		Cleanup: func(ctx context.Context) {
			if err := publisher.Close(); err != nil {
				log.Warn().Err(err).Msg("closing kafka publisher")
			}
			if err := rdb.Close(); err != nil {
				log.Warn().Err(err).Msg("closing redis client")
			}
			if zkConn != nil {
				zkConn.Close()
			}
		},
	})
}
