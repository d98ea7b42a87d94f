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

	"github.com/kaganay/AygazSmartEnergy/internal/alerting"
	"github.com/kaganay/AygazSmartEnergy/internal/bus"
	"github.com/kaganay/AygazSmartEnergy/internal/cache"
	"github.com/kaganay/AygazSmartEnergy/internal/config"
	"github.com/kaganay/AygazSmartEnergy/internal/detector"
	"github.com/kaganay/AygazSmartEnergy/internal/httpapi"
	"github.com/kaganay/AygazSmartEnergy/internal/ingest"
	"github.com/kaganay/AygazSmartEnergy/internal/mqttbridge"
	"github.com/kaganay/AygazSmartEnergy/internal/platform/database"
	"github.com/kaganay/AygazSmartEnergy/internal/platform/logger"
	"github.com/kaganay/AygazSmartEnergy/internal/platform/mqtt"
	platformredis "github.com/kaganay/AygazSmartEnergy/internal/platform/redis"
	"github.com/kaganay/AygazSmartEnergy/internal/realtime"
	"github.com/kaganay/AygazSmartEnergy/internal/repository"
	"github.com/kaganay/AygazSmartEnergy/internal/service"

	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "energy-monitor")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	// 3. 数据库
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	// 4. Redis（可选，连不上只丢最新读数缓存）
	var latestCache *cache.LatestCache
	redisClient, err := platformredis.NewClient(&cfg.Redis)
	if err != nil {
		log.Warn("Redis unavailable, latest-data cache disabled", zap.Error(err))
	} else {
		defer redisClient.Close()
		latestCache = cache.NewLatestCache(redisClient, cfg.Redis.LatestTTL, log)
	}

	// 5. 仓库
	readingsRepo := repository.NewPostgresReadingsRepository(db, log)
	consumptionRepo := repository.NewPostgresConsumptionRepository(db, log)
	alertsRepo := repository.NewPostgresAlertsRepository(db, log)
	devicesRepo := repository.NewPostgresDevicesRepository(db, log)
	notificationsRepo := repository.NewPostgresNotificationsRepository(db, log)

	// 6. 实时推送与消息总线
	hub := realtime.NewHub(log)
	go hub.Run()

	publisher := bus.NewAMQPPublisher(&cfg.AMQP, log)
	defer publisher.Close()

	// 7. 检测与报警
	var scorer detector.Scorer
	if cfg.Detector.ScorerURL != "" {
		scorer = detector.NewRemoteScorer(&cfg.Detector, log)
	}
	det := detector.NewDetector(scorer, &cfg.Detector, log)

	suppressor := alerting.NewSuppressor(alertsRepo, log)
	escalator := alerting.NewLogEscalator(log)
	factory := alerting.NewFactory(alertsRepo, notificationsRepo, hub, publisher, escalator, cfg.Notify, log)
	pipeline := alerting.NewPipeline(suppressor, factory, log)

	// 8. 接入编排
	fan := ingest.NewFanService(cfg.Fan, log)

	var latestStore ingest.LatestStore
	var latestGetter httpapi.LatestGetter
	if latestCache != nil {
		latestStore = latestCache
		latestGetter = latestCache
	}

	ingestSvc := ingest.NewService(
		cfg.Detector, cfg.Alert,
		readingsRepo, consumptionRepo, devicesRepo,
		latestStore, hub, publisher,
		det, pipeline, fan,
		log,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 9. 定时巡检
	if cfg.Alert.SweepEnabled {
		sweeper := alerting.NewSweeper(cfg.Alert, devicesRepo, readingsRepo, suppressor, factory, log)
		go func() {
			if err := sweeper.Start(ctx); err != nil {
				log.Error("Alert sweeper exited", zap.Error(err))
			}
		}()
	}

	// 10. MQTT 桥接（可选）
	if cfg.MQTT.Enabled {
		mqttClient, err := mqtt.NewClient(&cfg.MQTT, log)
		if err != nil {
			log.Warn("MQTT unavailable, telemetry bridge disabled", zap.Error(err))
		} else {
			bridge := mqttbridge.NewBridge(mqttClient, cfg.MQTT, ingestSvc, log)
			if err := bridge.Start(); err != nil {
				log.Warn("Failed to start telemetry bridge", zap.Error(err))
			} else {
				defer bridge.Stop()
			}
		}
	}

	// 11. HTTP 路由
	router := httpapi.NewRouter(log)
	router.RegisterSensorRoutes(httpapi.NewSensorHandler(ingestSvc, latestGetter, log))
	router.RegisterAlertRoutes(httpapi.NewAlertsHandler(alertsRepo, factory, log))
	router.RegisterResultRoutes(httpapi.NewResultsHandler(pipeline, devicesRepo, cfg.Alert, log))
	router.RegisterFanRoutes(httpapi.NewFanHandler(fan, log))
	router.RegisterExportRoutes(httpapi.NewExportHandler(consumptionRepo, log))
	router.RegisterRealtime(hub)
	router.RegisterHealth()

	server := service.NewServer(cfg.Server.Addr, router, log)

	serverErrChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- err
		}
	}()

	// 12. 等待信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-serverErrChan:
		log.Fatal("HTTP server error", zap.Error(err))
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop HTTP server cleanly", zap.Error(err))
	}

	// 等后台检测收尾再退出
	ingestSvc.Wait()

	log.Info("Energy monitor stopped")
}
