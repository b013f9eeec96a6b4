package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"alertx/internal/app/config"
	"alertx/internal/app/domains/entity/etprimitive"
	"alertx/internal/app/domains/entity/etprofile"
	"alertx/internal/app/domains/entity/etunit"
	"alertx/internal/app/domains/modules/mddispatch"
	"alertx/internal/app/domains/modules/mdgeo"
	"alertx/internal/app/domains/modules/mdlifecycle"
	"alertx/internal/app/domains/modules/mdnotify"
	"alertx/internal/app/domains/modules/mdprofile"
	"alertx/internal/app/domains/modules/mdtracking"
	"alertx/internal/app/domains/modules/mdtriage"
	"alertx/internal/app/domains/repo/rpcase"
	"alertx/internal/app/domains/repo/rpprofile"
	"alertx/internal/app/domains/repo/rpunit"
	"alertx/internal/app/domains/services/svemergency"
	"alertx/internal/app/domains/services/svtracking"
	"alertx/internal/app/domains/services/svtriage"
	"alertx/internal/app/infra/mq/lmstfy"
	"alertx/internal/app/infra/persistence/redis"
	"alertx/internal/app/pkg/logger"
	"alertx/internal/app/server/handlers/emergency"
	"alertx/internal/app/server/handlers/tracking"
	"alertx/internal/app/server/handlers/triage"
	"alertx/internal/app/server/routers"
	"alertx/internal/feed/domains"
	"alertx/internal/feed/worker"
)

// App 组装完成的应用
type App struct {
	Engine  *gin.Engine
	Workers *worker.Manager // lmstfy 未启用或未配置 worker 时为 nil
}

type closers []func()

func (c *closers) add(fn func()) { *c = append(*c, fn) }

// run 逆序释放
func (c closers) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

// InitializeApp 按配置组装全部依赖，返回的 cleanup 负责释放连接
func InitializeApp(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, func(), error) {
	var cleanup closers
	fail := func(err error) (*App, func(), error) {
		cleanup.run()
		return nil, nil, err
	}

	// 1. 存储
	caseRepo, profileRepo, err := openStorage(cfg.Storage, &cleanup)
	if err != nil {
		return fail(err)
	}
	profiles := mdprofile.NewProfileModule(profileRepo)
	for _, p := range cfg.Profiles {
		profile, err := toProfile(p)
		if err != nil {
			return fail(err)
		}
		if err := profiles.Save(ctx, profile); err != nil {
			return fail(fmt.Errorf("seed profile %s: %w", p.RequesterID, err))
		}
	}

	// 2. Redis（车辆池或推送需要时）
	var pubsub *redis.PubSubClient
	if cfg.NeedsRedis() {
		pubsub, err = redis.NewPubSubClient(ctx, redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			return fail(fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err))
		}
		cleanup.add(func() { _ = pubsub.Close() })
		log.Infof(ctx, "[App] redis connected: %s", cfg.Redis.Addr)
	}

	// 3. 车辆池
	units, err := toUnits(cfg.Pool.Units)
	if err != nil {
		return fail(err)
	}
	var pool rpunit.UnitPool
	switch cfg.Pool.Driver {
	case "redis":
		redisPool := rpunit.NewRedisUnitPool(pubsub.Client(), cfg.Pool.KeyPrefix, cfg.Pool.SearchRadiusKm)
		for _, u := range units {
			if err := redisPool.Register(ctx, u); err != nil {
				return fail(fmt.Errorf("register unit %s: %w", u.ID, err))
			}
		}
		pool = redisPool
	default:
		pool = rpunit.NewStaticUnitPool(units)
	}

	// 4. 推送
	var feed mdtracking.Feed
	switch cfg.Tracking.Feed {
	case "redis":
		feed = mdtracking.NewRedisFeed(pubsub, log)
	default:
		feed = mdtracking.NewLocalFeed()
	}

	// 5. 分诊
	triageService := NewClassifier(cfg, log)

	// 6. 派车
	estimator, err := NewEstimator(cfg)
	if err != nil {
		return fail(err)
	}
	fallback, err := mddispatch.NewSeededFallback(mddispatch.FallbackConfig{
		Enabled:    cfg.Dispatch.Fallback.Enabled,
		Seed:       cfg.Dispatch.Fallback.Seed,
		MinMinutes: cfg.Dispatch.Fallback.MinMinutes,
		MaxMinutes: cfg.Dispatch.Fallback.MaxMinutes,
	})
	if err != nil {
		return fail(err)
	}
	facilities := make([]etunit.Facility, 0, len(cfg.Facilities))
	for _, f := range cfg.Facilities {
		facilities = append(facilities, etunit.Facility{
			ID:       f.ID,
			Name:     f.Name,
			Location: etprimitive.Coordinates{Latitude: f.Latitude, Longitude: f.Longitude},
		})
	}
	dispatcher := mddispatch.NewDispatcher(pool, estimator, fallback,
		mddispatch.NewFacilityDirectory(facilities), cfg.Dispatch.PoolTimeout, log)

	// 7. 生命周期，重启后恢复活跃 Case
	manager := mdlifecycle.NewManager(caseRepo, estimator, feed, pool, log)
	if err := manager.Load(ctx); err != nil {
		return fail(err)
	}

	// 8. 队列：发布联系人告警，消费车组上报
	var jobs mdnotify.JobPublisher
	var lmstfyClient *lmstfy.Client
	if cfg.Lmstfy.Enabled {
		lmstfyClient = lmstfy.NewClient(cfg.Lmstfy.Host, cfg.Lmstfy.Port, cfg.Lmstfy.Namespace, cfg.Lmstfy.Token)
		jobs = lmstfyClient
	}
	notify := mdnotify.NewNotifyModule(jobs, cfg.Lmstfy.NotifyQueue)

	// 9. 服务与路由
	emergencyService := svemergency.NewEmergencyService(triageService, dispatcher, manager, profiles, notify, log)
	trackingService := svtracking.NewTrackingService(manager, feed, pool, cfg.Tracking.PollWaitMax, log)

	engineHTTP := routers.SetupRoutes(routers.Handlers{
		Triage:    triage.NewTriageHandler(triageService),
		Emergency: emergency.NewEmergencyHandler(emergencyService),
		Tracking:  tracking.NewTrackingHandler(trackingService, log),
	}, log, cfg.Server.CORSOrigins)

	app := &App{Engine: engineHTTP}

	if lmstfyClient != nil && len(cfg.Workers) > 0 {
		mgr, err := worker.NewManager(toSpecs(cfg.Workers), lmstfyClient, domains.GetProcess(log, trackingService), log)
		if err != nil {
			return fail(err)
		}
		app.Workers = mgr
	}

	return app, cleanup.run, nil
}

// NewClassifier 只组装分诊链路，供命令行离线使用
func NewClassifier(cfg *config.Config, log logger.Logger) *svtriage.TriageService {
	engine := mdtriage.NewEngine()
	var classifier mdtriage.Classifier = mdtriage.NewLocalClassifier(engine)
	if cfg.Triage.Backend == "remote" {
		classifier = mdtriage.NewRemoteClassifier(mdtriage.RemoteConfig{
			Endpoint: cfg.Triage.Endpoint,
			APIKey:   cfg.Triage.APIKey,
			Timeout:  cfg.Triage.Timeout,
		}, engine, &http.Client{Timeout: cfg.Triage.Timeout})
	}
	return svtriage.NewTriageService(classifier, engine, cfg.Triage.Timeout, log)
}

// NewEstimator 按配置创建 ETA 估算器
func NewEstimator(cfg *config.Config) (*mdgeo.Estimator, error) {
	return mdgeo.NewEstimator(mdgeo.Config{
		AvgSpeedKmh: cfg.Estimator.AvgSpeedKmh,
		MinMinutes:  cfg.Estimator.MinMinutes,
		MaxMinutes:  cfg.Estimator.MaxMinutes,
	})
}

func openStorage(cfg config.StorageConfig, cleanup *closers) (rpcase.CaseRepository, rpprofile.ProfileRepository, error) {
	var db *gorm.DB
	switch cfg.Driver {
	case "sqlite":
		var err error
		if db, err = rpcase.OpenSQLite(cfg.SQLitePath); err != nil {
			return nil, nil, err
		}

	case "mysql", "postgres":
		dialector := mysql.Open(cfg.DSN)
		if cfg.Driver == "postgres" {
			dialector = postgres.Open(cfg.DSN)
		}
		var err error
		if db, err = gorm.Open(dialector, &gorm.Config{}); err != nil {
			return nil, nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
		}
		if err := rpcase.AutoMigrate(db); err != nil {
			return nil, nil, fmt.Errorf("auto migrate: %w", err)
		}

	default:
		return rpcase.NewMemoryCaseRepository(), rpprofile.NewMemoryProfileRepository(), nil
	}

	if sqlDB, err := db.DB(); err == nil {
		cleanup.add(func() { _ = sqlDB.Close() })
	}
	return rpcase.NewCaseRepository(db), rpprofile.NewProfileRepository(db), nil
}

func toUnits(cfgs []config.UnitConfig) ([]etunit.Unit, error) {
	units := make([]etunit.Unit, 0, len(cfgs))
	for _, u := range cfgs {
		class, err := etunit.ParseUnitClass(u.Class)
		if err != nil {
			return nil, fmt.Errorf("unit %s: %w", u.ID, err)
		}
		loc := etprimitive.Coordinates{Latitude: u.Latitude, Longitude: u.Longitude}
		if err := loc.Validate(); err != nil {
			return nil, fmt.Errorf("unit %s: %w", u.ID, err)
		}
		units = append(units, etunit.Unit{ID: u.ID, Class: class, Location: loc, Available: true})
	}
	return units, nil
}

func toProfile(p config.ProfileConfig) (*etprofile.Profile, error) {
	contacts := make([]etprofile.Contact, 0, len(p.Contacts))
	for _, c := range p.Contacts {
		contacts = append(contacts, etprofile.Contact{Name: c.Name, Phone: c.Phone, Relation: c.Relation})
	}
	return etprofile.NewProfile(p.RequesterID, p.Name, p.Age, p.KnownConditions, contacts)
}

func toSpecs(cfgs []config.WorkerConfig) []worker.Spec {
	specs := make([]worker.Spec, 0, len(cfgs))
	for _, w := range cfgs {
		specs = append(specs, worker.Spec{
			Name:              w.Name,
			QueueName:         w.QueueName,
			SubscriberThreads: w.Subscriber.Threads,
			Rate:              w.Subscriber.Rate,
			PollTimeout:       w.Subscriber.Timeout,
			TTR:               w.Subscriber.TTR,
			ErrorBackoff:      w.Subscriber.ErrorBackoff,
			ProcessorThreads:  w.Processor.Threads,
			BufferSize:        w.Processor.BufferSize,
			ProcessTimeout:    w.Processor.Timeout,
		})
	}
	return specs
}
