package http

import (
	"net/http"
	"strings"
	"time"

	"LiveDock/internal/config"
	"LiveDock/internal/middleware/appkey"
	jwtMiddleware "LiveDock/internal/middleware/jwt"
	reqLogger "LiveDock/internal/middleware/logger"
	pushService "LiveDock/internal/modules/push/application/service"
	pushPersistence "LiveDock/internal/modules/push/infrastructure/persistence"
	"LiveDock/internal/modules/push/infrastructure/webpush"
	pushHandler "LiveDock/internal/modules/push/interface/http"
	receptionService "LiveDock/internal/modules/reception/application/service"
	"LiveDock/internal/modules/reception/infrastructure/mq"
	receptionPersistence "LiveDock/internal/modules/reception/infrastructure/persistence"
	receptionHandler "LiveDock/internal/modules/reception/interface/http"
	"LiveDock/internal/modules/reception/interface/scheduler"
	sessionService "LiveDock/internal/modules/session/application/service"
	sessionHandler "LiveDock/internal/modules/session/interface/http"
	"LiveDock/internal/modules/user/application/service"
	"LiveDock/internal/modules/user/infrastructure/persistence"
	userHandler "LiveDock/internal/modules/user/interface/http"
	"LiveDock/pkg/keylock"
	"LiveDock/pkg/ssl"
	"LiveDock/pkg/ws"
	"LiveDock/pkg/zlog"

	cors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Server 路由与后台任务
type Server struct {
	GE      *gin.Engine
	Sweeper *scheduler.Sweeper
}

// Deps publisher 与 locker 可以为空
type Deps struct {
	Config    *config.Config
	DB        *gorm.DB
	Publisher mq.Publisher
	Locker    scheduler.Locker
}

func NewServer(deps Deps) *Server {
	conf := deps.Config
	db := deps.DB

	if conf.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	ge := gin.New()
	ge.Use(reqLogger.Recovery(), reqLogger.RequestLogger())

	corsConfig := cors.DefaultConfig()
	if len(conf.WhiteListDomains) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = conf.WhiteListDomains
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", appkey.HeaderName}
	ge.Use(cors.New(corsConfig))
	if conf.ForceSSL {
		ge.Use(ssl.TlsHandler(conf.MainConfig.Host, conf.MainConfig.Port, !conf.IsProduction()))
	}

	wsHub := ws.NewHub()

	userRepo := persistence.NewUserRepository(db)
	subscriptionRepo := pushPersistence.NewSubscriptionRepository(db)
	processRepo := receptionPersistence.NewReceptionProcessRepository(db)
	eventRepo := receptionPersistence.NewProcessEventRepository(db)
	metricRepo := receptionPersistence.NewNotificationMetricRepository(db)
	alertRepo := receptionPersistence.NewPriorityAlertRepository(db)
	uow := receptionPersistence.NewReceptionUnitOfWork(db)

	provider, err := webpush.NewProvider(webpush.Config{
		VapidPublicKey:  conf.VapidPublicKey,
		VapidPrivateKey: conf.VapidPrivateKey,
		Subscriber:      conf.Subscriber,
		TTLSeconds:      conf.TTLSeconds,
	})
	if err != nil {
		zlog.Warn("web push disabled", zap.Error(err))
	}

	userSvc := service.NewUserInfoService(userRepo)
	realtimeSvc := sessionService.NewRealtimeService(wsHub, userRepo)
	subscriptionSvc := pushService.NewSubscriptionService(subscriptionRepo, conf.VapidPublicKey)
	dispatcher := pushService.NewNotificationDispatcher(userRepo, subscriptionRepo, provider, pushService.DispatcherConfig{
		PublicBackendURL: conf.PublicBackendURL,
		AppKey:           conf.AppKey,
		Timeout:          time.Duration(conf.TimeoutSeconds) * time.Second,
	})
	alertSvc := receptionService.NewAlertService(uow, alertRepo, realtimeSvc, conf.ShouldSupersedeAlerts())
	receptionSvc := receptionService.NewReceptionService(receptionService.ReceptionDeps{
		UnitOfWork: uow,
		Processes:  processRepo,
		Events:     eventRepo,
		Metrics:    metricRepo,
		Users:      userRepo,
		Alerts:     alertSvc,
		Dispatcher: dispatcher,
		Realtime:   realtimeSvc,
		Stream:     mq.NewProcessEventStream(deps.Publisher, conf.ProcessEventsTopic),
		Locks:      keylock.New(),
	})
	escalationSvc := receptionService.NewEscalationService(processRepo, eventRepo, userRepo, dispatcher,
		receptionService.ThresholdFromMinutes(conf.AlertThreshold()))

	userH := userHandler.NewUserInfoHandler(userSvc)
	pushH := pushHandler.NewPushHandler(subscriptionSvc)
	receptionH := receptionHandler.NewReceptionHandler(receptionSvc)
	sessionH := sessionHandler.NewSessionHandler(wsHub, realtimeSvc, userSvc, conf.JwtConfig.Key, originChecker(conf.WhiteListDomains))

	ge.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	ge.GET("/sessions", sessionH.Connect)
	ge.GET("/push-notifications/public-key", pushH.PublicKey)
	// Service Worker 回调不带 cookie，只校验 app key
	ge.POST("/reception-process/notify-metric", appkey.AppKey(conf.AppKey), receptionH.NotifyMetric)

	authed := ge.Group("/")
	authed.Use(jwtMiddleware.Auth(conf.JwtConfig.Key, userSvc))
	authed.GET("/users/me", userH.Me)
	authed.POST("/push-notifications/subscribe", pushH.Subscribe)
	authed.POST("/push-notifications/unsubscribe", pushH.Unsubscribe)
	authed.POST("/reception-process", receptionH.Create)
	authed.POST("/reception-process/change-of-status", receptionH.ChangeStatus)
	authed.GET("/reception-process", receptionH.FindAll)
	authed.GET("/reception-process/priority-alerts", receptionH.FindPriorityAlerts)
	authed.GET("/reception-process/:id", receptionH.FindOne)

	return &Server{
		GE:      ge,
		Sweeper: scheduler.NewSweeper(escalationSvc, conf.SweepSpec, deps.Locker, time.Duration(conf.SweepLockSeconds)*time.Second),
	}
}

// originChecker 白名单为空时不限制来源
func originChecker(whiteList []string) func(r *http.Request) bool {
	if len(whiteList) == 0 {
		return nil
	}
	allowed := make(map[string]struct{}, len(whiteList))
	for _, d := range whiteList {
		allowed[strings.TrimRight(strings.TrimSpace(d), "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}
