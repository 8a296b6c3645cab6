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

	https_server "LiveDock/api/http"
	"LiveDock/internal/config"
	"LiveDock/internal/initial"
	"LiveDock/internal/modules/reception/interface/scheduler"
	"LiveDock/pkg/redis"
	"LiveDock/pkg/zlog"
)

func main() {
	// 1. 加载配置
	conf := config.GetConfig()
	zlog.Init(zlog.Options{
		LogPath:    conf.LogPath,
		Level:      conf.Level,
		MaxSizeMB:  conf.MaxSizeMB,
		MaxBackups: conf.MaxBackups,
		MaxAgeDays: conf.MaxAgeDays,
	})
	defer zlog.Sync()

	// 2. 初始化基础设施
	db, err := initial.InitGorm(conf)
	if err != nil {
		zlog.Fatal("数据库初始化失败: " + err.Error())
	}
	defer initial.CloseGorm(db)

	var locker scheduler.Locker
	if initial.InitRedis(conf) {
		locker = redis.Locker{}
	}
	publisher := initial.InitKafka(conf)

	server := https_server.NewServer(https_server.Deps{
		Config:    conf,
		DB:        db,
		Publisher: publisher,
		Locker:    locker,
	})
	if err := server.Sweeper.Start(); err != nil {
		zlog.Fatal("定时任务启动失败: " + err.Error())
	}

	// 3. 启动 HTTP 服务
	addr := fmt.Sprintf("%s:%d", conf.MainConfig.Host, conf.MainConfig.Port)
	srv := &http.Server{Addr: addr, Handler: server.GE}
	go func() {
		zlog.Info(fmt.Sprintf("服务器正在启动，监听地址: %s", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("服务器启动失败: " + err.Error())
		}
	}()

	// 4. 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// 等待退出信号
	<-quit

	zlog.Info("正在关闭服务器...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zlog.Error("HTTP 服务关闭失败: " + err.Error())
	}
	server.Sweeper.Stop(ctx)
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			zlog.Error("Kafka 关闭失败: " + err.Error())
		}
	}
	if err := redis.Close(); err != nil {
		zlog.Error("Redis 关闭失败: " + err.Error())
	}

	zlog.Info("服务器已关闭")
}
