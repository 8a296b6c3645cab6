package initial

import (
	"fmt"
	"log"
	"os"
	"time"

	"LiveDock/internal/config"
	pushEntity "LiveDock/internal/modules/push/domain/entity"
	receptionEntity "LiveDock/internal/modules/reception/domain/entity"
	userEntity "LiveDock/internal/modules/user/domain/entity"
	"LiveDock/pkg/zlog"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitGorm 按配置的驱动建立连接并自动迁移
func InitGorm(conf *config.Config) (*gorm.DB, error) {
	dialector, err := dialectorOf(conf.DatabaseConfig)
	if err != nil {
		return nil, err
	}

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, err
	}

	// 自动迁移，如果没有建表，会自动创建对应的表
	err = db.AutoMigrate(
		&userEntity.User{},
		&pushEntity.Subscription{},
		&receptionEntity.ReceptionProcess{},
		&receptionEntity.ProcessEvent{},
		&receptionEntity.NotificationMetric{},
		&receptionEntity.PriorityAlert{},
	)
	if err != nil {
		return nil, err
	}
	zlog.Info(fmt.Sprintf("数据库连接成功: %s", conf.Driver))
	return db, nil
}

func dialectorOf(c config.DatabaseConfig) (gorm.Dialector, error) {
	switch c.Driver {
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC", c.User, c.Password, c.Host, c.Port, c.DatabaseName)
		return mysql.Open(dsn), nil
	case "postgres":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC", c.Host, c.User, c.Password, c.DatabaseName, c.Port)
		return postgres.Open(dsn), nil
	case "sqlite":
		// 本地开发使用，databaseName 为文件路径
		return sqlite.Open(c.DatabaseName), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", c.Driver)
}

// CloseGorm 关闭底层连接池
func CloseGorm(db *gorm.DB) {
	if db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		zlog.Warn("close database failed: " + err.Error())
	}
}
