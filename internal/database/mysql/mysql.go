package mysql

import (
	"fmt"
	"log"
	"sync"
	"time"

	"HealthAgent/internal/config"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var (
	gormDB  *gorm.DB
	once    sync.Once
	initErr error
)

// GetDB 返回进程唯一的 GORM 实例，承载用户健康记录与档案表。
// 连接在首次调用时建立，之后的调用复用同一个连接池。
func GetDB(cfg *config.MySQLConfig) (*gorm.DB, error) {
	once.Do(func() {
		dsn := fmt.Sprintf("%s:%s@tcp(%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			cfg.Username,
			cfg.Password,
			cfg.Address,
			cfg.Database,
		)

		db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
		if err != nil {
			initErr = fmt.Errorf("无法连接到 MySQL: %w", err)
			return
		}

		// 连接池参数走底层 *sql.DB。
		sqlDB, err := db.DB()
		if err != nil {
			initErr = fmt.Errorf("无法获取底层 SQL DB 实例: %w", err)
			return
		}
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

		log.Println("✅ 成功连接到 MySQL!")
		gormDB = db
	})

	return gormDB, initErr
}

// Close 关闭单例连接池，服务退出时调用。
func Close() error {
	if gormDB == nil {
		return nil
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return fmt.Errorf("获取底层 SQL DB 实例失败: %w", err)
	}
	return sqlDB.Close()
}
