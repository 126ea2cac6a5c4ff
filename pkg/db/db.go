package db

import (
	"fmt"
	"time"

	"chat-system/config"

	mysqldrv "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

var DB *gorm.DB

// BuildDSN 构建MySQL DSN连接字符串
func BuildDSN(cfg config.DatabaseConfig) string {
	dsn := mysqldrv.NewConfig()
	dsn.User = cfg.Username
	dsn.Passwd = cfg.Password
	dsn.Net = "tcp"
	dsn.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	dsn.DBName = cfg.Database
	dsn.ParseTime = true
	dsn.Loc = time.Local
	if cfg.Charset != "" {
		dsn.Params = map[string]string{"charset": cfg.Charset}
	}
	return dsn.FormatDSN()
}

// GormConfig 返回统一的GORM配置（单数表名、关闭默认事务）
func GormConfig(logSQL bool) *gorm.Config {
	logLevel := logger.Warn
	if logSQL {
		logLevel = logger.Info
	}
	return &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),

		// 禁用默认事务（提高性能）
		SkipDefaultTransaction: true,

		// 命名策略
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true, // 使用单数表名
		},
	}
}

// InitDB 初始化数据库连接
func InitDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := GormConfig(cfg.LogSQL)
	gormConfig.PrepareStmt = true

	// 连接数据库
	db, err := gorm.Open(mysql.Open(BuildDSN(cfg)), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}

	// 获取底层的sql.DB对象
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取数据库实例失败: %w", err)
	}

	// 配置连接池
	sqlDB.SetMaxIdleConns(cfg.MaxIdle)  // 最大空闲连接数
	sqlDB.SetMaxOpenConns(cfg.MaxOpen)  // 最大打开连接数
	sqlDB.SetConnMaxLifetime(time.Hour) // 连接最大生命周期

	// 测试连接
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}

	// 保存全局数据库实例
	DB = db

	return db, nil
}

// CloseDB 关闭数据库连接
func CloseDB() error {
	if DB != nil {
		sqlDB, err := DB.DB()
		if err != nil {
			return fmt.Errorf("获取数据库实例失败: %w", err)
		}
		return sqlDB.Close()
	}
	return nil
}

// HealthCheck 数据库健康检查
func HealthCheck() error {
	if DB == nil {
		return fmt.Errorf("数据库未初始化")
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("获取数据库实例失败: %w", err)
	}

	return sqlDB.Ping()
}

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate(models ...interface{}) error {
	if DB == nil {
		return fmt.Errorf("数据库未初始化")
	}

	return DB.AutoMigrate(models...)
}
