package main

import (
	"context"
	"fmt"
	"log"

	"chat-system/config"
	dbPkg "chat-system/pkg/db"
	"chat-system/pkg/redis"
)

// 清空顺序：子表在前
var tables = []string{"activity_log", "user"}

func main() {
	cfg := config.LoadConfig()
	// 重置工具不需要SQL日志
	cfg.Database.LogSQL = false

	db, err := dbPkg.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	defer dbPkg.CloseDB()

	fmt.Println("Database connected successfully")
	fmt.Printf("Database: %s\n", cfg.Database.Database)

	fmt.Printf("\nWARNING: This operation will CLEAR ALL DATA in tables %v", tables)
	if cfg.Redis.Enabled {
		fmt.Print(" and all chat:* keys in Redis")
	}
	fmt.Print("!\nType 'YES' to confirm: ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "YES" {
		fmt.Println("Operation cancelled")
		return
	}

	db.Exec("SET FOREIGN_KEY_CHECKS=0")
	for _, table := range tables {
		fmt.Printf("Clearing table %s... ", table)
		if err := db.Exec(fmt.Sprintf("DELETE FROM `%s`", table)).Error; err != nil {
			fmt.Printf("Failed: %v\n", err)
			continue
		}
		if err := db.Exec(fmt.Sprintf("ALTER TABLE `%s` AUTO_INCREMENT = 1", table)).Error; err != nil {
			fmt.Printf("Cleared, reset id failed: %v\n", err)
			continue
		}
		fmt.Println("Success")
	}
	db.Exec("SET FOREIGN_KEY_CHECKS=1")

	if cfg.Redis.Enabled {
		clearRedis(cfg.Redis)
	}

	fmt.Println("\nReset completed!")
	fmt.Println("All table data cleared, table structure preserved")
}

// clearRedis 删除在线状态与离线消息
func clearRedis(cfg config.RedisConfig) {
	if err := redis.InitRedis(cfg); err != nil {
		fmt.Printf("Redis unavailable, skipped: %v\n", err)
		return
	}
	defer redis.Close()

	ctx := context.Background()
	client := redis.GetClient()
	var cursor uint64
	removed := 0
	for {
		keys, next, err := client.Scan(ctx, cursor, "chat:*", 200).Result()
		if err != nil {
			fmt.Printf("Redis scan failed: %v\n", err)
			return
		}
		if len(keys) > 0 {
			if err := redis.Del(keys...); err != nil {
				fmt.Printf("Redis delete failed: %v\n", err)
				return
			}
			removed += len(keys)
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	fmt.Printf("Redis keys removed: %d\n", removed)
}
