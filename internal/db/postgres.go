package db

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"appdist/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	DB   *gorm.DB
	once sync.Once
)

// InitDB는 환경 변수를 사용하여 데이터베이스 연결을 초기화합니다.
// 싱글톤 패턴을 사용하여 연결 풀이 하나만 생성되도록 보장합니다.
func InitDB() {
	once.Do(func() {
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=Asia/Seoul",
			os.Getenv("DB_HOST"),
			os.Getenv("DB_USER"),
			os.Getenv("DB_PASSWORD"),
			os.Getenv("DB_NAME"),
			os.Getenv("DB_PORT"),
		)

		var err error
		// TranslateError lets callers match gorm.ErrDuplicatedKey across
		// drivers; the version assigner's retry loop depends on it.
		DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Warn),
			TranslateError: true,
		})
		if err != nil {
			log.Fatalf("Failed to connect to database (DB 연결 실패): %v", err)
		}

		sqlDB, err := DB.DB()
		if err != nil {
			log.Fatalf("Failed to get generic database object: %v", err)
		}

		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)

		log.Println("Successfully connected to PostgreSQL database (PostgreSQL 연결 성공)")

		if err := Migrate(DB); err != nil {
			log.Fatalf("Failed to migrate database schema: %v", err)
		}
		log.Println("Database migration completed (마이그레이션 완료)")
	})
}

// Migrate는 정의된 모델(struct)을 기반으로 테이블을 생성하거나 스키마를 업데이트합니다.
// Shared with the sqlite-backed test setup.
func Migrate(database *gorm.DB) error {
	return database.AutoMigrate(
		&models.User{},
		&models.App{},
		&models.Scheme{},
		&models.Channel{},
		&models.Release{},
		&models.Device{},
		&models.Webhook{},
	)
}

// GetDB는 싱글톤 데이터베이스 인스턴스를 반환합니다.
func GetDB() *gorm.DB {
	if DB == nil {
		InitDB()
	}
	return DB
}
