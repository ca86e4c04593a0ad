package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config 구조체는 애플리케이션 설정을 저장합니다.
type Config struct {
	Port     string // 서버가 실행될 포트
	GinMode  string // Gin 모드 (debug/release)
	HostName string // 호스트 이름

	DB_Name     string // 데이터베이스 이름
	DB_User     string // 데이터베이스 사용자
	DB_Password string // 데이터베이스 비밀번호
	DB_Host     string // 데이터베이스 호스트
	DB_Port     string // 데이터베이스 포트

	JWTSecret      string // 토큰 서명 키
	UploadDir      string // 업로드 아티팩트 저장 경로
	ExtractorCmd   string // 외부 패키지 파서 실행 파일
	WebhookWorkers int    // 웹훅 전송 워커 수
}

// Load 함수는 환경 변수에서 설정을 읽어 Config 구조체를 반환합니다.
func Load() *Config {
	// .env 파일 로드 (로컬 개발 환경용)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (로컬 .env 파일 없음 - 환경 변수 사용)")
	}

	return &Config{
		Port:        getenv("PORT", "8080"),
		GinMode:     getenv("GIN_MODE", "release"),
		HostName:    getenv("HOST_NAME", "localhost"),
		DB_Name:     getenv("DB_NAME", "postgres"),
		DB_User:     getenv("DB_USER", "postgres"),
		DB_Password: getenv("DB_PASSWORD", "postgres"),
		DB_Host:     getenv("DB_HOST", "localhost"),
		DB_Port:     getenv("DB_PORT", "5432"),

		JWTSecret:      getenv("JWT_SECRET", "dev-secret-change"),
		UploadDir:      getenv("UPLOAD_DIR", "uploads"),
		ExtractorCmd:   getenv("EXTRACTOR_CMD", "appdist-extract"),
		WebhookWorkers: getenvInt("WEBHOOK_WORKERS", 4),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
		log.Printf("invalid %s=%q, using default %d", key, v, def)
	}
	return def
}
