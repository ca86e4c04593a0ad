package middleware

import (
	"os"
	"strings"

	gin "github.com/gin-gonic/gin"

	"net/http"

	fmt "fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// AuthGuard rejects requests without a valid bearer token and stores the
// authenticated user id into the gin context.
func AuthGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := userIDFromRequest(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort() // 중요: 이후의 핸들러 함수 호출을 중단함 (Guard의 핵심)
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}

// AuthOptional stores the user id when a valid token is present but lets
// anonymous requests pass. Uploads addressed by channel key need no
// identity; create-path uploads check for one downstream.
func AuthOptional() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID, err := userIDFromRequest(c); err == nil {
			c.Set("user_id", userID)
		}
		c.Next()
	}
}

func userIDFromRequest(c *gin.Context) (string, error) {
	// 1. Authorization 헤더 또는 쿠키에서 토큰 가져오기
	tokenString := c.GetHeader("Authorization")
	if tokenString == "" {
		tokenString, _ = c.Cookie("authorization")
	}
	if tokenString == "" {
		return "", fmt.Errorf("로그인 토큰이 없습니다")
	}

	// 2. "Bearer " 접두사 제거 및 토큰 검증 로직
	if !strings.HasPrefix(tokenString, "Bearer ") {
		return "", fmt.Errorf("유효하지 않은 토큰 형식입니다")
	}
	tokenString = tokenString[7:]

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})

	if err != nil {
		return "", fmt.Errorf("유효하지 않은 토큰입니다")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("토큰 클레임을 읽을 수 없습니다")
	}

	exp, ok := claims["exp"]
	if !ok {
		return "", fmt.Errorf("토큰에 만료 시간이 누락되었습니다")
	}
	if time.Now().Unix() > int64(exp.(float64)) {
		return "", fmt.Errorf("토큰이 만료되었습니다")
	}

	userIDRaw, ok := claims["user_id"]
	if !ok {
		return "", fmt.Errorf("토큰에 사용자 정보가 누락되었습니다")
	}

	switch v := userIDRaw.(type) {
	case string:
		return v, nil
	case float64:
		return fmt.Sprintf("%.0f", v), nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}
