package userservice

import (
	"errors"
	"fmt"
	"sync"

	"appdist/internal/db"
	"appdist/internal/models"
)

type UserService struct {
}

var (
	userService *UserService
	once        sync.Once
)

func GetUserService() *UserService {
	once.Do(func() {
		userService = &UserService{}
	})

	return userService
}

// AuthenticateUser 함수는 사용자 이름과 비밀번호를 받아 유저를 인증하고 반환합니다.
func (s *UserService) AuthenticateUser(username, password string) (*models.User, error) {
	database := db.GetDB()

	var user models.User
	if err := database.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}

	if !user.CheckPassword(password) {
		return nil, errors.New("비밀번호가 일치하지 않습니다")
	}

	return &user, nil
}

func (s *UserService) FetchUserById(userId string, concealPassword bool) (*models.User, error) {
	database := db.GetDB()

	var user models.User

	if err := database.Where("id = ?", userId).First(&user).Error; err != nil {
		return nil, err
	}

	if concealPassword {
		user.PasswordHash = ""
	}

	return &user, nil
}

type CreateUserParams struct {
	Username string
	Password string
	Email    string
}

func (s *UserService) CreateUser(params CreateUserParams) (*models.User, error) {
	database := db.GetDB()

	hashedPassword, err := models.HashPassword(params.Password)

	if err != nil {
		return nil, fmt.Errorf("비밀번호 해싱 실패: %v", err)
	}

	user := models.User{
		Username:     params.Username,
		PasswordHash: hashedPassword,
		Email:        params.Email,
	}

	if err := database.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("유저 생성 실패: %v", err)
	}

	user.PasswordHash = ""

	return &user, nil
}
