package controllers

import (
	"net/http"
	"strings"
	"sync"

	"appdist/internal/middleware"
	userservice "appdist/internal/services/user_service"

	"github.com/gin-gonic/gin"
)

type UserController struct {
	userService *userservice.UserService
}

var (
	userController *UserController
	userOnce       sync.Once
)

// GetUserController returns the singleton instance of UserController
func GetUserController() *UserController {
	userOnce.Do(func() {
		userController = &UserController{
			userService: userservice.GetUserService(),
		}
	})
	return userController
}

// RegisterRoutes registers the user-related routes
func (c *UserController) RegisterRoutes(group *gin.RouterGroup) {
	// /api/users
	userGroup := group.Group("/users")
	{
		// 회원가입 (Create User)
		userGroup.POST("/create", c.CreateUser)

		// 내 정보 조회 (Get My Info)
		userGroup.GET("/me", middleware.AuthGuard(), c.GetMe)
	}
}

type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
}

// CreateUser handles user creation
func (c *UserController) CreateUser(ctx *gin.Context) {
	var req CreateUserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "message": "잘못된 요청 형식입니다."})
		return
	}

	params := userservice.CreateUserParams{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
	}

	user, err := c.userService.CreateUser(params)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate") {
			ctx.JSON(http.StatusConflict, gin.H{"error": "User already exists", "message": "이미 존재하는 사용자 이름입니다."})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "message": "유저 생성 실패"})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"user":    user,
	})
}

// GetMe handles fetching the current user's info
func (c *UserController) GetMe(ctx *gin.Context) {
	user_id, _ := ctx.Get("user_id")

	user, err := c.userService.FetchUserById(user_id.(string), true)

	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "User not found", "message": "유저를 찾을 수 없습니다."})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": user})
}
