package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/luoxins/pixgate/internal/middleware"
)

type RouterDeps struct {
	Auth            *AuthHandler
	Images          *ImageHandler
	JWTSecret       []byte
	RateLimitWindow time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	// code issuance and credential endpoints are the brute-force surface,
	// so they sit behind the fixed-window limiter
	limited := api.Group("")
	limited.Use(middleware.RateLimit(deps.RateLimitWindow))
	limited.POST("/auth/register/code", deps.Auth.SendRegisterCode)
	limited.POST("/auth/register", deps.Auth.Register)
	limited.POST("/auth/login", deps.Auth.Login)
	limited.POST("/auth/password/forgot", deps.Auth.ForgotPassword)
	limited.POST("/auth/password/reset", deps.Auth.ResetPassword)
	limited.POST("/auth/admin/login", deps.Auth.AdminLogin)

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	authGroup.POST("/images/upload", deps.Images.Upload)

	api.GET("/images/:key", deps.Images.Get)
}
