package routes

import (
	"library/api/handlers"
	"library/api/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func PublicApi(router *gin.Engine) *gin.RouterGroup {
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	publicEndpoints := router.Group("/api/v1/")
	{
		publicEndpoints.POST("auth/register", handlers.Register)
		publicEndpoints.POST("auth/login", handlers.Login)
		publicEndpoints.POST("auth/logout", handlers.Logout)

		// Каталог доступен без авторизации
		publicEndpoints.GET("books", handlers.ListBooks)
		publicEndpoints.GET("books/:id", handlers.GetBook)
	}

	authEndpoints := router.Group("/api/v1/", middleware.AuthMiddleware())
	{
		// Заявки читателя
		authEndpoints.POST("loans/request", handlers.CreateLoanRequest)
		authEndpoints.PATCH("loans/:id/cancel", handlers.CancelLoanRequest)
		authEndpoints.GET("loans/mine", handlers.GetMyLoanRequests)
	}

	adminEndpoints := router.Group("/api/v1/admin/", middleware.AuthMiddleware(), middleware.AdminMiddleware())
	{
		adminEndpoints.PATCH("loans/:id/decide", handlers.DecideLoanRequest)
		adminEndpoints.GET("loans/pending", handlers.GetPendingLoanRequests)
		adminEndpoints.POST("books", handlers.CreateBook)
		adminEndpoints.POST("books/:id/return", handlers.ReturnBook)
	}

	wsEndpoints := router.Group("/ws/", middleware.AuthMiddleware())
	{
		wsEndpoints.GET("loans", handlers.WSLoansHandler)
		wsEndpoints.GET("admin/loans", middleware.AdminMiddleware(), handlers.WSAdminLoansHandler)
	}

	return publicEndpoints
}
