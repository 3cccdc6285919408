package main

import (
	"context"
	"flag"
	"fmt"
	"library/api/middleware"
	"library/api/routes"
	"library/config"
	"library/db"
	"library/services"
	"log"

	"github.com/gin-gonic/gin"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	err := config.LoadConfig(configPath)
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}
	log.Println("Starting server...", config.AppConfig)

	err = db.ConnectDB()
	if err != nil {
		panic("Failed to connect to the database: " + err.Error())
	}

	if err := services.InitRedis(); err != nil {
		log.Printf("Warning: Redis initialization failed: %v", err)
		// Работаем без кеша, каталог и счетчики ходят в БД напрямую
	}
	defer services.CloseRedis()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := services.InitRabbitMQ(); err != nil {
		panic("Failed to init RabbitMQ: " + err.Error())
	}
	defer services.CloseRabbitMQ()

	if err := services.StartLoanEventConsumer(ctx, "loan_events_push"); err != nil {
		panic("Failed to start loan event consumer: " + err.Error())
	}

	router := gin.Default()

	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.PrometheusMiddleware("library"))

	routes.PublicApi(router)

	addr := ":8080"
	if config.AppConfig.Backend.Port != 0 {
		addr = fmt.Sprintf(":%d", config.AppConfig.Backend.Port)
	}
	if err := router.Run(addr); err != nil {
		panic(err)
	}
}
