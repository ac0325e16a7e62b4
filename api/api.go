package api

import (
	"coinindex/internal/index"
	"coinindex/internal/logger"
	"coinindex/internal/snapshot"
	"coinindex/internal/universe"
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type ApiHandler struct {
	Store   *snapshot.Store
	Engine  *index.Engine
	Updater *universe.Updater
}

func (m ApiHandler) StartApi(port int) error {
	router := gin.Default()
	router.Use(cors.Default())
	router.Use(logRequestMiddleware)

	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(200, map[string]string{"message": "welcome to coinindex"})
	})
	router.GET("/snapshot/:date", m.snapshot)
	router.POST("/index", m.calculateIndex)
	router.POST("/universe/update", m.updateUniverse)

	return router.Run(fmt.Sprintf(":%d", port))
}

func returnErrorJson(err error, c *gin.Context) {
	logger.Error(err)
	c.AbortWithStatusJSON(500, gin.H{
		"error": err.Error(),
	})
}

func returnErrorJsonCode(err error, c *gin.Context, code int) {
	logger.Error(err)
	c.AbortWithStatusJSON(code, gin.H{
		"error": err.Error(),
	})
}

func logRequestMiddleware(ctx *gin.Context) {
	start := time.Now()
	ctx.Next()
	logger.Info(
		"%s %s -> %d (%s)",
		ctx.Request.Method,
		ctx.Request.URL.Path,
		ctx.Writer.Status(),
		time.Since(start),
	)
}
