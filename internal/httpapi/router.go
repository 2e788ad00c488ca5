package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/suPer8Hu/edge-chat-bridge/internal/chat"
	"github.com/suPer8Hu/edge-chat-bridge/internal/common"
	"github.com/suPer8Hu/edge-chat-bridge/internal/config"
	"github.com/suPer8Hu/edge-chat-bridge/internal/httpapi/handlers"
	"github.com/suPer8Hu/edge-chat-bridge/internal/httpapi/middleware"
	"github.com/suPer8Hu/edge-chat-bridge/internal/store/redisstore"
	"github.com/suPer8Hu/edge-chat-bridge/internal/stream"
)

func NewRouter(repo *chat.Repo, ctrl *stream.Controller, rds *redisstore.Store, cfg config.Config) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	h := handlers.NewHandler(repo, ctrl, rds, cfg)

	r.GET("/ping", h.Ping)

	authGroup := r.Group("/api")
	authGroup.Use(middleware.AuthRequired(cfg.JWTSecret))
	authGroup.POST("/sessions", h.CreateSession)
	authGroup.GET("/sessions", h.ListSessions)
	authGroup.POST("/sessions/:session_id/select", h.SelectSession)
	authGroup.DELETE("/sessions/:session_id", h.DeleteSession)
	authGroup.GET("/sessions/:session_id/messages", h.ListMessages)
	authGroup.POST("/messages", h.SendMessage)
	authGroup.GET("/devices/:device_id/state", h.GetDeviceState)

	return r
}
