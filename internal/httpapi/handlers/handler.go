package handlers

import (
	"github.com/suPer8Hu/edge-chat-bridge/internal/chat"
	"github.com/suPer8Hu/edge-chat-bridge/internal/config"
	"github.com/suPer8Hu/edge-chat-bridge/internal/store/redisstore"
	"github.com/suPer8Hu/edge-chat-bridge/internal/stream"
)

type Handler struct {
	Repo  *chat.Repo
	Ctrl  *stream.Controller
	Redis *redisstore.Store
	Cfg   config.Config
}

func NewHandler(repo *chat.Repo, ctrl *stream.Controller, rds *redisstore.Store, cfg config.Config) *Handler {
	return &Handler{Repo: repo, Ctrl: ctrl, Redis: rds, Cfg: cfg}
}
