package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/suPer8Hu/edge-chat-bridge/internal/assistantapi"
	"github.com/suPer8Hu/edge-chat-bridge/internal/chat"
	"github.com/suPer8Hu/edge-chat-bridge/internal/config"
	"github.com/suPer8Hu/edge-chat-bridge/internal/db"
	"github.com/suPer8Hu/edge-chat-bridge/internal/httpapi"
	"github.com/suPer8Hu/edge-chat-bridge/internal/store/rabbitmq"
	"github.com/suPer8Hu/edge-chat-bridge/internal/store/redisstore"
	"github.com/suPer8Hu/edge-chat-bridge/internal/stream"
	"github.com/suPer8Hu/edge-chat-bridge/internal/transport"
)

func main() {
	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)
	if err := gdb.AutoMigrate(&chat.Session{}, &chat.Message{}); err != nil {
		log.Fatalf("automigrate: %v", err)
	}
	repo := chat.NewRepo(gdb)

	rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer rds.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ch := transport.NewWSChannel(cfg.AssistantWSURL, cfg.ReconnectMin, cfg.ReconnectMax)
	api := assistantapi.NewClient(cfg.AssistantAPIURL)
	agg := stream.NewAggregator(cfg.CheckpointInterval)
	ctrl := stream.NewController(ch, repo, api, agg)

	// telemetry pipeline is best-effort: the chat bridge stays up even
	// when the broker is down
	pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		log.Printf("rabbit unavailable, device updates will be dropped: %v", err)
	} else {
		defer pub.Close()
		ctrl.Publisher = pub
	}

	ctrl.OnError = func(msg string) {
		log.Printf("assistant reported error: %s", msg)
	}
	ctrl.OnSessionChange = func(id string) {
		if err := rds.SetActiveSession(context.Background(), id); err != nil {
			log.Printf("save active session: %v", err)
		}
	}

	ch.OnStateChange(func(s transport.State) {
		log.Printf("transport state=%s", s)
	})

	// resume the conversation the user was in before the last restart
	if saved, err := rds.ActiveSession(ctx); err != nil {
		log.Printf("read active session: %v", err)
	} else if saved != "" {
		ch.SetSessionID(saved)
	}

	if err := ch.Connect(ctx); err != nil {
		log.Fatalf("connect assistant backend: %v", err)
	}
	defer ch.Close()

	if saved := ch.SessionID(); saved != "" {
		if err := ctrl.SelectSession(ctx, saved); err != nil {
			log.Printf("restore session %s: %v", saved, err)
		}
	}

	go func() {
		if err := ctrl.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("controller stopped: %v", err)
		}
	}()

	router := httpapi.NewRouter(repo, ctrl, rds, cfg)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("bridge listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
}
