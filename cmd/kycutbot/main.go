package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"kycut-bot/internal/bot"
	"kycut-bot/internal/config"
	"kycut-bot/internal/httpapi"
	"kycut-bot/internal/lockfile"
	"kycut-bot/internal/repository"
	"kycut-bot/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[error] load config: %v", err)
	}

	lock, err := lockfile.Acquire(cfg.LockFilePath)
	if err != nil {
		log.Fatalf("[error] %v", err)
	}
	defer lock.Release()

	store := repository.NewSessionStore(cfg.DatabasePath, cfg.SessionsJSONPath)
	api := httpapi.New(cfg.WebsiteURL, cfg.WebhookSecret)

	sessions := service.NewSessionService(store, api)
	defer sessions.Close()
	orders := service.NewOrderService(api)
	status := service.NewStatusService(api)

	if err := sessions.Hydrate(ctx); err != nil {
		log.Printf("[warn] hydrate sessions: %v", err)
	}

	if rtt, online := status.Ping(ctx); online {
		log.Printf("[info] website reachable at %s (%v)", cfg.WebsiteURL, rtt.Round(time.Millisecond))
	} else {
		log.Printf("[warn] website %s unreachable, continuing anyway", cfg.WebsiteURL)
	}

	b, err := bot.New(cfg.BotToken, sessions, orders, status, &cfg)
	if err != nil {
		log.Fatalf("[error] start bot: %v", err)
	}

	if cfg.HeartbeatInterval > 0 {
		scheduler := service.NewSchedulerService(time.Local)
		_, err := scheduler.ScheduleInterval(cfg.HeartbeatInterval, func() {
			hbCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := status.UpdateActivity(hbCtx, 0); err != nil {
				log.Printf("[warn] heartbeat: %v", err)
			}
			if rtt, online := status.Ping(hbCtx); online {
				log.Printf("[info] heartbeat ping %v", rtt.Round(time.Millisecond))
			} else {
				log.Printf("[warn] heartbeat ping failed")
			}
		})
		if err != nil {
			log.Printf("[warn] schedule heartbeat: %v", err)
		} else {
			scheduler.Start()
			defer scheduler.Stop()
			log.Printf("[info] heartbeat every %v", cfg.HeartbeatInterval)
		}
	}

	if err := b.Start(ctx); err != nil {
		log.Fatalf("[error] bot stopped: %v", err)
	}

	log.Println("[info] shutdown complete")
}
