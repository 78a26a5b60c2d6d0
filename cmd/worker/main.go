package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"classtrack/internal/attendance"
	"classtrack/internal/config"
	"classtrack/internal/queue"
	"classtrack/internal/store"
	"classtrack/internal/summary"
)

// Worker consumes session lifecycle events and warms the summary cache so
// report reads after a completed session hit redis instead of Postgres.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "")
	}

	repo := attendance.NewPostgresRepository(db.Client)
	reports := summary.NewService(repo, summary.NewCache(redisClient.Client, cfg.SummaryCacheTTL))

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		if msg.Type != queue.TypeSessionCompleted {
			continue
		}

		sessionID := string(msg.Body)
		log.Printf("warming reports for session %s", sessionID)

		records, err := repo.RecordsBySession(ctx, sessionID)
		if err != nil {
			log.Printf("fetch session %s rows failed: %v", sessionID, err)
			continue
		}

		from, to := summary.DefaultRange(time.Now().UTC())
		for _, rec := range records {
			if _, err := reports.Refresh(ctx, rec.StudentID, from, to); err != nil {
				log.Printf("refresh report for student %s failed: %v", rec.StudentID, err)
			}
		}
		log.Printf("session %s: warmed %d student reports", sessionID, len(records))
	}

	log.Println("worker stopped")
}
