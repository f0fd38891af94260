package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/viVeK21111/chatgpt-clone/internal/bootstrap"
	"github.com/viVeK21111/chatgpt-clone/internal/chat"
	"github.com/viVeK21111/chatgpt-clone/internal/config"
	"github.com/viVeK21111/chatgpt-clone/internal/db"
	"github.com/viVeK21111/chatgpt-clone/internal/jobs"
	"github.com/viVeK21111/chatgpt-clone/internal/store/rabbitmq"
)

func main() {
	cfg := config.Load()
	if !cfg.RabbitEnabled() {
		log.Fatalf("RABBIT_URL is required for the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Connect(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	repo := chat.NewRepo(gdb)
	runner := jobs.NewTitleRunner(repo, bootstrap.NewGateway(cfg))

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("rabbit dial: %v", err)
	}
	defer conn.Close()

	// retries go out on their own channel
	retryPub, err := rabbitmq.NewPublisherWithConn(conn, cfg.RabbitQueue)
	if err != nil {
		log.Fatalf("retry publisher: %v", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("rabbit channel: %v", err)
	}
	defer ch.Close()

	if err := rabbitmq.DeclareQueues(ch, cfg.RabbitQueue); err != nil {
		log.Fatalf("queue declare: %v", err)
	}

	concurrency := cfg.WorkerConcurrency
	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	log.Printf("worker started, queue=%s concurrency=%d", cfg.RabbitQueue, concurrency)

	// worker pool
	deliveries := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range deliveries {
				handleDelivery(ctx, workerID, runner, retryPub, d)
			}
		}(i)
	}

	// dispatcher
	for {
		select {
		case <-ctx.Done():
			log.Printf("worker shutting down")
			close(deliveries)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				log.Printf("delivery channel closed")
				stop()
				time.Sleep(1 * time.Second)
				continue
			}
			deliveries <- d
		}
	}
}

func handleDelivery(ctx context.Context, workerID int, runner *jobs.TitleRunner, retryPub *rabbitmq.Publisher, d amqp.Delivery) {
	var m rabbitmq.JobMessage
	if err := json.Unmarshal(d.Body, &m); err != nil || m.JobID == "" {
		log.Printf("worker=%d bad message: %v", workerID, err)
		_ = d.Nack(false, false)
		return
	}

	start := time.Now()
	err := runner.Handle(ctx, m.JobID)
	if err == nil {
		if err := d.Ack(false); err != nil {
			log.Printf("worker=%d ack failed job=%s err=%v", workerID, m.JobID, err)
		}
		return
	}

	log.Printf("worker=%d job %s failed attempt=%d cost=%s err=%v", workerID, m.JobID, m.Attempt, time.Since(start), err)
	if !jobs.ShouldRetry(err, m.Attempt) {
		_ = d.Nack(false, false)
		return
	}

	delay := jobs.RetryDelay(m.Attempt)
	next := rabbitmq.JobMessage{JobID: m.JobID, Attempt: m.Attempt + 1}
	if err := retryPub.PublishRetry(context.Background(), next, delay); err != nil {
		log.Printf("worker=%d retry publish failed job=%s err=%v", workerID, m.JobID, err)
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}
