package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/armangral/atta-chakki-tracker-app/internal/alerts/consumer"
	"github.com/armangral/atta-chakki-tracker-app/internal/alerts/repository"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	log.Println("alertd starting...")
	var wg sync.WaitGroup

	kafkaBrokers := getEnv("KAFKA_BROKERS", "localhost:9092")
	mongoURI := getEnv("MONGO_URI", "mongodb://localhost:27017")
	mongoDB := getEnv("MONGO_DB", "attachakki")

	connectCtx, connectCancel := context.WithTimeout(context.Background(), 15*time.Second)
	db, err := repository.ConnectMongoDB(connectCtx, mongoURI, mongoDB)
	connectCancel()
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Client().Disconnect(disconnectCtx); err != nil {
			log.Printf("error disconnecting from MongoDB: %v", err)
		}
	}()

	repo := repository.NewMongoRepository(db)
	indexCtx, indexCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := repo.CreateIndexes(indexCtx); err != nil {
		log.Printf("failed to create indexes: %v", err)
	}
	indexCancel()

	alertConsumer := consumer.NewConsumer(repo, kafkaBrokers)
	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	wg.Add(1)
	go func() {
		defer wg.Done()
		alertConsumer.Run(consumerCtx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down alertd...")
	consumerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	doneChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneChan)
	}()

	select {
	case <-doneChan:
		log.Println("Consumer stopped cleanly")
	case <-shutdownCtx.Done():
		log.Println("Consumer didn't stop in time")
	}

	alertConsumer.Close()
	log.Println("alertd stopped")
}
