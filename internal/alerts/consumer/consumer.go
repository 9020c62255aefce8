package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/armangral/atta-chakki-tracker-app/internal/alerts/repository"
	"github.com/armangral/atta-chakki-tracker-app/internal/sales/domain"
	"github.com/armangral/atta-chakki-tracker-app/internal/sales/publisher"
	"github.com/segmentio/kafka-go"
)

type Consumer struct {
	repo   repository.AlertRepository
	reader *kafka.Reader
}

func NewConsumer(repo repository.AlertRepository, brokers ...string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    publisher.Topic,
		GroupID:  "alertd",
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{repo, reader}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		log.Printf("error closing kafka reader: %v", err)
	}
}

func (c *Consumer) processMessage(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Printf("error reading message: %v", err)
		return
	}

	if eventType(m) != domain.EventTypeSaleRecorded {
		return
	}

	var event domain.SaleRecordedEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		log.Printf("error parsing message: %v", err)
		return
	}

	c.handleSaleRecorded(ctx, event)
}

// handleSaleRecorded files one alert per line item whose post-sale stock
// is at or below the product's threshold.
func (c *Consumer) handleSaleRecorded(ctx context.Context, event domain.SaleRecordedEvent) {
	for _, item := range event.Items {
		if item.StockAfter.GreaterThan(item.LowStockThreshold) {
			continue
		}

		alert := &repository.Alert{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			StockAfter:  item.StockAfter,
			Threshold:   item.LowStockThreshold,
			BillID:      event.BillID,
			ObservedAt:  event.Date,
		}
		if err := c.repo.SaveAlert(ctx, alert); err != nil {
			log.Printf("failed to save alert for product %s: %v", item.ProductID, err)
			continue
		}
		log.Printf("low stock: %s at %s (threshold %s)", item.ProductName, item.StockAfter, item.LowStockThreshold)
	}
}

func eventType(m kafka.Message) string {
	for _, h := range m.Headers {
		if h.Key == "event_type" {
			return string(h.Value)
		}
	}
	return ""
}
