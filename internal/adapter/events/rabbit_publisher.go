package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/retailops/posengine/internal/core/domain"
)

const routingKeySaleCompleted = "sale.completed"

type saleCompletedEvent struct {
	SaleID        string              `json:"sale_id"`
	CustomerRef   string              `json:"customer_ref,omitempty"`
	PaymentMethod string              `json:"payment_method"`
	Total         string              `json:"total"`
	CreatedAt     time.Time           `json:"created_at"`
	Items         []saleCompletedItem `json:"items"`
}

type saleCompletedItem struct {
	ItemID    string `json:"item_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

// RabbitPublisher announces committed sales on a topic exchange for
// downstream consumers (reporting, dashboards). Publishing happens after the
// sale transaction closes and is strictly best-effort.
type RabbitPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func NewRabbitPublisher(url, exchange string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbit: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &RabbitPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *RabbitPublisher) SaleCompleted(ctx context.Context, sale domain.Sale, items []domain.SaleLineItem) error {
	event := saleCompletedEvent{
		SaleID:        sale.ID,
		CustomerRef:   sale.CustomerRef,
		PaymentMethod: string(sale.PaymentMethod),
		Total:         sale.Total.StringFixed(2),
		CreatedAt:     sale.CreatedAt,
	}
	for _, it := range items {
		event.Items = append(event.Items, saleCompletedItem{
			ItemID:    it.ItemID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPriceAtSale.StringFixed(2),
		})
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.ch.PublishWithContext(ctx, p.exchange, routingKeySaleCompleted, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

func (p *RabbitPublisher) Close() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
