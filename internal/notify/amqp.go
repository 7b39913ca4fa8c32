package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/mmeshcher/tavola-miniapp/internal/middleware"
)

// DefaultQueue задаёт очередь, из которой бот забирает данные мини-приложения.
const DefaultQueue = "tavola.webapp.data"

// Типы сообщений в очереди.
const (
	TypeWebAppData = "web_app_data"
	TypeOpenLink   = "open_link"
)

// Channel описывает часть *amqp.Channel, нужную для публикации.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPHost передаёт данные заказа и ссылки на оплату боту через очередь.
type AMQPHost struct {
	ch    Channel
	queue string
}

// NewAMQPHost открывает канал и объявляет очередь, чтобы публикация не падала из-за её отсутствия.
func NewAMQPHost(conn *amqp.Connection, queue string) (*AMQPHost, error) {
	if queue == "" {
		queue = DefaultQueue
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare %s: %w", queue, err)
	}

	return NewAMQPHostWithChannel(ch, queue), nil
}

// NewAMQPHostWithChannel использует уже открытый канал.
func NewAMQPHostWithChannel(ch Channel, queue string) *AMQPHost {
	if queue == "" {
		queue = DefaultQueue
	}
	return &AMQPHost{ch: ch, queue: queue}
}

// Close закрывает канал.
func (h *AMQPHost) Close() error {
	return h.ch.Close()
}

// SendData публикует данные заказа от имени текущего пользователя.
func (h *AMQPHost) SendData(ctx context.Context, data []byte) error {
	return h.publish(ctx, TypeWebAppData, data)
}

// OpenLink просит бота отправить пользователю ссылку на оплату.
func (h *AMQPHost) OpenLink(ctx context.Context, url string) error {
	body, err := json.Marshal(map[string]string{"url": url})
	if err != nil {
		return fmt.Errorf("marshal open_link: %w", err)
	}
	return h.publish(ctx, TypeOpenLink, body)
}

func (h *AMQPHost) publish(ctx context.Context, msgType string, body []byte) error {
	user, _ := middleware.GetUserFromContext(ctx)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := h.ch.PublishWithContext(ctx, "", h.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Type:         msgType,
		Headers: amqp.Table{
			"telegram_id": user.ID,
		},
		Body: body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", msgType, err)
	}
	return nil
}
