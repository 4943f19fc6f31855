package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/domain"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/notify"
	pkgkafka "github.com/Zembil-Gift/go-zembil-frontend-sub002/pkg/kafka"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/pkg/logger"
)

// Kafka topics written by the storefront.
var (
	TopicNotification = pkgkafka.Topic("notification", "raised")
	TopicCartSnapshot = pkgkafka.Topic("cart", "snapshot")
)

// Aggregate type constants.
const (
	AggregateTypeCart    = "cart"
	AggregateTypeSession = "session"
)

// SourceStorefront identifies events originating from this service.
const SourceStorefront = "storefront-state"

// NotificationData is the payload of a notification event.
type NotificationData struct {
	Level     string `json:"level"`
	Title     string `json:"title"`
	Message   string `json:"message,omitempty"`
	Operation string `json:"operation,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	GuestID   string `json:"guest_id,omitempty"`
}

// CartSnapshotData is the payload of a cart snapshot event, published after
// every confirmed cart mutation.
type CartSnapshotData struct {
	UserID     string         `json:"user_id"`
	Lines      []CartLineData `json:"lines"`
	TotalItems int            `json:"total_items"`
	TotalPrice string         `json:"total_price"`
}

// CartLineData is the line payload within cart snapshot events.
type CartLineData struct {
	LineID    string `json:"line_id"`
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

// Publisher is the part of the Kafka producer used here.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes storefront events to Kafka.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

var _ notify.Sink = (*Producer)(nil)

// NewProducer creates a new event producer.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// Notify publishes n to the notification topic, keyed by the session owner.
func (p *Producer) Notify(ctx context.Context, n notify.Notification) error {
	data := NotificationData{
		Level:     string(n.Level),
		Title:     n.Title,
		Message:   n.Message,
		Operation: n.Operation,
		UserID:    logger.UserIDFromContext(ctx),
		GuestID:   logger.GuestIDFromContext(ctx),
	}
	key := data.UserID
	if key == "" {
		key = data.GuestID
	}

	event, err := pkgkafka.NewEvent(TopicNotification, AggregateTypeSession, key, data,
		pkgkafka.WithSource(SourceStorefront),
		pkgkafka.CorrelatedWith(ctx),
		pkgkafka.WithAttribute("level", data.Level),
	)
	if err != nil {
		return err
	}

	if err := p.kafka.Publish(ctx, TopicNotification, event); err != nil {
		return fmt.Errorf("publish notification event: %w", err)
	}
	return nil
}

// PublishCartSnapshot publishes the confirmed state of a user's cart.
func (p *Producer) PublishCartSnapshot(ctx context.Context, userID string, lines []domain.CartLine) error {
	items := make([]CartLineData, len(lines))
	total := decimal.Zero
	count := 0
	for i := range lines {
		items[i] = CartLineData{
			LineID:    lines[i].ID,
			ProductID: lines[i].ProductID,
			Quantity:  lines[i].Quantity,
			UnitPrice: lines[i].UnitPrice().String(),
		}
		total = total.Add(lines[i].Subtotal())
		count += lines[i].Quantity
	}

	data := CartSnapshotData{
		UserID:     userID,
		Lines:      items,
		TotalItems: count,
		TotalPrice: total.StringFixed(2),
	}

	event, err := pkgkafka.NewEvent(TopicCartSnapshot, AggregateTypeCart, userID, data,
		pkgkafka.WithSource(SourceStorefront),
		pkgkafka.CorrelatedWith(ctx),
	)
	if err != nil {
		return err
	}

	if err := p.kafka.Publish(ctx, TopicCartSnapshot, event); err != nil {
		return fmt.Errorf("publish cart.snapshot event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.snapshot event",
		slog.String("user_id", userID),
		slog.Int("total_items", count),
	)

	return nil
}
