package pub

import (
	"context"
	"encoding/json"
	"time"

	"ledger-service/internal/domain"

	"github.com/oklog/ulid/v2"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Publisher emits ledger lifecycle events. Publishing is best effort; a
// broker failure is logged and never fails the originating write.
type Publisher interface {
	EntryCreated(ctx context.Context, ref domain.EntryRef, number, memo string, date time.Time)
	EntryUpdated(ctx context.Context, ref domain.EntryRef, number, memo string, date time.Time)
	EntryVoided(ctx context.Context, ref domain.EntryRef, number string)
	FiscalYearClosed(ctx context.Context, year int, endDate time.Time, purgedEntries int)
}

type LedgerEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Kind      string    `json:"kind,omitempty"`
	EntryID   int64     `json:"entry_id,omitempty"`
	Number    string    `json:"number,omitempty"`
	Memo      string    `json:"memo,omitempty"`
	Date      string    `json:"date,omitempty"`
	Year      int       `json:"year,omitempty"`
	EndDate   string    `json:"end_date,omitempty"`
	Purged    int       `json:"purged,omitempty"`
	EmittedAt time.Time `json:"emitted_at"`
}

type kafkaPublisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) Publisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		MaxAttempts:  3,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &kafkaPublisher{writer: writer, logger: logger}
}

func (p *kafkaPublisher) EntryCreated(ctx context.Context, ref domain.EntryRef, number, memo string, date time.Time) {
	p.publish(ctx, LedgerEvent{
		Type:    "entry.created",
		Kind:    string(ref.Kind),
		EntryID: ref.ID,
		Number:  number,
		Memo:    memo,
		Date:    date.Format("2006-01-02"),
	})
}

func (p *kafkaPublisher) EntryUpdated(ctx context.Context, ref domain.EntryRef, number, memo string, date time.Time) {
	p.publish(ctx, LedgerEvent{
		Type:    "entry.updated",
		Kind:    string(ref.Kind),
		EntryID: ref.ID,
		Number:  number,
		Memo:    memo,
		Date:    date.Format("2006-01-02"),
	})
}

func (p *kafkaPublisher) EntryVoided(ctx context.Context, ref domain.EntryRef, number string) {
	p.publish(ctx, LedgerEvent{
		Type:    "entry.voided",
		Kind:    string(ref.Kind),
		EntryID: ref.ID,
		Number:  number,
	})
}

func (p *kafkaPublisher) FiscalYearClosed(ctx context.Context, year int, endDate time.Time, purgedEntries int) {
	p.publish(ctx, LedgerEvent{
		Type:    "fiscalyear.closed",
		Year:    year,
		EndDate: endDate.Format("2006-01-02"),
		Purged:  purgedEntries,
	})
}

func (p *kafkaPublisher) publish(ctx context.Context, ev LedgerEvent) {
	ev.ID = ulid.Make().String()
	ev.EmittedAt = time.Now().UTC()

	data, err := json.Marshal(ev)
	if err != nil {
		p.logger.Error("marshal ledger event", zap.Error(err), zap.String("type", ev.Type))
		return
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.ID),
		Value: data,
		Time:  time.Now(),
	})
	if err != nil {
		p.logger.Warn("publish ledger event",
			zap.Error(err),
			zap.String("type", ev.Type),
			zap.Int64("entry_id", ev.EntryID),
		)
	}
}

// NopPublisher discards all events. Used in tests and when no broker is
// configured.
type NopPublisher struct{}

func (NopPublisher) EntryCreated(context.Context, domain.EntryRef, string, string, time.Time) {}
func (NopPublisher) EntryUpdated(context.Context, domain.EntryRef, string, string, time.Time) {}
func (NopPublisher) EntryVoided(context.Context, domain.EntryRef, string)                     {}
func (NopPublisher) FiscalYearClosed(context.Context, int, time.Time, int)                    {}
