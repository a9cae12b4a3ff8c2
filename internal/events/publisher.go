package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/PoluyanbIch/pollquizbot/internal/service"
)

type EventType string

const (
	ModuleSelected  EventType = "quiz.module.selected"
	AnswerRecorded  EventType = "quiz.answer.recorded"
	ModuleCompleted EventType = "quiz.module.completed"
)

// Event is the JSON envelope published for every quiz transition. The routing key
// is the event type.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

type selectedPayload struct {
	UserID    int64  `json:"user_id"`
	Module    string `json:"module"`
	RunID     string `json:"run_id"`
	Abandoned bool   `json:"abandoned"`
}

type answerPayload struct {
	UserID  int64  `json:"user_id"`
	Module  string `json:"module"`
	RunID   string `json:"run_id"`
	Index   int    `json:"question_index"`
	Chosen  int    `json:"chosen_option"`
	Correct bool   `json:"correct"`
	Score   int    `json:"score"`
	Total   int    `json:"total"`
}

type completedPayload struct {
	UserID      int64  `json:"user_id"`
	Module      string `json:"module"`
	RunID       string `json:"run_id"`
	Score       int    `json:"score"`
	Total       int    `json:"total"`
	Interrupted bool   `json:"interrupted"`
}

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends quiz events to a topic exchange. Publishing failures are logged
// and never block a quiz.
type Publisher struct {
	conn     *amqp.Connection
	channel  channel
	exchange string
	now      func() time.Time
}

func NewPublisher(amqpURL, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, errors.Wrap(err, "dial rabbitmq")
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "open channel")
	}
	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		conn.Close()
		return nil, errors.Wrapf(err, "declare exchange %s", exchange)
	}
	return &Publisher{conn: conn, channel: ch, exchange: exchange, now: time.Now}, nil
}

func (p *Publisher) Publish(ctx context.Context, typ EventType, payload interface{}) error {
	ev := Event{
		ID:         uuid.NewString(),
		Type:       typ,
		OccurredAt: p.now().UTC(),
		Payload:    payload,
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.channel.PublishWithContext(ctx,
		p.exchange,
		string(typ), // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    ev.ID,
			Timestamp:    ev.OccurredAt,
			Body:         body,
		},
	)
}

// publishTimeout bounds how long a quiz transition waits on the broker.
const publishTimeout = 5 * time.Second

func (p *Publisher) publish(ctx context.Context, typ EventType, payload interface{}) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := p.Publish(ctx, typ, payload); err != nil {
		glog.Warningf("publish %s: %v", typ, err)
	}
}

func (p *Publisher) ModuleSelected(ctx context.Context, ev service.SelectionEvent) {
	p.publish(ctx, ModuleSelected, selectedPayload{
		UserID:    ev.UserID,
		Module:    ev.Module,
		RunID:     ev.RunID,
		Abandoned: ev.Abandoned,
	})
}

func (p *Publisher) AnswerRecorded(ctx context.Context, ev service.AnswerEvent) {
	p.publish(ctx, AnswerRecorded, answerPayload{
		UserID:  ev.UserID,
		Module:  ev.Module,
		RunID:   ev.RunID,
		Index:   ev.Index,
		Chosen:  ev.Chosen,
		Correct: ev.Correct,
		Score:   ev.Score,
		Total:   ev.Total,
	})
}

func (p *Publisher) ModuleCompleted(ctx context.Context, ev service.CompletionEvent) {
	p.publish(ctx, ModuleCompleted, completedPayload{
		UserID:      ev.UserID,
		Module:      ev.Module,
		RunID:       ev.RunID,
		Score:       ev.Score,
		Total:       ev.Total,
		Interrupted: ev.Interrupted,
	})
}

func (p *Publisher) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
