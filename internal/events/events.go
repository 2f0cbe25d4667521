// Package events publishes domain notifications (assignments, grades, chat)
// to NATS for downstream consumers such as mailers or push gateways.
package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	SubjectTaskAssigned = "tasks.assigned"
	SubjectExamAssigned = "exams.assigned"
	SubjectExamGraded   = "exams.graded"
	SubjectChatMessage  = "chat.message"
)

// Envelope wraps every payload put on the bus.
type Envelope struct {
	Subject    string    `json:"subject"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

// Publisher emits domain events. Implementations must not block requests.
type Publisher interface {
	Publish(subject string, data any) error
}

// NatsPublisher publishes JSON envelopes on a NATS connection.
type NatsPublisher struct {
	conn *nats.Conn
	log  *zap.Logger
}

// Connect dials url. Reconnects are handled by the client library.
func Connect(url string, log *zap.Logger) (*NatsPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("eduhub-api"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, err
	}
	return &NatsPublisher{conn: conn, log: log}, nil
}

func (p *NatsPublisher) Publish(subject string, data any) error {
	payload, err := json.Marshal(Envelope{Subject: subject, OccurredAt: time.Now().UTC(), Data: data})
	if err != nil {
		return err
	}
	return p.conn.Publish(subject, payload)
}

// Close flushes pending messages and closes the connection.
func (p *NatsPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.log.Warn("nats drain failed", zap.Error(err))
	}
}

// Nop discards every event. Used when NATS_URL is unset.
type Nop struct{}

func (Nop) Publish(string, any) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Envelope
}

func (r *Recorder) Publish(subject string, data any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Envelope{Subject: subject, OccurredAt: time.Now().UTC(), Data: data})
	return nil
}

// Subjects lists the subjects recorded so far, in order.
func (r *Recorder) Subjects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Subject
	}
	return out
}
