// Package notify publishes detection alerts to the notification bus.
package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Message is the wire shape published for every alert.
type Message struct {
	Timestamp    int64           `json:"timestamp"`
	CameraID     string          `json:"cameraID"`
	AdjScore     float64         `json:"adjScore"`
	AnnotatedURL string          `json:"annotatedUrl"`
	CroppedURL   string          `json:"croppedUrl"`
	MapURL       string          `json:"mapUrl"`
	Polygon      json.RawMessage `json:"polygon"`
	IsProto      bool            `json:"isProto"`
	WeatherScore float64         `json:"weatherScore"`
}

// Publisher publishes a Message to the bus, retrying with linear backoff
// before giving up.
type Publisher struct {
	conn       *nats.Conn
	subject    string
	maxRetries int
}

func NewPublisher(conn *nats.Conn, subject string, maxRetries int) *Publisher {
	return &Publisher{conn: conn, subject: subject, maxRetries: maxRetries}
}

func (p *Publisher) Publish(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("notify: marshal: %w", err)
	}

	var lastErr error
	for i := 0; i <= p.maxRetries; i++ {
		lastErr = p.conn.Publish(p.subject, data)
		if lastErr == nil {
			return nil
		}
		time.Sleep(time.Duration(i*100) * time.Millisecond)
	}
	return fmt.Errorf("notify: publish failed after %d retries: %w", p.maxRetries, lastErr)
}
