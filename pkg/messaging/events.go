package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	EventCINProcessed    = "document.cin.processed"
	EventPermisProcessed = "document.permis.processed"
	EventGrisProcessed   = "document.gris.processed"
)

// Exchange names
const (
	ExchangeDocumentEvents = "document.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            GenerateEventID(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return uuid.New().String()
}

// DocumentProcessedData is the payload published after a document is persisted
type DocumentProcessedData struct {
	DocumentType string   `json:"document_type"`
	NaturalKey   string   `json:"natural_key"`
	UserID       string   `json:"user_id,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
}

// UserRegisteredData is the payload published after a user signs up
type UserRegisteredData struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}
