// Package events announces processed documents on the message bus.
// Publishing is best effort: a bus outage never fails a request that has
// already been persisted.
package events

import (
	"context"

	"github.com/docflow/docflow-backend/internal/document/domain"
	"github.com/docflow/docflow-backend/pkg/logger"
	"github.com/docflow/docflow-backend/pkg/messaging"
)

// Publisher announces document lifecycle events. A nil Publisher is valid
// and drops everything, which keeps the broker optional in development.
type Publisher struct {
	pub *messaging.Publisher
	log *logger.Logger
}

func NewPublisher(pub *messaging.Publisher, log *logger.Logger) *Publisher {
	return &Publisher{pub: pub, log: log}
}

// DocumentProcessed announces that a document was extracted and persisted.
func (p *Publisher) DocumentProcessed(ctx context.Context, docType domain.DocumentType, naturalKey, userID string, warnings []string) {
	if p == nil || p.pub == nil {
		return
	}

	var eventType string
	switch docType {
	case domain.DocumentTypeCIN:
		eventType = messaging.EventCINProcessed
	case domain.DocumentTypePermis:
		eventType = messaging.EventPermisProcessed
	case domain.DocumentTypeGris:
		eventType = messaging.EventGrisProcessed
	default:
		return
	}

	data := messaging.DocumentProcessedData{
		DocumentType: string(docType),
		NaturalKey:   naturalKey,
		UserID:       userID,
		Warnings:     warnings,
	}

	if err := p.pub.Publish(ctx, eventType, data); err != nil {
		p.log.Warn().Err(err).
			Str("event_type", eventType).
			Str("document_type", string(docType)).
			Msg("failed to publish document event")
	}
}
