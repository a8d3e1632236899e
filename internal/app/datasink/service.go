package datasink

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/crewboard/platform/internal/contracts"
	"github.com/crewboard/platform/internal/platform/metrics"
)

var ErrInvalidEventPayload = errors.New("invalid event payload")
var ErrUnsupportedEventType = errors.New("unsupported event type")

type Repository interface {
	InsertEvent(ctx context.Context, event contracts.TaskEvent, eventSeq uint64) error
}

type Service struct {
	Repository Repository
}

func NewService(repository Repository) *Service {
	return &Service{Repository: repository}
}

func (s *Service) Handle(ctx context.Context, payload []byte, eventSeq uint64) error {
	var event contracts.TaskEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return ErrInvalidEventPayload
	}
	if err := s.Repository.InsertEvent(ctx, event, eventSeq); err != nil {
		return err
	}
	metrics.EventsPersisted.WithLabelValues(event.EventType).Inc()
	return nil
}
