package events

import (
	"context"

	"github.com/aerocharter/service-flightpath/internal/application"
	"github.com/aerocharter/service-flightpath/internal/platform/apperror"
	"github.com/aerocharter/service-flightpath/internal/platform/kafka"
	"github.com/aerocharter/service-flightpath/internal/platform/metrics"
	"github.com/aerocharter/service-flightpath/internal/proto/events"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// ItineraryService is the part of RouteMapService the consumer drives.
type ItineraryService interface {
	RegisterItinerary(ctx context.Context, req application.RegisterItineraryRequest) (*application.ItineraryDTO, error)
	CancelItinerary(ctx context.Context, id uuid.UUID, reason string) (*application.ItineraryDTO, error)
}

// ItineraryEventConsumer listens to itinerary parser events and keeps the route map in sync.
type ItineraryEventConsumer struct {
	consumer *kafka.Consumer
	service  ItineraryService
	logger   *zap.Logger
}

// NewItineraryEventConsumer creates a new ItineraryEventConsumer.
func NewItineraryEventConsumer(
	brokers []string,
	groupID string,
	service ItineraryService,
	logger *zap.Logger,
) *ItineraryEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, events.TopicItineraryEvents, logger)
	return &ItineraryEventConsumer{
		consumer: consumer,
		service:  service,
		logger:   logger,
	}
}

// Start begins consuming itinerary events. This blocks until the context is cancelled.
func (c *ItineraryEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *ItineraryEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *ItineraryEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from itinerary topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		metrics.EventsConsumed.WithLabelValues("unknown", "malformed").Inc()
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case events.ItineraryParsed:
		return c.record(cloudEvent.Type, c.handleItineraryParsed(ctx, cloudEvent))
	case events.ItineraryCancelled:
		return c.record(cloudEvent.Type, c.handleItineraryCancelled(ctx, cloudEvent))
	default:
		c.logger.Debug("ignoring unhandled itinerary event type",
			zap.String("type", cloudEvent.Type),
		)
		metrics.EventsConsumed.WithLabelValues(cloudEvent.Type, "ignored").Inc()
		return nil
	}
}

// record counts the outcome and decides whether the message is retried.
// Rejections by the domain are final; anything else is retried.
func (c *ItineraryEventConsumer) record(eventType string, err error) error {
	switch {
	case err == nil:
		metrics.EventsConsumed.WithLabelValues(eventType, "ok").Inc()
		return nil
	case errMalformed(err):
		metrics.EventsConsumed.WithLabelValues(eventType, "malformed").Inc()
		return nil
	case apperror.Is(err, apperror.CodeValidation),
		apperror.Is(err, apperror.CodeNotFound),
		apperror.Is(err, apperror.CodeConflict),
		apperror.Is(err, apperror.CodeInvalidState):
		metrics.EventsConsumed.WithLabelValues(eventType, "rejected").Inc()
		return nil
	default:
		metrics.EventsConsumed.WithLabelValues(eventType, "error").Inc()
		return err
	}
}

type malformedError struct{ error }

func errMalformed(err error) bool {
	_, ok := err.(malformedError)
	return ok
}

func (c *ItineraryEventConsumer) handleItineraryParsed(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt events.ItineraryParsedEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse ItineraryParsedEvent data",
			zap.Error(err),
		)
		return malformedError{err}
	}

	c.logger.Info("processing itinerary parsed event",
		zap.String("itinerary_id", evt.ItineraryID.String()),
		zap.Int("legs", len(evt.Legs)),
	)

	req := application.RegisterItineraryRequest{
		RequestText:      evt.RequestText,
		AircraftCategory: evt.AircraftCategory,
		Legs:             evt.Legs,
	}
	if evt.ItineraryID != uuid.Nil {
		id := evt.ItineraryID
		req.ID = &id
	}

	result, err := c.service.RegisterItinerary(ctx, req)
	if err != nil {
		c.logger.Error("failed to register itinerary",
			zap.String("itinerary_id", evt.ItineraryID.String()),
			zap.Error(err),
		)
		return err
	}

	c.logger.Info("itinerary registered from event",
		zap.String("itinerary_id", result.ID.String()),
		zap.String("reference", result.Reference),
	)
	return nil
}

func (c *ItineraryEventConsumer) handleItineraryCancelled(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt events.ItineraryCancelledEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse ItineraryCancelledEvent data",
			zap.Error(err),
		)
		return malformedError{err}
	}

	c.logger.Info("processing itinerary cancelled event",
		zap.String("itinerary_id", evt.ItineraryID.String()),
	)

	if _, err := c.service.CancelItinerary(ctx, evt.ItineraryID, evt.Reason); err != nil {
		c.logger.Error("failed to cancel itinerary",
			zap.String("itinerary_id", evt.ItineraryID.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}
