package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/haugli/meetflow/internal/app/model"
	"github.com/haugli/meetflow/internal/crm"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// CRMMirror publishes lead sync events for asynchronous delivery to the CRM.
type CRMMirror interface {
	PublishLeadSync(event model.LeadSyncEvent) error
}

type crmPublisher struct {
	js nats.JetStreamContext
}

// NewCRMPublisher creates a JetStream-backed mirror publisher.
func NewCRMPublisher(js nats.JetStreamContext) CRMMirror {
	return &crmPublisher{js: js}
}

func (p *crmPublisher) PublishLeadSync(event model.LeadSyncEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, err = p.js.Publish(model.CRMStreamSubject, data)
	return err
}

// CRMSyncConsumer applies lead sync events to the CRM record store.
type CRMSyncConsumer struct {
	js     nats.JetStreamContext
	logger *zap.Logger
	crm    crm.Client
}

// NewCRMSyncConsumer creates a new CRM sync consumer.
func NewCRMSyncConsumer(js nats.JetStreamContext, logger *zap.Logger, client crm.Client) *CRMSyncConsumer {
	return &CRMSyncConsumer{js: js, logger: logger, crm: client}
}

// Start ensures the stream and durable consumer exist and begins consuming.
func (c *CRMSyncConsumer) Start() error {
	_, err := c.js.StreamInfo(model.CRMStreamName)
	if err != nil {
		_, err = c.js.AddStream(&nats.StreamConfig{
			Name:     model.CRMStreamName,
			Subjects: []string{model.CRMStreamSubject},
			MaxBytes: model.CRMStreamMaxBytes,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
	}

	_, err = c.js.ConsumerInfo(model.CRMStreamName, model.CRMConsumerName)
	if err != nil {
		_, err = c.js.AddConsumer(model.CRMStreamName, &nats.ConsumerConfig{
			Durable:   model.CRMConsumerName,
			AckPolicy: nats.AckExplicitPolicy,
		})
		if err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}
	}

	sub, err := c.js.PullSubscribe(model.CRMStreamSubject, model.CRMConsumerName)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	go c.consume(sub)
	return nil
}

func (c *CRMSyncConsumer) consume(sub *nats.Subscription) {
	ctx := context.Background()
	for {
		msgs, err := sub.Fetch(10, nats.MaxWait(5*time.Second))
		if err != nil && err != nats.ErrTimeout {
			c.logger.Error("failed to fetch crm sync messages", zap.Error(err))
			continue
		}

		for _, msg := range msgs {
			var event model.LeadSyncEvent
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				c.logger.Error("failed to unmarshal lead sync event", zap.Error(err))
				_ = msg.Ack()
				continue
			}

			fields := crm.LeadFields{
				BookedSlotIndex: &event.BookedSlotIndex,
				MeetingStatus:   event.MeetingStatus,
				MeetingStart:    event.MeetingStart.UTC().Format(time.RFC3339),
			}
			if err := c.crm.UpdateLead(ctx, event.LeadID, fields); err != nil {
				// The mirror is best effort; drop rather than redeliver forever.
				c.logger.Error("crm mirror update failed",
					zap.String("lead_id", event.LeadID),
					zap.Error(err))
				_ = msg.Ack()
				continue
			}

			c.logger.Debug("lead mirrored to crm",
				zap.String("lead_id", event.LeadID),
				zap.Int("slot_index", event.BookedSlotIndex))

			_ = msg.Ack()
		}
	}
}
