package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"elog/internal/domain"
	"elog/internal/domain/models"
	"elog/internal/domain/services"
)

// Message is one import request pulled from the source. The payload is a
// JSON-encoded Envelope.
type Message struct {
	Key     string
	Payload []byte
}

// Source abstracts the message broker: at-least-once delivery with manual
// acknowledgment. Ack confirms successful processing, Fail routes the
// message to the dead-letter path.
type Source interface {
	// Next blocks until a message is available or the context is done
	Next(ctx context.Context) (*Message, error)

	// Ack acknowledges successful processing of the message
	Ack(ctx context.Context, msg *Message) error

	// Fail routes the message to the dead-letter path
	Fail(ctx context.Context, msg *Message) error
}

// Envelope is the wire form of an import message. Attachment content rides
// inline, base64-encoded by the JSON codec.
type Envelope struct {
	Author      models.Person               `json:"author"`
	Entry       services.ImportEntryRequest `json:"entry"`
	Attachments []EnvelopeAttachment        `json:"attachments,omitempty"`
}

// EnvelopeAttachment is an inline attachment of an import message.
type EnvelopeAttachment struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"content"`
}

// Config bounds the per-message retry envelope.
type Config struct {
	// Attempts is the number of tries per message before dead-lettering
	Attempts int
	// InitialDelay is the pause before the second attempt
	InitialDelay time.Duration
	// MaxDelay caps the doubling delay
	MaxDelay time.Duration
}

// DefaultConfig returns the production retry envelope: 3 attempts with the
// delay doubling from 2s, capped at 10s.
func DefaultConfig() Config {
	return Config{
		Attempts:     3,
		InitialDelay: 2 * time.Second,
		MaxDelay:     10 * time.Second,
	}
}

// Consumer drains a Source and feeds each message to the import service.
type Consumer struct {
	source  Source
	service services.ImportService
	config  Config
	logger  *slog.Logger
}

// NewConsumer creates a new import consumer
func NewConsumer(source Source, service services.ImportService, config Config, logger *slog.Logger) *Consumer {
	if config.Attempts <= 0 {
		config = DefaultConfig()
	}
	return &Consumer{
		source:  source,
		service: service,
		config:  config,
		logger:  logger,
	}
}

// Run processes messages until the context is canceled. Errors from the
// source other than cancellation are logged and the loop keeps going.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("failed to receive import message", "error", err)
			continue
		}

		if err := c.process(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("dropping import message after retries",
				"key", msg.Key, "attempts", c.config.Attempts, "error", err)
			if err := c.source.Fail(ctx, msg); err != nil {
				c.logger.Error("failed to dead-letter import message", "key", msg.Key, "error", err)
			}
			continue
		}

		if err := c.source.Ack(ctx, msg); err != nil {
			c.logger.Error("failed to ack import message", "key", msg.Key, "error", err)
		}
	}
}

// process runs the bounded retry envelope over a single message.
func (c *Consumer) process(ctx context.Context, msg *Message) error {
	var envelope Envelope
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
		// A payload that does not parse never will; no point retrying.
		return fmt.Errorf("malformed import payload: %w", err)
	}
	originID := ""
	if envelope.Entry.OriginID != nil {
		originID = *envelope.Entry.OriginID
	}

	delay := c.config.InitialDelay
	var lastErr error
	for attempt := 1; attempt <= c.config.Attempts; attempt++ {
		id, err := c.importOne(ctx, &envelope)
		if err == nil {
			c.logger.Info("import message processed",
				"key", msg.Key, "entry_id", id, "origin_id", originID)
			return nil
		}

		// At-least-once delivery means a redelivered message may find its
		// entry already imported. That is success, not a dead letter.
		if domain.CodeOf(err) == domain.CodeDuplicateOriginID {
			c.logger.Info("import message already processed",
				"key", msg.Key, "origin_id", originID)
			return nil
		}
		if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrNotFound) ||
			errors.Is(err, domain.ErrConflict) {
			// Bad data stays bad; retrying only delays the dead letter.
			return err
		}

		lastErr = err
		if attempt < c.config.Attempts {
			c.logger.Warn("import attempt failed, retrying",
				"key", msg.Key, "attempt", attempt, "delay", delay, "error", err)
			if err := sleep(ctx, delay); err != nil {
				return err
			}
			delay *= 2
			if delay > c.config.MaxDelay {
				delay = c.config.MaxDelay
			}
		}
	}
	return lastErr
}

func (c *Consumer) importOne(ctx context.Context, envelope *Envelope) (string, error) {
	uploads := make([]services.AttachmentUpload, 0, len(envelope.Attachments))
	for _, attachment := range envelope.Attachments {
		uploads = append(uploads, services.AttachmentUpload{
			FileName:    attachment.FileName,
			ContentType: attachment.ContentType,
			Content:     bytes.NewReader(attachment.Content),
		})
	}
	return c.service.Import(ctx, envelope.Author, &envelope.Entry, uploads)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
