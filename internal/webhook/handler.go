// Package webhook is the inbound boundary: it authenticates chat platform
// deliveries, deduplicates redelivered events and hands the decoded
// submission or decision to the event router.
package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EventRouter receives decoded workflow events
type EventRouter interface {
	OnSubmissionMessage(ctx context.Context, senderID, text, replyTo string) error
	OnDecisionCallback(ctx context.Context, payload string) error
}

// Deduper reports whether an event id has been seen before
type Deduper interface {
	MarkProcessed(ctx context.Context, eventID string) (bool, error)
}

const (
	eventTypeMessage    = "im.message.receive_v1"
	eventTypeCardAction = "card.action.trigger"
)

// Handler handles webhook requests
type Handler struct {
	verifier *Verifier
	router   EventRouter
	deduper  Deduper
	logger   *zap.Logger
}

// NewHandler creates a new webhook handler
func NewHandler(verifier *Verifier, router EventRouter, deduper Deduper, logger *zap.Logger) *Handler {
	return &Handler{
		verifier: verifier,
		router:   router,
		deduper:  deduper,
		logger:   logger,
	}
}

// Event is the chat platform event envelope
type Event struct {
	Schema string          `json:"schema"`
	Header EventHeader     `json:"header"`
	Event  json.RawMessage `json:"event"`
}

// EventHeader contains event metadata
type EventHeader struct {
	EventID    string `json:"event_id"`
	EventType  string `json:"event_type"`
	CreateTime string `json:"create_time"`
	Token      string `json:"token"`
	AppID      string `json:"app_id"`
}

type messageEvent struct {
	Sender struct {
		SenderID struct {
			OpenID string `json:"open_id"`
		} `json:"sender_id"`
	} `json:"sender"`
	Message struct {
		MessageID   string `json:"message_id"`
		MessageType string `json:"message_type"`
		Content     string `json:"content"`
	} `json:"message"`
}

type cardActionEvent struct {
	Operator struct {
		OpenID string `json:"open_id"`
	} `json:"operator"`
	Action struct {
		Value struct {
			Payload string `json:"payload"`
		} `json:"value"`
	} `json:"action"`
}

// Handle processes incoming webhook requests
func (h *Handler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Error("Failed to read request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	timestamp := c.GetHeader("X-Lark-Request-Timestamp")
	nonce := c.GetHeader("X-Lark-Request-Nonce")
	signature := c.GetHeader("X-Lark-Signature")

	// Reject forged deliveries before decoding anything.
	if !h.verifier.VerifySignature(timestamp, nonce, signature, string(body)) {
		h.logger.Warn("Invalid webhook signature",
			zap.String("timestamp", timestamp),
			zap.String("nonce", nonce))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
		return
	}

	// Encrypted payloads arrive as {"encrypt": "..."}.
	var encrypted struct {
		Encrypt string `json:"encrypt"`
	}
	if err := json.Unmarshal(body, &encrypted); err == nil && encrypted.Encrypt != "" {
		plain, err := h.verifier.DecryptData(encrypted.Encrypt)
		if err != nil {
			h.logger.Error("Failed to decrypt event payload", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to decrypt payload"})
			return
		}
		body = []byte(plain)
	}

	var challengeCheck struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(body, &challengeCheck); err == nil && challengeCheck.Type == "url_verification" {
		challenge, err := h.verifier.VerifyChallenge(body)
		if err != nil {
			h.logger.Error("Challenge verification failed", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Challenge verification failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"challenge": challenge})
		return
	}

	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		h.logger.Error("Failed to parse event", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse event"})
		return
	}

	if event.Header.EventID != "" {
		fresh, err := h.deduper.MarkProcessed(c.Request.Context(), event.Header.EventID)
		if err != nil {
			h.logger.Error("Failed to check event dedup ledger",
				zap.String("event_id", event.Header.EventID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ledger unavailable"})
			return
		}
		if !fresh {
			c.JSON(http.StatusOK, gin.H{"message": "Duplicate delivery ignored"})
			return
		}
	}

	h.logger.Info("Received event",
		zap.String("event_id", event.Header.EventID),
		zap.String("event_type", event.Header.EventType))

	// Processing is synchronous: a slow sheet or send simply delays this
	// delivery's response. Workflow-level failures never change the reply;
	// the platform should not retry them.
	switch event.Header.EventType {
	case eventTypeMessage:
		h.handleMessage(c.Request.Context(), event.Event)
	case eventTypeCardAction:
		h.handleCardAction(c.Request.Context(), event.Event)
	default:
		h.logger.Info("Ignoring unsupported event type",
			zap.String("event_type", event.Header.EventType))
	}

	c.JSON(http.StatusOK, gin.H{"message": "Event received"})
}

func (h *Handler) handleMessage(ctx context.Context, raw json.RawMessage) {
	var evt messageEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		h.logger.Error("Failed to decode message event", zap.Error(err))
		return
	}
	if evt.Message.MessageType != "text" {
		return
	}

	// Text message content is a nested JSON document: {"text": "..."}.
	var content struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(evt.Message.Content), &content); err != nil {
		h.logger.Error("Failed to decode message content", zap.Error(err))
		return
	}

	if err := h.router.OnSubmissionMessage(ctx, evt.Sender.SenderID.OpenID, content.Text, evt.Message.MessageID); err != nil {
		h.logger.Error("Submission handling failed",
			zap.String("sender_id", evt.Sender.SenderID.OpenID), zap.Error(err))
	}
}

func (h *Handler) handleCardAction(ctx context.Context, raw json.RawMessage) {
	var evt cardActionEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		h.logger.Error("Failed to decode card action event", zap.Error(err))
		return
	}

	if err := h.router.OnDecisionCallback(ctx, evt.Action.Value.Payload); err != nil {
		h.logger.Error("Decision handling failed", zap.Error(err))
	}
}
