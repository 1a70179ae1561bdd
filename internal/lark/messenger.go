package lark

import (
	"context"
	"encoding/json"
	"fmt"

	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/garyjia/leave-approval/internal/notify"
)

// Messenger implements notify.Messenger over the Lark IM API.
// Replies are bound to the inbound message id; pushes address a user's
// open_id. Messages with buttons are sent as interactive cards whose action
// values carry the opaque callback payload.
type Messenger struct {
	client *Client
	logger *zap.Logger
}

// NewMessenger creates a new Lark messenger
func NewMessenger(client *Client, logger *zap.Logger) *Messenger {
	return &Messenger{
		client: client,
		logger: logger,
	}
}

// Reply answers the in-flight delivery identified by replyTo with plain text
func (m *Messenger) Reply(ctx context.Context, replyTo, text string) error {
	if replyTo == "" {
		return fmt.Errorf("replyTo cannot be empty")
	}

	content, err := textContent(text)
	if err != nil {
		return err
	}

	req := larkim.NewReplyMessageReqBuilder().
		MessageId(replyTo).
		Body(larkim.NewReplyMessageReqBodyBuilder().
			MsgType("text").
			Content(content).
			Build()).
		Build()

	resp, err := m.client.client.Im.Message.Reply(ctx, req)
	if err != nil {
		m.logger.Error("Failed to reply message",
			zap.String("reply_to", replyTo), zap.Error(err))
		return fmt.Errorf("reply message: %w", err)
	}
	if !resp.Success() {
		m.logger.Error("Reply API returned failure",
			zap.String("reply_to", replyTo),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("reply API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	return nil
}

// Push sends a message to an arbitrary user. With buttons present the
// message becomes an interactive card carrying up to two quick actions.
func (m *Messenger) Push(ctx context.Context, userID, text string, buttons []notify.Button) error {
	if userID == "" {
		return fmt.Errorf("userID cannot be empty")
	}

	msgType := "text"
	var content string
	var err error
	if len(buttons) > 0 {
		msgType = "interactive"
		content, err = cardContent(text, buttons)
	} else {
		content, err = textContent(text)
	}
	if err != nil {
		return err
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType("open_id").
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(userID).
			MsgType(msgType).
			Content(content).
			Build()).
		Build()

	resp, err := m.client.client.Im.Message.Create(ctx, req)
	if err != nil {
		m.logger.Error("Failed to push message",
			zap.String("receive_id", userID), zap.Error(err))
		return fmt.Errorf("push message: %w", err)
	}
	if !resp.Success() {
		m.logger.Error("Push API returned failure",
			zap.String("receive_id", userID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("push API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	m.logger.Info("Message pushed",
		zap.String("receive_id", userID),
		zap.String("msg_type", msgType))
	return nil
}

func textContent(text string) (string, error) {
	raw, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", fmt.Errorf("marshal text content: %w", err)
	}
	return string(raw), nil
}

// cardContent builds an interactive card: the message body plus one action
// row. Each button's value carries the callback payload echoed back by the
// card action webhook.
func cardContent(text string, buttons []notify.Button) (string, error) {
	actions := make([]map[string]interface{}, 0, len(buttons))
	for _, b := range buttons {
		actions = append(actions, map[string]interface{}{
			"tag":  "button",
			"text": map[string]string{"tag": "plain_text", "content": b.Label},
			"type": "primary",
			"value": map[string]string{
				"payload": b.Payload,
			},
		})
	}

	card := map[string]interface{}{
		"config": map[string]bool{"wide_screen_mode": true},
		"elements": []interface{}{
			map[string]interface{}{
				"tag":  "div",
				"text": map[string]string{"tag": "lark_md", "content": text},
			},
			map[string]interface{}{
				"tag":     "action",
				"actions": actions,
			},
		},
	}

	raw, err := json.Marshal(card)
	if err != nil {
		return "", fmt.Errorf("marshal card content: %w", err)
	}
	return string(raw), nil
}
