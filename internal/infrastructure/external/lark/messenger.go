package lark

import (
	"context"
	"encoding/json"
	"fmt"

	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/garyjia/groupware-approval/internal/application/port"
	"github.com/garyjia/groupware-approval/internal/domain/entity"
	"github.com/garyjia/groupware-approval/internal/infrastructure/notify"
)

// DefaultReceiveIDType addresses recipients by their tenant user ID
const DefaultReceiveIDType = "user_id"

// MessageCreator is the slice of the IM API the messenger needs
type MessageCreator interface {
	Create(ctx context.Context, req *larkim.CreateMessageReq, options ...larkcore.RequestOptionFunc) (*larkim.CreateMessageResp, error)
}

// Renderer turns a notification into title and body text
type Renderer interface {
	Render(n *entity.Notification) (*notify.Message, error)
}

// Messenger implements port.MessageSender over Lark IM
type Messenger struct {
	api           MessageCreator
	renderer      Renderer
	receiveIDType string
	logger        *zap.Logger
}

// NewMessenger creates a Lark-backed message sender
func NewMessenger(client *SDKClient, renderer Renderer, receiveIDType string, logger *zap.Logger) *Messenger {
	return NewMessengerWithAPI(client.GetClient().Im.Message, renderer, receiveIDType, logger)
}

// NewMessengerWithAPI creates a messenger on an explicit IM message API
func NewMessengerWithAPI(api MessageCreator, renderer Renderer, receiveIDType string, logger *zap.Logger) *Messenger {
	if receiveIDType == "" {
		receiveIDType = DefaultReceiveIDType
	}
	return &Messenger{
		api:           api,
		renderer:      renderer,
		receiveIDType: receiveIDType,
		logger:        logger,
	}
}

// Send renders the notification and posts it to the recipient
func (m *Messenger) Send(ctx context.Context, n *entity.Notification) error {
	if n.Recipient == "" {
		return fmt.Errorf("recipient cannot be empty")
	}

	_, req, err := m.buildRequest(n)
	if err != nil {
		return err
	}

	resp, err := m.api.Create(ctx, req)
	if err != nil {
		m.logger.Error("Failed to send message",
			zap.Int64("notification_id", n.ID),
			zap.String("receive_id", n.Recipient),
			zap.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}

	if !resp.Success() {
		m.logger.Error("API returned failure",
			zap.Int64("notification_id", n.ID),
			zap.String("receive_id", n.Recipient),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}

	m.logger.Info("Message sent successfully",
		zap.Int64("notification_id", n.ID),
		zap.String("message_id", messageID),
		zap.String("receive_id", n.Recipient))
	return nil
}

// buildRequest renders the notification into a post body and the create request
// carrying it. The built request does not expose its body.
func (m *Messenger) buildRequest(n *entity.Notification) (*larkim.CreateMessageReqBody, *larkim.CreateMessageReq, error) {
	msg, err := m.renderer.Render(n)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to render notification: %w", err)
	}

	content, err := postContent(msg)
	if err != nil {
		return nil, nil, err
	}

	body := larkim.NewCreateMessageReqBodyBuilder().
		ReceiveId(n.Recipient).
		MsgType("post").
		Content(content).
		Build()
	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(m.receiveIDType).
		Body(body).
		Build()
	return body, req, nil
}

type postElement struct {
	Tag  string `json:"tag"`
	Text string `json:"text"`
}

type postBody struct {
	Title   string          `json:"title"`
	Content [][]postElement `json:"content"`
}

// postContent builds the rich-text message payload
func postContent(msg *notify.Message) (string, error) {
	payload := map[string]postBody{
		"en_us": {
			Title:   msg.Title,
			Content: [][]postElement{{{Tag: "text", Text: msg.Body}}},
		},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal message content: %w", err)
	}
	return string(data), nil
}

var _ port.MessageSender = (*Messenger)(nil)
