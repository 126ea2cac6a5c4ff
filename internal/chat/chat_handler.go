package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"chat-system/internal/model"
	"chat-system/pkg/logger"
	"chat-system/pkg/stomp"

	"go.uber.org/zap"
)

// MessageType 聊天消息类型
type MessageType string

const (
	TypeChat   MessageType = "CHAT"
	TypeJoin   MessageType = "JOIN"
	TypeLeave  MessageType = "LEAVE"
	TypeTyping MessageType = "TYPING"
	TypeError  MessageType = "ERROR"
)

// ChatMessage 客户端与服务端之间传递的消息体
// Sender 总是由服务端根据连接用户填写
type ChatMessage struct {
	Type      MessageType `json:"type"`
	Sender    string      `json:"sender"`
	Recipient string      `json:"recipient,omitempty"`
	Content   string      `json:"content,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

var (
	errEmptyContent   = errors.New("content is empty")
	errContentTooLong = fmt.Errorf("content exceeds %d characters", MaxContentLength)
	errNoRecipient    = errors.New("recipient is required")
)

// ActivityRecorder 审计记录写入
type ActivityRecorder interface {
	Record(userID uint, action, entityType string, entityID uint, description, ip string) error
}

// Handler 处理 /app/chat.* 目的地
type Handler struct {
	template *stomp.MessagingTemplate
	activity ActivityRecorder
	now      func() time.Time
}

// NewHandler 创建处理器并注册应用目的地，activity 可为 nil
func NewHandler(server *stomp.Server, activity ActivityRecorder) *Handler {
	h := &Handler{
		template: server.Template(),
		activity: activity,
		now:      time.Now,
	}
	server.HandleFunc("/chat.send", h.Send)
	server.HandleFunc("/chat.private", h.Private)
	server.HandleFunc("/chat.typing", h.Typing)
	return h
}

// Send 广播到 /topic/public
func (h *Handler) Send(msg *stomp.Message) error {
	in, err := h.decode(msg)
	if err != nil {
		return h.reject(msg, err)
	}
	if err := validateContent(in.Content); err != nil {
		return h.reject(msg, err)
	}

	out := h.outgoing(TypeChat, msg.User, strings.TrimSpace(in.Content))
	if _, err := h.template.ConvertAndSend(PublicTopic, out); err != nil {
		return err
	}
	h.record(msg.User, model.EntityChannel, PublicChannelID, "public")
	return nil
}

// Private 发送到 /user/{recipient}/queue/messages，同时回显给发送者的其他会话
func (h *Handler) Private(msg *stomp.Message) error {
	in, err := h.decode(msg)
	if err != nil {
		return h.reject(msg, err)
	}
	recipient := strings.TrimSpace(in.Recipient)
	if recipient == "" {
		return h.reject(msg, errNoRecipient)
	}
	if err := validateContent(in.Content); err != nil {
		return h.reject(msg, err)
	}

	out := h.outgoing(TypeChat, msg.User, strings.TrimSpace(in.Content))
	out.Recipient = recipient
	if _, err := h.template.ConvertAndSendToUser(recipient, PrivateQueue, out); err != nil {
		return err
	}
	if recipient != msg.User.Username {
		if _, err := h.template.ConvertAndSendToUser(msg.User.Username, PrivateQueue, out); err != nil {
			return err
		}
	}
	h.record(msg.User, model.EntityChannel, PrivateChannelID, "private to "+recipient)
	return nil
}

// Typing 广播正在输入提示
func (h *Handler) Typing(msg *stomp.Message) error {
	if msg.User == nil {
		return stomp.ErrUnauthenticated
	}
	_, err := h.template.ConvertAndSend(TypingTopic, h.outgoing(TypeTyping, msg.User, ""))
	return err
}

// Join 用户连接后广播上线消息
func (h *Handler) Join(user *stomp.Principal) {
	h.announce(TypeJoin, user)
}

// Leave 用户最后一个会话断开后广播下线消息
func (h *Handler) Leave(user *stomp.Principal) {
	h.announce(TypeLeave, user)
}

func (h *Handler) announce(t MessageType, user *stomp.Principal) {
	if user == nil {
		return
	}
	if _, err := h.template.ConvertAndSend(PublicTopic, h.outgoing(t, user, "")); err != nil {
		logger.Warn("广播上下线消息失败", zap.String("username", user.Username), zap.Error(err))
	}
}

func (h *Handler) decode(msg *stomp.Message) (*ChatMessage, error) {
	if msg.User == nil {
		return nil, stomp.ErrUnauthenticated
	}
	var in ChatMessage
	if len(msg.Body) == 0 {
		return &in, nil
	}
	if err := json.Unmarshal(msg.Body, &in); err != nil {
		return nil, fmt.Errorf("invalid message body: %w", err)
	}
	return &in, nil
}

func (h *Handler) outgoing(t MessageType, user *stomp.Principal, content string) *ChatMessage {
	return &ChatMessage{
		Type:      t,
		Sender:    user.Username,
		Content:   content,
		Timestamp: h.now().UTC(),
	}
}

// reject 把校验错误推送到发送者的 /user/queue/errors，不断开连接
// 未认证错误交回分发器处理
func (h *Handler) reject(msg *stomp.Message, cause error) error {
	if errors.Is(cause, stomp.ErrUnauthenticated) {
		return cause
	}
	out := h.outgoing(TypeError, msg.User, cause.Error())
	_, err := h.template.ConvertAndSendToUser(msg.User.Username, ErrorQueue, out)
	return err
}

func (h *Handler) record(user *stomp.Principal, entityType string, entityID uint, description string) {
	if h.activity == nil || user == nil || user.UserID == 0 {
		return
	}
	_ = h.activity.Record(user.UserID, model.ActionSendMessage, entityType, entityID, description, "")
}

func validateContent(content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return errEmptyContent
	}
	if len([]rune(content)) > MaxContentLength {
		return errContentTooLong
	}
	return nil
}
