// Package chat 配置 STOMP 消息代理并注册聊天相关的应用目的地。
package chat

import (
	"chat-system/config"
	"chat-system/pkg/stomp"
)

const (
	TopicPrefix      = "/topic"
	QueuePrefix      = "/queue"
	AppPrefix        = "/app"
	UserPrefix       = "/user"
	DefaultEndpoint  = "/ws/chat"
	AnyOrigin        = "*"
	PublicTopic      = TopicPrefix + "/public"
	TypingTopic      = TopicPrefix + "/typing"
	PrivateQueue     = QueuePrefix + "/messages"
	ErrorQueue       = QueuePrefix + "/errors"
	PublicChannelID  = 1
	PrivateChannelID = 2
	MaxContentLength = 4000
)

// BrokerConfig 聊天消息代理配置
// 入站拦截器由调用方注入（生产环境为 JWT 认证拦截器）
type BrokerConfig struct {
	inbound        stomp.ChannelInterceptor
	endpoint       string
	allowedOrigins []string
}

var _ stomp.Configurer = (*BrokerConfig)(nil)

// NewBrokerConfig 创建配置，cfg 中未设置的端点与来源使用默认值 /ws/chat 与 *
func NewBrokerConfig(inbound stomp.ChannelInterceptor, cfg config.WebSocketConfig) *BrokerConfig {
	c := &BrokerConfig{
		inbound:        inbound,
		endpoint:       cfg.Endpoint,
		allowedOrigins: cfg.AllowedOrigins,
	}
	if c.endpoint == "" {
		c.endpoint = DefaultEndpoint
	}
	if len(c.allowedOrigins) == 0 {
		c.allowedOrigins = []string{AnyOrigin}
	}
	return c
}

// ConfigureMessageBroker 内存代理负责 /topic 与 /queue，应用前缀 /app，用户前缀 /user
func (c *BrokerConfig) ConfigureMessageBroker(r *stomp.BrokerRegistry) {
	r.EnableSimpleBroker(TopicPrefix, QueuePrefix)
	r.SetApplicationDestinationPrefixes(AppPrefix)
	r.SetUserDestinationPrefix(UserPrefix)
}

// RegisterStompEndpoints 注册连接端点并开启 SockJS 回退
func (c *BrokerConfig) RegisterStompEndpoints(r *stomp.EndpointRegistry) {
	r.AddEndpoint(c.endpoint).
		SetAllowedOriginPatterns(c.allowedOrigins...).
		WithSockJS()
}

// ConfigureClientInboundChannel 所有入站消息经过注入的拦截器
func (c *BrokerConfig) ConfigureClientInboundChannel(r *stomp.ChannelRegistration) {
	r.Interceptors(c.inbound)
}
