package stomp

import "errors"

// ErrUnauthenticated 未认证的连接发送了需要认证的帧
var ErrUnauthenticated = errors.New("stomp: unauthenticated")

// ChannelInterceptor 入站消息拦截器，在分发前执行
// 返回错误时拒绝该消息，返回 nil 消息时静默丢弃
type ChannelInterceptor interface {
	PreSend(msg *Message) (*Message, error)
}

// InterceptorFunc 函数形式的拦截器
type InterceptorFunc func(msg *Message) (*Message, error)

func (f InterceptorFunc) PreSend(msg *Message) (*Message, error) {
	return f(msg)
}
