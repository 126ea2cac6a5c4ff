// Package stomp 实现基于 STOMP 帧的简单消息代理：
// 目的地前缀路由、用户目的地解析、入站拦截器链与应用层处理函数。
// 帧编解码使用 go-stomp 的 frame 包，传输层由 pkg/websocket 提供。
package stomp

import (
	"github.com/go-stomp/stomp/v3/frame"
)

// 常用命令
const (
	CommandConnect     = frame.CONNECT
	CommandStomp       = frame.STOMP
	CommandConnected   = frame.CONNECTED
	CommandSend        = frame.SEND
	CommandSubscribe   = frame.SUBSCRIBE
	CommandUnsubscribe = frame.UNSUBSCRIBE
	CommandDisconnect  = frame.DISCONNECT
	CommandMessage     = frame.MESSAGE
	CommandReceipt     = frame.RECEIPT
	CommandError       = frame.ERROR
)

// 常用头
const (
	HeaderDestination   = "destination"
	HeaderID            = "id"
	HeaderSubscription  = "subscription"
	HeaderMessageID     = "message-id"
	HeaderContentType   = "content-type"
	HeaderReceipt       = "receipt"
	HeaderReceiptID     = "receipt-id"
	HeaderAcceptVersion = "accept-version"
	HeaderVersion       = "version"
	HeaderHeartBeat     = "heart-beat"
	HeaderMessage       = "message"
	HeaderUserName      = "user-name"
	HeaderAuthorization = "Authorization"
	HeaderPasscode      = "passcode"
)

// Principal 已认证的连接用户
type Principal struct {
	UserID   uint
	Username string
}

// Message 经过解码的入站消息，拦截器与处理函数都基于它工作
type Message struct {
	Command     string
	Destination string
	Headers     map[string]string
	Body        []byte
	SessionID   string
	User        *Principal
}

// Header 读取原始头，不存在时返回空串
func (m *Message) Header(key string) string {
	if m.Headers == nil {
		return ""
	}
	return m.Headers[key]
}

func messageFromFrame(f *frame.Frame, sess *Session) *Message {
	headers := make(map[string]string)
	for i := 0; f.Header != nil && i < f.Header.Len(); i++ {
		k, v := f.Header.GetAt(i)
		// 重复头以第一个为准
		if _, ok := headers[k]; !ok {
			headers[k] = v
		}
	}
	return &Message{
		Command:     f.Command,
		Destination: headers[HeaderDestination],
		Headers:     headers,
		Body:        f.Body,
		SessionID:   sess.ID(),
		User:        sess.User(),
	}
}
