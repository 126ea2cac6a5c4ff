package stomp

import (
	"encoding/json"
	"fmt"
)

// MessagingTemplate 服务端主动推送
type MessagingTemplate struct {
	server *Server
}

func jsonHeaders() map[string]string {
	return map[string]string{HeaderContentType: "application/json"}
}

// ConvertAndSend JSON 序列化后发布到代理目的地，返回投递数
func (t *MessagingTemplate) ConvertAndSend(destination string, payload interface{}) (int, error) {
	if !t.server.broker.Supports(destination) {
		return 0, fmt.Errorf("stomp: %s is not a broker destination", destination)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("stomp: encode payload: %w", err)
	}
	return t.server.broker.Publish(destination, jsonHeaders(), body), nil
}

// ConvertAndSendToUser 推送到用户目的地，例如 ("bob", "/queue/messages")
// 用户不在线时写入离线暂存（若已配置）
func (t *MessagingTemplate) ConvertAndSendToUser(username, destination string, payload interface{}) (int, error) {
	if !t.server.broker.Supports(destination) {
		return 0, fmt.Errorf("stomp: %s is not a broker destination", destination)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("stomp: encode payload: %w", err)
	}
	return t.server.sendToUser(username, destination, jsonHeaders(), body), nil
}
