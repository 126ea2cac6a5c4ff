package jwt

import (
	"fmt"

	"chat-system/pkg/stomp"
)

// StompInterceptor STOMP 入站认证拦截器
// CONNECT 帧必须在 Authorization 头（Bearer <token>）或 passcode 头中携带访问令牌，
// 认证结果绑定到会话；其余帧要求会话已认证。
func (s *JWTService) StompInterceptor() stomp.ChannelInterceptor {
	return stomp.InterceptorFunc(func(msg *stomp.Message) (*stomp.Message, error) {
		switch msg.Command {
		case stomp.CommandConnect, stomp.CommandStomp:
			token := BearerToken(msg.Header(stomp.HeaderAuthorization))
			if token == "" {
				token = msg.Header(stomp.HeaderPasscode)
			}
			if token == "" {
				return nil, fmt.Errorf("%w: missing bearer token", stomp.ErrUnauthenticated)
			}
			claims, err := s.ValidateAccessToken(token)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", stomp.ErrUnauthenticated, err)
			}
			userID, _ := claims.UserID()
			msg.User = &stomp.Principal{UserID: userID, Username: claims.Username}
			return msg, nil
		case stomp.CommandDisconnect:
			return msg, nil
		default:
			if msg.User == nil {
				return nil, stomp.ErrUnauthenticated
			}
			return msg, nil
		}
	})
}
