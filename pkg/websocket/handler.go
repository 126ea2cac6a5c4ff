package websocket

import (
	"net/http"
	"time"

	"chat-system/config"
	"chat-system/pkg/logger"
	"chat-system/pkg/stomp"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/igm/sockjs-go/v3/sockjs"
	"go.uber.org/zap"
)

// stompSubprotocols 原生 WebSocket 握手时协商的 STOMP 子协议
var stompSubprotocols = []string{"v12.stomp", "v11.stomp", "v10.stomp"}

// Handler 将 STOMP 端点挂载到 gin 路由
type Handler struct {
	server  *stomp.Server
	manager *Manager
	cfg     config.WebSocketConfig
}

// NewHandler 创建处理器，并在 STOMP 连接成功后把会话绑定到用户
func NewHandler(server *stomp.Server, manager *Manager, cfg config.WebSocketConfig) *Handler {
	server.OnConnect(func(sess *stomp.Session, _ bool) {
		if u := sess.User(); u != nil {
			manager.Bind(sess.ID(), u.Username)
		}
	})
	return &Handler{server: server, manager: manager, cfg: cfg}
}

// Register 为每个端点注册原生 WebSocket 路由，开启 SockJS 的端点额外注册回退路由
func (h *Handler) Register(router gin.IRouter) {
	for _, ep := range h.server.Endpoints() {
		router.GET(ep.Path, h.native(ep))
		if ep.SockJS {
			router.Any(ep.Path+"/*sockjs", gin.WrapH(h.sockJS(ep)))
		}
		logger.Info("STOMP端点已注册", zap.String("path", ep.Path), zap.Bool("sockjs", ep.SockJS))
	}
}

func (h *Handler) native(ep *stomp.Endpoint) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		Subprotocols: stompSubprotocols,
		CheckOrigin: func(r *http.Request) bool {
			return ep.OriginAllowed(r.Header.Get("Origin"))
		},
	}

	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade 失败时已写回 HTTP 错误
			logger.Warn("WebSocket握手失败", zap.String("client_ip", c.ClientIP()), zap.Error(err))
			return
		}

		client := NewClient(conn, h.cfg.SendBuffer)
		go client.writePump(h.cfg.PingInterval)

		conn.SetReadLimit(maxMessageSize)
		h.refreshDeadline(conn)
		conn.SetPongHandler(func(string) error {
			h.refreshDeadline(conn)
			return nil
		})

		h.serve(client, func() ([]byte, error) {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				return nil, err
			}
			h.refreshDeadline(conn)
			return payload, nil
		})
	}
}

func (h *Handler) refreshDeadline(conn *websocket.Conn) {
	if h.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	}
}

func (h *Handler) sockJS(ep *stomp.Endpoint) http.Handler {
	opts := sockjs.DefaultOptions
	opts.CheckOrigin = func(r *http.Request) bool {
		return ep.OriginAllowed(r.Header.Get("Origin"))
	}
	return sockjs.NewHandler(ep.Path, opts, func(session sockjs.Session) {
		h.serve(&sockJSConn{session: session}, func() ([]byte, error) {
			msg, err := session.Recv()
			if err != nil {
				return nil, err
			}
			return []byte(msg), nil
		})
	})
}

// serve 读循环：每条传输消息交给 STOMP 分发器，出错或断开时清理会话
func (h *Handler) serve(conn stomp.Conn, recv func() ([]byte, error)) {
	sess := h.server.Open(conn)
	h.manager.Add(sess.ID(), conn)
	defer func() {
		h.server.Close(sess)
		h.manager.Remove(sess.ID())
	}()

	for {
		payload, err := recv()
		if err != nil {
			return
		}
		if err := h.server.Receive(sess, payload); err != nil {
			return
		}
	}
}

// sockJSConn 将 SockJS 会话适配为 stomp.Conn
type sockJSConn struct {
	session sockjs.Session
}

func (s *sockJSConn) Send(data []byte) error {
	return s.session.Send(string(data))
}

func (s *sockJSConn) Close() error {
	return s.session.Close(1000, "Normal closure")
}

func (s *sockJSConn) RemoteAddr() string {
	if r := s.session.Request(); r != nil {
		return r.RemoteAddr
	}
	return ""
}
