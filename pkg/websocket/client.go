package websocket

import (
	"errors"
	"sync"
	"time"

	"chat-system/pkg/logger"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 64 * 1024
)

var (
	ErrClientClosed   = errors.New("websocket: client closed")
	ErrSendBufferFull = errors.New("websocket: send buffer full")
)

// Client 一条原生 WebSocket 连接
// 所有写操作都由 writePump 串行完成，Send 只负责入队
type Client struct {
	Conn *websocket.Conn

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewClient 创建连接包装，buffer 为发送队列长度
func NewClient(conn *websocket.Conn, buffer int) *Client {
	if buffer <= 0 {
		buffer = 256
	}
	return &Client{
		Conn: conn,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

// Send 将一帧放入发送队列，队列满时丢弃并返回 ErrSendBufferFull
func (c *Client) Send(data []byte) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrClientClosed
	default:
		return ErrSendBufferFull
	}
}

// Close 通知写协程发送完剩余帧后关闭连接，可重复调用
func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

func (c *Client) RemoteAddr() string {
	return c.Conn.RemoteAddr().String()
}

// writePump 写协程：发送队列中的帧，定时发送 ping
func (c *Client) writePump(pingInterval time.Duration) {
	var tick <-chan time.Time
	if pingInterval > 0 {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		tick = ticker.C
	}
	defer c.Conn.Close()

	for {
		select {
		case msg := <-c.send:
			if err := c.write(msg); err != nil {
				logger.Debug("WebSocket写入失败", zap.String("remote", c.RemoteAddr()), zap.Error(err))
				_ = c.Close()
				return
			}
		case <-tick:
			if err := c.Conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait)); err != nil {
				_ = c.Close()
				return
			}
		case <-c.done:
			c.flush()
			_ = c.Conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// flush 关闭前写出已入队的帧（例如 ERROR 帧）
func (c *Client) flush() {
	for {
		select {
		case msg := <-c.send:
			if err := c.write(msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) write(msg []byte) error {
	_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteMessage(websocket.TextMessage, msg)
}
