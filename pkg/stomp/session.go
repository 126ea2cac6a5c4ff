package stomp

import (
	"bytes"
	"sync"

	"github.com/go-stomp/stomp/v3/frame"
)

// Conn 传输层连接，一次 Send 对应一条完整的 STOMP 帧
// 实现需保证并发安全
type Conn interface {
	Send(data []byte) error
	Close() error
	RemoteAddr() string
}

// Session 一条 STOMP 连接的状态
type Session struct {
	id   string
	conn Conn

	mu        sync.RWMutex
	user      *Principal
	connected bool
	closed    bool
}

func newSession(id string, conn Conn) *Session {
	return &Session{id: id, conn: conn}
}

func (s *Session) ID() string { return s.id }

// User 返回认证后的用户，未认证时为 nil
func (s *Session) User() *Principal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// RemoteAddr 对端地址
func (s *Session) RemoteAddr() string {
	return s.conn.RemoteAddr()
}

func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

func (s *Session) markConnected(user *Principal) {
	s.mu.Lock()
	s.user = user
	s.connected = true
	s.mu.Unlock()
}

func (s *Session) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// markClosed 返回是否为首次关闭
func (s *Session) markClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	return true
}

// send 编码并发送一帧
func (s *Session) send(f *frame.Frame) error {
	var buf bytes.Buffer
	if err := frame.NewWriter(&buf).Write(f); err != nil {
		return err
	}
	return s.conn.Send(buf.Bytes())
}
