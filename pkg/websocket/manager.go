package websocket

import (
	"sort"
	"sync"

	"chat-system/pkg/stomp"
)

// Manager 管理所有在线的传输连接
// 以会话ID索引，并维护用户名到会话的映射
type Manager struct {
	lock  sync.RWMutex
	conns map[string]stomp.Conn
	owner map[string]string              // sessionID -> username
	users map[string]map[string]struct{} // username -> sessionIDs
}

// NewManager 创建连接管理器
func NewManager() *Manager {
	return &Manager{
		conns: make(map[string]stomp.Conn),
		owner: make(map[string]string),
		users: make(map[string]map[string]struct{}),
	}
}

// Add 添加新连接
func (m *Manager) Add(sessionID string, conn stomp.Conn) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.conns[sessionID] = conn
}

// Bind 认证成功后将会话绑定到用户
func (m *Manager) Bind(sessionID, username string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if _, ok := m.conns[sessionID]; !ok {
		return
	}
	m.owner[sessionID] = username
	set, ok := m.users[username]
	if !ok {
		set = make(map[string]struct{})
		m.users[username] = set
	}
	set[sessionID] = struct{}{}
}

// Remove 移除连接
func (m *Manager) Remove(sessionID string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.conns, sessionID)
	username, ok := m.owner[sessionID]
	if !ok {
		return
	}
	delete(m.owner, sessionID)
	if set := m.users[username]; set != nil {
		delete(set, sessionID)
		if len(set) == 0 {
			delete(m.users, username)
		}
	}
}

// Count 当前连接数
func (m *Manager) Count() int {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return len(m.conns)
}

// IsOnline 判断用户是否至少有一个连接
func (m *Manager) IsOnline(username string) bool {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return len(m.users[username]) > 0
}

// OnlineUsers 在线用户名，按字典序
func (m *Manager) OnlineUsers() []string {
	m.lock.RLock()
	out := make([]string, 0, len(m.users))
	for name := range m.users {
		out = append(out, name)
	}
	m.lock.RUnlock()
	sort.Strings(out)
	return out
}

// CloseAll 关闭全部连接，用于优雅退出
func (m *Manager) CloseAll() {
	m.lock.RLock()
	conns := make([]stomp.Conn, 0, len(m.conns))
	for _, c := range m.conns {
		conns = append(conns, c)
	}
	m.lock.RUnlock()

	for _, c := range conns {
		_ = c.Close()
	}
}
