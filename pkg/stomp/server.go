package stomp

import (
	"bytes"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"strings"
	"sync"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"chat-system/pkg/logger"
)

// HandlerFunc 处理发往应用前缀（如 /app）的 SEND 消息
type HandlerFunc func(msg *Message) error

// PendingMessage 目标用户不在线时暂存的消息
type PendingMessage struct {
	Destination string
	Body        []byte
}

// OfflineStore 用户目的地的离线暂存
// destination 为解析后的代理目的地（如 /queue/messages）
type OfflineStore interface {
	Push(username, destination string, body []byte) error
	Drain(username, destination string) ([]PendingMessage, error)
}

// Server STOMP 分发器：解码入站帧，执行拦截器链，再按目的地前缀路由
type Server struct {
	broker       *SimpleBroker
	appPrefixes  []string
	userPrefix   string
	endpoints    []*Endpoint
	interceptors []ChannelInterceptor
	template     *MessagingTemplate

	mu           sync.RWMutex
	handlers     map[string]HandlerFunc
	sessions     map[string]*Session
	users        map[string]map[string]*Session // username -> sessionID -> session
	offline      OfflineStore
	onConnect    []ConnectListener
	onDisconnect []DisconnectListener

	// 同一用户的连接与断开回调串行执行
	presenceLocks [32]sync.Mutex
}

// ConnectListener 会话连接成功后调用，first 表示该用户此前没有其他已连接会话
type ConnectListener func(sess *Session, first bool)

// DisconnectListener 已连接会话关闭后调用，last 表示该用户已没有其他已连接会话
type DisconnectListener func(sess *Session, last bool)

// NewServer 按固定顺序执行配置并创建分发器
func NewServer(c Configurer) (*Server, error) {
	brokerRegistry := &BrokerRegistry{}
	endpointRegistry := &EndpointRegistry{}
	channel := &ChannelRegistration{}

	c.ConfigureMessageBroker(brokerRegistry)
	c.RegisterStompEndpoints(endpointRegistry)
	c.ConfigureClientInboundChannel(channel)

	if err := brokerRegistry.validate(); err != nil {
		return nil, err
	}
	if len(endpointRegistry.endpoints) == 0 {
		return nil, errors.New("stomp: no endpoint registered")
	}
	for _, e := range endpointRegistry.endpoints {
		if !strings.HasPrefix(e.Path, "/") {
			return nil, fmt.Errorf("stomp: endpoint path %q must start with /", e.Path)
		}
	}

	s := &Server{
		broker:       NewSimpleBroker(brokerRegistry.brokerPrefixes...),
		appPrefixes:  brokerRegistry.appPrefixes,
		userPrefix:   brokerRegistry.userPrefix,
		endpoints:    endpointRegistry.Endpoints(),
		interceptors: channel.InterceptorList(),
		handlers:     make(map[string]HandlerFunc),
		sessions:     make(map[string]*Session),
		users:        make(map[string]map[string]*Session),
	}
	s.template = &MessagingTemplate{server: s}
	return s, nil
}

func (s *Server) Broker() *SimpleBroker { return s.broker }

func (s *Server) Endpoints() []*Endpoint { return append([]*Endpoint(nil), s.endpoints...) }

func (s *Server) Interceptors() []ChannelInterceptor {
	return append([]ChannelInterceptor(nil), s.interceptors...)
}

func (s *Server) ApplicationPrefixes() []string { return append([]string(nil), s.appPrefixes...) }

func (s *Server) UserPrefix() string { return s.userPrefix }

// Template 返回服务端推送用的消息模板
func (s *Server) Template() *MessagingTemplate { return s.template }

// HandleFunc 注册应用处理函数，destination 不含应用前缀，例如 "/chat.send"
func (s *Server) HandleFunc(destination string, h HandlerFunc) {
	s.mu.Lock()
	s.handlers[destination] = h
	s.mu.Unlock()
}

// SetOfflineStore 设置离线暂存，nil 表示不暂存
func (s *Server) SetOfflineStore(store OfflineStore) {
	s.mu.Lock()
	s.offline = store
	s.mu.Unlock()
}

// OnConnect 注册连接建立（CONNECTED 已发送）后的回调
func (s *Server) OnConnect(fn ConnectListener) {
	s.mu.Lock()
	s.onConnect = append(s.onConnect, fn)
	s.mu.Unlock()
}

// OnDisconnect 注册已连接会话关闭后的回调
func (s *Server) OnDisconnect(fn DisconnectListener) {
	s.mu.Lock()
	s.onDisconnect = append(s.onDisconnect, fn)
	s.mu.Unlock()
}

// Open 为新的传输连接创建会话
func (s *Server) Open(conn Conn) *Session {
	sess := newSession(uuid.NewString(), conn)
	s.mu.Lock()
	s.sessions[sess.ID()] = sess
	s.mu.Unlock()
	return sess
}

// SessionCount 当前会话数
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// UserSessions 返回某用户的全部已连接会话
func (s *Server) UserSessions(username string) []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Session, 0, len(s.users[username]))
	for _, sess := range s.users[username] {
		out = append(out, sess)
	}
	return out
}

// ConnectedUsers 当前已连接的用户，每个用户名一项
func (s *Server) ConnectedUsers() []*Principal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Principal, 0, len(s.users))
	for _, sessions := range s.users {
		for _, sess := range sessions {
			if u := sess.User(); u != nil {
				out = append(out, u)
				break
			}
		}
	}
	return out
}

// Receive 处理一条传输层消息，其中可能包含多个帧或心跳
// 返回错误时会话已被关闭
func (s *Server) Receive(sess *Session, payload []byte) error {
	r := frame.NewReader(bytes.NewReader(payload))
	for !sess.Closed() {
		f, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return s.fail(sess, "malformed frame", err)
		}
		if f == nil {
			// 心跳
			continue
		}
		if err := s.handleFrame(sess, f); err != nil {
			return err
		}
	}
	return nil
}

// Close 关闭会话并清理订阅，可重复调用
func (s *Server) Close(sess *Session) {
	if !sess.markClosed() {
		return
	}
	s.broker.RemoveSession(sess.ID())

	// 与 handleConnect 的登记互斥，此后连接状态不再变化
	s.mu.Lock()
	connected, u := sess.Connected(), sess.User()
	s.mu.Unlock()

	if u != nil && connected {
		lock := s.presenceLock(u.Username)
		lock.Lock()
		defer lock.Unlock()
	}

	s.mu.Lock()
	delete(s.sessions, sess.ID())
	last := true
	if u != nil {
		if m := s.users[u.Username]; m != nil {
			delete(m, sess.ID())
			last = len(m) == 0
			if last {
				delete(s.users, u.Username)
			}
		}
	}
	listeners := append([]DisconnectListener{}, s.onDisconnect...)
	s.mu.Unlock()

	if connected {
		for _, fn := range listeners {
			fn(sess, last)
		}
	}
	_ = sess.conn.Close()
}

// presenceLock 按用户名分段的锁
func (s *Server) presenceLock(username string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(username))
	return &s.presenceLocks[h.Sum32()%uint32(len(s.presenceLocks))]
}

func (s *Server) handleFrame(sess *Session, f *frame.Frame) error {
	if f.Command != CommandConnect && f.Command != CommandStomp && !sess.Connected() {
		return s.fail(sess, "not connected", fmt.Errorf("%s before CONNECT", f.Command))
	}

	msg := messageFromFrame(f, sess)
	for _, interceptor := range s.interceptors {
		next, err := interceptor.PreSend(msg)
		if err != nil {
			return s.fail(sess, "access denied", err)
		}
		if next == nil {
			return nil
		}
		msg = next
	}

	var err error
	switch msg.Command {
	case CommandConnect, CommandStomp:
		return s.handleConnect(sess, msg)
	case CommandSubscribe:
		err = s.handleSubscribe(sess, msg)
	case CommandUnsubscribe:
		err = s.handleUnsubscribe(sess, msg)
	case CommandSend:
		err = s.handleSend(msg)
	case CommandDisconnect:
		s.sendReceipt(sess, msg)
		s.Close(sess)
		return nil
	case frame.ACK, frame.NACK, frame.BEGIN, frame.COMMIT, frame.ABORT:
		// 自动确认模式，事务帧只回执
	default:
		err = fmt.Errorf("unsupported command %q", msg.Command)
	}
	if err != nil {
		return s.fail(sess, err.Error(), err)
	}
	s.sendReceipt(sess, msg)
	return nil
}

func (s *Server) handleConnect(sess *Session, msg *Message) error {
	if sess.Connected() {
		return s.fail(sess, "already connected", errors.New("duplicate CONNECT"))
	}
	version := negotiateVersion(msg.Header(HeaderAcceptVersion))
	if version == "" {
		return s.fail(sess, "unsupported protocol version", fmt.Errorf("accept-version %q", msg.Header(HeaderAcceptVersion)))
	}

	resp := frame.New(CommandConnected, HeaderVersion, version, HeaderHeartBeat, "0,0")
	if msg.User != nil {
		resp.Header.Add(HeaderUserName, msg.User.Username)
	}
	if err := sess.send(resp); err != nil {
		s.Close(sess)
		return err
	}

	// 首个会话的判断与回调在用户锁内完成，与同一用户的断开互斥
	if msg.User != nil {
		lock := s.presenceLock(msg.User.Username)
		lock.Lock()
		defer lock.Unlock()
	}

	first := true
	s.mu.Lock()
	// 发送 CONNECTED 期间连接可能已被关闭
	if sess.Closed() {
		s.mu.Unlock()
		return nil
	}
	sess.markConnected(msg.User)
	if msg.User != nil {
		m, ok := s.users[msg.User.Username]
		if !ok {
			m = make(map[string]*Session)
			s.users[msg.User.Username] = m
		}
		first = len(m) == 0
		m[sess.ID()] = sess
	}
	listeners := append([]ConnectListener{}, s.onConnect...)
	s.mu.Unlock()

	logger.Info("STOMP会话已连接",
		zap.String("session_id", sess.ID()),
		zap.String("remote", sess.RemoteAddr()),
		zap.String("version", version),
	)
	for _, fn := range listeners {
		fn(sess, first)
	}
	return nil
}

func (s *Server) handleSubscribe(sess *Session, msg *Message) error {
	id := msg.Header(HeaderID)
	dest := msg.Destination
	if dest == "" || id == "" {
		return errors.New("SUBSCRIBE requires destination and id headers")
	}

	if s.isUserDestination(dest) {
		inner := strings.TrimPrefix(dest, strings.TrimSuffix(s.userPrefix, "/"))
		if !s.broker.Supports(inner) {
			return fmt.Errorf("cannot subscribe to %s", dest)
		}
		if sess.User() == nil {
			return ErrUnauthenticated
		}
		s.broker.Subscribe(sess, id, userQueue(inner, sess.ID()))
		s.flushOffline(sess, inner)
		return nil
	}

	// 会话私有队列只能经由用户目的地订阅
	if !s.broker.Supports(dest) || isUserQueue(dest) {
		return fmt.Errorf("cannot subscribe to %s", dest)
	}
	s.broker.Subscribe(sess, id, dest)
	return nil
}

func (s *Server) handleUnsubscribe(sess *Session, msg *Message) error {
	id := msg.Header(HeaderID)
	if id == "" {
		return errors.New("UNSUBSCRIBE requires id header")
	}
	s.broker.Unsubscribe(sess.ID(), id)
	return nil
}

// handleSend 客户端只能发往应用前缀，代理与用户目的地由服务端经 MessagingTemplate 推送
func (s *Server) handleSend(msg *Message) error {
	dest := msg.Destination
	if dest == "" {
		return errors.New("SEND requires destination header")
	}

	name, ok := s.applicationTarget(dest)
	if !ok {
		return fmt.Errorf("SEND to %s not allowed, use an application destination", dest)
	}
	s.mu.RLock()
	h := s.handlers[name]
	s.mu.RUnlock()
	if h == nil {
		return fmt.Errorf("no handler for %s", dest)
	}
	return h(msg)
}

// sendToUser 投递到用户的全部会话；用户不在线时写入离线暂存
func (s *Server) sendToUser(username, destination string, headers map[string]string, body []byte) int {
	sessions := s.UserSessions(username)
	if len(sessions) == 0 {
		s.mu.RLock()
		store := s.offline
		s.mu.RUnlock()
		if store != nil {
			if err := store.Push(username, destination, body); err != nil {
				logger.Warn("离线消息暂存失败", zap.String("username", username), zap.Error(err))
			}
		}
		return 0
	}

	delivered := 0
	for _, sess := range sessions {
		delivered += s.broker.publishAs(userQueue(destination, sess.ID()), s.userDestination(destination), headers, body)
	}
	return delivered
}

func (s *Server) flushOffline(sess *Session, destination string) {
	s.mu.RLock()
	store := s.offline
	s.mu.RUnlock()
	user := sess.User()
	if store == nil || user == nil {
		return
	}

	pending, err := store.Drain(user.Username, destination)
	if err != nil {
		logger.Warn("读取离线消息失败", zap.String("username", user.Username), zap.Error(err))
		return
	}
	target := userQueue(destination, sess.ID())
	for _, p := range pending {
		s.broker.publishAs(target, s.userDestination(destination), jsonHeaders(), p.Body)
	}
}

func (s *Server) sendReceipt(sess *Session, msg *Message) {
	receipt := msg.Header(HeaderReceipt)
	if receipt == "" {
		return
	}
	_ = sess.send(frame.New(CommandReceipt, HeaderReceiptID, receipt))
}

// fail 发送 ERROR 帧并关闭会话
func (s *Server) fail(sess *Session, message string, cause error) error {
	f := frame.New(CommandError, HeaderMessage, message, HeaderContentType, "text/plain")
	if cause != nil {
		f.Body = []byte(cause.Error())
	}
	_ = sess.send(f)

	logger.Warn("STOMP会话出错",
		zap.String("session_id", sess.ID()),
		zap.String("message", message),
		zap.Error(cause),
	)
	s.Close(sess)

	if cause == nil {
		return errors.New(message)
	}
	return fmt.Errorf("%s: %w", message, cause)
}

func (s *Server) applicationTarget(dest string) (string, bool) {
	for _, p := range s.appPrefixes {
		if hasPathPrefix(dest, p) {
			return strings.TrimPrefix(dest, strings.TrimSuffix(p, "/")), true
		}
	}
	return "", false
}

func (s *Server) isUserDestination(dest string) bool {
	return s.userPrefix != "" && hasPathPrefix(dest, s.userPrefix)
}

// userDestination 客户端看到的用户目的地，如 /user/queue/messages
func (s *Server) userDestination(destination string) string {
	return strings.TrimSuffix(s.userPrefix, "/") + destination
}

// userQueue 用户目的地在代理中的实际名称
func userQueue(destination, sessionID string) string {
	return destination + userQueueMarker + sessionID
}

const userQueueMarker = "-user"

// isUserQueue 判断目的地是否为某个会话的私有队列
func isUserQueue(destination string) bool {
	return strings.Contains(destination, userQueueMarker)
}

var supportedVersions = []string{"1.2", "1.1", "1.0"}

func negotiateVersion(accept string) string {
	if strings.TrimSpace(accept) == "" {
		return "1.0"
	}
	offered := make(map[string]bool)
	for _, v := range strings.Split(accept, ",") {
		offered[strings.TrimSpace(v)] = true
	}
	for _, v := range supportedVersions {
		if offered[v] {
			return v
		}
	}
	return ""
}
