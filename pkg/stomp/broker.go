package stomp

import (
	"path"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-stomp/stomp/v3/frame"

	"chat-system/pkg/logger"

	"go.uber.org/zap"
)

type subscription struct {
	id          string
	destination string
	session     *Session
}

// SimpleBroker 内存发布/订阅代理
// 只接受以配置前缀开头的目的地；订阅目的地可以是精确路径，也可以是 path.Match 模式
type SimpleBroker struct {
	prefixes []string

	mu   sync.RWMutex
	subs map[string]map[string]*subscription // sessionID -> subscriptionID -> sub

	seq atomic.Uint64
}

// NewSimpleBroker 创建代理，prefixes 如 "/topic", "/queue"
func NewSimpleBroker(prefixes ...string) *SimpleBroker {
	return &SimpleBroker{
		prefixes: append([]string(nil), prefixes...),
		subs:     make(map[string]map[string]*subscription),
	}
}

// Prefixes 返回代理负责的目的地前缀
func (b *SimpleBroker) Prefixes() []string {
	return append([]string(nil), b.prefixes...)
}

// Supports 判断目的地是否由代理处理
func (b *SimpleBroker) Supports(destination string) bool {
	return matchPrefix(b.prefixes, destination)
}

// Subscribe 注册订阅，同一会话内相同ID会覆盖旧订阅
func (b *SimpleBroker) Subscribe(sess *Session, id, destination string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.subs[sess.ID()]
	if !ok {
		m = make(map[string]*subscription)
		b.subs[sess.ID()] = m
	}
	m[id] = &subscription{id: id, destination: destination, session: sess}
}

// Unsubscribe 取消订阅
func (b *SimpleBroker) Unsubscribe(sessionID, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m, ok := b.subs[sessionID]; ok {
		delete(m, id)
		if len(m) == 0 {
			delete(b.subs, sessionID)
		}
	}
}

// RemoveSession 清理会话的全部订阅
func (b *SimpleBroker) RemoveSession(sessionID string) {
	b.mu.Lock()
	delete(b.subs, sessionID)
	b.mu.Unlock()
}

// SubscriptionCount 当前订阅总数
func (b *SimpleBroker) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, m := range b.subs {
		n += len(m)
	}
	return n
}

// Publish 向所有匹配的订阅推送 MESSAGE 帧，返回成功投递数
// 会话私有队列（含 -user 标记）只投递给精确订阅
func (b *SimpleBroker) Publish(destination string, headers map[string]string, body []byte) int {
	return b.publishAs(destination, destination, headers, body)
}

// publishAs 按 destination 匹配订阅，MESSAGE 帧的 destination 头使用 shown
func (b *SimpleBroker) publishAs(destination, shown string, headers map[string]string, body []byte) int {
	exact := isUserQueue(destination)

	b.mu.RLock()
	targets := make([]*subscription, 0)
	for _, m := range b.subs {
		for _, sub := range m {
			if sub.destination == destination || (!exact && destinationMatches(sub.destination, destination)) {
				targets = append(targets, sub)
			}
		}
	}
	b.mu.RUnlock()

	delivered := 0
	for _, sub := range targets {
		f := frame.New(CommandMessage,
			HeaderDestination, shown,
			HeaderSubscription, sub.id,
			HeaderMessageID, strconv.FormatUint(b.seq.Add(1), 10),
		)
		for k, v := range headers {
			switch k {
			case HeaderDestination, HeaderSubscription, HeaderMessageID, HeaderReceipt, HeaderAuthorization, HeaderPasscode, "content-length":
				continue
			}
			f.Header.Add(k, v)
		}
		f.Body = body

		if err := sub.session.send(f); err != nil {
			logger.Warn("STOMP消息投递失败",
				zap.String("session_id", sub.session.ID()),
				zap.String("destination", destination),
				zap.Error(err),
			)
			continue
		}
		delivered++
	}
	return delivered
}

func destinationMatches(pattern, destination string) bool {
	if pattern == destination {
		return true
	}
	if !strings.ContainsAny(pattern, "*?[") {
		return false
	}
	ok, err := path.Match(pattern, destination)
	return err == nil && ok
}

// matchPrefix 前缀匹配，"/topic" 匹配 "/topic" 与 "/topic/..."
func matchPrefix(prefixes []string, destination string) bool {
	for _, p := range prefixes {
		if hasPathPrefix(destination, p) {
			return true
		}
	}
	return false
}

func hasPathPrefix(destination, prefix string) bool {
	if !strings.HasPrefix(destination, prefix) {
		return false
	}
	rest := destination[len(prefix):]
	return rest == "" || strings.HasPrefix(rest, "/") || strings.HasSuffix(prefix, "/")
}
