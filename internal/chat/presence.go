package chat

import (
	"context"
	"net"
	"time"

	"chat-system/internal/model"
	"chat-system/pkg/logger"
	"chat-system/pkg/stomp"

	"go.uber.org/zap"
)

// PresenceUpdater 持久化用户在线状态
type PresenceUpdater interface {
	SetOnline(id uint, username string, online bool) error
}

// PresenceCache 在线状态缓存的续期与清理
type PresenceCache interface {
	RefreshUserPresence(userID uint) error
	CleanExpiredPresence() (int, error)
}

// Presence 跟随 STOMP 会话维护在线状态、审计记录与上下线广播
// 在线状态以用户为单位：首个会话上线，最后一个会话断开后下线
type Presence struct {
	server   *stomp.Server
	users    PresenceUpdater
	activity ActivityRecorder
	chat     *Handler
}

// RegisterPresence 注册连接与断开回调，activity 可为 nil
func RegisterPresence(server *stomp.Server, chat *Handler, users PresenceUpdater, activity ActivityRecorder) *Presence {
	p := &Presence{server: server, users: users, activity: activity, chat: chat}
	server.OnConnect(p.connected)
	server.OnDisconnect(p.disconnected)
	return p
}

func (p *Presence) connected(sess *stomp.Session, first bool) {
	u := sess.User()
	if u == nil {
		return
	}
	p.record(u, model.ActionConnect, sess)
	if !first {
		return
	}
	if err := p.users.SetOnline(u.UserID, u.Username, true); err != nil {
		logger.Warn("更新在线状态失败", zap.Uint("user_id", u.UserID), zap.Error(err))
	}
	p.chat.Join(u)
}

func (p *Presence) disconnected(sess *stomp.Session, last bool) {
	u := sess.User()
	if u == nil {
		return
	}
	p.record(u, model.ActionDisconnect, sess)
	if !last {
		return
	}
	if err := p.users.SetOnline(u.UserID, u.Username, false); err != nil {
		logger.Warn("更新离线状态失败", zap.Uint("user_id", u.UserID), zap.Error(err))
	}
	p.chat.Leave(u)
}

func (p *Presence) record(u *stomp.Principal, action string, sess *stomp.Session) {
	if p.activity == nil || u.UserID == 0 {
		return
	}
	_ = p.activity.Record(u.UserID, action, model.EntityUser, u.UserID, "session "+sess.ID(), remoteIP(sess.RemoteAddr()))
}

// Maintain 定期为已连接用户续期缓存并清理过期记录，ctx 取消后返回
func (p *Presence) Maintain(ctx context.Context, cache PresenceCache, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweep(cache)
		}
	}
}

func (p *Presence) sweep(cache PresenceCache) {
	for _, u := range p.server.ConnectedUsers() {
		if cache.RefreshUserPresence(u.UserID) == nil {
			continue
		}
		// 缓存已过期，重新写入
		if err := p.users.SetOnline(u.UserID, u.Username, true); err != nil {
			logger.Warn("恢复在线状态失败", zap.Uint("user_id", u.UserID), zap.Error(err))
		}
	}
	n, err := cache.CleanExpiredPresence()
	if err != nil {
		logger.Warn("清理过期在线状态失败", zap.Error(err))
		return
	}
	if n > 0 {
		logger.Info("已清理过期在线状态", zap.Int("count", n))
	}
}

func remoteIP(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
