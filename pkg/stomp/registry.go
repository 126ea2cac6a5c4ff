package stomp

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// Configurer 描述一个 STOMP 消息代理的完整配置
// NewServer 固定按 ConfigureMessageBroker -> RegisterStompEndpoints -> ConfigureClientInboundChannel 的顺序调用
type Configurer interface {
	ConfigureMessageBroker(registry *BrokerRegistry)
	RegisterStompEndpoints(registry *EndpointRegistry)
	ConfigureClientInboundChannel(registration *ChannelRegistration)
}

// BrokerRegistry 代理与目的地前缀配置
type BrokerRegistry struct {
	brokerPrefixes []string
	appPrefixes    []string
	userPrefix     string
}

// EnableSimpleBroker 启用内存代理并指定其负责的前缀
func (r *BrokerRegistry) EnableSimpleBroker(prefixes ...string) *BrokerRegistry {
	r.brokerPrefixes = append(r.brokerPrefixes, prefixes...)
	return r
}

// SetApplicationDestinationPrefixes 发往应用处理函数的前缀
func (r *BrokerRegistry) SetApplicationDestinationPrefixes(prefixes ...string) *BrokerRegistry {
	r.appPrefixes = append([]string(nil), prefixes...)
	return r
}

// SetUserDestinationPrefix 用户私有目的地前缀
func (r *BrokerRegistry) SetUserDestinationPrefix(prefix string) *BrokerRegistry {
	r.userPrefix = prefix
	return r
}

func (r *BrokerRegistry) BrokerPrefixes() []string { return append([]string(nil), r.brokerPrefixes...) }

func (r *BrokerRegistry) ApplicationPrefixes() []string { return append([]string(nil), r.appPrefixes...) }

func (r *BrokerRegistry) UserPrefix() string { return r.userPrefix }

func (r *BrokerRegistry) validate() error {
	if len(r.brokerPrefixes) == 0 {
		return errors.New("stomp: simple broker has no destination prefixes")
	}
	all := append(append([]string{}, r.brokerPrefixes...), r.appPrefixes...)
	if r.userPrefix != "" {
		all = append(all, r.userPrefix)
	}
	seen := make(map[string]bool, len(all))
	for _, p := range all {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("stomp: destination prefix %q must start with /", p)
		}
		if seen[p] {
			return fmt.Errorf("stomp: destination prefix %q configured twice", p)
		}
		seen[p] = true
	}
	return nil
}

// Endpoint 一个 STOMP 连接端点
type Endpoint struct {
	Path                  string
	AllowedOriginPatterns []string
	SockJS                bool
}

// SetAllowedOriginPatterns 允许的 Origin 模式，"*" 表示任意来源
func (e *Endpoint) SetAllowedOriginPatterns(patterns ...string) *Endpoint {
	e.AllowedOriginPatterns = append([]string(nil), patterns...)
	return e
}

// WithSockJS 为不支持原生 WebSocket 的客户端开启 SockJS 回退
func (e *Endpoint) WithSockJS() *Endpoint {
	e.SockJS = true
	return e
}

// OriginAllowed 判断请求的 Origin 是否被允许
// 未携带 Origin 的请求（非浏览器客户端）总是允许
func (e *Endpoint) OriginAllowed(origin string) bool {
	if origin == "" {
		return true
	}
	for _, p := range e.AllowedOriginPatterns {
		if p == "*" || p == origin {
			return true
		}
		if ok, err := path.Match(p, origin); err == nil && ok {
			return true
		}
	}
	return false
}

// EndpointRegistry 端点注册表
type EndpointRegistry struct {
	endpoints []*Endpoint
}

// AddEndpoint 注册一个端点
func (r *EndpointRegistry) AddEndpoint(path string) *Endpoint {
	e := &Endpoint{Path: path}
	r.endpoints = append(r.endpoints, e)
	return e
}

func (r *EndpointRegistry) Endpoints() []*Endpoint { return append([]*Endpoint(nil), r.endpoints...) }

// ChannelRegistration 入站通道的拦截器链
type ChannelRegistration struct {
	interceptors []ChannelInterceptor
}

// Interceptors 追加拦截器，按注册顺序执行
func (c *ChannelRegistration) Interceptors(interceptors ...ChannelInterceptor) *ChannelRegistration {
	for _, i := range interceptors {
		if i != nil {
			c.interceptors = append(c.interceptors, i)
		}
	}
	return c
}

func (c *ChannelRegistration) InterceptorList() []ChannelInterceptor {
	return append([]ChannelInterceptor(nil), c.interceptors...)
}
