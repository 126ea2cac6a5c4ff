package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// -------------------- 运行时监控 --------------------

type SystemStats struct {
	Timestamp  time.Time
	HeapMB     float64
	SysMB      float64
	Goroutines int
	Delivered  int64
}

type Monitor struct {
	mu       sync.Mutex
	stats    []SystemStats
	interval time.Duration
	stopChan chan struct{}
	counter  *int64
}

func NewMonitor(interval time.Duration, counter *int64) *Monitor {
	return &Monitor{
		stats:    make([]SystemStats, 0, 512),
		interval: interval,
		stopChan: make(chan struct{}),
		counter:  counter,
	}
}

func (m *Monitor) collect() SystemStats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	s := SystemStats{
		Timestamp:  time.Now(),
		HeapMB:     float64(ms.HeapAlloc) / 1024 / 1024,
		SysMB:      float64(ms.Sys) / 1024 / 1024,
		Goroutines: runtime.NumGoroutine(),
		Delivered:  atomic.LoadInt64(m.counter),
	}
	m.mu.Lock()
	m.stats = append(m.stats, s)
	m.mu.Unlock()
	return s
}

func (m *Monitor) Start() {
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s := m.collect()
				fmt.Printf("[%s] 堆: %.1fMB | 系统: %.1fMB | Goroutines: %d | 已投递: %d\n",
					s.Timestamp.Format("15:04:05"), s.HeapMB, s.SysMB, s.Goroutines, s.Delivered)
			case <-m.stopChan:
				return
			}
		}
	}()
}

func (m *Monitor) Stop() { close(m.stopChan) }

func (m *Monitor) SaveToFile(filename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	_, _ = f.WriteString("Timestamp,HeapMB,SysMB,Goroutines,Delivered\n")
	for _, s := range m.stats {
		_, _ = fmt.Fprintf(f, "%s,%.2f,%.2f,%d,%d\n",
			s.Timestamp.Format("2006-01-02 15:04:05"), s.HeapMB, s.SysMB, s.Goroutines, s.Delivered)
	}
	return nil
}

// -------------------- 延迟统计 --------------------

type LatencyStats struct {
	mu    sync.Mutex
	count int
	fail  int
	total time.Duration
	max   time.Duration
	min   time.Duration
}

func (s *LatencyStats) Add(ok bool, latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !ok {
		s.fail++
		return
	}
	s.count++
	s.total += latency
	if latency > s.max {
		s.max = latency
	}
	if s.min == 0 || latency < s.min {
		s.min = latency
	}
}

func (s *LatencyStats) Print(title string, took time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Printf("\n=== %s ===\n", title)
	fmt.Printf("成功: %d 失败: %d 耗时: %v\n", s.count, s.fail, took)
	if s.count > 0 {
		fmt.Printf("延迟 平均: %v 最大: %v 最小: %v\n", s.total/time.Duration(s.count), s.max, s.min)
		if took > 0 {
			fmt.Printf("吞吐: %.2f/s\n", float64(s.count)/took.Seconds())
		}
	}
}

// -------------------- HTTP 认证 --------------------

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type authData struct {
	AccessToken string `json:"accessToken"`
	User        struct {
		Username string `json:"username"`
	} `json:"user"`
}

var httpClient = &http.Client{Timeout: 8 * time.Second}

func postJSON(url string, body interface{}, out interface{}) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := httpClient.Post(url, "application/json", bytes.NewReader(buf))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return err
	}
	if env.Code != 0 {
		return fmt.Errorf("code=%d message=%s", env.Code, env.Message)
	}
	return json.Unmarshal(env.Data, out)
}

// signup 注册一个随机用户并返回 access token
func signup(base string, stats *LatencyStats) (string, error) {
	name := "bench_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	start := time.Now()
	var auth authData
	err := postJSON(base+"/api/v1/auth/register", map[string]string{
		"username": name,
		"email":    name + "@bench.local",
		"password": "bench123",
	}, &auth)
	stats.Add(err == nil, time.Since(start))
	return auth.AccessToken, err
}

// -------------------- STOMP 客户端 --------------------

type stompClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func dial(wsURL, token string) (*stompClient, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
		Subprotocols:     []string{"v12.stomp"},
	}
	conn, _, err := dialer.Dial(wsURL, nil)
	if err != nil {
		return nil, err
	}
	c := &stompClient{conn: conn}
	if err := c.write(frame.New(frame.CONNECT,
		frame.AcceptVersion, "1.2",
		frame.Host, "localhost",
		"Authorization", "Bearer "+token,
	)); err != nil {
		conn.Close()
		return nil, err
	}
	f, err := c.read()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if f.Command != frame.CONNECTED {
		conn.Close()
		return nil, fmt.Errorf("unexpected %s: %s", f.Command, f.Header.Get(frame.Message))
	}
	return c, nil
}

func (c *stompClient) write(f *frame.Frame) error {
	var buf bytes.Buffer
	if err := frame.NewWriter(&buf).Write(f); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, buf.Bytes())
}

// read 读取下一个非心跳帧
func (c *stompClient) read() (*frame.Frame, error) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		f, err := frame.NewReader(bytes.NewReader(data)).Read()
		if err != nil {
			return nil, err
		}
		if f != nil {
			return f, nil
		}
	}
}

func (c *stompClient) subscribe(id, destination string) error {
	return c.write(frame.New(frame.SUBSCRIBE, frame.Id, id, frame.Destination, destination))
}

func (c *stompClient) send(destination string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	f := frame.New(frame.SEND, frame.Destination, destination, frame.ContentType, "application/json")
	f.Body = body
	return c.write(f)
}

func (c *stompClient) close() {
	_ = c.write(frame.New(frame.DISCONNECT))
	c.conn.Close()
}

// -------------------- 压测流程 --------------------

type chatMessage struct {
	Type    string `json:"type"`
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

// listen 统计收到的公共频道消息，内容里携带发送时间戳
func listen(c *stompClient, latency *LatencyStats, delivered *int64, done <-chan struct{}) {
	for {
		f, err := c.read()
		if err != nil {
			select {
			case <-done:
			default:
				fmt.Println("读取失败:", err)
			}
			return
		}
		if f.Command != frame.MESSAGE {
			continue
		}
		var msg chatMessage
		if json.Unmarshal(f.Body, &msg) != nil || msg.Type != "CHAT" {
			continue
		}
		sent, err := strconv.ParseInt(strings.TrimPrefix(msg.Content, "bench:"), 10, 64)
		if err != nil {
			continue
		}
		atomic.AddInt64(delivered, 1)
		latency.Add(true, time.Since(time.Unix(0, sent)))
	}
}

func runChatBench(base, wsURL string, users, perUser int, interval time.Duration, delivered *int64) error {
	fmt.Println("\n=== 注册与连接 ===")
	authStats := &LatencyStats{}
	start := time.Now()

	clients := make([]*stompClient, 0, users)
	for i := 0; i < users; i++ {
		token, err := signup(base, authStats)
		if err != nil {
			return fmt.Errorf("注册失败: %w", err)
		}
		c, err := dial(wsURL, token)
		if err != nil {
			return fmt.Errorf("STOMP连接失败: %w", err)
		}
		if err := c.subscribe("sub-public", "/topic/public"); err != nil {
			return err
		}
		clients = append(clients, c)
	}
	authStats.Print("注册结果", time.Since(start))
	if len(clients) == 0 {
		return errors.New("没有可用连接")
	}

	latency := &LatencyStats{}
	done := make(chan struct{})
	var readers sync.WaitGroup
	for _, c := range clients {
		readers.Add(1)
		go func(c *stompClient) {
			defer readers.Done()
			listen(c, latency, delivered, done)
		}(c)
	}

	fmt.Println("\n=== 广播压测开始 ===")
	fmt.Printf("用户: %d 每用户消息: %d 间隔: %v\n", users, perUser, interval)
	start = time.Now()
	var senders sync.WaitGroup
	for _, c := range clients {
		senders.Add(1)
		go func(c *stompClient) {
			defer senders.Done()
			for j := 0; j < perUser; j++ {
				content := fmt.Sprintf("bench:%d", time.Now().UnixNano())
				if err := c.send("/app/chat.send", chatMessage{Type: "CHAT", Content: content}); err != nil {
					fmt.Println("发送失败:", err)
					return
				}
				time.Sleep(interval)
			}
		}(c)
	}
	senders.Wait()

	// 等待投递完成或超时
	expected := int64(users * perUser * users)
	deadline := time.Now().Add(10 * time.Second)
	for atomic.LoadInt64(delivered) < expected && time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)
	}
	took := time.Since(start)

	close(done)
	for _, c := range clients {
		c.close()
	}
	readers.Wait()

	latency.Print("广播投递结果", took)
	fmt.Printf("期望投递: %d 实际投递: %d\n", expected, atomic.LoadInt64(delivered))
	return nil
}

// -------------------- 入口 --------------------

func main() {
	base := flag.String("base", "http://localhost:8080", "HTTP 服务地址")
	endpoint := flag.String("endpoint", "/ws/chat", "STOMP 端点")
	users := flag.Int("users", 5, "并发用户数")
	perUser := flag.Int("messages", 10, "每个用户发送的消息数")
	interval := flag.Duration("interval", 20*time.Millisecond, "发送间隔")
	flag.Parse()

	wsURL := "ws" + strings.TrimPrefix(*base, "http") + *endpoint

	fmt.Println("=== 聊天系统并发与监控测试 ===")
	fmt.Printf("开始时间: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Printf("HTTP: %s WebSocket: %s\n", *base, wsURL)

	var delivered int64
	mon := NewMonitor(time.Second, &delivered)
	mon.Start()

	err := runChatBench(*base, wsURL, *users, *perUser, *interval, &delivered)
	mon.Stop()
	if err != nil {
		fmt.Println("测试失败:", err)
		os.Exit(1)
	}

	if err := mon.SaveToFile("chat_bench.csv"); err != nil {
		fmt.Println("保存监控数据失败:", err)
	} else {
		fmt.Println("监控数据已保存: chat_bench.csv")
	}
	fmt.Println("\n=== 测试完成 ===")
}
