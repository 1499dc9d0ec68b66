package service

import (
	"context"
	"edu_assistant_backend/pkg/logger"
	"edu_assistant_backend/pkg/monitoring"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait           = 10 * time.Second
	pongWait            = 60 * time.Second
	pingPeriod          = (pongWait * 9) / 10
	maxMessageSize      = 512
	shardCount          = 16
	notificationChannel = "notification_channel"
)

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// pubSubMessage 跨实例广播的信封，Payload 为已序列化的 WSMessage
type pubSubMessage struct {
	TargetUsers []uint          `json:"targetUsers"`
	Payload     json.RawMessage `json:"payload"`
}

type Client struct {
	hub     *NotificationHub
	conn    *websocket.Conn
	send    chan []byte
	userID  uint
	limiter *rate.Limiter
}

// 同一用户可以有多个连接（多个标签页）
type shard struct {
	mu      sync.RWMutex
	clients map[uint]map[*Client]struct{}
}

// NotificationHub 向在线学生推送成绩等事件；配置了 Redis 时经 pub/sub 在多实例间扇出
type NotificationHub struct {
	shards     [shardCount]*shard
	register   chan *Client
	unregister chan *Client
	Redis      *redis.Client
	upgrader   websocket.Upgrader
	done       chan struct{}
	stopOnce   sync.Once
}

func NewNotificationHub(rdb *redis.Client, allowedOrigins []string) *NotificationHub {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}

	h := &NotificationHub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		Redis:      rdb,
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(origins) == 0 || origins[origin]
			},
		},
	}
	for i := range h.shards {
		h.shards[i] = &shard{clients: make(map[uint]map[*Client]struct{})}
	}
	return h
}

func (h *NotificationHub) getShard(userID uint) *shard {
	return h.shards[userID%shardCount]
}

// Run 处理连接注册与 Redis 订阅，直到 ctx 结束或调用 Stop
func (h *NotificationHub) Run(ctx context.Context) {
	if h.Redis != nil {
		pubsub := h.Redis.Subscribe(ctx, notificationChannel)
		defer pubsub.Close()
		go func() {
			for msg := range pubsub.Channel() {
				var ps pubSubMessage
				if err := json.Unmarshal([]byte(msg.Payload), &ps); err != nil {
					logger.Log.Error("PubSub unmarshal error", zap.Error(err))
					continue
				}
				h.deliverLocal(ps.TargetUsers, ps.Payload)
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			h.Stop()
			return
		case <-h.done:
			return
		case c := <-h.register:
			s := h.getShard(c.userID)
			s.mu.Lock()
			if s.clients[c.userID] == nil {
				s.clients[c.userID] = make(map[*Client]struct{})
			}
			s.clients[c.userID][c] = struct{}{}
			s.mu.Unlock()
			monitoring.NotificationClients.Inc()
		case c := <-h.unregister:
			h.remove(c)
		}
	}
}

func (h *NotificationHub) remove(c *Client) {
	s := h.getShard(c.userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	conns, ok := s.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := conns[c]; !ok {
		return
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(s.clients, c.userID)
	}
	close(c.send)
	monitoring.NotificationClients.Dec()
}

// Stop 关闭所有本地连接
func (h *NotificationHub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		closed := 0
		for _, s := range h.shards {
			s.mu.Lock()
			for userID, conns := range s.clients {
				for c := range conns {
					close(c.send)
					closed++
				}
				delete(s.clients, userID)
			}
			s.mu.Unlock()
		}
		monitoring.NotificationClients.Set(0)
		logger.Log.Info("NotificationHub stopped", zap.Int("closedConnections", closed))
	})
}

// PushToUsers 有 Redis 时发布到频道由各实例投递，否则只投递本地连接
func (h *NotificationHub) PushToUsers(userIDs []uint, msg WSMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		logger.Log.Error("Notification marshal error", zap.Error(err), zap.String("type", msg.Type))
		return
	}
	monitoring.NotificationsPushed.WithLabelValues(msg.Type).Inc()

	if h.Redis != nil {
		envelope, _ := json.Marshal(pubSubMessage{TargetUsers: userIDs, Payload: payload})
		if err := h.Redis.Publish(context.Background(), notificationChannel, envelope).Err(); err == nil {
			return
		} else {
			logger.Log.Warn("Notification publish failed, delivering locally", zap.Error(err))
		}
	}
	h.deliverLocal(userIDs, payload)
}

// deliverLocal 发送缓冲已满的连接直接丢弃该消息
func (h *NotificationHub) deliverLocal(userIDs []uint, payload []byte) {
	for _, id := range userIDs {
		s := h.getShard(id)
		s.mu.RLock()
		for c := range s.clients[id] {
			select {
			case c.send <- payload:
			default:
			}
		}
		s.mu.RUnlock()
	}
}

// trySend 仅当连接仍在注册表中时发送，避免写入已关闭的 send
func (h *NotificationHub) trySend(c *Client, payload []byte) {
	s := h.getShard(c.userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.clients[c.userID][c]; !ok {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

func (h *NotificationHub) IsUserOnline(userID uint) bool {
	s := h.getShard(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients[userID]) > 0
}

// ServeWs 升级连接并注册客户端
func (h *NotificationHub) ServeWs(w http.ResponseWriter, r *http.Request, userID uint) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("WebSocket upgrade failed", zap.Error(err), zap.Uint("userId", userID))
		return
	}
	c := &Client{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, 64),
		userID:  userID,
		limiter: rate.NewLimiter(rate.Limit(5), 10),
	}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// readPump 客户端只会发送 ping，其余消息忽略
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	pong, _ := json.Marshal(WSMessage{Type: "pong"})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Warn("WebSocket unexpected close", zap.Error(err), zap.Uint("userId", c.userID))
			}
			return
		}
		if !c.limiter.Allow() {
			continue
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil || msg.Type != "ping" {
			continue
		}
		c.hub.trySend(c, pong)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
