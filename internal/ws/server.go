package ws

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"dinehub-order-service/internal/auth"
	"dinehub-order-service/internal/config"
	"dinehub-order-service/internal/http/handlers"

	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server fans out order changes over websockets. Each realtime listens on
// one Postgres NOTIFY channel (fired by a trigger on orders) and pushes a
// fresh full-state snapshot to the subscribers keyed by the notify payload.
type Server struct {
	DB     *pgxpool.Pool
	Logger *zap.Logger
	Config config.Config

	orderRealtime   *realtime
	kitchenRealtime *realtime
	driverRealtime  *realtime
}

func New(db *pgxpool.Pool, logger *zap.Logger, cfg config.Config) *Server {
	srv := &Server{DB: db, Logger: logger, Config: cfg}
	srv.orderRealtime = newRealtime(db, logger, "order_updates", srv.orderSnapshot)
	srv.kitchenRealtime = newRealtime(db, logger, "kitchen_updates", srv.kitchenSnapshot)
	srv.driverRealtime = newRealtime(db, logger, "driver_updates", srv.driverSnapshot)
	return srv
}

type wsClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsClient) writeJSON(value any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(value)
}

// snapshotFunc builds the message to push for a subscription key. found
// false means the key no longer resolves to anything watchable.
type snapshotFunc func(ctx context.Context, key string) (message any, found bool)

type realtime struct {
	db       *pgxpool.Pool
	logger   *zap.Logger
	channel  string
	snapshot snapshotFunc

	started sync.Once
	mu      sync.RWMutex
	subs    map[string]map[*wsClient]struct{}
}

func newRealtime(db *pgxpool.Pool, logger *zap.Logger, channel string, snapshot snapshotFunc) *realtime {
	return &realtime{
		db:       db,
		logger:   logger,
		channel:  channel,
		snapshot: snapshot,
		subs:     make(map[string]map[*wsClient]struct{}),
	}
}

func (rt *realtime) ensureStarted() {
	rt.started.Do(func() {
		go rt.listenLoop(context.Background())
	})
}

func (rt *realtime) subscribe(key string, client *wsClient) (unsubscribe func()) {
	key = strings.TrimSpace(key)
	if key == "" {
		return func() {}
	}

	rt.mu.Lock()
	if rt.subs[key] == nil {
		rt.subs[key] = make(map[*wsClient]struct{})
	}
	rt.subs[key][client] = struct{}{}
	rt.mu.Unlock()

	return func() {
		rt.mu.Lock()
		clients := rt.subs[key]
		delete(clients, client)
		if len(clients) == 0 {
			delete(rt.subs, key)
		}
		rt.mu.Unlock()
	}
}

func (rt *realtime) broadcast(key string, message any) {
	key = strings.TrimSpace(key)
	if key == "" {
		return
	}

	rt.mu.RLock()
	clientsMap := rt.subs[key]
	clients := make([]*wsClient, 0, len(clientsMap))
	for c := range clientsMap {
		clients = append(clients, c)
	}
	rt.mu.RUnlock()

	for _, c := range clients {
		if err := c.writeJSON(message); err != nil {
			_ = c.conn.Close()
			rt.mu.Lock()
			if current := rt.subs[key]; current != nil {
				delete(current, c)
				if len(current) == 0 {
					delete(rt.subs, key)
				}
			}
			rt.mu.Unlock()
		}
	}
}

func (rt *realtime) hasSubscribers(key string) bool {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return len(rt.subs[key]) > 0
}

func (rt *realtime) listenLoop(ctx context.Context) {
	backoff := time.Second
	for {
		conn, err := rt.db.Acquire(ctx)
		if err != nil {
			if rt.logger != nil {
				rt.logger.Warn("ws LISTEN acquire failed", zap.String("channel", rt.channel), zap.Error(err))
			}
			time.Sleep(backoff)
			backoff = minDuration(backoff*2, 30*time.Second)
			continue
		}

		_, err = conn.Exec(ctx, `listen `+rt.channel)
		if err != nil {
			conn.Release()
			if rt.logger != nil {
				rt.logger.Warn("ws LISTEN failed", zap.String("channel", rt.channel), zap.Error(err))
			}
			time.Sleep(backoff)
			backoff = minDuration(backoff*2, 30*time.Second)
			continue
		}

		backoff = time.Second
		for {
			n, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				break
			}
			key := strings.TrimSpace(n.Payload)
			if key == "" || !rt.hasSubscribers(key) {
				continue
			}

			message, found := rt.snapshot(ctx, key)
			if !found {
				rt.broadcast(key, map[string]any{"type": "refresh", "key": key})
				continue
			}
			rt.broadcast(key, message)
		}

		conn.Release()
		time.Sleep(backoff)
		backoff = minDuration(backoff*2, 30*time.Second)
	}
}

func (s *Server) orderSnapshot(ctx context.Context, orderNumber string) (any, bool) {
	view, found, err := handlers.FetchPublicOrder(ctx, s.DB, orderNumber)
	if err != nil || !found {
		return nil, false
	}
	return map[string]any{"type": "order.state", "data": view}, true
}

func (s *Server) kitchenSnapshot(ctx context.Context, key string) (any, bool) {
	restaurantID, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return nil, false
	}
	orders, err := handlers.FetchRestaurantOrders(ctx, s.DB, restaurantID, true)
	if err != nil {
		return nil, false
	}
	// Dine-in placement happens through table sends, not order rows; the
	// board shows both.
	tables, err := handlers.FetchKitchenTables(ctx, s.DB, restaurantID)
	if err != nil {
		return nil, false
	}
	return map[string]any{"type": "kitchen.state", "data": map[string]any{
		"orders": orders,
		"tables": tables,
	}}, true
}

func (s *Server) driverSnapshot(ctx context.Context, key string) (any, bool) {
	driverID, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return nil, false
	}
	orders, err := handlers.FetchDriverOrders(ctx, s.DB, driverID)
	if err != nil {
		return nil, false
	}
	return map[string]any{"type": "orders.state", "data": orders}, true
}

// PublicOrderWS streams status changes for one order, keyed by order number.
// No authentication: the order number itself is the capability, exactly as
// for the HTTP tracking endpoint.
func (s *Server) PublicOrderWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	orderNumber := strings.TrimSpace(r.URL.Query().Get("orderNumber"))
	if orderNumber == "" {
		_ = conn.WriteJSON(map[string]any{"type": "error", "message": "invalid request"})
		return
	}

	s.orderRealtime.ensureStarted()
	client := &wsClient{conn: conn}
	unsubscribe := s.orderRealtime.subscribe(orderNumber, client)
	defer unsubscribe()

	// Initial snapshot so the client renders without waiting for a change.
	if message, found := s.orderSnapshot(r.Context(), orderNumber); found {
		_ = client.writeJSON(message)
	} else {
		_ = client.writeJSON(map[string]any{"type": "error", "message": "order not found"})
		return
	}

	s.waitForClose(r.Context(), conn)
}

// KitchenWS streams the owner's active-orders board. The token rides the
// query string because browsers cannot set websocket headers.
func (s *Server) KitchenWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	claims, err := s.verifyToken(r, auth.RoleOwner, auth.RoleWaiter)
	if err != nil || claims.RestaurantID == nil {
		_ = conn.WriteJSON(map[string]any{"type": "error", "message": "unauthorized"})
		return
	}
	key := strconv.FormatInt(*claims.RestaurantID, 10)

	s.kitchenRealtime.ensureStarted()
	client := &wsClient{conn: conn}
	unsubscribe := s.kitchenRealtime.subscribe(key, client)
	defer unsubscribe()

	if message, found := s.kitchenSnapshot(r.Context(), key); found {
		_ = client.writeJSON(message)
	}

	s.waitForClose(r.Context(), conn)
}

// DriverWS streams the caller's assigned deliveries.
func (s *Server) DriverWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	claims, err := s.verifyToken(r, auth.RoleDriver)
	if err != nil {
		_ = conn.WriteJSON(map[string]any{"type": "error", "message": "unauthorized"})
		return
	}
	key := strconv.FormatInt(claims.UserID, 10)

	s.driverRealtime.ensureStarted()
	client := &wsClient{conn: conn}
	unsubscribe := s.driverRealtime.subscribe(key, client)
	defer unsubscribe()

	if message, found := s.driverSnapshot(r.Context(), key); found {
		_ = client.writeJSON(message)
	}

	s.waitForClose(r.Context(), conn)
}

func (s *Server) verifyToken(r *http.Request, roles ...auth.Role) (*auth.Claims, error) {
	token := auth.ParseBearerToken(r.URL.Query().Get("token"))
	claims, err := auth.VerifyAccessToken(token, s.Config.JWTSecret)
	if err != nil {
		return nil, err
	}
	for _, role := range roles {
		if claims.Role == role {
			return claims, nil
		}
	}
	return nil, errForbidden
}

var errForbidden = &websocket.CloseError{Code: websocket.ClosePolicyViolation, Text: "forbidden"}

// waitForClose keeps the connection open until the client goes away or the
// request context ends. Incoming frames are drained and ignored.
func (s *Server) waitForClose(ctx context.Context, conn *websocket.Conn) {
	clientClosed := make(chan struct{})
	go func() {
		defer close(clientClosed)
		for {
			if _, _, readErr := conn.ReadMessage(); readErr != nil {
				return
			}
		}
	}()

	select {
	case <-clientClosed:
	case <-ctx.Done():
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
