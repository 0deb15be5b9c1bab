// Package server 實現井字棋遊戲服務器
//
// 系統設計問題：
//
//	多個客戶端同時連線、登入、在大廳聊天配對、進入獨立的對局房間，
//	如何讓所有房間狀態一致，又不必到處加鎖？
//
// 設計方案：
//
//	✅ 單一主迴圈：每輪依序 接收新連接 → 更新登入/大廳/每個對局房間 → 心跳 → 回收閒置房間
//	✅ 主迴圈的一輪就是臨界區的邊界，房間成員與玩家資訊表只在迴圈內修改
//	✅ 監聽 goroutine 只把新連接放進 channel，讀取 goroutine 只搬位元組，都不碰房間狀態
//	✅ 對局房間池：優先重用閒置房間，玩家變少時回收多餘的閒置房間，進行中的房間永不回收
//
// 成員移動：
//
//	MoveToRoom 在同一個呼叫內「移出舊房間 → 更新索引 → 加入新房間」，
//	任何觀察點上一個成員都恰好屬於一個房間。
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/koopa0/system-design/14-game-server/internal/config"
	"github.com/koopa0/system-design/14-game-server/internal/events"
	"github.com/koopa0/system-design/14-game-server/internal/room"
	"github.com/koopa0/system-design/14-game-server/internal/transport"
	apperrors "github.com/koopa0/system-design/14-game-server/pkg/errors"
	"github.com/koopa0/system-design/14-game-server/pkg/protocol"
)

// statsInterval 統計日誌的間隔
const statsInterval = 10 * time.Second

// Stats 服務器狀態快照
type Stats struct {
	Players int `json:"players"` // 已知玩家（含登入中）
	Login   int `json:"login"`   // 登入房間人數
	Lobby   int `json:"lobby"`   // 大廳人數
	Rooms   int `json:"rooms"`   // 池中的對局房間
	InPlay  int `json:"in_play"` // 進行中的對局
}

// Server 遊戲服務器
type Server struct {
	cfg       *config.Config
	logger    *slog.Logger
	publisher events.Publisher
	chanOpts  transport.Options

	// mu 讓 Step 與 Stats 互斥；以下欄位只在持有 mu 時存取
	mu       sync.Mutex
	players  *Players
	login    *room.Room
	lobby    *room.Room
	pool     []*GameRoom
	location map[uuid.UUID]*room.Room
	nextRoom int
	ticks    uint64

	pending chan transport.Conn

	tcpListener net.Listener
	wsListener  net.Listener
	upgrader    websocket.Upgrader
}

// New 創建服務器
func New(cfg *config.Config, publisher events.Publisher, logger *slog.Logger) *Server {
	if publisher == nil {
		publisher = events.Nop{}
	}

	s := &Server{
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "server")),
		publisher: publisher,
		chanOpts: transport.Options{
			WriteTimeout: cfg.Server.WriteTimeout,
			MaxFrameSize: cfg.Server.MaxFrameSize,
			SendQueue:    cfg.Server.SendQueue,
		},
		players:  NewPlayers(),
		location: make(map[uuid.UUID]*room.Room),
		pending:  make(chan transport.Conn, cfg.Server.AcceptBacklog),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // 沒有身份驗證，接受任何來源
			},
		},
	}

	s.login = room.New(protocol.RoomLogin, "login", &loginHandler{s: s}, s.logger)
	s.lobby = room.New(protocol.RoomLobby, "lobby", &lobbyHandler{s: s}, s.logger)

	return s
}

// Listen 綁定 TCP 監聽位址（以及啟用時的 WebSocket 位址）
//
// 綁定失敗是啟動時的致命錯誤。
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Server.TCPAddr)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "listen tcp").WithDetails(s.cfg.Server.TCPAddr)
	}
	s.tcpListener = ln

	if s.cfg.Server.WebSocketAddr != "" {
		wsLn, err := net.Listen("tcp", s.cfg.Server.WebSocketAddr)
		if err != nil {
			_ = ln.Close()
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "listen websocket").WithDetails(s.cfg.Server.WebSocketAddr)
		}
		s.wsListener = wsLn
	}

	return nil
}

// Addr TCP 監聽位址，Listen 之前為 nil
func (s *Server) Addr() net.Addr {
	if s.tcpListener == nil {
		return nil
	}
	return s.tcpListener.Addr()
}

// WebSocketAddr WebSocket 監聽位址，未啟用時為 nil
func (s *Server) WebSocketAddr() net.Addr {
	if s.wsListener == nil {
		return nil
	}
	return s.wsListener.Addr()
}

// Run 監聽並服務直到 ctx 結束
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Serve 在已綁定的監聽器上服務直到 ctx 結束
//
// 三類 goroutine 由 errgroup 管理：TCP 接收迴圈、WebSocket HTTP 服務、主迴圈。
// 任一個回傳錯誤都會結束其他的。
func (s *Server) Serve(ctx context.Context) error {
	if s.tcpListener == nil {
		return apperrors.New(apperrors.ErrCodeInternal, "serve called before listen")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.acceptLoop(gctx, s.tcpListener)
	})

	if s.wsListener != nil {
		httpServer := &http.Server{
			Handler:           s.websocketMux(),
			ReadHeaderTimeout: 10 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return gctx },
		}
		g.Go(func() error {
			if err := httpServer.Serve(s.wsListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("websocket server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return s.tcpListener.Close()
	})

	g.Go(func() error {
		return s.tickLoop(gctx)
	})

	s.logger.Info("遊戲服務器啟動",
		"tcp_addr", s.Addr().String(),
		"websocket_enabled", s.wsListener != nil,
		"tick_interval", s.cfg.Server.TickInterval)

	err := g.Wait()
	s.closeAll()

	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	s.logger.Info("遊戲服務器已停止")
	return nil
}

// acceptLoop 接收連接並交給主迴圈
//
// Accept 持續失敗時（例如檔案描述符耗盡）以指數退避重試，從 5ms 加倍到 1s，
// 成功接收後重設。
func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	var tempDelay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			tempDelay = acceptBackoff(tempDelay)
			s.logger.Warn("接收連接失敗", "error", err, "retry_in", tempDelay)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(tempDelay):
			}
			continue
		}
		tempDelay = 0

		if !s.enqueue(ctx, conn) {
			return nil
		}
	}
}

const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

func acceptBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return minAcceptDelay
	}
	return min(d*2, maxAcceptDelay)
}

// enqueue 把新連接放進待處理佇列，ctx 結束時關閉連接
func (s *Server) enqueue(ctx context.Context, conn transport.Conn) bool {
	select {
	case s.pending <- conn:
		return true
	case <-ctx.Done():
		_ = conn.Close()
		return false
	}
}

// tickLoop 主迴圈
func (s *Server) tickLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Server.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Step()
		}
	}
}

// Step 執行主迴圈的一輪
//
//  1. 接收所有待處理的新連接，放進登入房間
//  2. 依序更新登入房間、大廳、池中每個對局房間
//  3. 對所有成員發送心跳，讓已消失的對端在下一輪被偵測
//  4. 回收多餘的閒置對局房間
func (s *Server) Step() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.acceptPending()

	s.login.Update()
	s.lobby.Update()
	for _, g := range slices.Clone(s.pool) {
		g.room.Update()
	}

	s.heartbeat()
	s.reclaim()

	s.ticks++
	if every := uint64(statsInterval / s.cfg.Server.TickInterval); every > 0 && s.ticks%every == 0 {
		st := s.statsLocked()
		s.logger.Debug("服務器狀態",
			"players", st.Players,
			"login", st.Login,
			"lobby", st.Lobby,
			"rooms", st.Rooms,
			"in_play", st.InPlay)
	}
}

func (s *Server) acceptPending() {
	for {
		select {
		case conn := <-s.pending:
			ch := transport.NewChannel(conn, s.chanOpts, s.logger)
			s.logger.Info("新連接", "player_id", ch.ID(), "remote", ch.RemoteAddr())
			s.enter(ch)
		default:
			return
		}
	}
}

// enter 建立玩家資訊並放進登入房間
func (s *Server) enter(m room.Member) {
	s.players.Get(m.ID())
	s.MoveToRoom(m, s.login)
}

// MoveToRoom 把成員從目前所在的房間移到 dst
func (s *Server) MoveToRoom(m room.Member, dst *room.Room) {
	if cur, ok := s.location[m.ID()]; ok {
		cur.RemoveMember(m)
	}
	s.location[m.ID()] = dst
	dst.AddMember(m)
}

// forget 斷線成員的最終清理
func (s *Server) forget(m room.Member) {
	s.players.Remove(m.ID())
	delete(s.location, m.ID())
}

// RequestGameRoom 返回閒置的對局房間，沒有時創建一個放進池中
func (s *Server) RequestGameRoom() *GameRoom {
	for _, g := range s.pool {
		if !g.InPlay() {
			return g
		}
	}

	s.nextRoom++
	g := newGameRoom(s, fmt.Sprintf("game-%d", s.nextRoom))
	s.pool = append(s.pool, g)

	s.logger.Debug("創建對局房間", "room", g.ID(), "pool_size", len(s.pool))
	return g
}

// roomBound 房間池大小上限
//
// 每局兩名玩家，所以玩家數的一半就夠用，再加上少量備用。
func (s *Server) roomBound() int {
	return s.players.Len()/2 + s.cfg.Game.RoomSlack
}

// reclaim 回收多餘的閒置房間，從最新的開始
func (s *Server) reclaim() {
	bound := s.roomBound()
	for i := len(s.pool) - 1; i >= 0 && len(s.pool) > bound; i-- {
		g := s.pool[i]
		if g.InPlay() {
			continue
		}
		s.pool = slices.Delete(s.pool, i, i+1)
		s.logger.Debug("回收對局房間", "room", g.ID(), "pool_size", len(s.pool), "bound", bound)
	}
}

func (s *Server) heartbeat() {
	hb := &protocol.Heartbeat{}
	for _, r := range s.rooms() {
		// 失敗的成員已被標記為斷線，下一輪 Update 會清理
		_ = r.Broadcast(hb)
	}
}

func (s *Server) rooms() []*room.Room {
	rooms := make([]*room.Room, 0, 2+len(s.pool))
	rooms = append(rooms, s.login, s.lobby)
	for _, g := range s.pool {
		rooms = append(rooms, g.room)
	}
	return rooms
}

// Stats 返回服務器狀態快照
func (s *Server) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statsLocked()
}

func (s *Server) statsLocked() Stats {
	st := Stats{
		Players: s.players.Len(),
		Login:   s.login.Len(),
		Lobby:   s.lobby.Len(),
		Rooms:   len(s.pool),
	}
	for _, g := range s.pool {
		if g.InPlay() {
			st.InPlay++
		}
	}
	return st
}

// publish 發布對局事件，失敗只記錄
//
// 緩衝區已滿的丟棄由 events.Async 自己記錄，這裡不重複。
func (s *Server) publish(ev events.Event) {
	ev.Timestamp = time.Now()
	err := s.publisher.Publish(context.Background(), ev)
	if err != nil && !errors.Is(err, events.ErrQueueFull) {
		s.logger.Warn("發布事件失敗", "type", ev.Type, "room_id", ev.RoomID, "error", err)
	}
}

// closeAll 關閉所有連接（包括尚未被主迴圈接收的）
func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

drain:
	for {
		select {
		case conn := <-s.pending:
			_ = conn.Close()
		default:
			break drain
		}
	}

	for _, r := range s.rooms() {
		for _, m := range r.Members() {
			m.Close()
		}
	}
}
