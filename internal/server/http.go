package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/koopa0/system-design/14-game-server/internal/transport"
)

// websocketMux WebSocket 閘道的路由
//
// 除了遊戲連線外，提供唯讀的健康檢查與狀態查詢。
func (s *Server) websocketMux() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(s.cfg.Server.WebSocketPath, s.serveWS)
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("GET /stats", s.stats)

	return mux
}

// serveWS 升級為 WebSocket，之後與 TCP 連接走相同流程
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("升級 WebSocket 失敗", "error", err)
		return
	}

	s.enqueue(r.Context(), transport.NewWSConn(ws))
}

// health 健康檢查
func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, map[string]any{
		"status": "healthy",
		"time":   time.Now().Unix(),
	}, http.StatusOK)
}

// stats 統計資訊
func (s *Server) stats(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, s.Stats(), http.StatusOK)
}

// jsonResponse 返回 JSON 響應
func (s *Server) jsonResponse(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("編碼 JSON 失敗", "error", err)
	}
}
