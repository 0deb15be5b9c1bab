// Package gameserver 是一個多人井字棋服務器。
//
// 客戶端透過 TCP（或 WebSocket）連線，先在登入房間設定名稱，
// 進入大廳後可以聊天、查詢玩家列表、標記準備；大廳每輪把最早準備好的
// 兩位玩家配對到遊戲房間，對局結束後兩人回到大廳。
//
// # 封包格式
//
// 每個封包是 [uint32 長度][int32 訊息類型][欄位...]，全部為 little-endian。
// 字串是 [int32 位元組數][UTF-8]，陣列是 [int32 個數][元素...]。
// 詳見 pkg/protocol。
//
// # 執行模型
//
// 所有房間狀態只由一個 tick goroutine 讀寫：
//   - 每條連接有一個讀取 goroutine，只負責把位元組放進緩衝區
//   - 主迴圈每輪接收新連接、依序更新登入房間、大廳與遊戲房間
//   - 每輪向所有成員發送心跳，寫入失敗的連接在下一輪被移除
//
// 因此房間與玩家資料不需要鎖，成員在任一時刻恰好屬於一個房間。
//
// # 對局事件
//
// 開局與結束會發布 match.started / match.finished 事件，
// 可選擇 NATS 或 Redis Pub/Sub 作為傳輸，發布失敗不影響遊戲。
//
// # 使用範例
//
// 啟動服務器：
//
//	go run ./cmd/server -config config.yaml
//
// 連線遊玩：
//
//	go run ./cmd/client -name bob
//	go run ./cmd/client -ws ws://localhost:8080/ws -name alice
//
// 客戶端指令：/ready、/unready、/move N、/list、/quit，其他輸入為聊天訊息。
//
// # 配置選項
//
//   - -config：配置檔案路徑
//   - -log-level：日誌級別（debug/info/warn/error）
//   - -log-format：日誌格式（text/json）
//
// 環境變數 GAME_SERVER_TCP_ADDR、GAME_SERVER_WS_ADDR、GAME_SERVER_NATS_URL、
// GAME_SERVER_REDIS_ADDR、GAME_SERVER_LOG_LEVEL 會覆蓋配置檔案。
package gameserver
