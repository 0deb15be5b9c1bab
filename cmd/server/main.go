package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/koopa0/system-design/14-game-server/internal/config"
	"github.com/koopa0/system-design/14-game-server/internal/events"
	"github.com/koopa0/system-design/14-game-server/internal/server"
	"github.com/koopa0/system-design/14-game-server/pkg/logger"
)

func main() {
	// 解析命令行參數
	var (
		configPath = flag.String("config", "", "配置檔案路徑（空白表示使用預設值）")
		logLevel   = flag.String("log-level", "", "日誌級別 (debug, info, warn, error)，覆蓋配置檔案")
		logFormat  = flag.String("log-format", "", "日誌格式 (text, json)，覆蓋配置檔案")
	)
	flag.Parse()

	// 載入配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}

	// 設定日誌
	log := logger.Init(cfg.Log.Level, cfg.Log.Format)

	// 收到中斷信號時取消 ctx
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 事件發布
	publisher, err := events.New(ctx, cfg, log)
	if err != nil {
		log.Error("創建事件發布者失敗", "driver", cfg.Events.Driver, "error", err)
		os.Exit(1)
	}
	async := events.NewAsync(publisher, 256, log)
	defer func() {
		if err := async.Close(); err != nil {
			log.Error("關閉事件發布者失敗", "error", err)
		}
	}()

	srv := server.New(cfg, async, log)

	log.Info("啟動遊戲服務器",
		"tcp_addr", cfg.Server.TCPAddr,
		"websocket_addr", cfg.Server.WebSocketAddr,
		"events", cfg.Events.Driver,
		"log_level", cfg.Log.Level)

	if err := srv.Run(ctx); err != nil {
		log.Error("服務器錯誤", "error", err)
		_ = async.Close()
		os.Exit(1)
	}

	log.Info("服務器已關閉")
}
