// Package config 載入遊戲服務器的配置
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/koopa0/system-design/14-game-server/pkg/errors"
)

// 事件發布驅動
const (
	DriverNone  = "none"
	DriverNATS  = "nats"
	DriverRedis = "redis"
)

// Config 整個應用的配置
type Config struct {
	Server struct {
		TCPAddr       string        `yaml:"tcp_addr"`
		WebSocketAddr string        `yaml:"websocket_addr"` // 空字串表示不啟用
		WebSocketPath string        `yaml:"websocket_path"`
		TickInterval  time.Duration `yaml:"tick_interval"`
		WriteTimeout  time.Duration `yaml:"write_timeout"`
		MaxFrameSize  int           `yaml:"max_frame_size"`
		SendQueue     int           `yaml:"send_queue"`
		AcceptBacklog int           `yaml:"accept_backlog"` // 等待被主迴圈接收的連接數
	} `yaml:"server"`

	Game struct {
		MaxNameLength int `yaml:"max_name_length"`
		RoomSlack     int `yaml:"room_slack"` // 房間池上限 = 玩家數/2 + RoomSlack
	} `yaml:"game"`

	Events struct {
		Driver        string `yaml:"driver"`
		NATSURL       string `yaml:"nats_url"`
		RedisAddr     string `yaml:"redis_addr"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"events"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Default 返回預設配置
func Default() *Config {
	var c Config

	c.Server.TCPAddr = ":55555"
	c.Server.WebSocketPath = "/ws"
	c.Server.TickInterval = 100 * time.Millisecond
	c.Server.WriteTimeout = 2 * time.Second
	c.Server.MaxFrameSize = 64 * 1024
	c.Server.SendQueue = 256
	c.Server.AcceptBacklog = 128

	c.Game.MaxNameLength = 32
	c.Game.RoomSlack = 1

	c.Events.Driver = DriverNone
	c.Events.NATSURL = "nats://localhost:4222"
	c.Events.RedisAddr = "localhost:6379"
	c.Events.SubjectPrefix = "tictactoe"

	c.Log.Level = "info"
	c.Log.Format = "text"

	return &c
}

// Load 載入配置檔案
//
// 先填入預設值，再以檔案內容覆蓋，最後套用環境變數。path 為空時只使用預設值。
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		// #nosec G304 - path 來自啟動參數
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv 支援環境變數覆蓋（容器部署常用）
func (c *Config) applyEnv() {
	overrides := []struct {
		key    string
		target *string
	}{
		{"GAME_SERVER_TCP_ADDR", &c.Server.TCPAddr},
		{"GAME_SERVER_WS_ADDR", &c.Server.WebSocketAddr},
		{"GAME_SERVER_NATS_URL", &c.Events.NATSURL},
		{"GAME_SERVER_REDIS_ADDR", &c.Events.RedisAddr},
		{"GAME_SERVER_LOG_LEVEL", &c.Log.Level},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.key); v != "" {
			*o.target = v
		}
	}
}

// Validate 檢查配置
func (c *Config) Validate() error {
	invalid := func(details string) error {
		return apperrors.New(apperrors.ErrCodeInvalidInput, "invalid config").WithDetails(details)
	}

	if c.Server.TCPAddr == "" {
		return invalid("server.tcp_addr is required")
	}
	if c.Server.TickInterval <= 0 {
		return invalid("server.tick_interval must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return invalid("server.write_timeout must be positive")
	}
	if c.Server.MaxFrameSize <= 0 {
		return invalid("server.max_frame_size must be positive")
	}
	if c.Server.SendQueue <= 0 {
		return invalid("server.send_queue must be positive")
	}
	if c.Server.AcceptBacklog < 0 {
		return invalid("server.accept_backlog must not be negative")
	}
	if c.Game.MaxNameLength <= 0 {
		return invalid("game.max_name_length must be positive")
	}
	if c.Game.RoomSlack < 0 {
		return invalid("game.room_slack must not be negative")
	}

	switch c.Events.Driver {
	case DriverNone, "":
	case DriverNATS:
		if c.Events.NATSURL == "" {
			return invalid("events.nats_url is required for the nats driver")
		}
	case DriverRedis:
		if c.Events.RedisAddr == "" {
			return invalid("events.redis_addr is required for the redis driver")
		}
	default:
		return invalid(fmt.Sprintf("unknown events.driver %q", c.Events.Driver))
	}

	return nil
}
