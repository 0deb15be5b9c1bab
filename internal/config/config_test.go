package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/koopa0/system-design/14-game-server/internal/config"
	apperrors "github.com/koopa0/system-design/14-game-server/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// TestLoad_Defaults 測試沒有配置檔案時使用預設值
func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, ":55555", cfg.Server.TCPAddr)
	assert.Empty(t, cfg.Server.WebSocketAddr)
	assert.Equal(t, 100*time.Millisecond, cfg.Server.TickInterval)
	assert.Equal(t, 1, cfg.Game.RoomSlack)
	assert.Equal(t, config.DriverNone, cfg.Events.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
}

// TestLoad_File 測試檔案覆蓋預設值
func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
server:
  tcp_addr: "127.0.0.1:6000"
  websocket_addr: ":8080"
  tick_interval: 50ms
game:
  max_name_length: 12
events:
  driver: nats
  subject_prefix: games
log:
  format: json
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:6000", cfg.Server.TCPAddr)
	assert.Equal(t, ":8080", cfg.Server.WebSocketAddr)
	assert.Equal(t, 50*time.Millisecond, cfg.Server.TickInterval)
	assert.Equal(t, 12, cfg.Game.MaxNameLength)
	assert.Equal(t, config.DriverNATS, cfg.Events.Driver)
	assert.Equal(t, "games", cfg.Events.SubjectPrefix)
	assert.Equal(t, "json", cfg.Log.Format)

	// 未出現在檔案中的欄位保留預設值
	assert.Equal(t, 2*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 256, cfg.Server.SendQueue)
	assert.Equal(t, "/ws", cfg.Server.WebSocketPath)
	assert.Equal(t, "nats://localhost:4222", cfg.Events.NATSURL)
}

// TestLoad_EnvOverride 測試環境變數覆蓋
func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "server:\n  tcp_addr: \":7000\"\n")
	t.Setenv("GAME_SERVER_TCP_ADDR", ":9000")
	t.Setenv("GAME_SERVER_LOG_LEVEL", "debug")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.TCPAddr)
	assert.Equal(t, "debug", cfg.Log.Level)
}

// TestLoad_Errors 測試載入失敗
func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := config.Load(writeConfig(t, "server: [unclosed"))
		assert.Error(t, err)
	})

	t.Run("invalid values", func(t *testing.T) {
		_, err := config.Load(writeConfig(t, "server:\n  tick_interval: 0s\n"))
		assert.True(t, apperrors.IsInvalidInput(err))
	})
}

// TestValidate 測試配置驗證
func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *config.Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*config.Config) {}},
		{name: "empty tcp addr", mutate: func(c *config.Config) { c.Server.TCPAddr = "" }, wantErr: true},
		{name: "zero tick", mutate: func(c *config.Config) { c.Server.TickInterval = 0 }, wantErr: true},
		{name: "negative write timeout", mutate: func(c *config.Config) { c.Server.WriteTimeout = -time.Second }, wantErr: true},
		{name: "zero frame size", mutate: func(c *config.Config) { c.Server.MaxFrameSize = 0 }, wantErr: true},
		{name: "zero send queue", mutate: func(c *config.Config) { c.Server.SendQueue = 0 }, wantErr: true},
		{name: "zero name length", mutate: func(c *config.Config) { c.Game.MaxNameLength = 0 }, wantErr: true},
		{name: "negative slack", mutate: func(c *config.Config) { c.Game.RoomSlack = -1 }, wantErr: true},
		{name: "zero slack", mutate: func(c *config.Config) { c.Game.RoomSlack = 0 }},
		{name: "redis driver", mutate: func(c *config.Config) { c.Events.Driver = config.DriverRedis }},
		{name: "nats without url", mutate: func(c *config.Config) {
			c.Events.Driver = config.DriverNATS
			c.Events.NATSURL = ""
		}, wantErr: true},
		{name: "unknown driver", mutate: func(c *config.Config) { c.Events.Driver = "kafka" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.True(t, apperrors.IsInvalidInput(err), "got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
