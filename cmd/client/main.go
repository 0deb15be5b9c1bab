// 命令列客戶端
//
// 用法：
//
//	client -addr localhost:55555 -name bob
//	client -ws ws://localhost:8080/ws -name alice
//
// 指令：/ready、/unready、/move N（0-8）、/list、/quit，其他輸入當作聊天訊息。
// 名稱被拒絕時，下一行輸入會當作新的名稱。
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/koopa0/system-design/14-game-server/internal/transport"
	"github.com/koopa0/system-design/14-game-server/pkg/logger"
	"github.com/koopa0/system-design/14-game-server/pkg/protocol"
)

const pollInterval = 20 * time.Millisecond

type client struct {
	ch   *transport.Channel
	out  io.Writer
	name string       // 只在收到 Login 房間事件時讀取
	room atomic.Int32 // protocol.RoomKind
}

func main() {
	var (
		addr  = flag.String("addr", "localhost:55555", "服務器 TCP 位址")
		wsURL = flag.String("ws", "", "改用 WebSocket 連線，例如 ws://localhost:8080/ws")
		name  = flag.String("name", "", "玩家名稱")
	)
	flag.Parse()

	log := logger.New("warn", "text", os.Stderr)

	conn, err := dial(*addr, *wsURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}

	c := &client{
		ch:   transport.NewChannel(conn, transport.DefaultOptions(), log),
		out:  os.Stdout,
		name: strings.TrimSpace(*name),
	}
	defer c.ch.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go c.readInput(ctx, stop, os.Stdin)
	c.receiveLoop(ctx)
}

func dial(addr, wsURL string) (transport.Conn, error) {
	if wsURL != "" {
		ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			return nil, err
		}
		return transport.NewWSConn(ws), nil
	}
	return net.DialTimeout("tcp", addr, 5*time.Second)
}

// receiveLoop 輪詢通道並顯示訊息，直到斷線或 ctx 結束
func (c *client) receiveLoop(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		for {
			msg, err := c.ch.TryReceive()
			if err != nil {
				fmt.Fprintf(c.out, "protocol error: %v\n", err)
				return
			}
			if msg == nil {
				break
			}
			c.handle(msg)
		}

		if !c.ch.IsConnected() {
			fmt.Fprintln(c.out, "disconnected")
			return
		}
	}
}

func (c *client) handle(msg protocol.Message) {
	switch msg := msg.(type) {
	case *protocol.Heartbeat:
	case *protocol.RoomJoinedEvent:
		c.room.Store(int32(msg.Room))
		fmt.Fprintf(c.out, "== entered %s ==\n", msg.Room)
		if msg.Room == protocol.RoomLogin {
			if c.name != "" {
				c.send(&protocol.SetNameRequest{Name: c.name})
			} else {
				fmt.Fprintln(c.out, "enter your name:")
			}
		}
	case *protocol.SetNameResponse:
		if msg.Result != protocol.NameAccepted {
			fmt.Fprintf(c.out, "name %q rejected (%s), enter another name:\n", msg.Name, msg.Result)
		}
	case *protocol.ClientNameEvent:
		fmt.Fprintf(c.out, "you are %s\n", msg.Name)
	case *protocol.ChatMessage:
		fmt.Fprintf(c.out, "> %s\n", msg.Message)
	case *protocol.LobbyInfoUpdate:
		fmt.Fprintf(c.out, "lobby: %d players, %d ready\n", msg.MemberCount, msg.ReadyCount)
	case *protocol.PlayerListResponse:
		fmt.Fprintf(c.out, "players: %s\n", strings.Join(msg.Names, ", "))
	case *protocol.PlayerNameResponse:
		fmt.Fprintf(c.out, "X: %s  vs  O: %s\n", msg.Player1Name, msg.Player2Name)
	case *protocol.ResetBoardData:
		c.printBoard(msg.Board)
	case *protocol.MakeMoveResult:
		c.printBoard(msg.Board)
	case *protocol.MakeMoveRejected:
		fmt.Fprintf(c.out, "move %d rejected: %s\n", msg.Move, msg.Reason)
	case *protocol.GameOverEvent:
		switch {
		case msg.Abandoned:
			fmt.Fprintf(c.out, "opponent left, %s wins\n", msg.WinnerName)
		case msg.Winner == 0:
			fmt.Fprintln(c.out, "draw")
		default:
			fmt.Fprintf(c.out, "%s wins\n", msg.WinnerName)
		}
	default:
		fmt.Fprintf(c.out, "(%s)\n", msg.Type())
	}
}

func (c *client) printBoard(b protocol.BoardData) {
	marks := [...]string{".", "X", "O"}
	for row := range 3 {
		cells := make([]string, 3)
		for col := range 3 {
			v := b.Cells[row*3+col]
			if v < 0 || int(v) >= len(marks) {
				cells[col] = "?"
				continue
			}
			cells[col] = marks[v]
		}
		fmt.Fprintf(c.out, " %s\n", strings.Join(cells, " | "))
		if row < 2 {
			fmt.Fprintln(c.out, "---+---+---")
		}
	}
}

func (c *client) send(msg protocol.Message) {
	if err := c.ch.TrySend(msg); err != nil {
		fmt.Fprintf(c.out, "send failed: %v\n", err)
	}
}

// readInput 讀取標準輸入，轉換成訊息
func (c *client) readInput(ctx context.Context, stop context.CancelFunc, in io.Reader) {
	defer stop()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			return
		}

		msg, err := c.parse(line)
		if err != nil {
			fmt.Fprintln(c.out, err)
			continue
		}
		c.send(msg)
	}
}

// parse 把一行輸入轉換成訊息
func (c *client) parse(line string) (protocol.Message, error) {
	if protocol.RoomKind(c.room.Load()) == protocol.RoomLogin {
		return &protocol.SetNameRequest{Name: line}, nil
	}

	cmd, arg, _ := strings.Cut(line, " ")
	switch cmd {
	case "/ready":
		return &protocol.ReadyStatusRequest{Ready: true}, nil
	case "/unready":
		return &protocol.ReadyStatusRequest{Ready: false}, nil
	case "/list":
		return &protocol.PlayerListRequest{}, nil
	case "/move":
		cell, err := strconv.Atoi(strings.TrimSpace(arg))
		if err != nil {
			return nil, fmt.Errorf("usage: /move 0-8")
		}
		return &protocol.MakeMoveRequest{Move: int32(cell)}, nil
	}

	if strings.HasPrefix(cmd, "/") {
		return nil, fmt.Errorf("unknown command %s", cmd)
	}
	return &protocol.ChatMessage{Message: line}, nil
}
