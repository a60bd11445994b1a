// facerig-replay: replays a recorded JSONL landmark capture
// Offline it rigs locally and writes preview PNGs; with -server it streams to a running facerig
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/teslashibe/go-facerig/internal/config"
	"github.com/teslashibe/go-facerig/internal/log"
	"github.com/teslashibe/go-facerig/pkg/avatar"
	"github.com/teslashibe/go-facerig/pkg/debug"
	"github.com/teslashibe/go-facerig/pkg/preview"
	"github.com/teslashibe/go-facerig/pkg/protocol"
)

// maxLine bounds one capture line
const maxLine = 1 << 20

type options struct {
	input      string
	configPath string
	server     string
	outDir     string
	every      int
	fps        float64
	width      int
	height     int
}

func main() {
	var opts options
	flag.StringVar(&opts.input, "input", "", "JSONL capture, one landmarks message per line (required)")
	flag.StringVar(&opts.configPath, "config", config.Path(config.DefaultConfigPath), "TOML config file for offline replay")
	flag.StringVar(&opts.server, "server", "", "Stream to a running server instead, e.g. ws://localhost:8000/ws/detector")
	flag.StringVar(&opts.outDir, "out", "replay-out", "Directory for preview PNGs (offline)")
	flag.IntVar(&opts.every, "every", 10, "Write a preview every N frames (offline, 0 disables)")
	flag.Float64Var(&opts.fps, "fps", 30, "Playback rate for -server, 0 sends as fast as possible")
	flag.IntVar(&opts.width, "width", 480, "Preview width")
	flag.IntVar(&opts.height, "height", 360, "Preview height")
	trace := flag.Bool("debug", false, "Trace every frame")
	flag.Parse()

	level := "info"
	if *trace {
		level = "debug"
	}
	log.Init(level)
	debug.SetTracking(*trace)
	if opts.input == "" {
		flag.Usage()
		os.Exit(2)
	}

	f, err := os.Open(opts.input)
	if err != nil {
		log.Error("open capture", "error", err)
		os.Exit(1)
	}
	defer f.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if opts.server != "" {
		err = replayLive(ctx, f, opts)
	} else {
		err = replayOffline(ctx, f, opts)
	}
	if err != nil {
		log.Error("replay failed", "error", err)
		os.Exit(1)
	}
}

// summary counts replay outcomes
type summary struct {
	frames   int
	visible  int
	rejected int
	previews int
}

func (s summary) report() {
	log.Info("replay finished", "frames", s.frames, "visible", s.visible, "rejected", s.rejected, "previews", s.previews)
}

// readCapture calls fn for every landmarks message in r
func readCapture(ctx context.Context, r io.Reader, fn func(n int, msg *protocol.Message) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLine)
	n := 0
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		n++
		msg, err := protocol.ParseMessage(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
		if msg.Type != protocol.TypeLandmarks {
			log.Debug("skipping message", "line", n, "type", msg.Type)
			continue
		}
		if err := fn(n, msg); err != nil {
			return err
		}
	}
	return sc.Err()
}

func replayOffline(ctx context.Context, r io.Reader, opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	ctrl, err := cfg.NewController()
	if err != nil {
		return err
	}
	if opts.every > 0 {
		if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
			return err
		}
	}

	var sum summary
	err = readCapture(ctx, r, func(n int, msg *protocol.Message) error {
		data, err := msg.GetLandmarkData()
		if err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
		mode, err := avatar.ParseMode(data.Mode)
		if err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
		sum.frames++
		frame, err := ctrl.Update(mode, data.Candidates())
		if err != nil {
			sum.rejected++
			log.Warn("frame rejected", "line", n, "error", err)
			return nil
		}
		if frame.Visible {
			sum.visible++
		}
		if opts.every > 0 && sum.frames%opts.every == 0 {
			if err := writePreview(opts, frame); err != nil {
				return err
			}
			sum.previews++
		}
		return nil
	})
	sum.report()
	return err
}

func writePreview(opts options, frame avatar.Frame) error {
	path := filepath.Join(opts.outDir, fmt.Sprintf("frame-%06d.png", frame.Seq))
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := preview.EncodePNG(out, frame, opts.width, opts.height); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func replayLive(ctx context.Context, r io.Reader, opts options) error {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, opts.server, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", opts.server, err)
	}
	defer ws.Close()

	var sum summary
	replies := make(chan *protocol.Message, 64)
	go func() {
		defer close(replies)
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			msg, err := protocol.ParseMessage(data)
			if err != nil {
				continue
			}
			replies <- msg
		}
	}()

	var tick <-chan time.Time
	if opts.fps > 0 {
		ticker := time.NewTicker(time.Duration(float64(time.Second) / opts.fps))
		defer ticker.Stop()
		tick = ticker.C
	}

	drain := func() {
		for {
			select {
			case msg, ok := <-replies:
				if !ok {
					return
				}
				sum.record(msg)
			default:
				return
			}
		}
	}

	err = readCapture(ctx, r, func(n int, msg *protocol.Message) error {
		if tick != nil {
			select {
			case <-tick:
			case <-ctx.Done():
				return nil
			}
		}
		data, err := msg.Bytes()
		if err != nil {
			return err
		}
		if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
		sum.frames++
		drain()
		return nil
	})

	// give the server a moment to answer the tail of the capture
	time.Sleep(200 * time.Millisecond)
	drain()
	ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	sum.report()
	return err
}

func (s *summary) record(msg *protocol.Message) {
	switch msg.Type {
	case protocol.TypeSession:
		if sess, err := msg.GetSessionData(); err == nil {
			log.Info("session opened", "id", sess.ID, "mode", sess.Mode, "objects", sess.Objects)
		}
	case protocol.TypeRig:
		if frame, err := msg.GetRigData(); err == nil && frame.Visible {
			s.visible++
		}
	case protocol.TypeError:
		s.rejected++
		if e, err := msg.GetErrorData(); err == nil {
			log.Warn("server rejected frame", "code", e.Code, "error", e.Message)
		}
	}
}
