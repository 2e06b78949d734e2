// Package mcp implements the client side of the line-oriented stdio protocol
// the external tool server speaks: a subprocess exchanging newline-framed
// JSON-RPC 2.0 messages. The package owns the subprocess lifecycle (spawn,
// handshake, teardown) and exposes capability discovery and invocation.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"

	"github.com/crawlchat/crawlchat/logging"
)

// scanBufferSize bounds a single protocol line; tool results can be large.
const scanBufferSize = 1024 * 1024

// transport drives newline-framed JSON-RPC over a subprocess's stdio. Writes
// are serialized with a mutex; responses are matched to pending requests by
// id through a reader goroutine.
type transport struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser
	logger logging.Logger

	writeMu   sync.Mutex
	requestID atomic.Int64

	pending   map[int64]chan *jsonrpcResponse
	pendingMu sync.Mutex

	closed atomic.Bool
	stop   chan struct{}
	wg     sync.WaitGroup
}

// startTransport spawns the subprocess with extraEnv appended to the current
// environment and begins reading responses.
func startTransport(command string, args, extraEnv []string, logger logging.Logger) (*transport, error) {
	cmd := exec.Command(command, args...)
	cmd.Env = append(os.Environ(), extraEnv...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, _ := cmd.StderrPipe()

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		return nil, fmt.Errorf("start %s: %w", command, err)
	}

	t := &transport{
		cmd:     cmd,
		stdin:   stdin,
		stdout:  stdout,
		stderr:  stderr,
		logger:  logging.OrNoOp(logger),
		pending: make(map[int64]chan *jsonrpcResponse),
		stop:    make(chan struct{}),
	}
	t.logger.Info("tool server process started", "command", command, "pid", cmd.Process.Pid)

	t.wg.Add(1)
	go t.readLoop()
	if stderr != nil {
		t.wg.Add(1)
		go t.drainStderr()
	}
	return t, nil
}

// newPipeTransport wires a transport over arbitrary pipes without a
// subprocess. Used by tests to run a scripted server in-process.
func newPipeTransport(stdin io.WriteCloser, stdout io.ReadCloser, logger logging.Logger) *transport {
	t := &transport{
		stdin:   stdin,
		stdout:  stdout,
		logger:  logging.OrNoOp(logger),
		pending: make(map[int64]chan *jsonrpcResponse),
		stop:    make(chan struct{}),
	}
	t.wg.Add(1)
	go t.readLoop()
	return t
}

// call sends a request and blocks until the matching response arrives, the
// context is done, or the transport closes.
func (t *transport) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if t.closed.Load() {
		return nil, fmt.Errorf("transport is closed")
	}

	id := t.requestID.Add(1)
	respCh := make(chan *jsonrpcResponse, 1)
	t.pendingMu.Lock()
	t.pending[id] = respCh
	t.pendingMu.Unlock()
	defer func() {
		t.pendingMu.Lock()
		delete(t.pending, id)
		t.pendingMu.Unlock()
	}()

	if err := t.writeFrame(jsonrpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}); err != nil {
		return nil, fmt.Errorf("send %s: %w", method, err)
	}

	select {
	case resp := <-respCh:
		if resp.Error != nil {
			return nil, fmt.Errorf("%s: server error %d: %s", method, resp.Error.Code, resp.Error.Message)
		}
		return resp.Result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.stop:
		return nil, fmt.Errorf("transport closed while waiting for %s", method)
	}
}

// notify sends a fire-and-forget notification frame.
func (t *transport) notify(method string, params any) error {
	if t.closed.Load() {
		return fmt.Errorf("transport is closed")
	}
	return t.writeFrame(jsonrpcNotification{JSONRPC: "2.0", Method: method, Params: params})
}

func (t *transport) writeFrame(frame any) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_, err = t.stdin.Write(append(data, '\n'))
	return err
}

func (t *transport) readLoop() {
	defer t.wg.Done()

	scanner := bufio.NewScanner(t.stdout)
	scanner.Buffer(make([]byte, scanBufferSize), scanBufferSize)
	for scanner.Scan() {
		select {
		case <-t.stop:
			return
		default:
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var resp jsonrpcResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			t.logger.Debug("skipping unparseable protocol line", "error", err)
			continue
		}
		if resp.ID == 0 && resp.Result == nil && resp.Error == nil {
			// Server-initiated notification; the lifecycle contract ignores these.
			continue
		}

		t.pendingMu.Lock()
		ch, ok := t.pending[resp.ID]
		if ok {
			delete(t.pending, resp.ID)
		}
		t.pendingMu.Unlock()
		if ok {
			ch <- &resp
		}
	}
	if err := scanner.Err(); err != nil && !t.closed.Load() {
		t.logger.Error("tool server stdout read failed", "error", err)
	}
}

func (t *transport) drainStderr() {
	defer t.wg.Done()
	scanner := bufio.NewScanner(t.stderr)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			t.logger.Debug("tool server stderr", "message", line)
		}
	}
}

// close shuts the transport down: stdin is closed first so a well-behaved
// server can exit on EOF, then the process is killed if still running.
func (t *transport) close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(t.stop)

	t.stdin.Close()
	if t.cmd != nil && t.cmd.Process != nil {
		t.cmd.Process.Kill()
	}
	t.stdout.Close()

	var err error
	if t.cmd != nil {
		err = t.cmd.Wait()
	}
	t.wg.Wait()
	return err
}
