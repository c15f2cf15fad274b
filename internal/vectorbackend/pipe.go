package vectorbackend

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

	"github.com/xaxixak/oracle-v2/internal/logging"
)

// PipeBackend spawns the vector process named by ORACLE_VECTOR_CMD and
// speaks newline-delimited JSON-RPC requests/responses over its stdin and
// stdout, serializing calls behind a mutex since the child is assumed to
// handle one in-flight request at a time (§4.2, §5 "shared resources").
type PipeBackend struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	mu     sync.Mutex
	nextID int64
	log    *logging.Logger
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int64       `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type rpcResponse struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string { return fmt.Sprintf("vector backend error %d: %s", e.Code, e.Message) }

// NewPipeBackend starts command as a child process and wires its stdio.
func NewPipeBackend(command string, args []string, log *logging.Logger) (*PipeBackend, error) {
	if command == "" {
		return nil, fmt.Errorf("vectorbackend: ORACLE_VECTOR_CMD is not configured")
	}

	cmd := exec.Command(command, args...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("vectorbackend: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("vectorbackend: stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("vectorbackend: start %s: %w", command, err)
	}

	return &PipeBackend{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdout),
		log:    log,
	}, nil
}

// Close terminates the child process.
func (b *PipeBackend) Close() error {
	b.stdin.Close()
	return b.cmd.Process.Kill()
}

func (b *PipeBackend) call(ctx context.Context, method string, params interface{}, out interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := atomic.AddInt64(&b.nextID, 1)
	req := rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}

	line, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("vectorbackend: marshal request: %w", err)
	}
	line = append(line, '\n')

	if _, err := b.stdin.Write(line); err != nil {
		return fmt.Errorf("vectorbackend: write request: %w", err)
	}

	type readResult struct {
		data []byte
		err  error
	}
	done := make(chan readResult, 1)
	go func() {
		data, err := b.stdout.ReadBytes('\n')
		done <- readResult{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case r := <-done:
		if r.err != nil {
			return fmt.Errorf("vectorbackend: read response: %w", r.err)
		}
		var resp rpcResponse
		if err := json.Unmarshal(r.data, &resp); err != nil {
			return fmt.Errorf("vectorbackend: decode response: %w", err)
		}
		if resp.Error != nil {
			return resp.Error
		}
		if out == nil {
			return nil
		}
		return json.Unmarshal(resp.Result, out)
	}
}

func (b *PipeBackend) EnsureCollection(ctx context.Context, name string) error {
	return b.call(ctx, "ensure_collection", map[string]string{"name": name}, nil)
}

func (b *PipeBackend) Upsert(ctx context.Context, name string, points []Point) error {
	const batchSize = 100
	for start := 0; start < len(points); start += batchSize {
		end := start + batchSize
		if end > len(points) {
			end = len(points)
		}
		batch := make([]map[string]interface{}, 0, end-start)
		for _, p := range points[start:end] {
			batch = append(batch, map[string]interface{}{
				"id": p.ID, "text": p.Text, "metadata": p.Metadata,
			})
		}
		params := map[string]interface{}{"name": name, "points": batch}
		if err := b.call(ctx, "upsert", params, nil); err != nil {
			return err
		}
	}
	return nil
}

func (b *PipeBackend) Query(ctx context.Context, name, text string, k int, where Filter) (QueryResult, error) {
	params := map[string]interface{}{"name": name, "text": text, "k": k, "where": where}
	var result QueryResult
	if err := b.call(ctx, "query", params, &result); err != nil {
		return QueryResult{}, err
	}
	return result, nil
}

func (b *PipeBackend) Stats(ctx context.Context, name string) (Stats, error) {
	var stats Stats
	if err := b.call(ctx, "stats", map[string]string{"name": name}, &stats); err != nil {
		return Stats{}, err
	}
	return stats, nil
}

func (b *PipeBackend) DeleteCollection(ctx context.Context, name string) error {
	return b.call(ctx, "delete_collection", map[string]string{"name": name}, nil)
}
