// Package cluster provides the distributed execution strategy: an
// explicit, caller-supplied set of remote workers reached over
// socket.io. Each group job is emitted to a worker and its result
// collected back in submission order.
package cluster

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/vk/cytograph/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"golang.org/x/sync/errgroup"
)

// Event names of the worker wire protocol.
const (
	runEvent    = "cytograph:run"
	resultEvent = "cytograph:result"
)

// Job describes one group execution request sent to a remote worker. The
// payload is JSON-shaped; argument values are converted from cty before
// transport.
type Job struct {
	Method   string         `json:"method"`
	Node     string         `json:"node"`
	Group    string         `json:"group"`
	Samples  []string       `json:"samples"`
	Dims     []string       `json:"dims"`
	Args     map[string]any `json:"args"`
	GroupBy  string         `json:"group_by"`
	Collapse bool           `json:"collapse"`
}

// Pool is a fixed set of connected remote workers.
type Pool struct {
	sockets []*socket.Socket
	timeout time.Duration
}

// Dial connects to every worker URL over websocket and waits for each
// connection to establish. A partial failure closes the already-open
// sockets and fails the whole pool.
func Dial(ctx context.Context, urls []string, timeout time.Duration) (*Pool, error) {
	logger := ctxlog.FromContext(ctx)
	if len(urls) == 0 {
		return nil, fmt.Errorf("cluster pool needs at least one worker URL")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	p := &Pool{timeout: timeout}
	for _, raw := range urls {
		io, err := dialWorker(raw, timeout)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("connecting to worker %s: %w", raw, err)
		}
		logger.Info("Connected to cluster worker.", "url", raw, "sid", io.Id())
		p.sockets = append(p.sockets, io)
	}
	return p, nil
}

// dialWorker opens one socket.io connection and blocks until it is
// connected or the timeout elapses.
func dialWorker(raw string, timeout time.Duration) (*socket.Socket, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	baseURL := fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)
	opts := socket.DefaultOptions()
	if parsed.Path != "" && parsed.Path != "/" {
		opts.SetPath(parsed.Path)
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket("/", opts)

	done := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) {
		done <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				done <- e
				return
			}
		}
		done <- fmt.Errorf("connect_error")
	})

	select {
	case err := <-done:
		if err != nil {
			io.Disconnect()
			return nil, err
		}
		return io, nil
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %v waiting for connection", timeout)
	}
}

// Size returns the number of connected workers.
func (p *Pool) Size() int { return len(p.sockets) }

// Close disconnects every worker.
func (p *Pool) Close() {
	for _, io := range p.sockets {
		io.Disconnect()
	}
}

// Execute distributes jobs round-robin across the workers. Each worker
// runs its share sequentially; results come back indexed so the returned
// slice matches the job order regardless of completion order. The first
// failure cancels the remaining jobs.
func (p *Pool) Execute(ctx context.Context, jobs []Job) ([]cty.Value, error) {
	results := make([]cty.Value, len(jobs))
	g, gctx := errgroup.WithContext(ctx)

	for w, io := range p.sockets {
		g.Go(func() error {
			for i := w; i < len(jobs); i += len(p.sockets) {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				res, err := p.request(gctx, io, jobs[i])
				if err != nil {
					return fmt.Errorf("job %s/%s on worker %d: %w", jobs[i].Node, jobs[i].Group, w, err)
				}
				results[i] = res
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// request runs one job on one worker: subscribe for the result event,
// emit the job, wait with timeout.
func (p *Pool) request(ctx context.Context, io *socket.Socket, job Job) (cty.Value, error) {
	type opResult struct {
		value cty.Value
		err   error
	}
	done := make(chan opResult, 1)

	io.Once(types.EventName(resultEvent), func(data ...any) {
		if len(data) == 0 {
			done <- opResult{value: cty.NullVal(cty.DynamicPseudoType)}
			return
		}
		payload, ok := data[0].(map[string]any)
		if !ok {
			done <- opResult{err: fmt.Errorf("unexpected result payload type %T", data[0])}
			return
		}
		if msg, ok := payload["error"].(string); ok && msg != "" {
			done <- opResult{err: fmt.Errorf("remote worker: %s", msg)}
			return
		}
		val, err := FromInterface(payload["result"])
		done <- opResult{value: val, err: err}
	})

	io.Emit(runEvent, map[string]any{
		"method":   job.Method,
		"node":     job.Node,
		"group":    job.Group,
		"samples":  job.Samples,
		"dims":     job.Dims,
		"args":     job.Args,
		"group_by": job.GroupBy,
		"collapse": job.Collapse,
	})

	select {
	case <-ctx.Done():
		return cty.NilVal, ctx.Err()
	case <-time.After(p.timeout):
		return cty.NilVal, fmt.Errorf("timed out after %v waiting for %s", p.timeout, resultEvent)
	case res := <-done:
		return res.value, res.err
	}
}
