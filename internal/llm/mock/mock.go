// Package mock provides a scripted llm.Client for tests.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/helixdocs/orchestrator/internal/llm"
)

// Call records one completion request made against the mock.
type Call struct {
	Purpose string
	Msgs    []llm.Message
}

// Client replays queued responses per purpose. It is safe for concurrent use.
type Client struct {
	mu        sync.Mutex
	responses map[string][]string
	errs      map[string]error
	calls     []Call
}

// NewClient returns an empty mock; queue responses before use.
func NewClient() *Client {
	return &Client{
		responses: make(map[string][]string),
		errs:      make(map[string]error),
	}
}

// Queue appends replies to be returned, in order, for completions with the
// given purpose. The last reply is repeated once the queue runs out.
func (c *Client) Queue(purpose string, replies ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses[purpose] = append(c.responses[purpose], replies...)
}

// Fail makes every completion with the given purpose return err.
func (c *Client) Fail(purpose string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs[purpose] = err
}

// Calls returns a copy of all recorded requests.
func (c *Client) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Call, len(c.calls))
	copy(out, c.calls)
	return out
}

// CallsFor returns the number of recorded requests with the given purpose.
func (c *Client) CallsFor(purpose string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, call := range c.calls {
		if call.Purpose == purpose {
			n++
		}
	}
	return n
}

// Complete implements llm.Client.
func (c *Client) Complete(ctx context.Context, purpose string, msgs []llm.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return c.next(purpose, msgs)
}

// CompleteJSON implements llm.Client.
func (c *Client) CompleteJSON(ctx context.Context, purpose string, msgs []llm.Message, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	text, err := c.next(purpose, msgs)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(llm.StripFences(text)), out); err != nil {
		return fmt.Errorf("%w: %v", llm.ErrMalformedJSON, err)
	}
	return nil
}

func (c *Client) next(purpose string, msgs []llm.Message) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, Call{Purpose: purpose, Msgs: msgs})
	if err := c.errs[purpose]; err != nil {
		return "", err
	}
	queue := c.responses[purpose]
	if len(queue) == 0 {
		return "", fmt.Errorf("mock: no response queued for purpose %q", purpose)
	}
	reply := queue[0]
	if len(queue) > 1 {
		c.responses[purpose] = queue[1:]
	}
	return reply, nil
}
