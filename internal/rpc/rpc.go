// Package rpc is a client for the remote agent-execution service that fans
// an action out to configuration-management nodes.
//
// A call is POSTed to {base}/agents/{agent}/actions/{action}. The service
// streams newline-delimited JSON: one {"result": ...} object per node as it
// answers, then a single {"stats": ...} object. Results read before a
// deadline are kept, so a timed-out call still reports the nodes that did
// answer.
package rpc

import (
	"context"
	"errors"
	"time"
)

// ErrIncomplete is returned when the stream ended before the stats summary.
var ErrIncomplete = errors.New("rpc response ended before stats")

// Call describes one action invocation.
type Call struct {
	Agent            string
	Action           string
	Params           map[string]string
	DiscoveryTimeout time.Duration
	Timeout          time.Duration
}

// Budget is the wall-clock limit for the whole call.
func (c Call) Budget() time.Duration {
	return max(c.DiscoveryTimeout, c.Timeout)
}

// NodeResult is one node's answer.
type NodeResult struct {
	Sender     string         `json:"sender"`
	StatusCode int            `json:"statuscode"`
	StatusMsg  string         `json:"statusmsg"`
	Data       map[string]any `json:"data,omitempty"`
}

// OK reports whether the node ran the action successfully.
func (n NodeResult) OK() bool {
	return n.StatusCode == 0
}

// Stats summarises a call across all discovered nodes.
type Stats struct {
	Discovered  int      `json:"discovered"`
	Responses   int      `json:"responses"`
	OKCount     int      `json:"okcount"`
	FailCount   int      `json:"failcount"`
	NoResponse  []string `json:"noresponsefrom,omitempty"`
	BlockTimeMS int64    `json:"blocktime_ms"`
}

// Response is everything read back from a call. Stats is nil when the
// stream was cut short.
type Response struct {
	Results []NodeResult `json:"results"`
	Stats   *Stats       `json:"stats,omitempty"`
}

// Invoker sends an action to the remote execution service. On error the
// returned Response (never nil) holds whatever was read before the failure.
type Invoker interface {
	Invoke(ctx context.Context, call Call) (*Response, error)
}
