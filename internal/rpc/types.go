// Package rpc exposes the streaming process commands to a GUI frontend.
//
// Requests and responses travel as JSON frames over a websocket; stream
// events are broadcast to every connected client on event.Channel.
package rpc

import (
	"encoding/json"

	"github.com/techspeque/specstudio/internal/command"
	"github.com/techspeque/specstudio/internal/event"
)

// Method names
const (
	MethodSpawn     = "spawn_streaming_process"
	MethodSendInput = "send_process_input"
	MethodCancel    = "cancel_streaming_processes"
	MethodCheckDeps = "check_dependencies"
	MethodList      = "list_streaming_processes"
)

// SpawnRequest asks for a new streaming run
type SpawnRequest struct {
	Action           string            `json:"action"`
	WorkingDirectory string            `json:"workingDirectory,omitempty"`
	Params           map[string]string `json:"params,omitempty"`
	// SpecContent and ADRContext are accepted at the top level as well as
	// inside Params; top-level values win.
	SpecContent *string `json:"specContent,omitempty"`
	ADRContext  *string `json:"adrContext,omitempty"`
}

// BuildParams merges the top-level content fields into Params.
func (r *SpawnRequest) BuildParams() map[string]string {
	params := make(map[string]string, len(r.Params)+2)
	for k, v := range r.Params {
		params[k] = v
	}
	if v, ok := params["specContent"]; ok {
		params[command.ParamSpecContent] = v
		delete(params, "specContent")
	}
	if v, ok := params["adrContext"]; ok {
		params[command.ParamADRContext] = v
		delete(params, "adrContext")
	}
	if r.SpecContent != nil {
		params[command.ParamSpecContent] = *r.SpecContent
	}
	if r.ADRContext != nil {
		params[command.ParamADRContext] = *r.ADRContext
	}
	return params
}

// SpawnResponse acknowledges a started run
type SpawnResponse struct {
	Started   bool   `json:"started"`
	ProcessID string `json:"processId"`
}

// InputRequest injects text into a run. An empty ProcessID targets the
// most recently started run.
type InputRequest struct {
	Input     string `json:"input"`
	ProcessID string `json:"processId,omitempty"`
}

// InputResponse reports the outcome of an injection
type InputResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// CancelResponse is always successful
type CancelResponse struct {
	Success bool `json:"success"`
}

// ListResponse names the tracked runs
type ListResponse struct {
	ProcessIDs []string `json:"processIds"`
}

// Frame types
const (
	FrameRequest  = "request"
	FrameResponse = "response"
	FrameEvent    = "event"
)

// Request is an inbound call from the frontend
type Request struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// ErrorPayload is the structured error returned for a failed call
type ErrorPayload struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Severity string `json:"severity"`

	// PreStart is set when the call failed before any process launched.
	PreStart bool `json:"preStart"`
}

// Frame is every outbound message: a response to one request, or a
// broadcast event.
type Frame struct {
	Type    string             `json:"type"`
	ID      string             `json:"id,omitempty"`
	Result  any                `json:"result,omitempty"`
	Error   *ErrorPayload      `json:"error,omitempty"`
	Channel string             `json:"channel,omitempty"`
	Payload *event.StreamEvent `json:"payload,omitempty"`
}
