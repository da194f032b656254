package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/techspeque/specstudio/internal/deps"
	"github.com/techspeque/specstudio/internal/errors"
	"github.com/techspeque/specstudio/internal/logging"
)

// Service is the process control surface the handler drives.
// *process.Supervisor satisfies it through SupervisorService.
type Service interface {
	Spawn(ctx context.Context, action, cwd string, params map[string]string) (string, error)
	SendInput(processID, input string) error
	CancelAll() int
	Running() []string
}

// DependencyChecker reports installed tools.
type DependencyChecker interface {
	Check(ctx context.Context) deps.Result
}

// Handler implements the RPC methods independent of transport
type Handler struct {
	svc    Service
	deps   DependencyChecker
	logger *logging.Logger
}

// NewHandler creates a Handler. checker may be nil, in which case
// check_dependencies reports an empty list.
func NewHandler(svc Service, checker DependencyChecker, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Handler{svc: svc, deps: checker, logger: logger.WithComponent("rpc")}
}

// SpawnStreamingProcess starts a run. Failures before the child starts are
// returned as errors; later failures arrive only as events.
func (h *Handler) SpawnStreamingProcess(ctx context.Context, req SpawnRequest) (SpawnResponse, error) {
	id, err := h.svc.Spawn(ctx, req.Action, req.WorkingDirectory, req.BuildParams())
	if err != nil {
		return SpawnResponse{}, err
	}
	return SpawnResponse{Started: true, ProcessID: id}, nil
}

// SendProcessInput injects input into a run.
func (h *Handler) SendProcessInput(req InputRequest) (InputResponse, error) {
	if err := h.svc.SendInput(req.ProcessID, req.Input); err != nil {
		return InputResponse{Success: false, Message: err.Error()}, err
	}
	return InputResponse{Success: true, Message: "Input sent"}, nil
}

// CancelStreamingProcesses force-kills every tracked run.
func (h *Handler) CancelStreamingProcesses() CancelResponse {
	n := h.svc.CancelAll()
	h.logger.Info("cancel requested", "count", n)
	return CancelResponse{Success: true}
}

// CheckDependencies reports the installed CLI tools.
func (h *Handler) CheckDependencies(ctx context.Context) deps.Result {
	if h.deps == nil {
		return deps.Result{AllInstalled: true, Dependencies: []deps.Status{}}
	}
	return h.deps.Check(ctx)
}

// ListStreamingProcesses names the tracked runs.
func (h *Handler) ListStreamingProcesses() ListResponse {
	ids := h.svc.Running()
	if ids == nil {
		ids = []string{}
	}
	return ListResponse{ProcessIDs: ids}
}

// Dispatch routes one request by method name.
func (h *Handler) Dispatch(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case MethodSpawn:
		var req SpawnRequest
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.SpawnStreamingProcess(ctx, req)
	case MethodSendInput:
		var req InputRequest
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.SendProcessInput(req)
	case MethodCancel:
		return h.CancelStreamingProcesses(), nil
	case MethodCheckDeps:
		return h.CheckDependencies(ctx), nil
	case MethodList:
		return h.ListStreamingProcesses(), nil
	default:
		return nil, errors.NewConfigError(fmt.Sprintf("unknown method %q", method), nil)
	}
}

func decodeParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.NewConfigError("invalid request parameters", err)
	}
	return nil
}

// errorPayload converts err to its wire form.
// errorPayload describes err for the frontend. Only user-facing messages
// are passed through; anything else is logged by the server and reported
// generically.
func errorPayload(err error) *ErrorPayload {
	if err == nil {
		return nil
	}
	msg := "internal error"
	if errors.IsUserFacing(err) {
		msg = err.Error()
	}
	return &ErrorPayload{
		Code:     errors.Code(err),
		Message:  msg,
		Severity: errors.GetSeverity(err).String(),
		PreStart: errors.IsPreStart(err),
	}
}
