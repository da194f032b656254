package rpc

import "github.com/techspeque/specstudio/internal/process"

// SupervisorService adapts a *process.Supervisor to Service.
type SupervisorService struct {
	*process.Supervisor
}

// Running returns the ids the supervisor's registry tracks.
func (s SupervisorService) Running() []string {
	return s.Registry().IDs()
}
