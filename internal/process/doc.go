// Package process supervises streaming child processes.
//
// A Supervisor turns a built command into a running child attached to
// pipes or a pseudo-terminal, registers it in a Registry, pumps its output
// to an event.Sink chunk by chunk, and always finishes the run with exactly
// one complete event after its prompt file is removed.
//
// The typical lifecycle is:
//  1. Spawn builds the command, starts the child, and registers it
//  2. A started event with the OS pid is emitted
//  3. Output pumps stream stdout/stderr (or the PTY master) as events
//  4. The waiter joins the pumps, reaps the child, and cleans up
//  5. A complete event carries the exit code
//
// Input reaches a run through SendInput or GhostAutomation, both writing
// to the run's WriteChannel. CancelAll force-kills every tracked run's
// process group.
package process
