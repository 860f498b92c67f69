package batch

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"time"
)

// ErrJobAlreadyRunning is returned when a launch overlaps an in-flight
// execution of the same job.
var ErrJobAlreadyRunning = errors.New("job is already running")

// Launcher runs jobs synchronously and enforces one execution per job name
// at a time. Cron fires and admin triggers go through the same launcher, so
// the single-flight guarantee holds across both.
type Launcher struct {
	mu      sync.Mutex
	running map[string]bool
	last    map[string]Execution
}

func NewLauncher() *Launcher {
	return &Launcher{
		running: make(map[string]bool),
		last:    make(map[string]Execution),
	}
}

// Run executes the job and returns its Execution record. The record is
// also returned on failure, with status FAILED and the error preserved in
// ExitDescription.
func (l *Launcher) Run(ctx context.Context, job Job, params Params) (Execution, error) {
	name := job.Name()

	l.mu.Lock()
	if l.running[name] {
		l.mu.Unlock()
		return Execution{}, ErrJobAlreadyRunning
	}
	l.running[name] = true
	l.mu.Unlock()

	exec := newExecution(name, params)
	exec.Status = StatusRunning
	exec.StartTime = time.Now()
	log.Printf("[batch] %s started, baseDate=%s", name, exec.BaseDate)

	read, written, err := job.Run(ctx, params)
	exec.EndTime = time.Now()
	exec.ReadCount = read
	exec.WriteCount = written
	if err != nil {
		exec.Status = StatusFailed
		exec.ExitDescription = err.Error()
		log.Printf("[batch] %s failed after %s: %v", name, exec.EndTime.Sub(exec.StartTime), err)
	} else {
		exec.Status = StatusCompleted
		log.Printf("[batch] %s completed in %s, read=%d written=%d",
			name, exec.EndTime.Sub(exec.StartTime), read, written)
	}

	l.mu.Lock()
	l.running[name] = false
	l.last[name] = exec
	l.mu.Unlock()

	return exec, err
}

// IsRunning reports whether an execution of the named job is in flight.
func (l *Launcher) IsRunning(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running[name]
}

// LastExecutions returns the most recent execution of every job that has
// run, sorted by job name for stable output.
func (l *Launcher) LastExecutions() []Execution {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Execution, 0, len(l.last))
	for _, exec := range l.last {
		out = append(out, exec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JobName < out[j].JobName })
	return out
}
