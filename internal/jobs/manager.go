// Package jobs tracks translation job lifecycle, cancellation handles and
// the event stream consumed by the UI.
package jobs

import (
	"errors"
	"fmt"
	"sync"

	"ebook-translator/internal/domain"
)

// ErrJobAlreadyRunning is returned when starting a second active job.
var ErrJobAlreadyRunning = errors.New("job already running")

// ErrNoRunningJob is returned when cancel is requested for idle state.
var ErrNoRunningJob = errors.New("no running job")

// Manager tracks the single allowed active job and its phase transitions.
type Manager struct {
	mu      sync.RWMutex
	current domain.Job
}

// NewManager creates a manager in idle state.
func NewManager() *Manager {
	return &Manager{
		current: domain.Job{
			Phase: domain.JobPhaseIdle,
		},
	}
}

// Start creates a new job and moves it to the loading phase.
func (m *Manager) Start(jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if isRunning(m.current.Phase) {
		return ErrJobAlreadyRunning
	}

	m.current = domain.Job{
		ID:    jobID,
		Phase: domain.JobPhaseLoading,
	}
	return nil
}

// Transition validates and applies phase transitions for the current job.
func (m *Manager) Transition(phase domain.JobPhase) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.ID == "" && phase != domain.JobPhaseIdle {
		return fmt.Errorf("cannot transition without an active job")
	}
	if phase == m.current.Phase {
		return nil
	}
	if !isValidTransition(m.current.Phase, phase) {
		return fmt.Errorf("invalid transition: %s -> %s", m.current.Phase, phase)
	}

	m.current.Phase = phase
	return nil
}

// Current returns a snapshot of the current job.
func (m *Manager) Current() domain.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Reset clears job metadata and returns the manager to idle.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = domain.Job{Phase: domain.JobPhaseIdle}
}

// IsRunning reports whether the current phase is an active stage.
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return isRunning(m.current.Phase)
}

// Cancel moves an active job to the cancelled phase.
func (m *Manager) Cancel() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !isRunning(m.current.Phase) {
		return ErrNoRunningJob
	}
	m.current.Phase = domain.JobPhaseCancelled
	return nil
}

// isRunning checks if a phase represents active pipeline execution.
func isRunning(phase domain.JobPhase) bool {
	switch phase {
	case domain.JobPhaseLoading, domain.JobPhaseTranslating, domain.JobPhaseSaving:
		return true
	default:
		return false
	}
}

// isValidTransition enforces the allowed job phase machine edges. Saving may
// return to translating because the archive is rewritten after every
// finished chapter.
func isValidTransition(from, to domain.JobPhase) bool {
	switch from {
	case domain.JobPhaseIdle:
		return to == domain.JobPhaseLoading
	case domain.JobPhaseLoading:
		return to == domain.JobPhaseTranslating || to == domain.JobPhaseError || to == domain.JobPhaseCancelled
	case domain.JobPhaseTranslating:
		return to == domain.JobPhaseSaving || to == domain.JobPhaseError || to == domain.JobPhaseCancelled
	case domain.JobPhaseSaving:
		return to == domain.JobPhaseTranslating || to == domain.JobPhaseComplete || to == domain.JobPhaseError || to == domain.JobPhaseCancelled
	case domain.JobPhaseComplete, domain.JobPhaseError, domain.JobPhaseCancelled:
		return to == domain.JobPhaseLoading || to == domain.JobPhaseIdle
	default:
		return false
	}
}
