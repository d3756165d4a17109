package core

import (
	"fmt"
	"time"
)

// MissionStatus enumerates the lifecycle states of a Mission.
type MissionStatus string

const (
	// MissionActive is the normal working state.
	MissionActive MissionStatus = "active"
	// MissionPaused suspends delegation without discarding the plan.
	MissionPaused MissionStatus = "paused"
	// MissionCompleted marks the standing intent as fulfilled (terminal).
	MissionCompleted MissionStatus = "completed"
	// MissionAbandoned marks the intent as dropped by the user (terminal).
	MissionAbandoned MissionStatus = "abandoned"
)

// Mission is a user's standing intent for a space. It wraps at most one plan
// at a time and exposes aggregate progress derived from that plan.
type Mission struct {
	ID        string        `json:"id"`
	SpaceID   string        `json:"space_id"`
	Intent    string        `json:"intent"`
	Status    MissionStatus `json:"status"`
	Plan      *Plan         `json:"plan,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewMission creates an active mission for the given space and intent.
func NewMission(spaceID, intent string) *Mission {
	now := time.Now().UTC()
	return &Mission{
		ID:        NewID(),
		SpaceID:   spaceID,
		Intent:    intent,
		Status:    MissionActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetPlan attaches a plan, replacing any previous one.
func (m *Mission) SetPlan(p *Plan) {
	m.Plan = p
	m.UpdatedAt = time.Now().UTC()
}

// Progress returns the wrapped plan's progress, or a zero summary when no
// plan is attached.
func (m *Mission) Progress() Progress {
	if m.Plan == nil {
		return Progress{Counts: map[TaskStatus]int{}}
	}
	return m.Plan.Progress()
}

// Pause suspends an active mission.
func (m *Mission) Pause() error {
	if m.Status != MissionActive {
		return fmt.Errorf("%w: cannot pause mission in status %q", ErrInvalidTransition, m.Status)
	}
	m.Status = MissionPaused
	m.UpdatedAt = time.Now().UTC()
	return nil
}

// Resume reactivates a paused mission.
func (m *Mission) Resume() error {
	if m.Status != MissionPaused {
		return fmt.Errorf("%w: cannot resume mission in status %q", ErrInvalidTransition, m.Status)
	}
	m.Status = MissionActive
	m.UpdatedAt = time.Now().UTC()
	return nil
}

// Complete marks the mission fulfilled. Allowed from active or paused.
func (m *Mission) Complete() error {
	if m.Status == MissionCompleted || m.Status == MissionAbandoned {
		return fmt.Errorf("%w: cannot complete mission in status %q", ErrInvalidTransition, m.Status)
	}
	m.Status = MissionCompleted
	m.UpdatedAt = time.Now().UTC()
	return nil
}

// Abandon drops the mission. Allowed from any non-terminal state.
func (m *Mission) Abandon() error {
	if m.Status == MissionCompleted || m.Status == MissionAbandoned {
		return fmt.Errorf("%w: cannot abandon mission in status %q", ErrInvalidTransition, m.Status)
	}
	m.Status = MissionAbandoned
	m.UpdatedAt = time.Now().UTC()
	return nil
}
