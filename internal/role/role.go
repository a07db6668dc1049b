// Package role defines the pipeline roles and the per-role memory model.
package role

import "strings"

// Role identifies one of the four pipeline roles.
type Role string

// Pipeline roles, in pipeline order.
const (
	Plan   Role = "PLAN"
	Build  Role = "BUILD"
	Review Role = "REVIEW"
	Deploy Role = "DEPLOY"
)

// All returns the roles in pipeline order.
func All() []Role {
	return []Role{Plan, Build, Review, Deploy}
}

// Parse converts a string to a Role. The second return value reports
// whether the input named a known role.
func Parse(s string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case Plan:
		return Plan, true
	case Build:
		return Build, true
	case Review:
		return Review, true
	case Deploy:
		return Deploy, true
	}
	return "", false
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case Plan, Build, Review, Deploy:
		return true
	}
	return false
}

// OutputKind distinguishes shell command output from model output.
type OutputKind string

const (
	KindShell OutputKind = "shell"
	KindAgent OutputKind = "agent"
)

// OutputStatus is the lifecycle status of an output record.
type OutputStatus string

const (
	StatusIdle     OutputStatus = "idle"
	StatusRunning  OutputStatus = "running"
	StatusAwaiting OutputStatus = "awaiting" // blocked on a permission decision
	StatusSuccess  OutputStatus = "success"
	StatusError    OutputStatus = "error"
)

// Valid reports whether s is a known output status.
func (s OutputStatus) Valid() bool {
	switch s {
	case StatusIdle, StatusRunning, StatusAwaiting, StatusSuccess, StatusError:
		return true
	}
	return false
}

// Terminal reports whether s is a terminal status.
func (s OutputStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusError
}

// TaskStatus is the lifecycle status of a task.
type TaskStatus string

const (
	TaskPending  TaskStatus = "pending"
	TaskActive   TaskStatus = "active"
	TaskComplete TaskStatus = "complete"
	TaskSkipped  TaskStatus = "skipped"
	TaskFailed   TaskStatus = "failed"
)

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskActive, TaskComplete, TaskSkipped, TaskFailed:
		return true
	}
	return false
}
