package domain

// ProgressManager creates progress tasks for long-running work
type ProgressManager interface {
	// StartTask creates a new task with a description and a total count
	StartTask(description string, total int) TaskProgress

	// IsInteractive returns true if progress is rendered
	IsInteractive() bool

	// Close finishes all tasks
	Close()
}

// TaskProgress reports progress of one task
type TaskProgress interface {
	Increment(n int)
	Describe(description string)
	Complete()
}
