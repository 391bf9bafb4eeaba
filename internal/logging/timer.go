package logging

import (
	"fmt"
	"time"
)

// Timer measures wall-clock time for a named piece of work.
type Timer struct {
	Content string
	Start   time.Time

	emit func(Message)
}

// NewTimer starts a timer that reports through emit.
func NewTimer(content string, emit func(Message)) *Timer {
	return &Timer{
		Content: content,
		Start:   time.Now(),
		emit:    emit,
	}
}

// Stop emits one TIMER message "Runtime: <elapsed> for <content>" and
// returns the elapsed duration.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.Start)
	if t.emit != nil {
		t.emit(NewMessage(LevelTimer, "", fmt.Sprintf("Runtime: %s for %s", elapsed, t.Content)))
	}
	return elapsed
}
