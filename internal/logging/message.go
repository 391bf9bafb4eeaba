package logging

import (
	"fmt"
	"strings"
	"time"
)

// Message is a single log entry. It is built by the Logging convenience
// methods, queued once, and handed to every writer that accepts it.
type Message struct {
	Time    time.Time `json:"time"`
	App     string    `json:"app,omitempty"`
	Tag     string    `json:"tag,omitempty"`
	Content string    `json:"content,omitempty"`
	Level   Level     `json:"level,omitempty"`
	Raw     bool      `json:"raw,omitempty"`

	// Progress fields, set only for LevelProgress.
	Counter int     `json:"counter,omitempty"`
	Limit   int     `json:"limit,omitempty"`
	Value   float64 `json:"value,omitempty"`

	// clear marks an in-band request for writers to reset their line.
	clear bool
}

// NewMessage returns a message stamped with the current time.
func NewMessage(level Level, tag, content string) Message {
	return Message{
		Time:    time.Now(),
		Level:   level,
		Tag:     tag,
		Content: content,
	}
}

// Line renders the plain text form "<app> <LEVEL> <tag>: <content>".
// Raw messages render their content unchanged.
func (m Message) Line() string {
	if m.Raw {
		return m.Content
	}

	var b strings.Builder
	if m.App != "" {
		b.WriteString(m.App)
		b.WriteByte(' ')
	}
	b.WriteString(string(m.Level))
	if m.Tag != "" {
		b.WriteByte(' ')
		b.WriteString(m.Tag)
	}
	b.WriteString(": ")
	if m.Level == LevelProgress {
		fmt.Fprintf(&b, "%d/%d %.2f%%", m.Counter, m.Limit, m.Value)
	} else {
		b.WriteString(m.Content)
	}
	return b.String()
}
