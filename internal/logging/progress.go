package logging

import "time"

// Progress counts steps towards a limit and emits PROGRESS messages.
//
// With an interval of zero every step emits. With an interval N > 0 the
// interval counter advances once per step and wraps to zero on every Nth
// step; only the wrapping step emits. Progress is owned by one goroutine.
type Progress struct {
	limit    int
	counter  int
	value    float64
	finished bool

	interval        int
	intervalCounter int

	emit func(Message)
}

// NewProgress returns a Progress that reports through emit.
func NewProgress(limit, interval int, emit func(Message)) *Progress {
	if interval < 0 {
		interval = 0
	}
	return &Progress{
		limit:    limit,
		interval: interval,
		emit:     emit,
	}
}

// Inc advances the counter by one. Counting past the limit is allowed; the
// reported value stays at 100 and the progress is no longer finished.
func (p *Progress) Inc() {
	p.counter++
	p.step()
}

// Dec is a step like Inc: it advances the counter by one. Callers counting
// down pass the remaining amount through Set instead.
func (p *Progress) Dec() {
	p.counter++
	p.step()
}

// Set positions the counter and always emits.
func (p *Progress) Set(counter int) {
	if counter < 0 {
		counter = 0
	}
	p.counter = counter
	p.recalc()
	p.send()
}

func (p *Progress) step() {
	p.recalc()

	if p.interval == 0 {
		p.send()
		return
	}

	p.intervalCounter++
	if p.intervalCounter == p.interval {
		p.intervalCounter = 0
		p.send()
	}
}

func (p *Progress) recalc() {
	switch {
	case p.limit <= 0:
		p.value = 100
	default:
		p.value = float64(p.counter) * 100 / float64(p.limit)
		if p.value > 100 {
			p.value = 100
		}
	}
	p.finished = p.counter == p.limit
}

func (p *Progress) send() {
	if p.emit == nil {
		return
	}
	p.emit(Message{
		Time:    time.Now(),
		Level:   LevelProgress,
		Counter: p.counter,
		Limit:   p.limit,
		Value:   p.value,
	})
}

// Counter returns the current step count.
func (p *Progress) Counter() int { return p.counter }

// Limit returns the configured limit.
func (p *Progress) Limit() int { return p.limit }

// Value returns the completion percentage in [0, 100].
func (p *Progress) Value() float64 { return p.value }

// Finished reports whether the counter equals the limit.
func (p *Progress) Finished() bool { return p.finished }
