// Package notify keeps repeated store failures from spamming the user when
// several views refresh against the same broken backend.
package notify

import (
	"log"
	"sync"
	"time"
)

// Notifier shows a message to the user (status bar, stderr, dialog).
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string)

// Notify calls f.
func (f NotifierFunc) Notify(message string) { f(message) }

// Deduper suppresses a notification when its message equals the last one
// shown. Every report is logged regardless. Share one Deduper between all
// views that talk to the same store.
//
// The message/timestamp pair is last-write-wins; two views failing at once
// may both notify, which is acceptable for a spam filter.
type Deduper struct {
	mu          sync.Mutex
	lastMessage string
	lastAt      time.Time

	notifier Notifier
	logger   *log.Logger
	now      func() time.Time
}

// Option configures a Deduper.
type Option func(*Deduper)

// WithLogger sends the log line for every report to l instead of the
// standard logger.
func WithLogger(l *log.Logger) Option {
	return func(d *Deduper) { d.logger = l }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Deduper) { d.now = now }
}

// NewDeduper returns a Deduper that shows messages through n. A nil n only logs.
func NewDeduper(n Notifier, opts ...Option) *Deduper {
	d := &Deduper{notifier: n, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Report logs err and shows it unless it repeats the last shown message.
// It returns true when the notification was shown. A nil err is ignored.
func (d *Deduper) Report(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	d.logf("warning: %s", msg)

	d.mu.Lock()
	if msg == d.lastMessage {
		d.mu.Unlock()
		return false
	}
	d.lastMessage = msg
	d.lastAt = d.now()
	d.mu.Unlock()

	if d.notifier != nil {
		d.notifier.Notify(msg)
	}
	return true
}

// Last returns the last shown message and when it was shown.
func (d *Deduper) Last() (string, time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastMessage, d.lastAt
}

// Reset forgets the last message so the next failure is shown again, for
// example after a refresh succeeded.
func (d *Deduper) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastMessage = ""
	d.lastAt = time.Time{}
}

func (d *Deduper) logf(format string, args ...any) {
	if d.logger != nil {
		d.logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}
