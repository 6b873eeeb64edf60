// Package diagnostics provides tagged errors and the per-run message
// buffer that ingestion, scraping, and analysis write findings into.
package diagnostics

import (
	"sync"
	"time"
)

// Level grades a diagnostic message.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Message is one collected finding.
type Message struct {
	Level    Level     `json:"level"`
	Category string    `json:"category"`
	Message  string    `json:"message"`
	Hint     string    `json:"hint,omitempty"`
	At       time.Time `json:"at"`
}

// Summary counts collected messages by level.
type Summary struct {
	Total    int `json:"total"`
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Infos    int `json:"infos"`
}

// Collector is an append-only buffer of diagnostic messages. It is
// safe for concurrent use; the analysis run resets it at start so the
// buffer always describes the most recent run.
type Collector struct {
	mu       sync.Mutex
	messages []Message
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Info records an informational message.
func (c *Collector) Info(category, message string) {
	c.add(LevelInfo, category, message, "")
}

// Warning records a warning with an optional operator hint.
func (c *Collector) Warning(category, message, hint string) {
	c.add(LevelWarning, category, message, hint)
}

// Error records an error with an optional operator hint.
func (c *Collector) Error(category, message, hint string) {
	c.add(LevelError, category, message, hint)
}

func (c *Collector) add(level Level, category, message, hint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, Message{
		Level:    level,
		Category: category,
		Message:  message,
		Hint:     hint,
		At:       time.Now(),
	})
}

// Messages returns a copy of all collected messages in order.
func (c *Collector) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Warnings returns all warning-level messages.
func (c *Collector) Warnings() []Message {
	return c.filter(LevelWarning)
}

// Errors returns all error-level messages.
func (c *Collector) Errors() []Message {
	return c.filter(LevelError)
}

// ByCategory returns all messages with the given category.
func (c *Collector) ByCategory(category string) []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Message
	for _, m := range c.messages {
		if m.Category == category {
			out = append(out, m)
		}
	}
	return out
}

func (c *Collector) filter(level Level) []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Message
	for _, m := range c.messages {
		if m.Level == level {
			out = append(out, m)
		}
	}
	return out
}

// Summary counts the collected messages by level.
func (c *Collector) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Summary{Total: len(c.messages)}
	for _, m := range c.messages {
		switch m.Level {
		case LevelError:
			s.Errors++
		case LevelWarning:
			s.Warnings++
		default:
			s.Infos++
		}
	}
	return s
}

// Reset discards all collected messages.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
}
