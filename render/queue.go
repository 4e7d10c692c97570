// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"slices"
	"sync"
)

// QueueKind selects what happens to consumed commands.
type QueueKind uint8

const (
	// QueueStatic replays its commands every frame.
	QueueStatic QueueKind = iota
	// QueueDynamic discards commands once consumed.
	QueueDynamic
)

// String returns "static" or "dynamic".
func (k QueueKind) String() string {
	if k == QueueStatic {
		return "static"
	}
	return "dynamic"
}

// RenderQueue is an ordered sequence of commands, safe for concurrent use.
type RenderQueue struct {
	name     string
	kind     QueueKind
	priority int

	mu        sync.Mutex
	commands  []*RenderCommand
	committed int
}

// NewRenderQueue creates a queue. Lower priority values commit first.
func NewRenderQueue(name string, kind QueueKind, priority int) *RenderQueue {
	return &RenderQueue{name: name, kind: kind, priority: priority}
}

// Name returns the queue name.
func (q *RenderQueue) Name() string { return q.name }

// Kind returns the queue kind.
func (q *RenderQueue) Kind() QueueKind { return q.kind }

// Priority returns the queue priority.
func (q *RenderQueue) Priority() int { return q.priority }

// AddCommand appends cmd and counts it as committed. Nil is ignored.
func (q *RenderQueue) AddCommand(cmd *RenderCommand) {
	if cmd == nil {
		return
	}
	q.mu.Lock()
	q.commands = append(q.commands, cmd)
	q.committed++
	q.mu.Unlock()
}

// NextCommand consumes the front command, or returns nil when empty.
// A static queue moves it to the back; a dynamic queue drops it and
// decrements the committed count.
func (q *RenderQueue) NextCommand() *RenderCommand {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.commands) == 0 {
		return nil
	}
	cmd := q.commands[0]

	if q.kind == QueueStatic {
		copy(q.commands, q.commands[1:])
		q.commands[len(q.commands)-1] = cmd
		return cmd
	}

	q.commands[0] = nil
	q.commands = q.commands[1:]
	if q.committed > 0 {
		q.committed--
	}
	return cmd
}

// CommittedCommands returns how many commands a commit pass should
// consume.
func (q *RenderQueue) CommittedCommands() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.committed
}

// Len returns the number of queued commands.
func (q *RenderQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.commands)
}

// Clear drops every command.
func (q *RenderQueue) Clear() {
	q.mu.Lock()
	q.commands = nil
	q.committed = 0
	q.mu.Unlock()
}

// QueueSet holds queues in commit order: ascending priority, insertion
// order among equal priorities. It is safe for concurrent use.
type QueueSet struct {
	mu     sync.RWMutex
	queues []*RenderQueue
}

// Add inserts q. Adding a queue twice is a no-op.
func (s *QueueSet) Add(q *RenderQueue) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if slices.Contains(s.queues, q) {
		return
	}
	i := len(s.queues)
	for i > 0 && s.queues[i-1].priority > q.priority {
		i--
	}
	s.queues = slices.Insert(s.queues, i, q)
}

// Remove deletes q. It reports whether q was present.
func (s *QueueSet) Remove(q *RenderQueue) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.Index(s.queues, q)
	if i < 0 {
		return false
	}
	s.queues = slices.Delete(s.queues, i, i+1)
	return true
}

// Queues returns a snapshot in commit order.
func (s *QueueSet) Queues() []*RenderQueue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.queues)
}

// Len returns the number of queues.
func (s *QueueSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.queues)
}
