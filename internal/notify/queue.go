// Package notify: очередь всплывающих уведомлений об итогах операций над заказом.
//
// Уведомления стоят в порядке FIFO, на экране не больше VisibleLimit самых старых.
// Голова живёт ttl с момента, когда она стала головой; таймер перевзводится при
// каждой смене головы (push в пустую очередь, Expire, Dismiss головы).
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

const (
	DefaultTTL          = 3 * time.Second
	DefaultVisibleLimit = 3
)

type Notification struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	Kind    Kind   `json:"kind"`
}

type Queue struct {
	mu        sync.Mutex
	items     []Notification
	ttl       time.Duration
	visible   int
	headSince time.Time
	wake      chan struct{}
}

func NewQueue(ttl time.Duration, visible int) *Queue {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if visible <= 0 {
		visible = DefaultVisibleLimit
	}

	return &Queue{ttl: ttl, visible: visible, wake: make(chan struct{}, 1)}
}

// headChanged вызывается под mu.
func (q *Queue) headChanged() {
	q.headSince = time.Now()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) Push(kind Kind, message string) string {
	n := Notification{
		ID:      uuid.NewString(),
		Message: message,
		Kind:    kind,
	}

	q.mu.Lock()
	q.items = append(q.items, n)
	if len(q.items) == 1 {
		q.headChanged()
	}
	q.mu.Unlock()

	return n.ID
}

func (q *Queue) Success(message string) string { return q.Push(KindSuccess, message) }
func (q *Queue) Warning(message string) string { return q.Push(KindWarning, message) }
func (q *Queue) Error(message string) string   { return q.Push(KindError, message) }

// Visible возвращает копию видимого окна (не больше visible самых старых).
func (q *Queue) Visible() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := min(len(q.items), q.visible)
	out := make([]Notification, n)
	copy(out, q.items[:n])

	return out
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

// Dismiss удаляет уведомление по id сразу, вне зависимости от таймера.
func (q *Queue) Dismiss(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, n := range q.items {
		if n.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			if i == 0 {
				q.headChanged()
			}
			return true
		}
	}

	return false
}

// Expire снимает голову очереди. Возвращает false, если очередь пуста.
func (q *Queue) Expire() (Notification, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Notification{}, false
	}

	head := q.items[0]
	q.items = q.items[1:]
	q.headChanged()

	return head, true
}

// untilHeadExpires: сколько осталось жить голове. false, если очередь пуста.
func (q *Queue) untilHeadExpires() (time.Duration, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return 0, false
	}

	return q.ttl - time.Since(q.headSince), true
}

// expireDue снимает голову, только если её срок действительно вышел.
func (q *Queue) expireDue() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 || time.Since(q.headSince) < q.ttl {
		return
	}

	q.items = q.items[1:]
	q.headChanged()
}

// Run снимает головы очереди по истечении ttl до отмены ctx.
// Пока очередь пуста, таймер остановлен.
func (q *Queue) Run(ctx context.Context) {
	timer := time.NewTimer(q.ttl)
	timer.Stop()
	defer timer.Stop()

	for {
		if wait, ok := q.untilHeadExpires(); ok {
			timer.Reset(max(wait, 0))
		} else {
			timer.Stop()
		}

		select {
		case <-ctx.Done():
			return
		case <-q.wake:
		case <-timer.C:
			q.expireDue()
		}
	}
}
