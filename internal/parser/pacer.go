package parser

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Pacer реализует token bucket для вежливого темпа запросов к источнику:
// не больше requestsPerMinute запросов, токены пополняются пропорционально
// прошедшему времени. Каждый источник получает собственный Pacer, поэтому
// состояние между воркерами не разделяется.
type Pacer struct {
	requestsPerMinute int

	tokens    int
	capacity  int
	mu        sync.Mutex
	lastCheck time.Time
}

// NewPacer создаёт pacer с заданным лимитом запросов в минуту.
func NewPacer(requestsPerMinute int) *Pacer {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 30 // дефолт: 30 запросов в минуту
	}
	return &Pacer{
		requestsPerMinute: requestsPerMinute,
		tokens:            requestsPerMinute,
		capacity:          requestsPerMinute,
		lastCheck:         time.Now(),
	}
}

// refill пополняет токены пропорционально прошедшему времени.
func (p *Pacer) refill() {
	now := time.Now()
	elapsed := now.Sub(p.lastCheck)

	p.tokens += int(elapsed.Minutes() * float64(p.requestsPerMinute))
	if p.tokens > p.capacity {
		p.tokens = p.capacity
	}
	p.lastCheck = now
}

// Wait блокируется, пока не появится свободный токен или не истечёт контекст.
func (p *Pacer) Wait(ctx context.Context) error {
	interval := time.Minute / time.Duration(p.requestsPerMinute)

	for {
		p.mu.Lock()
		p.refill()
		if p.tokens > 0 {
			p.tokens--
			p.mu.Unlock()
			return nil
		}
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// SleepJitter выдерживает случайную паузу в [min, max) — пауза между
// обращениями к HTML-источнику, снижающая шанс блокировки.
func SleepJitter(ctx context.Context, min, max time.Duration) error {
	if max <= min {
		max = min + time.Millisecond
	}
	delay := min + time.Duration(rand.Int63n(int64(max-min)))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}
