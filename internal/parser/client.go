package parser

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"jobAggregator/internal/logger"
)

const (
	httpTimeout      = 20 * time.Second
	maxRetryAttempts = 3
)

// userAgents — браузероподобные заголовки, выбираются случайно на сессию.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
}

// Client — общая HTTP-сессия парсеров: переиспользуемый http.Client,
// браузероподобный User-Agent, логирование сбоев, повтор с паузой при
// rate-limiting и немедленный отказ при запрете доступа.
type Client struct {
	http      *http.Client
	log       *logger.Zap
	userAgent string
	headers   map[string]string // дополнительные заголовки источника (API-ключ)

	// Пауза перед повтором после 429, рандомизируется в [min, max).
	retryMinDelay time.Duration
	retryMaxDelay time.Duration
}

// NewClient создаёт сессию со случайным User-Agent.
func NewClient(log *logger.Zap) *Client {
	return &Client{
		http:          &http.Client{Timeout: httpTimeout},
		log:           log,
		userAgent:     userAgents[rand.Intn(len(userAgents))],
		retryMinDelay: 20 * time.Second,
		retryMaxDelay: 40 * time.Second,
	}
}

// WithHeaders возвращает копию сессии с постоянными заголовками (например,
// API-ключом). Исходная сессия не меняется: заголовки одного источника
// не должны уходить в запросы к другим.
func (c *Client) WithHeaders(headers map[string]string) *Client {
	clone := *c
	clone.headers = make(map[string]string, len(c.headers)+len(headers))
	for k, v := range c.headers {
		clone.headers[k] = v
	}
	for k, v := range headers {
		clone.headers[k] = v
	}
	return &clone
}

// Fetch выполняет запрос и возвращает тело ответа.
// 429 — рандомизированная пауза и повтор до maxRetryAttempts раз,
// 403 — ErrForbidden сразу, прочие сбои — ошибка после логирования.
func (c *Client) Fetch(ctx context.Context, method, rawURL string, query url.Values) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= maxRetryAttempts; attempt++ {
		body, retryable, err := c.doRequest(ctx, method, rawURL, query)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}

		delay := c.retryMinDelay + time.Duration(rand.Int63n(int64(c.retryMaxDelay-c.retryMinDelay)+1))
		c.log.Warn("Источник ограничил частоту запросов, пауза перед повтором",
			zap.String("url", rawURL),
			zap.Duration("delay", delay),
			zap.Int("attempt", attempt),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("после %d попыток: %w", maxRetryAttempts, lastErr)
}

// doRequest выполняет один запрос; retryable=true только для rate-limiting.
func (c *Client) doRequest(ctx context.Context, method, rawURL string, query url.Values) (body []byte, retryable bool, err error) {
	reqURL := rawURL
	if len(query) > 0 {
		reqURL = rawURL + "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("создание запроса %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("Ошибка запроса к источнику", zap.String("url", rawURL), zap.Error(err))
		return nil, false, fmt.Errorf("запрос %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, fmt.Errorf("источник вернул 429 для %s", rawURL)
	case resp.StatusCode == http.StatusForbidden:
		c.log.Error("Источник запретил доступ", zap.String("url", rawURL))
		return nil, false, fmt.Errorf("%w: %s", ErrForbidden, rawURL)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.log.Error("Неуспешный статус от источника",
			zap.String("url", rawURL),
			zap.Int("status", resp.StatusCode),
		)
		return nil, false, fmt.Errorf("статус %d для %s", resp.StatusCode, rawURL)
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("чтение ответа %s: %w", rawURL, err)
	}
	return body, false, nil
}
