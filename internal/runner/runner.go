// Package runner replays generated test cases against the live target under
// a concurrency cap and a global request rate.
package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/BetterCallFirewall/surfacerecon/internal/limits"
	"github.com/BetterCallFirewall/surfacerecon/internal/models"
)

const (
	defaultUserAgent = "surfacerecon/1.0"
	truncationMarker = "\n... (truncated)"
	cancelledError   = "Request cancelled"
)

var bodyMethods = map[string]bool{
	http.MethodPost:  true,
	http.MethodPut:   true,
	http.MethodPatch: true,
}

// EventSink receives per-test completion events. A nil sink drops them.
type EventSink interface {
	TestCompleted(testID string, completed, total int, success bool)
}

// Options задаёт сессионный материал и канал прогресса реплея.
type Options struct {
	UserAgent      string
	DefaultHeaders map[string]string
	Cookies        []models.SessionCookie
	Sink           EventSink
}

type Runner struct {
	log    zerolog.Logger
	limits *limits.PipelineLimits
	client *http.Client
	opts   Options
}

func New(log zerolog.Logger, pl *limits.PipelineLimits, opts Options) *Runner {
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	return &Runner{
		log:    log,
		limits: pl,
		opts:   opts,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        pl.Concurrency * 2,
				MaxIdleConnsPerHost: pl.Concurrency,
				IdleConnTimeout:     90 * time.Second,
			},
			// Редиректы не следуем: 302 на логин — это сигнал для
			// анализатора, а не навигация.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Replay executes every test case and returns exactly one result per test,
// in input order. It never returns an error: transport failures, timeouts
// and cancellation all materialize as TestResult entries.
func (r *Runner) Replay(ctx context.Context, tests []*models.TestCase) []*models.TestResult {
	r.log.Info().
		Int("tests", len(tests)).
		Int("concurrency", r.limits.Concurrency).
		Float64("rate", r.limits.RequestsPerSecond).
		Msg("starting replay")

	results := make([]*models.TestResult, len(tests))
	sem := semaphore.NewWeighted(int64(r.limits.Concurrency))
	limiter := NewRateLimiter(r.limits.RequestsPerSecond)

	var wg sync.WaitGroup
	var completed atomic.Int64
	for i, test := range tests {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(i int, test *models.TestCase) {
			defer wg.Done()
			defer sem.Release(1)

			results[i] = r.runSingle(ctx, test, limiter)
			done := int(completed.Add(1))
			if r.opts.Sink != nil {
				r.opts.Sink.TestCompleted(test.TestID, done, len(tests), results[i].Success)
			}
		}(i, test)
	}
	wg.Wait()

	// Невыполненные тесты (отмена до запуска) тоже получают результат
	successful := 0
	for i, test := range tests {
		if results[i] == nil {
			results[i] = r.cancelledResult(test)
		}
		if results[i].Success {
			successful++
		}
	}

	r.log.Info().Int("completed", len(results)).Int("successful", successful).Msg("replay finished")
	return results
}

func (r *Runner) runSingle(ctx context.Context, test *models.TestCase, limiter *RateLimiter) *models.TestResult {
	result := r.newResult(test)

	if err := limiter.Wait(ctx); err != nil {
		result.Error = cancelledError
		return result
	}

	reqCtx, cancel := context.WithTimeout(ctx, r.limits.RequestTimeout)
	defer cancel()

	var bodyReader io.Reader
	if test.Body != nil && bodyMethods[test.Method] {
		payload, err := json.Marshal(test.Body)
		if err != nil {
			result.Error = "Unexpected error: " + err.Error()
			r.log.Warn().Str("test_id", test.TestID).Err(err).Msg("failed to encode test body")
			return result
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(reqCtx, test.Method, test.URL, bodyReader)
	if err != nil {
		result.Error = "Unexpected error: " + err.Error()
		r.log.Warn().Str("test_id", test.TestID).Err(err).Msg("failed to build request")
		return result
	}
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for name, value := range r.mergedHeaders(test.Headers) {
		req.Header.Set(name, value)
	}
	if test.UseSession {
		for _, c := range r.opts.Cookies {
			req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
		}
	}

	resp, err := r.client.Do(req)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			result.Error = "Request timeout"
		case errors.Is(err, context.Canceled):
			result.Error = cancelledError
		default:
			result.Error = "Request error: " + err.Error()
		}
		r.log.Warn().Str("test_id", test.TestID).Str("error", result.Error).Msg("test request failed")
		return result
	}
	defer resp.Body.Close()

	result.Response = &models.CapturedResponse{
		Status:     resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
		Headers:    flattenHeaders(resp.Header),
		Body:       r.readBody(resp.Body),
	}
	result.Success = true
	return result
}

func (r *Runner) newResult(test *models.TestCase) *models.TestResult {
	return &models.TestResult{
		TestID:    test.TestID,
		TestType:  test.TestType,
		Endpoint:  test.Endpoint,
		Method:    test.Method,
		URL:       test.URL,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func (r *Runner) cancelledResult(test *models.TestCase) *models.TestResult {
	result := r.newResult(test)
	result.Error = cancelledError
	return result
}

// mergedHeaders: дефолты сессии, затем исследовательский User-Agent,
// затем заголовки теста. Поздний слой переопределяет ранний.
func (r *Runner) mergedHeaders(testHeaders map[string]string) map[string]string {
	merged := make(map[string]string, len(r.opts.DefaultHeaders)+len(testHeaders)+1)
	for name, value := range r.opts.DefaultHeaders {
		merged[name] = value
	}
	merged["User-Agent"] = r.opts.UserAgent
	for name, value := range testHeaders {
		merged[name] = value
	}
	return merged
}

func (r *Runner) readBody(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, int64(r.limits.MaxBodyBytes)+1))
	if err != nil {
		return "(unable to read body)"
	}
	if len(data) <= r.limits.MaxBodyBytes {
		return string(data)
	}
	// Байтовая граница может разрезать UTF-8 руну пополам, тогда отступаем
	// к её началу. Не-UTF-8 тела режутся как есть.
	cut := r.limits.MaxBodyBytes
	for cut > 0 && cut > r.limits.MaxBodyBytes-utf8.UTFMax && !utf8.RuneStart(data[cut]) {
		cut--
	}
	if !utf8.RuneStart(data[cut]) {
		cut = r.limits.MaxBodyBytes
	}
	return string(data[:cut]) + truncationMarker
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		out[strings.ToLower(name)] = strings.Join(values, ", ")
	}
	return out
}
