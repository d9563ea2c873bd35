package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	decreaseFactor = 0.8 // Reduce aggressively on failure
	increaseFactor = 0.2 // Increase conservatively on success
	minLimit       = 1   // Minimum requests per second

	// exports are a few hundred kilobytes, anything far bigger is not a timetable
	maxPageSize  = 5 * 1024 * 1024
	fetchTimeout = 30 * time.Second
)

type AdaptiveRateLimiter struct {
	mu          sync.Mutex
	limit       rate.Limit
	burst       int
	limiter     *rate.Limiter
	maxIncrease rate.Limit
}

func (a *AdaptiveRateLimiter) Fail() {
	a.mu.Lock()
	defer a.mu.Unlock()

	newLimit := max(rate.Limit(float64(a.limit)*(1-decreaseFactor)), minLimit)
	a.setLimit(newLimit)
}

func (a *AdaptiveRateLimiter) Succeed() {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Increase limit more conservatively, up to maxIncrease
	newLimit := min(rate.Limit(float64(a.limit)*(1+increaseFactor)), a.limit+a.maxIncrease)

	a.setLimit(newLimit)
}

func (a *AdaptiveRateLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

func (a *AdaptiveRateLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.limit
}

func (a *AdaptiveRateLimiter) setLimit(newLimit rate.Limit) {
	a.limit = newLimit
	a.limiter.SetLimit(a.limit)
}

func NewAdaptiveRateLimiter(startingLimit rate.Limit, startingBurst int, maxIncrease rate.Limit) *AdaptiveRateLimiter {
	return &AdaptiveRateLimiter{
		limit:       startingLimit,
		burst:       startingBurst,
		limiter:     rate.NewLimiter(startingLimit, startingBurst),
		mu:          sync.Mutex{},
		maxIncrease: maxIncrease,
	}
}

type RateLimiter interface {
	Succeed()
	Fail()
	Wait(context.Context) error
}

type rateLimitedRoundTripper struct {
	transport http.RoundTripper
	limiter   RateLimiter
}

func (rt *rateLimitedRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := rt.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}

	resp, err := rt.transport.RoundTrip(req)
	if err != nil {
		rt.limiter.Fail()
		return nil, err
	}

	if resp.StatusCode >= 400 {
		rt.limiter.Fail()
	} else {
		rt.limiter.Succeed()
	}

	return resp, nil
}

func addRateLimiter(client *http.Client, limiter RateLimiter) {
	rt := &rateLimitedRoundTripper{
		limiter: limiter,
	}
	if client.Transport == nil {
		rt.transport = http.DefaultTransport
	} else {
		rt.transport = client.Transport
	}
	client.Transport = rt
}

// retryablehttp hands hooks a wrapper instead of the configured logger so the
// hooks close over the entry
func retryLog(logger *log.Entry) retryablehttp.RequestLogHook {
	return func(_ retryablehttp.Logger, req *http.Request, retryCount int) {
		if retryCount == 0 {
			return
		}
		logger.Warnf("try %d for %s: %s", retryCount, req.Method, req.URL)
	}
}

func responseLog(logger *log.Entry) retryablehttp.ResponseLogHook {
	return func(_ retryablehttp.Logger, res *http.Response) {
		logger.Tracef("%s: %s", res.Status, res.Request.URL)
	}
}

// NewRetryClientWithLimiter retries with backoff underneath the limiter so
//    every retry also waits its turn
func NewRetryClientWithLimiter(logger *log.Entry, limiter RateLimiter) *http.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	var l retryablehttp.LeveledLogger = LogrusLogger{Entry: logger}
	client.Logger = l

	client.ResponseLogHook = responseLog(logger)
	client.RequestLogHook = retryLog(logger)
	client.HTTPClient.Timeout = fetchTimeout
	addRateLimiter(client.HTTPClient, limiter)
	return client.StandardClient()
}

// FetchPage downloads a timetable export
func FetchPage(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIncorrectAssumption, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", ErrTemporaryNetworkFailure, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: get %s: %s", ErrIncorrectAssumption, url, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrTemporaryNetworkFailure, url, err)
	}
	if len(body) > maxPageSize {
		return nil, fmt.Errorf("%w: %s is larger than %d bytes", ErrIncorrectAssumption, url, maxPageSize)
	}
	return body, nil
}

// wrapper make the logrus logger a LeveledLogger
type LogrusLogger struct {
	Entry *log.Entry
}

func (l LogrusLogger) Error(msg string, keysAndValues ...any) {
	l.Entry.WithFields(fields(keysAndValues)).Error(msg)
}

func (l LogrusLogger) Info(msg string, keysAndValues ...any) {
	l.Entry.WithFields(fields(keysAndValues)).Info(msg)
}

func (l LogrusLogger) Debug(msg string, keysAndValues ...any) {
	l.Entry.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l LogrusLogger) Warn(msg string, keysAndValues ...any) {
	l.Entry.WithFields(fields(keysAndValues)).Warn(msg)
}

func (l LogrusLogger) Get() *log.Entry {
	return l.Entry
}

func fields(keysAndValues []any) log.Fields {
	f := log.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		f[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return f
}
