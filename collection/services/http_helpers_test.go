package services

import (
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

func testClient() *http.Client {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return NewRetryClientWithLimiter(log.NewEntry(logger), NewAdaptiveRateLimiter(rate.Limit(50), 5, 10))
}

func TestFetchPageRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "try again", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<table class=\"table\"></table>"))
	}))
	defer server.Close()

	body, err := FetchPage(context.Background(), testClient(), server.URL)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "<table class=\"table\"></table>" {
		t.Errorf("unexpected body %q", body)
	}
	if calls.Load() != 2 {
		t.Errorf("expected one retry got %d calls", calls.Load())
	}
}

func TestFetchPageNotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, err := FetchPage(context.Background(), testClient(), server.URL)
	if !errors.Is(err, ErrIncorrectAssumption) {
		t.Errorf("expected ErrIncorrectAssumption got %v", err)
	}
}

func TestFetchPageUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := FetchPage(ctx, testClient(), url)
	if !errors.Is(err, ErrTemporaryNetworkFailure) {
		t.Errorf("expected ErrTemporaryNetworkFailure got %v", err)
	}
}

func TestAdaptiveRateLimiter(t *testing.T) {
	limiter := NewAdaptiveRateLimiter(rate.Limit(10), 1, 2)
	limiter.Fail()
	if math.Abs(float64(limiter.Limit())-2) > 1e-9 {
		t.Errorf("expected limit to drop to 2 got %v", limiter.Limit())
	}
	limiter.Fail()
	if limiter.Limit() != minLimit {
		t.Errorf("expected limit floor of %d got %v", minLimit, limiter.Limit())
	}
	limiter.Succeed()
	if math.Abs(float64(limiter.Limit())-1.2) > 1e-9 {
		t.Errorf("expected a conservative increase got %v", limiter.Limit())
	}
}
