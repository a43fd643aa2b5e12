package readiness

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexKushnir1/near-sandbox-go/internal/sanderr"
)

func TestWaitUntilReady_ImmediatelyHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/status", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewProbe(2 * time.Second)
	start := time.Now()
	err := p.WaitUntilReady(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), PollInterval)
}

func TestWaitUntilReady_HealthyOnThirdPoll(t *testing.T) {
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewProbe(5 * time.Second)
	start := time.Now()
	err := p.WaitUntilReady(context.Background(), srv.URL)
	require.NoError(t, err)

	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 2*PollInterval-50*time.Millisecond)
	assert.Less(t, elapsed, 4*PollInterval)
	assert.EqualValues(t, 3, polls.Load())
}

func TestWaitUntilReady_NeverHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewProbe(1 * time.Second)
	start := time.Now()
	err := p.WaitUntilReady(context.Background(), srv.URL)
	require.Error(t, err)

	assert.Equal(t, sanderr.RunFailed, sanderr.KindOf(err))
	assert.Contains(t, err.Error(), "500")

	// timeoutSeconds * 2 attempts with one interval between each.
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, PollInterval-50*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestWaitUntilReady_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	p := NewProbe(1 * time.Second)
	err := p.WaitUntilReady(context.Background(), url)
	require.Error(t, err)
	assert.Equal(t, sanderr.RunFailed, sanderr.KindOf(err))
	assert.Contains(t, err.Error(), "did not become ready")
}

func TestWaitUntilReady_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	p := NewProbe(10 * time.Second)
	start := time.Now()
	err := p.WaitUntilReady(ctx, srv.URL)
	require.Error(t, err)
	assert.Equal(t, sanderr.RunFailed, sanderr.KindOf(err))
	assert.Less(t, time.Since(start), 1*time.Second)
}
