package state

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rpggio/libflow/internal/domain/library"
	"github.com/rpggio/libflow/internal/domain/session"
	"github.com/stretchr/testify/require"
)

type staticFetcher struct {
	booksErr error
}

func (f staticFetcher) Books(context.Context) ([]library.Book, error) {
	return []library.Book{}, f.booksErr
}

func (f staticFetcher) Members(context.Context) ([]library.Member, error) {
	return []library.Member{}, nil
}

func TestMetricsCountOutcomes(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	sess := &session.Session{ID: "s1", ExpiresAt: time.Now().Add(time.Hour)}

	c := New(sess, Options{Fetcher: staticFetcher{}, Metrics: m})
	_, err := c.Refresh(context.Background())
	require.NoError(t, err)

	c = New(sess, Options{Fetcher: staticFetcher{booksErr: context.DeadlineExceeded}, Metrics: m})
	_, err = c.Refresh(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1.0, testutil.ToFloat64(m.refreshes.WithLabelValues(refreshOK)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.refreshes.WithLabelValues(refreshPartial)))

	reg := NewRegistry(Options{Fetcher: staticFetcher{}, Metrics: m})
	reg.Attach(sess)
	require.Equal(t, 1.0, testutil.ToFloat64(m.containers))
}
