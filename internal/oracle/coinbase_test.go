package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rigrent-backend/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoinbaseClient_SpotPrice(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		switch r.URL.Path {
		case "/v2/prices/BTC-USD/spot":
			w.Write([]byte(`{"data":{"base":"BTC","currency":"USD","amount":"64123.45"}}`))
		case "/v2/prices/ZERO-USD/spot":
			w.Write([]byte(`{"data":{"base":"ZERO","currency":"USD","amount":"0"}}`))
		case "/v2/prices/BAD-USD/spot":
			w.Write([]byte(`{"data":`))
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := NewCoinbaseClient(srv.URL+"/", time.Second, nil)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		price, err := client.SpotPrice(ctx, "btc")
		require.NoError(t, err)
		assert.Equal(t, "/v2/prices/BTC-USD/spot", gotPath)
		assert.True(t, price.Equal(decimal.RequireFromString("64123.45")))
	})

	failures := []struct {
		name     string
		currency string
	}{
		{"Non-positive price", "zero"},
		{"Malformed body", "bad"},
		{"Upstream error status", "doge"},
		{"Empty currency", " "},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.SpotPrice(ctx, tt.currency)
			assert.ErrorIs(t, err, ErrPriceUnavailable)
			assert.ErrorIs(t, err, domain.ErrDependencyUnavailable)
		})
	}
}

func TestCoinbaseClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := NewCoinbaseClient(srv.URL, 50*time.Millisecond, nil)

	start := time.Now()
	_, err := client.SpotPrice(context.Background(), "ETH")
	assert.ErrorIs(t, err, domain.ErrDependencyUnavailable)
	assert.Less(t, time.Since(start), 2*time.Second)
}
