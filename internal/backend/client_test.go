package backend

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sunplot/internal/daytime"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testWindow() daytime.Window {
	return daytime.Window{
		Start: time.Date(2024, 6, 1, 4, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC),
		Zone:  time.UTC,
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, 5*time.Second, testLogger())
	c.now = func() time.Time {
		return time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	}
	return c, srv
}

func TestFetchSeries(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/query_range", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, `power_power{location="home"}`, q.Get("query"))
		assert.Equal(t, "120", q.Get("step"))
		assert.Equal(t, "2024-06-01T04:00:00Z", q.Get("start"))
		assert.Equal(t, "2024-06-01T20:00:00Z", q.Get("end"))

		w.Write([]byte(`{
			"status": "success",
			"data": {"result": [{
				"metric": {"__name__": "power_power", "location": "home"},
				"values": [[1717236000, "150"], [1717236120, "212"], [1717236240, "180"]]
			}]}
		}`))
	})

	samples, err := c.FetchSeries(context.Background(), testWindow(), 2*time.Minute)
	require.NoError(t, err)
	require.Len(t, samples, 3)
	assert.Equal(t, int64(150), samples[0].Value)
	assert.Equal(t, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), samples[0].Time)
	assert.Equal(t, int64(212), samples[1].Value)
}

func TestFetchSeriesEmptyIsNotAnError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "success", "data": {"result": []}}`))
	})

	samples, err := c.FetchSeries(context.Background(), testWindow(), 2*time.Minute)
	require.NoError(t, err)
	assert.Empty(t, samples)
}

func TestFetchSeriesBackendFailure(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "HTTP error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
		{
			name: "backend-reported failure",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"status": "error", "data": {"result": []}}`))
			},
		},
		{
			name: "garbage body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`not json`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, tt.handler)
			_, err := c.FetchSeries(context.Background(), testWindow(), 2*time.Minute)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrBackendUnavailable)
		})
	}
}

func TestFetchSeriesTransportFailure(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	_, err := c.FetchSeries(context.Background(), testWindow(), 2*time.Minute)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestFetchPeak(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/query", r.URL.Path)
		query := r.URL.Query().Get("query")
		// Elapsed window at the fake now is 6h
		assert.Contains(t, query, `max_over_time(power_power{location="home"}[21600s])`)
		assert.Contains(t, query, `"peak_timestamp"`)

		w.Write([]byte(`{
			"status": "success",
			"data": {"result": [
				{"metric": {"__name__": "power_power", "location": "home"}, "value": [1717250400, "4213"]},
				{"metric": {"__name__": "peak_timestamp"}, "value": [1717250400, "1717245000"]}
			]}
		}`))
	})

	peak := c.FetchPeak(context.Background(), testWindow())
	assert.False(t, peak.Absent())
	assert.Equal(t, int64(4213), peak.Value)
	assert.Equal(t, int64(1717245000), peak.Timestamp)
}

func TestFetchPeakDegradesToAbsent(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "no matching series",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"status": "success", "data": {"result": []}}`))
			},
		},
		{
			name: "HTTP error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusBadGateway)
			},
		},
		{
			name: "backend-reported failure",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"status": "error", "data": {"result": []}}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, tt.handler)
			peak := c.FetchPeak(context.Background(), testWindow())
			assert.True(t, peak.Absent())
		})
	}
}

func TestFetchPeakZeroValuedPeakIsNotAbsent(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"status": "success",
			"data": {"result": [
				{"metric": {"__name__": "power_power", "location": "home"}, "value": [1717250400, "0"]},
				{"metric": {"__name__": "peak_timestamp"}, "value": [1717250400, "1717245000"]}
			]}
		}`))
	})

	peak := c.FetchPeak(context.Background(), testWindow())
	assert.False(t, peak.Absent())
	assert.Equal(t, int64(0), peak.Value)
}

func TestFetchEnergyTotal(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("query")
		assert.Contains(t, query, `max_over_time(power_day_energy{location="home"}[21600s])`)

		w.Write([]byte(`{
			"status": "success",
			"data": {"result": [
				{"metric": {"__name__": "power_day_energy"}, "value": [1717250400, "10432"]}
			]}
		}`))
	})

	assert.Equal(t, int64(10432), c.FetchEnergyTotal(context.Background(), testWindow()))
}

func TestFetchEnergyTotalDegradesToZero(t *testing.T) {
	empty := func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "success", "data": {"result": []}}`))
	}
	failing := func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}

	for name, handler := range map[string]http.HandlerFunc{"empty": empty, "failing": failing} {
		t.Run(name, func(t *testing.T) {
			c, _ := newTestClient(t, handler)
			assert.Equal(t, int64(0), c.FetchEnergyTotal(context.Background(), testWindow()))
		})
	}
}

func TestWrite(t *testing.T) {
	var gotPath, gotBody string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		gotBody = string(body)
		w.WriteHeader(http.StatusNoContent)
	})

	err := c.Write(context.Background(), Point{
		Time:      time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
		Power:     150,
		DayEnergy: 200,
	})
	require.NoError(t, err)
	assert.Equal(t, "/write?precision=s", gotPath)
	assert.Equal(t, "power,location=home power=150,day_energy=200 1717236000", gotBody)
}

func TestWriteFractionalValues(t *testing.T) {
	var gotBody string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
	})

	err := c.Write(context.Background(), Point{
		Time:      time.Unix(1717236000, 0),
		Power:     150.5,
		DayEnergy: 200.25,
	})
	require.NoError(t, err)
	assert.Equal(t, "power,location=home power=150.5,day_energy=200.25 1717236000", gotBody)
}

func TestWriteRejected(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	})

	err := c.Write(context.Background(), Point{Time: time.Unix(1717236000, 0)})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWriteFailed)
}
