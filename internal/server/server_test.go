package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-econ/internal/config"
	"github.com/pgEdge/pgedge-econ/internal/db"
	"github.com/pgEdge/pgedge-econ/internal/etl"
	"github.com/pgEdge/pgedge-econ/internal/schema"
	"github.com/pgEdge/pgedge-econ/internal/testutil"
	"github.com/pgEdge/pgedge-econ/internal/views"
	_ "github.com/pgEdge/pgedge-econ/internal/views/catalog"
)

func newTestServer(t *testing.T) (*httptest.Server, db.DB) {
	t.Helper()
	ctx := context.Background()

	d := testutil.SQLiteDB(t)
	require.NoError(t, schema.Create(ctx, d))
	cfg := config.DefaultConfig().ETL
	cfg.DataDir = testutil.CopyFixtures(t)
	_, err := etl.NewLoader(d, cfg).Run(ctx)
	require.NoError(t, err)

	ts := httptest.NewServer(New(d, config.DefaultConfig().Serve).Handler())
	t.Cleanup(ts.Close)
	return ts, d
}

func get(t *testing.T, ts *httptest.Server, path string, out any) int {
	t.Helper()
	res, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer res.Body.Close()

	if out != nil {
		assert.Equal(t, "application/json", res.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(res.Body).Decode(out))
	}
	return res.StatusCode
}

func TestIndex(t *testing.T) {
	ts, _ := newTestServer(t)

	res, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Header.Get("Content-Type"), "text/html")

	assert.Equal(t, http.StatusNotFound, get(t, ts, "/nothing-here", nil))
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)

	var body map[string]string
	assert.Equal(t, http.StatusOK, get(t, ts, "/healthz", &body))
	assert.Equal(t, "ok", body["status"])
}

func TestListViews(t *testing.T) {
	ts, _ := newTestServer(t)

	var list []views.View
	require.Equal(t, http.StatusOK, get(t, ts, "/api/views", &list))
	require.Len(t, list, len(views.List()))

	names := make([]string, 0, len(list))
	for _, v := range list {
		names = append(names, v.Name)
	}
	assert.Contains(t, names, "state_sales_ranking")
	assert.Contains(t, names, "price_vs_cpi")
}

func TestRunView(t *testing.T) {
	ts, _ := newTestServer(t)

	var body struct {
		View    string         `json:"view"`
		Filter  views.Filter   `json:"filter"`
		Columns []string       `json:"columns"`
		Rows    [][]any        `json:"rows"`
		Stats   map[string]any `json:"stats"`
	}
	require.Equal(t, http.StatusOK, get(t, ts, "/api/views/state_sales_ranking?year=2022", &body))
	assert.Equal(t, "state_sales_ranking", body.View)
	assert.Equal(t, 2022, body.Filter.Year)
	require.Len(t, body.Rows, 2)
	assert.Equal(t, "California", body.Rows[0][0])
	assert.Equal(t, "Texas", body.Rows[1][0])
}

func TestRunViewErrors(t *testing.T) {
	ts, _ := newTestServer(t)

	tests := []struct {
		path   string
		status int
	}{
		{"/api/views/nope", http.StatusNotFound},
		{"/api/views/state_sales_ranking?year=abc", http.StatusBadRequest},
		{"/api/views/food_price_trend", http.StatusBadRequest},
		{"/api/views/nope/figure", http.StatusNotFound},
		{"/api/views/summary/figure", http.StatusNotFound},
		{"/api/lookups/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			var body map[string]string
			assert.Equal(t, tt.status, get(t, ts, tt.path, &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestRunViewUnencodableValue(t *testing.T) {
	ts, d := newTestServer(t)

	_, err := d.Exec(context.Background(), `
        UPDATE state_food_sales SET total_sales_million = 9e999
        WHERE region_id = (SELECT region_id FROM regions WHERE region_name = 'California')
    `)
	require.NoError(t, err)

	var body map[string]string
	assert.Equal(t, http.StatusInternalServerError,
		get(t, ts, "/api/views/state_sales_ranking?year=2022", &body))
	assert.Contains(t, body["error"], "failed to encode response")

	var figure map[string]string
	assert.Equal(t, http.StatusInternalServerError,
		get(t, ts, "/api/views/state_sales_ranking/figure?year=2022", &figure))
	assert.NotEmpty(t, figure["error"])
}

func TestFigure(t *testing.T) {
	ts, _ := newTestServer(t)

	var fig struct {
		Data []struct {
			Type string    `json:"type"`
			Name string    `json:"name"`
			X    []any     `json:"x"`
			Y    []float64 `json:"y"`
		} `json:"data"`
		Layout map[string]any `json:"layout"`
	}
	require.Equal(t, http.StatusOK, get(t, ts, "/api/views/food_price_trend/figure?item=flour", &fig))
	require.Len(t, fig.Data, 2)
	assert.Equal(t, "scatter", fig.Data[0].Type)
	assert.Equal(t, "Georgia", fig.Data[0].Name)
	assert.Equal(t, []any{"2023-01"}, fig.Data[0].X)
	assert.Equal(t, "U.S. city average", fig.Data[1].Name)
	assert.Equal(t, []float64{0.5, 0.52}, fig.Data[1].Y)
	assert.Contains(t, fig.Layout, "title")
}

func TestLookup(t *testing.T) {
	ts, _ := newTestServer(t)

	var names []string
	require.Equal(t, http.StatusOK, get(t, ts, "/api/lookups", &names))
	assert.Contains(t, names, "food-items")

	var tbl views.Table
	require.Equal(t, http.StatusOK, get(t, ts, "/api/lookups/food-items", &tbl))
	assert.Equal(t, []string{"item_code", "item_name"}, tbl.Columns)
	assert.Len(t, tbl.Rows, 2)
}

func TestFigureKinds(t *testing.T) {
	tbl := &views.Table{
		Columns: []string{"state", "income"},
		Rows:    [][]any{{"Ohio", int64(60000)}, {"Utah", nil}},
	}

	bar := Figure(&views.View{Title: "Bars", Chart: views.Chart{Kind: views.ChartBar, X: "state", Y: "income"}}, tbl)
	require.Len(t, bar.Data, 1)
	raw, err := json.Marshal(bar)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"type":"bar"`)
	assert.Contains(t, string(raw), `"y":[60000,null]`)

	box := Figure(&views.View{Title: "Box", Chart: views.Chart{Kind: views.ChartBox, Y: "income"}}, tbl)
	raw, err = json.Marshal(box)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"type":"box"`)
}

func TestServeShutdown(t *testing.T) {
	d := testutil.SQLiteDB(t)
	s := New(d, config.DefaultConfig().Serve)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	res, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
