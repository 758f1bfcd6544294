package main

import (
    "compress/gzip"
    "context"
    "encoding/json"
    "errors"
    "io"
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/stretchr/testify/require"

    "yfquotes/internal/provider"
    "yfquotes/internal/render"
)

type fakeSource struct {
    res  provider.Result
    err  error
    seen [][]string
}

func (f *fakeSource) Name() string { return "fake" }
func (f *fakeSource) Fetch(_ context.Context, symbols []string) (provider.Result, error) {
    f.seen = append(f.seen, symbols)
    return f.res, f.err
}

type fakeTrees struct { tree render.Tree; ok bool }
func (f fakeTrees) Tree() (render.Tree, bool) { return f.tree, f.ok }

func TestQuotes_PassesSymbolsThroughInOrder(t *testing.T) {
    src := &fakeSource{res: provider.Result{Records: []provider.Record{{Symbol: "MSFT"}, {Symbol: "AAPL", RegularMarketPrice: provider.Some(150.004)}}}}
    h := newHandler(src, fakeTrees{})

    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/quotes?symbols=MSFT,AAPL,,AAPL", nil))
    if rr.Code != 200 { t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String()) }
    require.Equal(t, [][]string{{"MSFT", "AAPL", "", "AAPL"}}, src.seen)
    require.JSONEq(t, `{"records":[{"symbol":"MSFT"},{"symbol":"AAPL","regularMarketPrice":150.004}]}`, rr.Body.String())
}

func TestQuotes_ServiceErrorIsPartOfThePayload(t *testing.T) {
    msg := "Invalid Symbol"
    src := &fakeSource{res: provider.Result{Records: []provider.Record{}, Error: &msg}}
    h := newHandler(src, fakeTrees{})

    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/quotes?symbols=NOPE", nil))
    require.Equal(t, http.StatusOK, rr.Code)
    require.JSONEq(t, `{"records":[],"error":"Invalid Symbol"}`, rr.Body.String())
}

func TestQuotes_DecodeFailureIsBadGateway(t *testing.T) {
    src := &fakeSource{err: errors.Join(provider.ErrDecode, errors.New("unexpected EOF"))}
    h := newHandler(src, fakeTrees{})

    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/quotes?symbols=AAPL", nil))
    require.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestQuotes_MissingSymbols(t *testing.T) {
    h := newHandler(&fakeSource{}, fakeTrees{})

    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/quotes", nil))
    require.Equal(t, http.StatusBadRequest, rr.Code)

    rr = httptest.NewRecorder()
    h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/quotes?symbols=AAPL", nil))
    require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestRender_NotReadyThenTree(t *testing.T) {
    rr := httptest.NewRecorder()
    newHandler(&fakeSource{}, fakeTrees{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/render", nil))
    require.Equal(t, http.StatusServiceUnavailable, rr.Code)

    tree := render.Tree{
        Frame: render.Frame{Width: 450, Height: 250, Transparency: 0.5},
        Rows:  []render.Row{{Cells: []render.Cell{{Column: render.ColumnSymbol, Text: "AAPL"}}}},
        LastUpdated: "Updated at 9:00:00",
    }
    rr = httptest.NewRecorder()
    newHandler(&fakeSource{}, fakeTrees{tree: tree, ok: true}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/render", nil))
    require.Equal(t, http.StatusOK, rr.Code)
    require.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))

    var got render.Tree
    require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
    require.Equal(t, tree, got)
}

func TestGzip(t *testing.T) {
    h := newHandler(&fakeSource{res: provider.Result{Records: []provider.Record{{Symbol: "AAPL"}}}}, fakeTrees{})

    req := httptest.NewRequest(http.MethodGet, "/api/quotes?symbols=AAPL", nil)
    req.Header.Set("Accept-Encoding", "gzip")
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    require.Equal(t, "gzip", rr.Header().Get("Content-Encoding"))

    zr, err := gzip.NewReader(rr.Body)
    require.NoError(t, err)
    body, err := io.ReadAll(zr)
    require.NoError(t, err)
    require.JSONEq(t, `{"records":[{"symbol":"AAPL"}]}`, string(body))
}

type panickingTrees struct{}
func (panickingTrees) Tree() (render.Tree, bool) { panic("boom") }

func TestRecoverPanic(t *testing.T) {
    rr := httptest.NewRecorder()
    newHandler(&fakeSource{}, panickingTrees{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/render", nil))
    require.Equal(t, http.StatusInternalServerError, rr.Code)
    require.Contains(t, rr.Body.String(), "internal server error")
}
