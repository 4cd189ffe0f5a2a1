package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/cutplan/internal/api"
	"github.com/piwi3910/cutplan/internal/cache"
	"github.com/piwi3910/cutplan/internal/config"
	"github.com/piwi3910/cutplan/internal/geom"
	"github.com/piwi3910/cutplan/internal/logging"
	"github.com/piwi3910/cutplan/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, c cache.Cache, mutate ...func(*config.AppConfig)) *Server {
	t.Helper()
	cfg := config.Default()
	for _, m := range mutate {
		m(&cfg)
	}
	return New(cfg, c, logging.New(io.Discard, logging.LevelDebug), "test")
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeCut(t *testing.T, w *httptest.ResponseRecorder) api.CutResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp api.CutResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()
	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestCut_ScenarioA(t *testing.T) {
	s := newTestServer(t, nil)
	w := do(s, http.MethodPost, "/furniture/cut",
		`{"sheetWidth":2000,"sheetHeight":1000,"elements":[{"width":500,"height":300}]}`)

	resp := decodeCut(t, w)
	require.Len(t, resp.Placements, 1)
	p := resp.Placements[0]
	assert.JSONEq(t, `1`, string(p.ID))
	assert.ElementsMatch(t, []float64{500, 300}, []float64{p.Width, p.Height})
	assert.True(t, geom.Contains(geom.NewRect(0, 0, 2000, 1000), geom.NewRect(p.X, p.Y, p.Width, p.Height)))
	assert.NotEmpty(t, resp.PlanID)
}

func TestCut_ScenarioB(t *testing.T) {
	s := newTestServer(t, nil)
	w := do(s, http.MethodPost, "/furniture/cut", `{"sheetWidth":2000,"sheetHeight":1000,"elements":[
		{"width":500,"height":300},{"width":500,"height":300},
		{"width":500,"height":300},{"width":500,"height":300}]}`)

	resp := decodeCut(t, w)
	require.Len(t, resp.Placements, 4)

	var area float64
	rects := make([]geom.Rect, len(resp.Placements))
	for i, p := range resp.Placements {
		area += p.Width * p.Height
		rects[i] = geom.NewRect(p.X, p.Y, p.Width, p.Height)
	}
	assert.Equal(t, 600000.0, area)
	for i := range rects {
		for j := i + 1; j < len(rects); j++ {
			assert.False(t, geom.Overlaps(rects[i], rects[j]), "placements %d and %d overlap", i, j)
		}
	}
	assert.Empty(t, resp.Unplaced)
}

func TestCut_ScenarioC(t *testing.T) {
	s := newTestServer(t, nil)
	w := do(s, http.MethodPost, "/furniture/cut",
		`{"sheetWidth":100,"sheetHeight":100,"elements":[{"width":200,"height":200}]}`)

	resp := decodeCut(t, w)
	assert.Empty(t, resp.Placements)
	require.Len(t, resp.Unplaced, 1)
	assert.JSONEq(t, `1`, string(resp.Unplaced[0]))
	assert.Contains(t, w.Body.String(), `"placements":[]`)
}

func TestCut_ScenarioD(t *testing.T) {
	s := newTestServer(t, nil)
	w := do(s, http.MethodPost, "/furniture/cut",
		`{"sheetWidth":-1,"sheetHeight":1000,"elements":[{"width":500,"height":300}]}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "INVALID_DIMENSIONS", resp.Code)
	assert.Contains(t, resp.Message, "Invalid sheet dimensions")
	assert.NotContains(t, w.Body.String(), "placements")
}

func TestCut_SheetAreaOutOfRange(t *testing.T) {
	s := newTestServer(t, nil)
	w := do(s, http.MethodPost, "/furniture/cut",
		`{"sheetWidth":1e200,"sheetHeight":1e200,"elements":[{"width":500,"height":300}]}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "INVALID_DIMENSIONS", resp.Code)
	assert.Contains(t, resp.Message, "out of range")
}

func TestCut_MixedCaseConfiguredOrdering(t *testing.T) {
	s := newTestServer(t, nil, func(c *config.AppConfig) { c.Packing.Ordering = "AREA-DESC" })
	w := do(s, http.MethodPost, "/furniture/cut",
		`{"sheetWidth":2000,"sheetHeight":1000,"elements":[{"id":"small","width":10,"height":10},{"id":"big","width":100,"height":100}]}`)

	resp := decodeCut(t, w)
	require.Len(t, resp.Placements, 2)
	assert.JSONEq(t, `"big"`, string(resp.Placements[0].ID))
}

func TestCut_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"malformed json", `{"sheetWidth":`, "INVALID_DIMENSIONS"},
		{"empty body", ``, "INVALID_DIMENSIONS"},
		{"missing sheet", `{"elements":[]}`, "INVALID_DIMENSIONS"},
		{"missing element height", `{"sheetWidth":10,"sheetHeight":10,"elements":[{"width":1}]}`, "INVALID_DIMENSIONS"},
		{"zero element", `{"sheetWidth":10,"sheetHeight":10,"elements":[{"width":0,"height":1}]}`, "INVALID_DIMENSIONS"},
		{"duplicate ids", `{"sheetWidth":10,"sheetHeight":10,"elements":[{"id":"a","width":1,"height":1},{"id":"a","width":1,"height":1}]}`, "INVALID_INPUT"},
		{"bad id", `{"sheetWidth":10,"sheetHeight":10,"elements":[{"id":[1],"width":1,"height":1}]}`, "INVALID_INPUT"},
		{"unknown heuristic", `{"sheetWidth":10,"sheetHeight":10,"elements":[],"options":{"heuristic":"magic"}}`, "UNSUPPORTED"},
	}
	s := newTestServer(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(s, http.MethodPost, "/furniture/cut", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestCut_EmptyElements(t *testing.T) {
	s := newTestServer(t, nil)
	resp := decodeCut(t, do(s, http.MethodPost, "/furniture/cut",
		`{"sheetWidth":10,"sheetHeight":10,"elements":[]}`))
	assert.Empty(t, resp.Placements)
	assert.Empty(t, resp.Unplaced)
}

func TestCut_EchoesIDTypes(t *testing.T) {
	s := newTestServer(t, nil)
	resp := decodeCut(t, do(s, http.MethodPost, "/furniture/cut", `{"sheetWidth":1000,"sheetHeight":1000,
		"elements":[{"id":"door","width":100,"height":100},{"id":7,"width":100,"height":100}]}`))

	require.Len(t, resp.Placements, 2)
	assert.JSONEq(t, `"door"`, string(resp.Placements[0].ID))
	assert.JSONEq(t, `7`, string(resp.Placements[1].ID))
}

func TestCut_ResourceExceeded(t *testing.T) {
	s := newTestServer(t, nil, func(cfg *config.AppConfig) {
		cfg.Packing.MaxFreeRects = 1
	})
	w := do(s, http.MethodPost, "/furniture/cut",
		`{"sheetWidth":2000,"sheetHeight":1000,"elements":[{"width":500,"height":300}]}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "RESOURCE_EXCEEDED", decodeError(t, w).Code)
}

func TestCut_ClientCanceled(t *testing.T) {
	s := newTestServer(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest(http.MethodPost, "/furniture/cut",
		strings.NewReader(`{"sheetWidth":2000,"sheetHeight":1000,"elements":[{"width":500,"height":300}]}`)).WithContext(ctx)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "CANCELED", decodeError(t, w).Code)
}

func TestCut_BodyTooLarge(t *testing.T) {
	s := newTestServer(t, nil, func(cfg *config.AppConfig) {
		cfg.Server.MaxBodyBytes = 32
	})
	w := do(s, http.MethodPost, "/furniture/cut",
		`{"sheetWidth":2000,"sheetHeight":1000,"elements":[{"width":500,"height":300}]}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestCut_Cache(t *testing.T) {
	s := newTestServer(t, cache.NewMemoryCache(10, time.Hour))
	body := `{"sheetWidth":2000,"sheetHeight":1000,"elements":[{"width":500,"height":300},{"id":"x","width":20,"height":900}]}`

	first := do(s, http.MethodPost, "/furniture/cut", body)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "miss", first.Header().Get(headerCache))

	second := do(s, http.MethodPost, "/furniture/cut", body)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "hit", second.Header().Get(headerCache))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
}

// fixedCache serves the same entry for every key.
type fixedCache struct {
	cache.Cache
	data    []byte
	deleted int
}

func (f *fixedCache) Get(context.Context, string) ([]byte, bool, error) { return f.data, true, nil }
func (f *fixedCache) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}
func (f *fixedCache) Delete(context.Context, string) error {
	f.deleted++
	return nil
}

func TestCut_VerifiesCachedPlans(t *testing.T) {
	bogus, err := json.Marshal(model.CutPlan{
		Sheet: model.Sheet{Width: 2000, Height: 1000},
		Placements: []model.Placement{
			{ID: "1", X: 1900, Y: 0, Width: 500, Height: 300},
		},
		Unplaced: []string{},
	})
	require.NoError(t, err)
	body := `{"sheetWidth":2000,"sheetHeight":1000,"elements":[{"width":500,"height":300}]}`

	fc := &fixedCache{data: bogus}
	s := newTestServer(t, fc, func(cfg *config.AppConfig) { cfg.Server.Verify = true })
	w := do(s, http.MethodPost, "/furniture/cut", body)
	resp := decodeCut(t, w)
	assert.Equal(t, "miss", w.Header().Get(headerCache))
	assert.Equal(t, 1, fc.deleted)
	require.Len(t, resp.Placements, 1)
	assert.Equal(t, 0.0, resp.Placements[0].X)

	fc = &fixedCache{data: []byte("not json")}
	s = newTestServer(t, fc)
	w = do(s, http.MethodPost, "/furniture/cut", body)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "miss", w.Header().Get(headerCache))
	assert.Equal(t, 1, fc.deleted)
}

func TestOptions_Preflight(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/furniture/cut", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)

	// Without an Origin header the catch-all route answers.
	w = do(s, http.MethodOptions, "/anything/at/all", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestCORS_RestrictedOrigins(t *testing.T) {
	s := newTestServer(t, nil, func(cfg *config.AppConfig) {
		cfg.Server.AllowOrigins = []string{"https://shop.example.com"}
	})
	req := httptest.NewRequest(http.MethodPost, "/furniture/cut",
		strings.NewReader(`{"sheetWidth":10,"sheetHeight":10,"elements":[]}`))
	req.Header.Set("Origin", "https://shop.example.com")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://shop.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t, nil)

	w := do(s, http.MethodGet, "/healthz", "")
	assert.Len(t, w.Header().Get(headerRequestID), 36)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(headerRequestID, "abc-123")
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(headerRequestID))
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	w := do(s, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","version":"test"}`, w.Body.String())
}

func TestExport(t *testing.T) {
	s := newTestServer(t, nil)
	body := `{"sheetWidth":2000,"sheetHeight":1000,"elements":[{"label":"Door","width":500,"height":300}]}`

	w := do(s, http.MethodPost, "/furniture/cut/export/pdf", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `attachment; filename="cutplan-`)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))

	w = do(s, http.MethodPost, "/furniture/cut/export/json", body)
	require.Equal(t, http.StatusOK, w.Code)
	var plan model.CutPlan
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &plan))
	require.Len(t, plan.Placements, 1)
	assert.Equal(t, "Door", plan.Placements[0].Label)

	w = do(s, http.MethodPost, "/furniture/cut/export/svg", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "UNSUPPORTED", decodeError(t, w).Code)

	w = do(s, http.MethodPost, "/furniture/cut/export/labels",
		`{"sheetWidth":100,"sheetHeight":100,"elements":[{"width":200,"height":200}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCompare(t *testing.T) {
	s := newTestServer(t, nil)
	w := do(s, http.MethodPost, "/furniture/cut/compare", `{"sheetWidth":100,"sheetHeight":100,
		"elements":[{"width":50,"height":50},{"width":100,"height":50}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp api.CompareResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "Current Settings", resp.Results[0].Name)
	require.GreaterOrEqual(t, resp.Best, 0)
	assert.Equal(t, 2, resp.Results[resp.Best].Placed)
}

func TestImport(t *testing.T) {
	s := newTestServer(t, nil)

	upload := func(name, content string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = io.WriteString(fw, content)
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/furniture/cut/import", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)
		return w
	}

	w := upload("parts.csv", "ID,Label,Width,Height,Qty,Rotate\nD,Door,400,800,2,no\n")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp api.ImportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Elements, 2)
	assert.JSONEq(t, `"D-1"`, string(resp.Elements[0].ID))
	require.NotNil(t, resp.Elements[0].Rotate)
	assert.False(t, *resp.Elements[0].Rotate)

	w = upload("parts.csv", "Label,Width,Height\nDoor,wide,800\n")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(s, http.MethodPost, "/furniture/cut/import", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_INPUT", decodeError(t, w).Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, statusFor(io.EOF))
}

func TestRun_Shutdown(t *testing.T) {
	s := newTestServer(t, nil, func(cfg *config.AppConfig) {
		cfg.Server.Addr = "127.0.0.1:0"
		cfg.Server.ShutdownTimeout = time.Second
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
