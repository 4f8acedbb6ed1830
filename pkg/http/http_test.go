package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingRequest struct {
	Name  string `json:"name" validate:"required,max=8"`
	Count int    `json:"count" default:"3" validate:"gte=1,lte=10"`
}

type pingHandler struct{}

func (pingHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/ping", func(c echo.Context) error {
		req := &pingRequest{}
		if verr := ReadAndValidateRequest(c, req); verr != nil {
			return BadRequestResponse(c, verr)
		}
		return SuccessResponse(c, req)
	})
	e.GET("/conflict", func(c echo.Context) error {
		return AppErrorResponse(c, NewAppError(http.StatusConflict, CodeConflict, "busy"))
	})
	e.GET("/boom", func(c echo.Context) error {
		return AppErrorResponse(c, errors.New("plain"))
	})
}

func serve(s *Server, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestServerRoutesAndResponses(t *testing.T) {
	s := NewServer([]Handler{pingHandler{}}, WithMetricsPath(""))

	rec := serve(s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(s, http.MethodPost, "/ping", `{"name":"abc"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var ok struct {
		Data pingRequest `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ok))
	assert.Equal(t, 3, ok.Data.Count, "defaults are applied after binding")

	rec = serve(s, http.MethodPost, "/ping", `{"name":"much-too-long"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var bad struct {
		Data []ValidationError `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bad))
	require.Len(t, bad.Data, 1)
	assert.Equal(t, "ERR_MAX", bad.Data[0].Code)
	assert.Equal(t, "name", bad.Data[0].Field)
	assert.Equal(t, "8", bad.Data[0].Params["max"])

	assert.Equal(t, http.StatusConflict, serve(s, http.MethodGet, "/conflict", "").Code)
	assert.Equal(t, http.StatusInternalServerError, serve(s, http.MethodGet, "/boom", "").Code)
}

func TestClientStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.Error(w, "nope", http.StatusNotFound)
			return
		}
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient()
	err := c.SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: srv.URL + "/missing"}, nil)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.False(t, se.Temporary())

	err = c.SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: srv.URL + "/"}, nil)
	require.ErrorAs(t, err, &se)
	assert.True(t, se.Temporary())
}

func TestClientSendsJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in map[string]float64
		_ = json.NewDecoder(r.Body).Decode(&in)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"ua":     r.UserAgent(),
			"ctype":  r.Header.Get("Content-Type"),
			"symbol": r.URL.Query().Get("symbol"),
			"sum":    in["a"] + in["b"],
		})
	}))
	defer srv.Close()

	c := NewClient(WithUserAgent("test-agent"), WithTimeout(time.Second))
	var out struct {
		UA     string  `json:"ua"`
		CType  string  `json:"ctype"`
		Symbol string  `json:"symbol"`
		Sum    float64 `json:"sum"`
	}
	err := c.SendAndParse(context.Background(), &RequestOptions{
		Method: MethodPost,
		URL:    srv.URL,
		Query:  url.Values{"symbol": {"AAPL"}},
		Body:   map[string]float64{"a": 1, "b": 2.5},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, "test-agent", out.UA)
	assert.Equal(t, "application/json", out.CType)
	assert.Equal(t, "AAPL", out.Symbol)
	assert.InDelta(t, 3.5, out.Sum, 1e-9)
}

func TestCORSPreflightAndOrigins(t *testing.T) {
	s := NewServer([]Handler{HandlerFunc(func(e *echo.Echo) {
		e.GET("/hello", func(c echo.Context) error { return c.String(http.StatusOK, "hi") })
	})}, WithMetricsPath(""))

	req := httptest.NewRequest(http.MethodOptions, "/hello", nil)
	req.Header.Set(echo.HeaderOrigin, "https://app.example")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodGet)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowMethods), http.MethodPost)
	assert.Equal(t, "600", rec.Header().Get(echo.HeaderAccessControlMaxAge))

	req = httptest.NewRequest(http.MethodGet, "/hello", nil)
	rec = httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestMapError(t *testing.T) {
	errGone := errors.New("gone")
	errBusy := errors.New("busy")
	rules := []ErrorRule{
		{Target: errGone, Status: http.StatusNotFound, Code: CodeNotFound},
		{Target: errBusy, Status: http.StatusConflict, Code: CodeConflict},
	}

	got := MapError(fmt.Errorf("load AAPL: %w", errGone), "failure", rules...)
	assert.Equal(t, http.StatusNotFound, got.Status)
	assert.Equal(t, CodeNotFound, got.Code)
	assert.Equal(t, "load AAPL: gone", got.Message)
	assert.ErrorIs(t, got, errGone)

	own := TooManyRequestsError("slow down")
	assert.Same(t, own, MapError(fmt.Errorf("wrapped: %w", own), "failure", rules...))

	got = MapError(errors.New("dial tcp 10.0.0.3: refused"), "failure", rules...)
	assert.Equal(t, http.StatusInternalServerError, got.Status)
	assert.Equal(t, CodeInternal, got.Code)
	assert.Equal(t, "failure", got.Message, "internal errors are not echoed")
}
