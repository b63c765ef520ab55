package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/khbm0110/JUUUU/internal/requestctx"
)

func TestParseCloudTrace(t *testing.T) {
	info, sc, ok := parseCloudTrace("105445aa7843bc8bf206b12000100000/1;o=1")
	require.True(t, ok)
	require.Equal(t, "105445aa7843bc8bf206b12000100000", info.TraceID)
	require.Equal(t, "0000000000000001", info.SpanID)
	require.True(t, info.Sampled)
	require.True(t, sc.IsRemote())

	for _, bad := range []string{"", "nope", "105445aa7843bc8bf206b12000100000", "short/1", "105445aa7843bc8bf206b12000100000/zz"} {
		_, _, ok := parseCloudTrace(bad)
		require.False(t, ok, bad)
	}
}

func TestTraceAndRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	var seen requestctx.TraceInfo
	handler := Trace(InjectLogger(zap.New(core))(RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = requestctx.Trace(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CloudTraceHeader, "105445aa7843bc8bf206b12000100000/42;o=0")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, "105445aa7843bc8bf206b12000100000", seen.TraceID)
	entries := logs.FilterMessage("request completed").All()
	require.Len(t, entries, 1)
	require.Equal(t, zap.WarnLevel, entries[0].Level)
	ctx := entries[0].ContextMap()
	require.Equal(t, "105445aa7843bc8bf206b12000100000", ctx["trace_id"])
	require.EqualValues(t, http.StatusTeapot, ctx["status"])
}

func TestRecoveryWritesEnvelope(t *testing.T) {
	handler := Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), `"internal_server_error"`)
}
