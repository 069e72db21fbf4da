package httpapi

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRequestLogLevel(t *testing.T) {
	cases := []struct {
		query, header string
		want          LogLevel
	}{
		{"log=1", "", LevelDebug},
		{"log=error", "", LevelError},
		{"log=off", "debug", LevelOff},
		{"", "info", LevelInfo},
		{"", "bogus", LevelInfo},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodPost, "/v2/models/m/infer?"+tc.query, nil)
		if tc.header != "" {
			r.Header.Set("X-Log-Level", tc.header)
		}
		if got := requestLogLevel(r); got != tc.want {
			t.Errorf("query=%q header=%q: got %d want %d", tc.query, tc.header, got, tc.want)
		}
	}
}

func TestLogInferEnd(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))
	defer SetLogger(zerolog.Nop())
	r := httptest.NewRequest(http.MethodPost, "/v2/models/m/infer", nil)

	logInferEnd(r, LevelError, "m", http.StatusOK, time.Now(), nil)
	if buf.Len() != 0 {
		t.Fatalf("success should not log at error level: %s", buf.String())
	}
	logInferEnd(r, LevelError, "m", http.StatusBadRequest, time.Now(), errors.New("bad input"))
	if !strings.Contains(buf.String(), `"level":"error"`) || !strings.Contains(buf.String(), "bad input") {
		t.Fatalf("expected error log, got %s", buf.String())
	}
	buf.Reset()
	logInferEnd(r, LevelInfo, "m", http.StatusOK, time.Now(), nil)
	if !strings.Contains(buf.String(), `"status":200`) {
		t.Fatalf("expected info log, got %s", buf.String())
	}
	buf.Reset()
	logInferEnd(r, LevelOff, "m", http.StatusInternalServerError, time.Now(), errors.New("x"))
	if buf.Len() != 0 {
		t.Fatalf("off should not log: %s", buf.String())
	}
}
