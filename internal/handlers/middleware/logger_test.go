package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	msg  string
	args []any
}

func (l *recordingLogger) Info(msg string, args ...any) {
	l.msg = msg
	l.args = args
}

func logged(l *recordingLogger) map[string]any {
	fields := make(map[string]any, len(l.args)/2)
	for i := 0; i+1 < len(l.args); i += 2 {
		fields[l.args[i].(string)] = l.args[i+1]
	}
	return fields
}

func TestLoggerMiddleware(t *testing.T) {
	t.Run("logs method status and size", func(t *testing.T) {
		l := &recordingLogger{}
		handler := LoggerMiddleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
			_, _ = w.Write([]byte("hello"))
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/deposits/create", nil))

		require.Equal(t, http.StatusTeapot, rec.Code)

		fields := logged(l)
		require.Equal(t, http.MethodPost, fields["method"])
		require.Equal(t, "/api/deposits/create", fields["uri"])
		require.Equal(t, http.StatusTeapot, fields["status"])
		require.Equal(t, len("hello"), fields["size"])
	})

	t.Run("implicit 200 recorded", func(t *testing.T) {
		l := &recordingLogger{}
		handler := LoggerMiddleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("ok"))
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		fields := logged(l)
		require.Equal(t, http.StatusOK, fields["status"], "handlers that never call WriteHeader still count as 200")
	})
}
