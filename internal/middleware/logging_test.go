package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bufferLogger() (*logrus.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.JSONFormatter{})
	return l, &buf
}

func TestLogMiddlewareRecordsStatus(t *testing.T) {
	l, buf := bufferLogger()
	h := LogMiddleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/sessions", nil))
	assert.Contains(t, buf.String(), `"status":418`)
	assert.Contains(t, buf.String(), `"path":"/sessions"`)
}

func TestLogTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	l, buf := bufferLogger()
	client := &http.Client{Transport: &LogTransport{Logger: logrus.NewEntry(l)}}

	resp, err := client.Get(srv.URL + "/games/code/ABC")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Contains(t, buf.String(), `"level":"debug"`)

	buf.Reset()
	resp, err = client.Get(srv.URL + "/broken")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Contains(t, buf.String(), `"level":"warning"`)
	assert.Contains(t, buf.String(), `"status":502`)
}
