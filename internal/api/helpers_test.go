package api_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/dashsync/internal/models"
	"github.com/persistorai/dashsync/internal/query"
	"github.com/persistorai/dashsync/internal/syncer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)

	return l
}

// doRequest performs an HTTP request against the test router and returns the recorder.
func doRequest(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, http.NoBody)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

// syncedState is an idle state holding records, as after a successful fetch.
func syncedState(records ...models.Record) syncer.State {
	now := time.Now()

	return syncer.State{
		Phase:      syncer.PhaseIdle,
		Backend:    syncer.BackendReachable,
		Selection:  query.Empty.With(query.Topics, "oil"),
		Records:    records,
		Filters:    models.FilterOptions{Topics: []string{"oil", "gas"}},
		Seq:        2,
		AppliedSeq: 2,
		LastSynced: now,
		UpdatedAt:  now,
	}
}
