package calculator

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"go-chi-calculator/internal/observability"
	"go-chi-calculator/internal/session"
	"go-chi-calculator/internal/testutil"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestServer(t *testing.T) (http.Handler, *session.Store, *observer.ObservedLogs) {
	t.Helper()

	core, logs := observer.New(zap.InfoLevel)
	oldLogger := observability.Logger
	observability.Logger = zap.New(core)
	t.Cleanup(func() { observability.Logger = oldLogger })

	if err := InitMetrics(); err != nil {
		t.Fatalf("initializing calculator metrics: %v", err)
	}

	store := session.NewStore()
	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(store))
	return r, store, logs
}

func postEvents(t *testing.T, h http.Handler, id string, events ...EventRequest) (int, SessionResponse) {
	t.Helper()
	req := testutil.NewJSONRequest(t, http.MethodPost, "/calculator/sessions/"+id+"/events", EventsRequest{Events: events})
	w := testutil.ExecuteRequest(req, h)

	var resp SessionResponse
	if w.Code == http.StatusOK {
		testutil.DecodeJSONBody(t, w.Body, &resp)
	}
	return w.Code, resp
}

func TestCreateAndGetSession(t *testing.T) {
	h, _, logs := newTestServer(t)

	w := testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodPost, "/calculator/sessions", nil), h)
	testutil.CheckResponseCode(t, http.StatusCreated, w.Code)

	var created SessionResponse
	testutil.DecodeJSONBody(t, w.Body, &created)
	if created.ID == "" || created.Entry != "0" || !created.ControlsEnabled {
		t.Fatalf("unexpected new session: %+v", created)
	}

	w = testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodGet, "/calculator/sessions/"+created.ID, nil), h)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var got SessionResponse
	testutil.DecodeJSONBody(t, w.Body, &got)
	if got != created {
		t.Fatalf("expected %+v, got %+v", created, got)
	}

	if n := logs.FilterMessage("calculator session created").Len(); n != 1 {
		t.Fatalf("expected 1 creation log, got %d", n)
	}
}

func TestApplyEventsChainsCalculation(t *testing.T) {
	h, store, _ := newTestServer(t)
	sess := store.Create()

	code, resp := postEvents(t, h, sess.ID(),
		EventRequest{Type: "digit", Digit: 5},
		EventRequest{Type: "operator", Op: "+"},
		EventRequest{Type: "digit", Digit: 3},
		EventRequest{Type: "equals"},
	)
	testutil.CheckResponseCode(t, http.StatusOK, code)

	if resp.Entry != "8" || resp.Formula != "5 + 3 =" || resp.Error != "" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	code, resp = postEvents(t, h, sess.ID(),
		EventRequest{Type: "operator", Op: "+"},
		EventRequest{Type: "digit", Digit: 2},
		EventRequest{Type: "equals"},
	)
	testutil.CheckResponseCode(t, http.StatusOK, code)

	if resp.Entry != "10" {
		t.Fatalf("expected chained result 10, got %+v", resp)
	}
}

func TestApplyEventsSpecialOperation(t *testing.T) {
	h, store, _ := newTestServer(t)
	sess := store.Create()

	code, resp := postEvents(t, h, sess.ID(),
		EventRequest{Type: "digit", Digit: 9},
		EventRequest{Type: "special", Op: "sqrt"},
	)
	testutil.CheckResponseCode(t, http.StatusOK, code)

	if resp.Entry != "3" || resp.Formula != "√(9) =" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestDivideByZeroIsAStateNotAnHTTPError(t *testing.T) {
	h, store, logs := newTestServer(t)
	sess := store.Create()

	code, resp := postEvents(t, h, sess.ID(),
		EventRequest{Type: "digit", Digit: 8},
		EventRequest{Type: "operator", Op: "÷"},
		EventRequest{Type: "digit", Digit: 0},
		EventRequest{Type: "equals"},
	)
	testutil.CheckResponseCode(t, http.StatusOK, code)

	if resp.Error != "divide_by_zero" || resp.ControlsEnabled {
		t.Fatalf("expected divide_by_zero with controls disabled, got %+v", resp)
	}
	if resp.Entry != "Cannot divide by zero" {
		t.Fatalf("expected error message in entry, got %q", resp.Entry)
	}

	entries := logs.FilterMessage("calculator entered error state").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 error-state log, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["kind"]; got != "divide_by_zero" {
		t.Fatalf("expected kind divide_by_zero, got %#v", got)
	}
}

func TestApplyEventsRejectsBadInputWithoutApplyingAny(t *testing.T) {
	h, store, _ := newTestServer(t)
	sess := store.Create()

	code, _ := postEvents(t, h, sess.ID(),
		EventRequest{Type: "digit", Digit: 7},
		EventRequest{Type: "operator", Op: "^"},
	)
	testutil.CheckResponseCode(t, http.StatusBadRequest, code)

	if st := sess.State(); st.Entry != "0" {
		t.Fatalf("expected session untouched, got entry %q", st.Entry)
	}

	code, _ = postEvents(t, h, sess.ID())
	testutil.CheckResponseCode(t, http.StatusBadRequest, code)
}

func TestApplyEventsMalformedBody(t *testing.T) {
	h, store, _ := newTestServer(t)
	sess := store.Create()

	req := testutil.NewJSONRequest(t, http.MethodPost, "/calculator/sessions/"+sess.ID()+"/events", nil)
	req.Body = http.NoBody
	w := testutil.ExecuteRequest(req, h)

	testutil.CheckResponseCode(t, http.StatusBadRequest, w.Code)

	var body map[string]string
	testutil.DecodeJSONBody(t, w.Body, &body)
	if !strings.HasPrefix(body["error"], "invalid request body") {
		t.Fatalf("expected invalid request body error, got %q", body["error"])
	}
}

func TestApplyKeys(t *testing.T) {
	h, store, _ := newTestServer(t)
	sess := store.Create()

	req := testutil.NewJSONRequest(t, http.MethodPost, "/calculator/sessions/"+sess.ID()+"/keys",
		KeysRequest{Keys: []string{"1", "2", "Backspace", "*", "4", "Enter"}})
	w := testutil.ExecuteRequest(req, h)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var resp SessionResponse
	testutil.DecodeJSONBody(t, w.Body, &resp)
	if resp.Entry != "4" || resp.Formula != "1 × 4 =" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	req = testutil.NewJSONRequest(t, http.MethodPost, "/calculator/sessions/"+sess.ID()+"/keys",
		KeysRequest{Keys: []string{"Escape"}})
	w = testutil.ExecuteRequest(req, h)
	testutil.CheckResponseCode(t, http.StatusBadRequest, w.Code)
}

func TestUnknownSession(t *testing.T) {
	h, _, _ := newTestServer(t)

	tests := []struct {
		method string
		path   string
		body   any
	}{
		{method: http.MethodGet, path: "/calculator/sessions/missing"},
		{method: http.MethodDelete, path: "/calculator/sessions/missing"},
		{method: http.MethodPost, path: "/calculator/sessions/missing/reset"},
		{method: http.MethodPost, path: "/calculator/sessions/missing/events", body: EventsRequest{Events: []EventRequest{{Type: "equals"}}}},
		{method: http.MethodPost, path: "/calculator/sessions/missing/keys", body: KeysRequest{Keys: []string{"1"}}},
	}

	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := testutil.ExecuteRequest(testutil.NewJSONRequest(t, tc.method, tc.path, tc.body), h)
			testutil.CheckResponseCode(t, http.StatusNotFound, w.Code)
		})
	}
}

func TestDeleteSession(t *testing.T) {
	h, store, _ := newTestServer(t)
	sess := store.Create()

	w := testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodDelete, "/calculator/sessions/"+sess.ID(), nil), h)
	testutil.CheckResponseCode(t, http.StatusNoContent, w.Code)

	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d", store.Len())
	}
}

func TestResetSession(t *testing.T) {
	h, store, _ := newTestServer(t)
	sess := store.Create()
	postEvents(t, h, sess.ID(), EventRequest{Type: "digit", Digit: 4}, EventRequest{Type: "operator", Op: "*"})

	w := testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodPost, "/calculator/sessions/"+sess.ID()+"/reset", nil), h)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var resp SessionResponse
	testutil.DecodeJSONBody(t, w.Body, &resp)
	if resp.Entry != "0" || resp.Formula != "" {
		t.Fatalf("expected reset state, got %+v", resp)
	}
}

func TestReportSweep(t *testing.T) {
	_, _, logs := newTestServer(t)

	ReportSweep(context.Background(), 0)
	ReportSweep(context.Background(), 3)

	entries := logs.FilterMessage("idle calculator sessions swept").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 sweep log, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["removed"]; got != int64(3) {
		t.Fatalf("expected removed 3, got %#v", got)
	}
}
