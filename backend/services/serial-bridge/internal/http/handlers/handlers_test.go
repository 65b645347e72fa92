package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"cardbridge/backend/services/serial-bridge/internal/auth"
	"cardbridge/backend/services/serial-bridge/internal/bridge"
	"cardbridge/backend/services/serial-bridge/internal/http/middleware"
	"cardbridge/backend/services/serial-bridge/internal/serialport"
)

type fakeSender struct {
	lines []string
	err   error
}

func (f *fakeSender) Send(_ context.Context, line string) error {
	if f.err != nil {
		return f.err
	}
	f.lines = append(f.lines, line)
	return nil
}

type fakeOpener struct {
	opened []string
	err    error
}

func (f *fakeOpener) Open(_ context.Context, name string) error {
	f.opened = append(f.opened, name)
	return f.err
}

type fakeLogin struct {
	token string
	err   error
}

func (f fakeLogin) Login(password string) (string, error) {
	return f.token, f.err
}

type staticVerifier struct {
	subject string
}

func (v staticVerifier) Enabled() bool { return true }

func (v staticVerifier) Verify(token string) (*auth.Claims, error) {
	if token != "valid" {
		return nil, errors.New("bad token")
	}
	return &auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: v.subject}}, nil
}

type fixedStatus bridge.Status

func (s fixedStatus) Status() bridge.Status { return bridge.Status(s) }

type fixedCount int

func (c fixedCount) Count() int { return int(c) }

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestCommandsHandler(t *testing.T) {
	sender := &fakeSender{}
	h := NewCommandsHandler(sender, zap.NewNop())

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/api/commands", strings.NewReader(`{"line":"GET:card_id:1"}`)))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if len(sender.lines) != 1 || sender.lines[0] != "GET:card_id:1" {
		t.Fatalf("unexpected sent lines %v", sender.lines)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected JSON content type, got %q", ct)
	}
	if body := decodeBody(t, rec); body["status"] != "sent" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestCommandsHandlerLogsOperator(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := middleware.Auth(staticVerifier{subject: auth.OperatorRole})(NewCommandsHandler(&fakeSender{}, zap.New(core)))

	req := httptest.NewRequest(http.MethodPost, "/api/commands", strings.NewReader(`{"line":"DELETE:5"}`))
	req.Header.Set("Authorization", "Bearer valid")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	sent := logs.FilterMessage("manual command sent").All()
	if len(sent) != 1 {
		t.Fatalf("expected one send log entry, got %d", len(sent))
	}
	if got := sent[0].ContextMap()["operator"]; got != auth.OperatorRole {
		t.Fatalf("expected operator %q in log, got %v", auth.OperatorRole, got)
	}
}

func TestCommandsHandlerErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
		err  error
		want int
	}{
		{name: "bad json", body: `{`, want: http.StatusBadRequest},
		{name: "not open", body: `{"line":"x"}`, err: bridge.ErrNotOpen, want: http.StatusConflict},
		{name: "write failed", body: `{"line":"x"}`, err: fmt.Errorf("bridge: write: %w", errors.New("eio")), want: http.StatusBadGateway},
	}
	for _, tc := range cases {
		h := NewCommandsHandler(&fakeSender{err: tc.err}, zap.NewNop())
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodPost, "/api/commands", strings.NewReader(tc.body)))
		if rec.Code != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.name, tc.want, rec.Code)
		}
	}
}

func TestSelectPortHandler(t *testing.T) {
	opener := &fakeOpener{}
	h := NewSelectPortHandler(opener)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/api/ports/select", strings.NewReader(`{"port":"/dev/ttyUSB0 - USB Serial"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(opener.opened) != 1 || opener.opened[0] != "/dev/ttyUSB0" {
		t.Fatalf("expected normalized port name, got %v", opener.opened)
	}

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/api/ports/select", strings.NewReader(`{"port":"  "}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty port, got %d", rec.Code)
	}

	failing := &fakeOpener{err: fmt.Errorf("%w: %w", bridge.ErrOpenFailed, errors.New("no such device"))}
	rec = httptest.NewRecorder()
	NewSelectPortHandler(failing)(rec, httptest.NewRequest(http.MethodPost, "/api/ports/select", strings.NewReader(`{"port":"COM9"}`)))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if msg := decodeBody(t, rec)["error"]; !strings.Contains(fmt.Sprint(msg), "no such device") {
		t.Fatalf("expected cause in error, got %v", msg)
	}
}

func TestListPortsHandler(t *testing.T) {
	list := func() ([]serialport.PortInfo, error) {
		return []serialport.PortInfo{{Name: "/dev/ttyACM0", Description: "Arduino Uno", USB: true, VID: "2341", PID: "0043"}}, nil
	}
	rec := httptest.NewRecorder()
	NewListPortsHandler(list, zap.NewNop())(rec, httptest.NewRequest(http.MethodGet, "/api/ports", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	ports, ok := decodeBody(t, rec)["ports"].([]interface{})
	if !ok || len(ports) != 1 {
		t.Fatalf("unexpected ports payload %s", rec.Body.String())
	}

	broken := func() ([]serialport.PortInfo, error) { return nil, errors.New("enumeration failed") }
	rec = httptest.NewRecorder()
	NewListPortsHandler(broken, zap.NewNop())(rec, httptest.NewRequest(http.MethodGet, "/api/ports", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestLoginHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewLoginHandler(fakeLogin{token: "abc"}, zap.NewNop())(rec, httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"password":"pw"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["token"] != "abc" || body["token_type"] != "Bearer" {
		t.Fatalf("unexpected body %v", body)
	}

	rec = httptest.NewRecorder()
	NewLoginHandler(fakeLogin{err: auth.ErrInvalidCredentials}, zap.NewNop())(rec, httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"password":"nope"}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	NewLoginHandler(fakeLogin{}, zap.NewNop())(rec, httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing password, got %d", rec.Code)
	}
}

func TestStatusHandler(t *testing.T) {
	src := fixedStatus{Port: "/dev/ttyUSB0", Open: true, LinesProcessed: 7, FramingFaults: 1}
	rec := httptest.NewRecorder()
	NewStatusHandler(src, fixedCount(2))(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	body := decodeBody(t, rec)
	if body["port"] != "/dev/ttyUSB0" || body["open"] != true {
		t.Fatalf("unexpected status %v", body)
	}
	if body["lines_processed"] != float64(7) || body["framing_faults"] != float64(1) || body["consoles"] != float64(2) {
		t.Fatalf("unexpected counters %v", body)
	}
}
