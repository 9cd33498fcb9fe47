package ipc

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/dspcore/errors"
	"github.com/kbukum/dspcore/pipeline"
)

func newEngine(t *testing.T) (*gin.Engine, *Processor) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	p, _ := newProcessor(t)
	engine := gin.New()
	NewHandler(p).RegisterRoutes(engine)
	return engine, p
}

func do(engine http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", "req-1")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestCommandRoute(t *testing.T) {
	engine, _ := newEngine(t)

	tests := []struct {
		name   string
		body   string
		status int
		reply  int
		code   errors.ErrorCode
	}{
		{"version", `{"op":"version"}`, http.StatusOK, 0, ""},
		{"pipeline new", `{"op":"pipeline.new","pipeline":{"id":4,"core":0,"period_us":1000,"period_frames":4}}`, http.StatusOK, 0, ""},
		{"duplicate pipeline", `{"op":"pipeline.new","pipeline":{"id":4,"core":0,"period_us":1000,"period_frames":4}}`, http.StatusConflict, -17, errors.ErrCodeAlreadyExists},
		{"unknown pipeline", `{"op":"stream.prepare","pipeline_id":99}`, http.StatusNotFound, -19, errors.ErrCodeNotFound},
		{"missing op", `{}`, http.StatusBadRequest, -22, errors.ErrCodeInvalidArgument},
		{"malformed", `{"op":`, http.StatusBadRequest, -22, errors.ErrCodeInvalidArgument},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(engine, http.MethodPost, "/ipc", tc.body)
			if rec.Code != tc.status {
				t.Fatalf("expected HTTP %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			var reply Reply
			if err := json.Unmarshal(rec.Body.Bytes(), &reply); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if reply.Status != tc.reply || reply.Code != tc.code {
				t.Errorf("expected %d/%s, got %d/%s", tc.reply, tc.code, reply.Status, reply.Code)
			}
		})
	}
}

func TestPipelineRoutes(t *testing.T) {
	engine, p := newEngine(t)
	buildToneToSink(t, p, 2)

	rec := do(engine, http.MethodGet, "/pipelines/2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var state struct {
		Data PipelineInfo `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatal(err)
	}
	if state.Data.ID != 2 || state.Data.State != "PREPARE" {
		t.Errorf("unexpected state %+v", state.Data)
	}

	rec = do(engine, http.MethodGet, "/pipelines", "")
	var list struct {
		Data []PipelineInfo `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Data) != 1 {
		t.Errorf("expected one pipeline, got %+v", list.Data)
	}

	if rec := do(engine, http.MethodPost, "/pipelines/2/trigger", `{"cmd":"start"}`); rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 on start, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := do(engine, http.MethodPost, "/pipelines/2/xrun-recover", ""); rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 on recover, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := do(engine, http.MethodPost, "/pipelines/2/trigger", `{"cmd":"stop"}`); rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 on stop, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRouteErrors(t *testing.T) {
	engine, _ := newEngine(t)

	tests := []struct {
		name, method, path, body string
		status                   int
		code                     errors.ErrorCode
	}{
		{"bad id", http.MethodGet, "/pipelines/abc", "", http.StatusBadRequest, errors.ErrCodeInvalidArgument},
		{"unknown pipeline", http.MethodGet, "/pipelines/8", "", http.StatusNotFound, errors.ErrCodeNotFound},
		{"missing trigger", http.MethodPost, "/pipelines/8/trigger", `{}`, http.StatusBadRequest, errors.ErrCodeInvalidArgument},
		{"malformed trigger", http.MethodPost, "/pipelines/8/trigger", `nope`, http.StatusBadRequest, errors.ErrCodeInvalidArgument},
		{"disable primary", http.MethodPost, "/cores/0/disable", "", http.StatusBadRequest, errors.ErrCodeInvalidArgument},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(engine, tc.method, tc.path, tc.body)
			if rec.Code != tc.status {
				t.Fatalf("expected HTTP %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			var resp errors.ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Error.Code != tc.code {
				t.Errorf("expected %s, got %s", tc.code, resp.Error.Code)
			}
		})
	}
}

func TestCoreRoutes(t *testing.T) {
	engine, _ := newEngine(t)
	if rec := do(engine, http.MethodPost, "/cores/1/enable", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := do(engine, http.MethodPost, "/cores/1/disable", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestPositionRoute(t *testing.T) {
	engine, p := newEngine(t)
	buildToneToSink(t, p, 2)
	mustOK(t, p, Command{Op: OpPipelineNew, Pipeline: &pipeline.Spec{ID: 3, Core: 0, Period: 1000, PeriodFrames: frames}})

	type positionBody struct {
		Data PositionInfo `json:"data"`
	}
	read := func(path string) (int, PositionInfo) {
		rec := do(engine, http.MethodGet, path, "")
		var body positionBody
		if rec.Code == http.StatusOK {
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode %s: %v", rec.Body.String(), err)
			}
		}
		return rec.Code, body.Data
	}

	if code, pos := read("/pipelines/2/position"); code != http.StatusOK || pos.Frames != 0 {
		t.Fatalf("expected a zero position before start, got %d %+v", code, pos)
	}
	if rec := do(engine, http.MethodPost, "/pipelines/2/trigger", `{"cmd":"start"}`); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 on start, got %d: %s", rec.Code, rec.Body.String())
	}

	var pos PositionInfo
	waitFor(t, "sink position", func() bool {
		_, pos = read("/pipelines/2/position")
		return pos.Frames >= 3*frames
	})
	if pos.PipelineID != 2 || pos.ComponentID != 2 || pos.Core != 0 || pos.Ticks == 0 {
		t.Errorf("unexpected sink position %+v", pos)
	}

	code, tone := read("/pipelines/2/position?component=1")
	if code != http.StatusOK || tone.ComponentID != 1 || tone.Frames < pos.Frames {
		t.Errorf("expected the tone to lead the sink, got %d %+v (sink %d)", code, tone, pos.Frames)
	}

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"bad component", "/pipelines/2/position?component=x", http.StatusBadRequest},
		{"unknown component", "/pipelines/2/position?component=9", http.StatusNotFound},
		{"unknown pipeline", "/pipelines/8/position", http.StatusNotFound},
		{"incomplete pipeline", "/pipelines/3/position", http.StatusConflict},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if code, _ := read(tc.path); code != tc.status {
				t.Errorf("expected HTTP %d, got %d", tc.status, code)
			}
		})
	}
}
