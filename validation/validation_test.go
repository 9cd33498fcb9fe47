package validation

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/kbukum/dspcore/errors"
)

type streamRequest struct {
	Rate     uint32 `json:"rate" validate:"required,gte=8000,lte=192000"`
	Channels uint16 `json:"channels" validate:"required,gte=1,lte=8"`
	Format   string `json:"format" validate:"required,sample_format"`
	Driver   string `json:"driver" validate:"omitempty,uuid"`
}

type section struct {
	Cmd string `yaml:"cmd" validate:"oneof=start stop"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name      string
		in        any
		wantErr   bool
		wantField string
	}{
		{"valid", streamRequest{Rate: 48000, Channels: 2, Format: "s16"}, false, ""},
		{"valid with driver", streamRequest{Rate: 48000, Channels: 2, Format: "s32", Driver: uuid.NewString()}, false, ""},
		{"missing rate", streamRequest{Channels: 2, Format: "s16"}, true, "rate"},
		{"rate too high", streamRequest{Rate: 384000, Channels: 2, Format: "s16"}, true, "rate"},
		{"too many channels", streamRequest{Rate: 48000, Channels: 9, Format: "s16"}, true, "channels"},
		{"unknown format", streamRequest{Rate: 48000, Channels: 2, Format: "u8"}, true, "format"},
		{"bad driver uuid", streamRequest{Rate: 48000, Channels: 2, Format: "s16", Driver: "tone"}, true, "driver"},
		{"yaml tag name", section{Cmd: "pause"}, true, "cmd"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.in)
			if !tc.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			appErr, ok := errors.AsAppError(err)
			if !ok {
				t.Fatalf("expected AppError, got %T", err)
			}
			if appErr.Code != errors.ErrCodeInvalidArgument {
				t.Errorf("expected INVALID_ARGUMENT, got %s", appErr.Code)
			}
			fields, ok := appErr.Details["fields"].([]FieldError)
			if !ok || len(fields) == 0 {
				t.Fatalf("expected field details, got %v", appErr.Details)
			}
			if fields[0].Field != tc.wantField {
				t.Errorf("expected field %q, got %q", tc.wantField, fields[0].Field)
			}
		})
	}
}

func TestValidateMessages(t *testing.T) {
	err := Validate(streamRequest{Rate: 48000, Channels: 2, Format: "u8"})
	if err == nil || !strings.Contains(err.Error(), "format: must be one of: s16 s24 s32 f32") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestValidatorRequired(t *testing.T) {
	if New().Required("name", "tone").HasErrors() {
		t.Error("expected no errors for valid input")
	}
	if !New().Required("name", "   ").HasErrors() {
		t.Error("expected error for whitespace-only required field")
	}
}

func TestValidatorRequiredUUID(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"valid", uuid.NewString(), false},
		{"empty", "", true},
		{"malformed", "not-a-uuid", true},
		{"nil uuid", uuid.Nil.String(), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := New().RequiredUUID("uuid", tc.value).HasErrors(); got != tc.wantErr {
				t.Errorf("HasErrors() = %v, want %v", got, tc.wantErr)
			}
		})
	}
}

func TestValidatorRangeAndMin(t *testing.T) {
	v := New()
	v.Range("cores", 2, 1, 8)
	v.Min("depth", 4, 1)
	if v.HasErrors() {
		t.Errorf("unexpected errors: %v", v.Errors())
	}

	v2 := New()
	v2.Range("cores", 0, 1, 8)
	v2.Min("depth", 0, 1)
	if len(v2.Errors()) != 2 {
		t.Errorf("expected 2 errors, got %v", v2.Errors())
	}
}

func TestValidatorOneOf(t *testing.T) {
	if New().OneOf("format", "json", []string{"json", "console"}).HasErrors() {
		t.Error("expected no error for allowed value")
	}
	if !New().OneOf("format", "xml", []string{"json", "console"}).HasErrors() {
		t.Error("expected error for disallowed value")
	}
	if New().OneOf("format", "", []string{"json"}).HasErrors() {
		t.Error("empty value should be skipped")
	}
}

func TestValidatorValidate(t *testing.T) {
	if err := New().Custom(true, "x", "unused").Validate(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	v := New()
	v.Custom(false, "primary_core", "must be an enabled core")
	v.Required("name", "")
	err := v.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "primary_core: must be an enabled core; name: is required") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestParseUUID(t *testing.T) {
	want := uuid.New()
	got, err := ParseUUID("uuid", want.String())
	if err != nil || got != want {
		t.Errorf("expected %s, got %s (%v)", want, got, err)
	}
	if _, err := ParseUUID("uuid", ""); err == nil {
		t.Error("expected error for empty value")
	}
	if _, err := ParseUUID("uuid", "zzz"); !errors.HasCode(err, errors.ErrCodeInvalidArgument) {
		t.Errorf("expected INVALID_ARGUMENT, got %v", err)
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{"PeriodFrames": "period_frames", "Rate": "rate", "xrun": "xrun"}
	for in, want := range tests {
		if got := toSnakeCase(in); got != want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}
