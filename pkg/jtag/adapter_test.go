package jtag

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidateShiftBuffers(t *testing.T) {
	if _, err := ValidateShiftBuffers(0, nil); err == nil {
		t.Fatalf("expected error for zero bits")
	}

	_, err := ValidateShiftBuffers(16, []byte{0x00})
	if err == nil {
		t.Fatalf("expected error when buffer too small")
	}
	if !errors.Is(err, ErrBadParameter) {
		t.Fatalf("error %v does not match ErrBadParameter", err)
	}

	n, err := ValidateShiftBuffers(9, nil, []byte{0x01, 0x00})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Fatalf("required bytes = %d, want 2", n)
	}
}

func TestErrorCodes(t *testing.T) {
	cause := errors.New("pipe stalled")
	err := NewError("SendTDIBits", CodeUSB, cause)
	if !errors.Is(err, cause) {
		t.Fatalf("NewError does not unwrap to its cause")
	}
	if got := CodeOf(err); got != CodeUSB {
		t.Fatalf("CodeOf = %s, want %s", got, CodeUSB)
	}

	wrapped := Wrap("GotoState", CodeTransport, fmt.Errorf("step 2: %w", err))
	if got := CodeOf(wrapped); got != CodeUSB {
		t.Fatalf("Wrap lost inner code: got %s", got)
	}
	if got := CodeOf(Wrap("x", CodeTimeout, cause)); got != CodeTimeout {
		t.Fatalf("Wrap fallback code = %s, want %s", got, CodeTimeout)
	}

	if NewError("op", CodeUSB, nil) != nil || Wrap("op", CodeUSB, nil) != nil {
		t.Fatalf("nil cause must yield nil error")
	}

	cases := map[error]ErrorCode{
		nil:                                 CodeNone,
		ErrNotConnected:                     CodeNotConnected,
		fmt.Errorf("x: %w", ErrBadParameter): CodeBadParameter,
		ErrNotImplemented:                   CodeUnsupported,
		errors.New("other"):                 CodeTransport,
	}
	for in, want := range cases {
		if got := CodeOf(in); got != want {
			t.Fatalf("CodeOf(%v) = %s, want %s", in, got, want)
		}
	}
}

func TestErrorCodeNames(t *testing.T) {
	if got := CodeBadParameter.Name(); got != "ercBadParameter" {
		t.Fatalf("Name() = %q", got)
	}
	if got := ErrorCode(99).String(); got != "erc99" {
		t.Fatalf("String() = %q", got)
	}
	if CodeNone.Description() == "" || ErrorCode(99).Description() != "unknown error code" {
		t.Fatalf("unexpected descriptions")
	}
}

func TestPinsString(t *testing.T) {
	p := Pins{TMS: true, TDO: true}
	if got, want := p.String(), "TMS=1 TDI=0 TDO=1 TCK=0"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
