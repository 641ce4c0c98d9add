package protocol

import (
	stderrors "errors"
	"fmt"
	"testing"

	verrors "github.com/vango-dev/vango-mixed/internal/errors"
)

func TestErrorMessageFrom(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"binding live", verrors.New("E230"), ErrBindingLive},
		{"wrapped callback failure", fmt.Errorf("invoke: %w", verrors.New("E250")), ErrCallbackFailed},
		{"disconnected", verrors.New("E240"), ErrDisconnected},
		{"plain error", stderrors.New("boom"), ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			em := ErrorMessageFrom(tt.err)
			if em.Code != tt.want {
				t.Errorf("Code = %s, want %s", em.Code, tt.want)
			}
			if em.Message != tt.err.Error() {
				t.Errorf("Message = %q, want %q", em.Message, tt.err.Error())
			}
		})
	}

	if ErrorMessageFrom(nil) != nil {
		t.Error("ErrorMessageFrom(nil) should be nil")
	}
}

func TestErrorMessageErr(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{ErrBindingDead, "E231"},
		{ErrNotBound, "E232"},
		{ErrCallbackUnknown, "E251"},
		{ErrNoRoute, "E241"},
		{ErrMalformedArgs, "E242"},
	}
	for _, tt := range tests {
		err := NewError(tt.code, "x").Err()
		if !verrors.Is(err, tt.want) {
			t.Errorf("%s.Err() = %v, want %s", tt.code, err, tt.want)
		}
	}

	err := NewError(ErrInternal, "panic in component").Err()
	var em *ErrorMessage
	if !stderrors.As(err, &em) || em.Code != ErrInternal {
		t.Errorf("Err() = %v, want *ErrorMessage", err)
	}
}

func TestErrorMessageEncoding(t *testing.T) {
	in := NewFatalError(ErrVersionMismatch, "peer speaks 2.0")
	got, err := DecodeErrorMessage(EncodeErrorMessage(in))
	if err != nil {
		t.Fatal(err)
	}
	if *got != *in {
		t.Errorf("DecodeErrorMessage() = %+v, want %+v", got, in)
	}
	if got.Error() != "fatal: VersionMismatch: peer speaks 2.0" {
		t.Errorf("Error() = %q", got.Error())
	}
}
