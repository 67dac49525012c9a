package nats

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/khu-ai/regulation-assistant/internal/core/domain"
)

func TestClassifyNATSError(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		retryable bool
		recorded  bool
	}{
		{"no servers", nats.ErrNoServers, true, true},
		{"timeout", nats.ErrTimeout, true, true},
		{"connection closed", nats.ErrConnectionClosed, true, true},
		{"cancelled context", context.Canceled, false, false},
		{"bad subject", nats.ErrBadSubject, false, true},
	}
	for _, tc := range cases {
		class := classifyNATSError(tc.err)
		if class.Retryable != tc.retryable || class.RecordFailure != tc.recorded {
			t.Errorf("%s: got retryable=%v recorded=%v, want %v/%v",
				tc.name, class.Retryable, class.RecordFailure, tc.retryable, tc.recorded)
		}
	}
}

func TestWrapTemporaryIfNeeded(t *testing.T) {
	if err := wrapTemporaryIfNeeded(nats.ErrTimeout); !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("retryable failures must surface as temporary, got %v", err)
	}

	permanent := errors.New("malformed payload")
	if err := wrapTemporaryIfNeeded(permanent); !errors.Is(err, permanent) || domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("permanent failures must pass through, got %v", err)
	}

	if err := wrapTemporaryIfNeeded(nil); err != nil {
		t.Fatalf("nil stays nil, got %v", err)
	}
}
