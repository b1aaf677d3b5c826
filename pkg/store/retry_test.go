package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetry(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name      string
		failures  int
		transient bool
		attempts  int
		wantCalls int
		wantErr   error
	}{
		{"success first try", 0, true, 3, 1, nil},
		{"recovers", 2, true, 3, 3, nil},
		{"exhausted", 5, true, 3, 3, boom},
		{"permanent", 5, false, 3, 1, boom},
		{"zero attempts runs once", 5, true, 0, 1, boom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(context.Background(), tt.attempts, time.Millisecond, func() error {
				calls++
				if calls <= tt.failures {
					if tt.transient {
						return &Transient{Err: boom}
					}
					return boom
				}
				return nil
			})
			if !errors.Is(err, tt.wantErr) || (tt.wantErr == nil && err != nil) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestRetryCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, 3, time.Hour, func() error { return &Transient{Err: errors.New("down")} })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestConnect(t *testing.T) {
	calls := 0
	err := Connect(context.Background(), func(context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("connection refused")
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Errorf("Connect() = %v after %d calls, want nil after 2", err, calls)
	}
}
