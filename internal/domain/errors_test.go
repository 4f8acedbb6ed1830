package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestRetryable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{fmt.Errorf("fit: %w", ErrPredictorFailure), false},
		{&SymbolError{Symbol: "AAPL", Backend: "lagreg", Err: ErrInsufficientHistory}, false},
		{ErrInvalidRequest, false},
		{ErrRunInProgress, true},
		{context.DeadlineExceeded, true},
		{errors.New("connection refused"), true},
	}
	for _, tc := range cases {
		if got := Retryable(tc.err); got != tc.want {
			t.Fatalf("Retryable(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestSymbolErrorUnwraps(t *testing.T) {
	err := error(&SymbolError{Symbol: "AAPL", Backend: "lagreg", Err: fmt.Errorf("step 3: %w", ErrPredictorFailure)})
	if !errors.Is(err, ErrPredictorFailure) {
		t.Fatalf("expected ErrPredictorFailure in chain: %v", err)
	}
	if got := err.Error(); got != "AAPL/lagreg: step 3: predictor failure" {
		t.Fatalf("unexpected message %q", got)
	}
}
