package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/victornm/satsquest/internal/errors"
)

func TestError_HTTPStatusCode(t *testing.T) {
	tests := map[string]struct {
		err  *errors.Error
		want int
	}{
		"invalid argument maps to 400": {
			err:  errors.InvalidArgument("bad count %d", 15),
			want: http.StatusBadRequest,
		},
		"resource exhausted maps to 402": {
			err:  errors.New(errors.CodeResourceExhausted),
			want: http.StatusPaymentRequired,
		},
		"unavailable maps to 503": {
			err:  errors.Unavailable(stderrors.New("dial"), "oracle down"),
			want: http.StatusServiceUnavailable,
		},
		"unknown code falls back to 500": {
			err:  errors.New(errors.Code(codes.DataLoss)),
			want: http.StatusInternalServerError,
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.err.HTTPStatusCode())
		})
	}
}

func TestConvert(t *testing.T) {
	cause := stderrors.New("boom")

	e := errors.Convert(cause)
	require.Equal(t, errors.CodeInternal, e.Code)
	require.ErrorIs(t, e, cause)

	wrapped := fmt.Errorf("quiz: %w", errors.InvalidArgument("missing topic"))
	e = errors.Convert(wrapped)
	require.Equal(t, errors.CodeInvalidArgument, e.Code)
	require.Equal(t, "missing topic", e.Message)
	require.True(t, errors.Is(wrapped, errors.New(errors.CodeInvalidArgument)))
	require.False(t, errors.Is(wrapped, errors.New(errors.CodeUnavailable)))

	st, ok := status.FromError(e)
	require.True(t, ok)
	require.Equal(t, codes.InvalidArgument, st.Code())
}

func TestWithDetail(t *testing.T) {
	e := errors.New(errors.CodeResourceExhausted,
		errors.WithMessagef("insufficient balance"),
		errors.WithDetail("currentBalance", int64(0)),
	)

	assert.Equal(t, map[string]any{"currentBalance": int64(0)}, e.Details)
	assert.Equal(t, "insufficient balance", e.Message)
}
