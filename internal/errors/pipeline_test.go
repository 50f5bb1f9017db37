package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromPipeline(t *testing.T) {
	cases := map[string]struct {
		err  error
		want int
	}{
		"validation":       {err: Validation("Viewer with ID %s not found.", "v1"), want: http.StatusNotFound},
		"wrapped config":   {err: fmt.Errorf("opening: %w", Configuration("no drop rates")), want: http.StatusBadRequest},
		"already response": {err: Unauthorized(""), want: http.StatusUnauthorized},
		"unknown":          {err: fmt.Errorf("boom"), want: http.StatusInternalServerError},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, FromPipeline(tc.err).StatusCode())
		})
	}
}

func TestCredentialErrorUnwraps(t *testing.T) {
	inner := fmt.Errorf("401 from token endpoint")
	err := fmt.Errorf("start: %w", &CredentialError{Err: inner})

	var credErr *CredentialError
	assert.True(t, As(err, &credErr))
	assert.True(t, Is(err, inner))
}

func TestGenerateValidationErrorResponse(t *testing.T) {
	resp := GenerateValidationErrorResponse([]error{
		fmt.Errorf("rate: must be between 0 and 1"),
		fmt.Errorf("no param here"),
	})
	details := resp.Details.(ValidationErrorResponse)
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, "rate", details.Response[0].Param)
	assert.Equal(t, "must be between 0 and 1", details.Response[0].Message)
	assert.Equal(t, "no param here", details.Response[1].Message)
}
