package apperrors_test

import (
	"fmt"
	"net/http"
	"testing"

	"foodhub-gateway/pkg/apperrors"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apperrors.NewNotFoundError("review not found"), http.StatusNotFound},
		{apperrors.NewValidationError("title is required"), http.StatusBadRequest},
		{apperrors.NewInsufficientFundsError("no coins"), http.StatusPaymentRequired},
		{apperrors.NewTooLargeError("image too large"), http.StatusRequestEntityTooLarge},
		{apperrors.NewExternalError("user service", fmt.Errorf("boom")), http.StatusBadGateway},
		{fmt.Errorf("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, apperrors.HTTPStatus(tc.err), tc.err.Error())
	}
}

func TestWrappedAppErrorKeepsType(t *testing.T) {
	err := fmt.Errorf("reserve: %w", apperrors.NewInsufficientFundsError("balance too low"))

	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeInsufficientFunds))
	assert.Equal(t, "balance too low", apperrors.Message(err))
	assert.Equal(t, "internal error", apperrors.Message(fmt.Errorf("x")))
}
