package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), into))
}

func TestSuccessEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccessStatus(rec, http.StatusCreated, map[string]string{"sku": "tee-black"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var env types.SuccessEnvelope
	decodeEnvelope(t, rec, &env)
	assert.Equal(t, map[string]any{"sku": "tee-black"}, env.Data)

	rec = httptest.NewRecorder()
	WriteSuccess(rec, []int{1, 2})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	WriteNoContent(rec)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, rec.Body.Len())
}

func TestErrorEnvelopeByCode(t *testing.T) {
	cases := []struct {
		name        string
		err         error
		status      int
		code        pkgerrors.Code
		message     string
		retryable   bool
		wantDetails bool
	}{
		{
			name:        "validation keeps message and details",
			err:         pkgerrors.New(pkgerrors.CodeValidation, "bad input").WithDetails(map[string]string{"email": "required"}),
			status:      http.StatusBadRequest,
			code:        pkgerrors.CodeValidation,
			message:     "bad input",
			wantDetails: true,
		},
		{
			name:        "insufficient stock lists the product",
			err:         pkgerrors.InsufficientStock(7, 1, 3),
			status:      http.StatusConflict,
			code:        pkgerrors.CodeOutOfStock,
			wantDetails: true,
		},
		{
			name:      "payment failure is retryable",
			err:       pkgerrors.New(pkgerrors.CodePayment, "signature mismatch"),
			status:    http.StatusPaymentRequired,
			code:      pkgerrors.CodePayment,
			message:   "signature mismatch",
			retryable: true,
		},
		{
			name:      "dependency text stays server side",
			err:       pkgerrors.New(pkgerrors.CodeDependency, "dial tcp 10.0.0.5:6379: refused"),
			status:    http.StatusServiceUnavailable,
			code:      pkgerrors.CodeDependency,
			message:   "dependency unavailable",
			retryable: true,
		},
		{
			name:      "untyped error becomes internal",
			err:       errors.New("nil map write"),
			status:    http.StatusInternalServerError,
			code:      pkgerrors.CodeInternal,
			message:   "internal server error",
			retryable: true,
		},
		{
			name:    "wrapped typed error is unwrapped",
			err:     fmt.Errorf("handler: %w", pkgerrors.NotFound("order")),
			status:  http.StatusNotFound,
			code:    pkgerrors.CodeNotFound,
			message: "order not found",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(context.Background(), nil, rec, tc.err)
			require.Equal(t, tc.status, rec.Code)

			var env types.ErrorEnvelope
			decodeEnvelope(t, rec, &env)
			assert.Equal(t, string(tc.code), env.Error.Code)
			assert.Equal(t, tc.retryable, env.Error.Retryable)
			if tc.message != "" {
				assert.Equal(t, tc.message, env.Error.Message)
			}
			assert.Equal(t, tc.wantDetails, env.Error.Details != nil)
		})
	}
}

func TestWriteErrorLogsByStatus(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf})

	WriteError(context.Background(), logg, httptest.NewRecorder(), pkgerrors.NotFound("product"))
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"error_code":"NOT_FOUND"`)
	assert.Contains(t, buf.String(), `"status":404`)

	buf.Reset()
	WriteError(context.Background(), logg, httptest.NewRecorder(), errors.New("boom"))
	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), "boom")
}
