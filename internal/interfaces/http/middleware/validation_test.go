package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/transportops/backoffice/internal/interfaces/http/dto"
)

type paymentInput struct {
	PaymentMode string `json:"payment_mode" binding:"required,payment_mode"`
	Remarks     string `json:"remarks" binding:"max=10"`
}

type statusInput struct {
	Status string `form:"status" binding:"omitempty,trip_status"`
}

func newValidationRouter(t *testing.T) *gin.Engine {
	t.Helper()
	require.NoError(t, SetupValidator())

	router := gin.New()
	router.Use(RequestID())
	router.POST("/payments", func(c *gin.Context) {
		var in paymentInput
		if err := c.ShouldBindJSON(&in); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(in))
	})
	router.GET("/trips", func(c *gin.Context) {
		var in statusInput
		if err := c.ShouldBindQuery(&in); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(in))
	})
	return router
}

func decode(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestPaymentModeBinding(t *testing.T) {
	router := newValidationRouter(t)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
		field  string
	}{
		{"known mode", `{"payment_mode":"Bank Transfer"}`, http.StatusOK, "", ""},
		{"case insensitive mode", `{"payment_mode":"upi"}`, http.StatusOK, "", ""},
		{"unknown mode", `{"payment_mode":"Barter"}`, http.StatusBadRequest, dto.ErrCodeValidation, "payment_mode"},
		{"missing mode", `{}`, http.StatusBadRequest, dto.ErrCodeValidation, "payment_mode"},
		{"remarks too long", `{"payment_mode":"Cash","remarks":"01234567890"}`, http.StatusBadRequest, dto.ErrCodeValidation, "remarks"},
		{"broken json", `{"payment_mode":`, http.StatusBadRequest, dto.ErrCodeInvalidJSON, ""},
		{"empty body", ``, http.StatusBadRequest, dto.ErrCodeBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.code == "" {
				return
			}
			resp := decode(t, w)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, w.Header().Get(RequestIDHeader), resp.Error.RequestID)
			if tt.field != "" {
				require.Len(t, resp.Error.Details, 1)
				assert.Equal(t, tt.field, resp.Error.Details[0].Field)
			}
		})
	}
}

func TestTripStatusBinding(t *testing.T) {
	router := newValidationRouter(t)

	for path, status := range map[string]int{
		"/trips":                  http.StatusOK,
		"/trips?status=Running":   http.StatusOK,
		"/trips?status=running":   http.StatusBadRequest,
		"/trips?status=Delivered": http.StatusBadRequest,
	} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, status, w.Code, path)
	}
}

func TestPaymentModeMessageListsModes(t *testing.T) {
	router := newValidationRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader(`{"payment_mode":"Barter"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := decode(t, w)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "Must be one of: Cash, Bank Transfer, Cheque, UPI, Card, Other", resp.Error.Details[0].Message)
}
