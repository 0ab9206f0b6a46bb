package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerniceZTT/pmis_end/progress"
	"github.com/BerniceZTT/pmis_end/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRejectionStatus(t *testing.T) {
	tests := map[progress.Reason]int{
		progress.ReasonUpdatesDisabled:                      http.StatusForbidden,
		progress.ReasonAggregateNotFound:                    http.StatusNotFound,
		progress.ReasonConcurrentUpdate:                     http.StatusConflict,
		progress.ReasonInternalFailure:                      http.StatusInternalServerError,
		progress.ReasonInvalidValue:                         http.StatusBadRequest,
		progress.ReasonBackwardProgressNotAllowed:           http.StatusBadRequest,
		progress.ReasonUnrealisticFinancialJump:             http.StatusBadRequest,
		progress.ReasonFinancialCompletionRequiresDocuments: http.StatusBadRequest,
		progress.ReasonFinalBillDetailsRequired:             http.StatusBadRequest,
	}
	for reason, status := range tests {
		assert.Equal(t, status, rejectionStatus(reason), reason)
	}
}

func respond(err error) (int, map[string]interface{}) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/projects/P-1/progress", nil)
	respondError(c, err)

	var out map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w.Code, out
}

func TestRespondError(t *testing.T) {
	status, out := respond(progress.NewRejection(progress.ReasonBackwardProgressNotAllowed, "不能回退"))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "BACKWARD_PROGRESS_NOT_ALLOWED", out["code"])
	assert.Equal(t, "不能回退", out["error"])
	assert.Equal(t, false, out["success"])

	status, out = respond(utils.CreateConflictError("重复"))
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", out["code"])

	// 未知错误不暴露细节
	status, out = respond(errors.New("connection reset by peer"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "INTERNAL_FAILURE", out["code"])
	assert.NotContains(t, out["error"], "connection reset")
}

func TestParseNumber(t *testing.T) {
	v, err := parseNumber("progress", " 42.5 ")
	require.NoError(t, err)
	assert.Equal(t, 42.5, *v)

	v, err = parseNumber("progress", "")
	require.NoError(t, err)
	assert.Nil(t, v)

	for _, raw := range []string{"abc", "NaN", "Inf", "1e400"} {
		_, err := parseNumber("progress", raw)
		assert.Equal(t, progress.ReasonInvalidValue, progress.ReasonOf(err), raw)
	}
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("billDate", "2024-03-01")
	require.NoError(t, err)
	assert.True(t, d.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))

	d, err = parseDate("billDate", "2024-03-01T08:30:00+05:30")
	require.NoError(t, err)
	assert.Equal(t, 3, d.UTC().Hour())

	d, err = parseDate("billDate", "")
	require.NoError(t, err)
	assert.Nil(t, d)

	_, err = parseDate("billDate", "01/03/2024")
	var apiErr *utils.ApiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestFormValidation(t *testing.T) {
	long := make([]byte, 201)
	for i := range long {
		long[i] = 'a'
	}
	err := validate.Struct(financialForm{BillDescription: string(long)})
	require.Error(t, err)

	var apiErr *utils.ApiError
	require.ErrorAs(t, validationError(err), &apiErr)
	assert.Contains(t, apiErr.Message, "BillDescription")

	assert.NoError(t, validate.Struct(progressForm{Progress: "10", Remarks: "ok"}))
}
