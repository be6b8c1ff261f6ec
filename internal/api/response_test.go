package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BTreeMap/DailyBoost/internal/models"
	"github.com/BTreeMap/DailyBoost/internal/testutil"
)

func TestWriteResultAndError(t *testing.T) {
	rr := httptest.NewRecorder()
	writeResult(rr, http.StatusOK, map[string]int{"sent": 2})
	body := testutil.AssertJSONResponse(t, rr, string(models.APIStatusOK))
	assert.Equal(t, map[string]interface{}{"sent": float64(2)}, body["result"])

	rr = httptest.NewRecorder()
	writeError(rr, http.StatusNotFound, "user not found")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	body = testutil.AssertJSONResponse(t, rr, string(models.APIStatusError))
	assert.Equal(t, "user not found", body["message"])
}

func TestWriteJSON_EncodingFailure(t *testing.T) {
	rr := httptest.NewRecorder()
	writeJSON(rr, http.StatusOK, map[string]interface{}{"bad": make(chan int)})
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, encodeFailureBody, rr.Body.String())
}
