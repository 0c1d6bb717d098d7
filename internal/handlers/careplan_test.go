package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careplan-server/internal/llm"
	"careplan-server/internal/routes"
	"careplan-server/internal/utils"
)

// fakeGenerator stands in for the Anthropic client. It records the last
// prompt so tests can assert on prompt content without a network call.
type fakeGenerator struct {
	response   string
	err        error
	lastPrompt string
	calls      int
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.calls++
	f.lastPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func newTestRouter(gen llm.Generator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	routes.SetupRoutes(router, gen)
	return router
}

func performJSON(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

const validOrderBody = `{
	"formData": {
		"patientFirstName": "John",
		"patientLastName": "Doe",
		"patientMRN": "123456",
		"primaryDiagnosis": "G70.0",
		"referringProvider": "Dr. Alice Smith",
		"providerNPI": "1234567890",
		"medicationName": "Privigen",
		"additionalDiagnoses": [],
		"medicationHistory": [],
		"patientRecords": "Prior infusions tolerated well."
	}
}`

func TestGenerateCarePlan_Success(t *testing.T) {
	gen := &fakeGenerator{response: "CARE PLAN TEXT"}
	router := newTestRouter(gen)

	w := performJSON(t, router, http.MethodPost, "/api/generate-careplan", validOrderBody)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		CarePlan string `json:"carePlan"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "CARE PLAN TEXT", resp.CarePlan)

	// The prompt must carry the form values and the empty-sequence markers.
	assert.Contains(t, gen.lastPrompt, "John Doe")
	assert.Contains(t, gen.lastPrompt, "123456")
	assert.Contains(t, gen.lastPrompt, "G70.0")
	assert.Contains(t, gen.lastPrompt, "Privigen")
	assert.Contains(t, gen.lastPrompt, "Additional Diagnoses: None\n")
	assert.Contains(t, gen.lastPrompt, "Medication History: None documented\n")
}

func TestGenerateCarePlan_EmptyStringFieldAccepted(t *testing.T) {
	gen := &fakeGenerator{response: "PLAN"}
	router := newTestRouter(gen)

	body := strings.Replace(validOrderBody, `"Prior infusions tolerated well."`, `""`, 1)
	w := performJSON(t, router, http.MethodPost, "/api/generate-careplan", body)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGenerateCarePlan_MissingFieldRejectedWithFieldName(t *testing.T) {
	gen := &fakeGenerator{response: "PLAN"}
	router := newTestRouter(gen)

	body := `{
		"formData": {
			"patientFirstName": "John",
			"patientLastName": "Doe",
			"primaryDiagnosis": "G70.0",
			"referringProvider": "Dr. Alice Smith",
			"providerNPI": "1234567890",
			"medicationName": "Privigen",
			"patientRecords": "records"
		}
	}`
	w := performJSON(t, router, http.MethodPost, "/api/generate-careplan", body)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var resp utils.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Fields, "patientMRN")
	assert.Zero(t, gen.calls, "validation failure must short-circuit before the gateway")
}

func TestGenerateCarePlan_AllMissingFieldsEnumerated(t *testing.T) {
	router := newTestRouter(&fakeGenerator{})

	w := performJSON(t, router, http.MethodPost, "/api/generate-careplan", `{"formData": {}}`)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var resp utils.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	for _, field := range []string{
		"patientFirstName", "patientLastName", "patientMRN", "primaryDiagnosis",
		"referringProvider", "providerNPI", "medicationName", "patientRecords",
	} {
		assert.Contains(t, resp.Fields, field)
	}
}

func TestGenerateCarePlan_MissingFormDataRejected(t *testing.T) {
	router := newTestRouter(&fakeGenerator{})

	w := performJSON(t, router, http.MethodPost, "/api/generate-careplan", `{}`)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var resp utils.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Fields, "formData")
}

func TestGenerateCarePlan_AuthFailureDoesNotLeakKey(t *testing.T) {
	gen := &fakeGenerator{err: llm.ErrAuthentication}
	router := newTestRouter(gen)

	w := performJSON(t, router, http.MethodPost, "/api/generate-careplan", validOrderBody)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Authentication error. Please check the API key configuration.")
	assert.NotContains(t, w.Body.String(), "sk-ant-test-secret")
}

func TestGenerateCarePlan_UpstreamFailure(t *testing.T) {
	gen := &fakeGenerator{err: &llm.GenerationError{Err: errors.New("overloaded_error: try again")}}
	router := newTestRouter(gen)

	w := performJSON(t, router, http.MethodPost, "/api/generate-careplan", validOrderBody)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Claude API error: overloaded_error: try again")
}

func TestGenerateCarePlan_UnexpectedFailure(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("unexpected response format: no content blocks")}
	router := newTestRouter(gen)

	w := performJSON(t, router, http.MethodPost, "/api/generate-careplan", validOrderBody)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Error generating care plan: unexpected response format")
}

func feedbackBody(items string, finalCarePlan string) string {
	body := `{"orderId": "ORD-001", "feedback": [` + items + `]`
	if finalCarePlan != "" {
		body += `, "finalCarePlan": ` + finalCarePlan
	}
	return body + `}`
}

func TestSubmitFeedback_FinalCarePlanRoundTrip(t *testing.T) {
	gen := &fakeGenerator{}
	router := newTestRouter(gen)

	item := `{"pharmacistName": "Jane Rx", "feedbackType": "correction", "sectionName": "DOSING", "originalText": "a", "correctedText": "b", "approved": false}`
	w := performJSON(t, router, http.MethodPost, "/api/submit-pharmacist-feedback", feedbackBody(item, `"FINAL PLAN AS EDITED"`))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success         bool   `json:"success"`
		Message         string `json:"message"`
		UpdatedCarePlan string `json:"updatedCarePlan"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "FINAL PLAN AS EDITED", resp.UpdatedCarePlan)
	assert.Contains(t, resp.Message, "corrections_pending")
	assert.Zero(t, gen.calls, "submit-feedback must never call the model")
}

func TestSubmitFeedback_EmptyBatchSucceeds(t *testing.T) {
	router := newTestRouter(&fakeGenerator{})

	w := performJSON(t, router, http.MethodPost, "/api/submit-pharmacist-feedback", `{"orderId": "ORD-002", "feedback": []}`)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success         bool   `json:"success"`
		Message         string `json:"message"`
		UpdatedCarePlan string `json:"updatedCarePlan"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	// Zero items: vacuously approved, placeholder names the count.
	assert.Contains(t, resp.Message, "approved")
	assert.Equal(t, "Care Plan with Pharmacist Review - 0 feedback items processed", resp.UpdatedCarePlan)
}

func TestSubmitFeedback_SingleApprovalReportsApproved(t *testing.T) {
	router := newTestRouter(&fakeGenerator{})

	item := `{"pharmacistName": "Jane Rx", "feedbackType": "approval", "sectionName": "GOALS (SMART)", "approved": true}`
	w := performJSON(t, router, http.MethodPost, "/api/submit-pharmacist-feedback", feedbackBody(item, ""))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Message, "approved")
}

func TestSubmitFeedback_MissingOrderIDRejected(t *testing.T) {
	router := newTestRouter(&fakeGenerator{})

	w := performJSON(t, router, http.MethodPost, "/api/submit-pharmacist-feedback", `{"feedback": []}`)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var resp utils.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Fields, "orderId")
}

func TestSubmitFeedback_MissingFeedbackSequenceRejected(t *testing.T) {
	router := newTestRouter(&fakeGenerator{})

	w := performJSON(t, router, http.MethodPost, "/api/submit-pharmacist-feedback", `{"orderId": "ORD-003"}`)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var resp utils.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Fields, "feedback")
}

func TestSubmitFeedback_ItemMissingRequiredFieldRejected(t *testing.T) {
	router := newTestRouter(&fakeGenerator{})

	item := `{"pharmacistName": "Jane Rx", "feedbackType": "approval"}`
	w := performJSON(t, router, http.MethodPost, "/api/submit-pharmacist-feedback", feedbackBody(item, ""))

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var resp utils.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Fields, "sectionName")
}

func TestRegenerateCarePlan_CorrectionInPrompt(t *testing.T) {
	gen := &fakeGenerator{response: "REVISED PLAN"}
	router := newTestRouter(gen)

	item := `{"pharmacistName": "Jane Rx", "feedbackType": "correction", "sectionName": "PREMEDICATION", "originalText": "325 mg", "correctedText": "650 mg", "comment": "Standard dose"}`
	w := performJSON(t, router, http.MethodPost, "/api/regenerate-careplan-with-feedback", feedbackBody(item, ""))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		CarePlan string `json:"carePlan"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "REVISED PLAN", resp.CarePlan)

	assert.Contains(t, gen.lastPrompt, "SECTION: PREMEDICATION")
	assert.Contains(t, gen.lastPrompt, "Original: 325 mg")
	assert.Contains(t, gen.lastPrompt, "Corrected: 650 mg")
	assert.Contains(t, gen.lastPrompt, "Rationale: Standard dose")
}

func TestRegenerateCarePlan_IncompleteCorrectionOmittedFromPrompt(t *testing.T) {
	gen := &fakeGenerator{response: "REVISED PLAN"}
	router := newTestRouter(gen)

	item := `{"pharmacistName": "Jane Rx", "feedbackType": "correction", "sectionName": "DOSING", "comment": "needs another look"}`
	w := performJSON(t, router, http.MethodPost, "/api/regenerate-careplan-with-feedback", feedbackBody(item, ""))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, gen.lastPrompt, "CORRECTIONS NEEDED:\nNone\n")
}

func TestRegenerateCarePlan_AuthFailure(t *testing.T) {
	gen := &fakeGenerator{err: llm.ErrAuthentication}
	router := newTestRouter(gen)

	w := performJSON(t, router, http.MethodPost, "/api/regenerate-careplan-with-feedback", `{"orderId": "ORD-004", "feedback": []}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegenerateCarePlan_UpstreamFailure(t *testing.T) {
	gen := &fakeGenerator{err: &llm.GenerationError{Err: errors.New("rate_limit_error")}}
	router := newTestRouter(gen)

	w := performJSON(t, router, http.MethodPost, "/api/regenerate-careplan-with-feedback", `{"orderId": "ORD-005", "feedback": []}`)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Claude API error: rate_limit_error")
}

func TestLivenessEndpoints(t *testing.T) {
	router := newTestRouter(&fakeGenerator{})

	w := performJSON(t, router, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Health Planner API is running")
	assert.Contains(t, w.Body.String(), "1.0.0")

	w = performJSON(t, router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "healthy"}`, w.Body.String())
}
