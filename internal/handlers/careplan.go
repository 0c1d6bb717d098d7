package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"careplan-server/internal/careplan"
	"careplan-server/internal/llm"
	"careplan-server/internal/middleware"
	"careplan-server/internal/models"
	"careplan-server/internal/utils"
)

// CarePlanHandler handles care plan generation and pharmacist feedback
// requests. It holds no per-request state; the generator is shared across
// all requests.
type CarePlanHandler struct {
	Generator llm.Generator
}

// NewCarePlanHandler creates a new CarePlanHandler.
func NewCarePlanHandler(generator llm.Generator) *CarePlanHandler {
	return &CarePlanHandler{Generator: generator}
}

// OrderFormRequest represents one clinical-order submission. Required
// scalars are pointer-typed: absence or JSON null fails validation while
// an explicit empty string is accepted.
type OrderFormRequest struct {
	PatientFirstName    *string  `json:"patientFirstName" binding:"required"`
	PatientLastName     *string  `json:"patientLastName" binding:"required"`
	PatientMRN          *string  `json:"patientMRN" binding:"required"`
	PrimaryDiagnosis    *string  `json:"primaryDiagnosis" binding:"required"`
	ReferringProvider   *string  `json:"referringProvider" binding:"required"`
	ProviderNPI         *string  `json:"providerNPI" binding:"required"`
	MedicationName      *string  `json:"medicationName" binding:"required"`
	AdditionalDiagnoses []string `json:"additionalDiagnoses"`
	MedicationHistory   []string `json:"medicationHistory"`
	PatientRecords      *string  `json:"patientRecords" binding:"required"`
}

func (r *OrderFormRequest) toModel() models.OrderForm {
	return models.OrderForm{
		PatientFirstName:    *r.PatientFirstName,
		PatientLastName:     *r.PatientLastName,
		PatientMRN:          *r.PatientMRN,
		PrimaryDiagnosis:    *r.PrimaryDiagnosis,
		ReferringProvider:   *r.ReferringProvider,
		ProviderNPI:         *r.ProviderNPI,
		MedicationName:      *r.MedicationName,
		AdditionalDiagnoses: r.AdditionalDiagnoses,
		MedicationHistory:   r.MedicationHistory,
		PatientRecords:      *r.PatientRecords,
	}
}

// GenerateCarePlanRequest represents the request body for generating a
// care plan.
type GenerateCarePlanRequest struct {
	FormData *OrderFormRequest `json:"formData" binding:"required"`
}

// CarePlanResponse carries the generated care plan text.
type CarePlanResponse struct {
	CarePlan string `json:"carePlan"`
}

// FeedbackItemRequest represents one pharmacist annotation against a
// previously generated plan.
type FeedbackItemRequest struct {
	PharmacistName *string `json:"pharmacistName" binding:"required"`
	FeedbackType   *string `json:"feedbackType" binding:"required"`
	SectionName    *string `json:"sectionName" binding:"required"`
	OriginalText   *string `json:"originalText"`
	CorrectedText  *string `json:"correctedText"`
	Comment        *string `json:"comment"`
	Approved       bool    `json:"approved"`
}

// FeedbackRequest represents the request body for the feedback endpoints.
// The feedback sequence must be present but may be empty.
type FeedbackRequest struct {
	OrderID       *string               `json:"orderId" binding:"required"`
	Feedback      []FeedbackItemRequest `json:"feedback" binding:"required,dive"`
	FinalCarePlan *string               `json:"finalCarePlan"`
}

func (r *FeedbackRequest) toModelItems() []models.FeedbackItem {
	items := make([]models.FeedbackItem, 0, len(r.Feedback))
	for _, f := range r.Feedback {
		items = append(items, models.FeedbackItem{
			PharmacistName: *f.PharmacistName,
			FeedbackType:   *f.FeedbackType,
			SectionName:    *f.SectionName,
			OriginalText:   deref(f.OriginalText),
			CorrectedText:  deref(f.CorrectedText),
			Comment:        deref(f.Comment),
			Approved:       f.Approved,
		})
	}
	return items
}

// FeedbackResponse is returned by the submit-feedback endpoint.
type FeedbackResponse struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	UpdatedCarePlan string `json:"updatedCarePlan"`
}

// GenerateCarePlan handles POST /api/generate-careplan: validate the order
// form, render the generation prompt, and return the model's care plan.
func (h *CarePlanHandler) GenerateCarePlan(c *gin.Context) {
	var req GenerateCarePlanRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	prompt, err := careplan.GenerationPrompt(req.FormData.toModel())
	if err != nil {
		log.Printf("[%s] prompt rendering failed: %v", middleware.GetRequestID(c), err)
		utils.InternalServerError(c, "Error generating care plan: "+err.Error())
		return
	}

	plan, err := h.Generator.Generate(c.Request.Context(), prompt)
	if err != nil {
		h.respondGenerationError(c, err, "Error generating care plan: ")
		return
	}

	c.JSON(http.StatusOK, CarePlanResponse{CarePlan: plan})
}

// SubmitPharmacistFeedback handles POST /api/submit-pharmacist-feedback.
// It records the change log and approval status for the batch and echoes
// back either the pharmacist's manually edited plan or a placeholder.
// This endpoint never calls the model.
func (h *CarePlanHandler) SubmitPharmacistFeedback(c *gin.Context) {
	var req FeedbackRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	items := req.toModelItems()
	entries, status := careplan.ChangeLog(items)

	// No persistence layer: the change log is recorded in the server log.
	for _, entry := range entries {
		log.Printf("[%s] feedback for order %s by %s: %s",
			middleware.GetRequestID(c), *req.OrderID, entry.PharmacistName, entry.Change)
	}

	updatedPlan := deref(req.FinalCarePlan)
	if updatedPlan == "" {
		updatedPlan = fmt.Sprintf("Care Plan with Pharmacist Review - %d feedback items processed", len(items))
	}

	c.JSON(http.StatusOK, FeedbackResponse{
		Success:         true,
		Message:         fmt.Sprintf("Pharmacist feedback submitted successfully. Status: %s", status),
		UpdatedCarePlan: updatedPlan,
	})
}

// RegenerateCarePlan handles POST /api/regenerate-careplan-with-feedback:
// aggregate the batch, render the revision prompt, and return the model's
// complete revised plan.
func (h *CarePlanHandler) RegenerateCarePlan(c *gin.Context) {
	var req FeedbackRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	agg := careplan.Aggregate(req.toModelItems())
	if agg.Dropped > 0 {
		log.Printf("[%s] order %s: %d correction item(s) missing original or corrected text, excluded from regeneration prompt",
			middleware.GetRequestID(c), *req.OrderID, agg.Dropped)
	}

	prompt, err := careplan.RegenerationPrompt(agg)
	if err != nil {
		log.Printf("[%s] prompt rendering failed: %v", middleware.GetRequestID(c), err)
		utils.InternalServerError(c, "Error regenerating care plan: "+err.Error())
		return
	}

	plan, err := h.Generator.Generate(c.Request.Context(), prompt)
	if err != nil {
		h.respondGenerationError(c, err, "Error regenerating care plan: ")
		return
	}

	c.JSON(http.StatusOK, CarePlanResponse{CarePlan: plan})
}

// respondGenerationError maps a gateway failure to the response contract:
// credential rejection becomes a 401 with a fixed message that never
// echoes the key, classified upstream failures become a 500 carrying the
// upstream description, and anything else a 500 with the given prefix.
func (h *CarePlanHandler) respondGenerationError(c *gin.Context, err error, unexpectedPrefix string) {
	requestID := middleware.GetRequestID(c)
	var genErr *llm.GenerationError
	switch {
	case errors.Is(err, llm.ErrAuthentication):
		log.Printf("[%s] authentication error from model provider", requestID)
		utils.Unauthorized(c, "Authentication error. Please check the API key configuration.")
	case errors.As(err, &genErr):
		log.Printf("[%s] Claude API error: %v", requestID, genErr)
		utils.InternalServerError(c, "Claude API error: "+genErr.Error())
	default:
		log.Printf("[%s] unexpected error: %v", requestID, err)
		utils.InternalServerError(c, unexpectedPrefix+err.Error())
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
