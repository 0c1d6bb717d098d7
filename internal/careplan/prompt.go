// Package careplan contains the pure core of the service: rendering
// clinical order data and pharmacist feedback into model prompts, and
// aggregating feedback batches into review state.
package careplan

import (
	"bytes"
	"strings"
	"text/template"

	"careplan-server/internal/models"
)

var (
	generationTmpl   = template.Must(template.New("generation").Parse(generationPromptTemplate))
	regenerationTmpl = template.Must(template.New("regeneration").Parse(regenerationPromptTemplate))
)

// generationData carries pre-joined field values so the template itself
// stays free of conditionals and the rendered prompt stays grammatical
// when the sequences are empty.
type generationData struct {
	FirstName           string
	LastName            string
	MRN                 string
	PrimaryDiagnosis    string
	AdditionalDiagnoses string
	ReferringProvider   string
	ProviderNPI         string
	MedicationName      string
	MedicationHistory   string
	PatientRecords      string
}

// GenerationPrompt renders the care plan generation prompt for an order.
// The output is deterministic: the same form always yields a byte-identical
// prompt. Empty sequences render as "None" / "None documented" markers.
func GenerationPrompt(form models.OrderForm) (string, error) {
	data := generationData{
		FirstName:           form.PatientFirstName,
		LastName:            form.PatientLastName,
		MRN:                 form.PatientMRN,
		PrimaryDiagnosis:    form.PrimaryDiagnosis,
		AdditionalDiagnoses: joinOr(form.AdditionalDiagnoses, "None"),
		ReferringProvider:   form.ReferringProvider,
		ProviderNPI:         form.ProviderNPI,
		MedicationName:      form.MedicationName,
		MedicationHistory:   joinOr(form.MedicationHistory, "None documented"),
		PatientRecords:      form.PatientRecords,
	}

	var buf bytes.Buffer
	if err := generationTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// regenerationData mirrors the aggregator output with each bucket already
// rendered to a single block of text.
type regenerationData struct {
	Corrections      string
	Suggestions      string
	ApprovedSections string
}

// RegenerationPrompt renders the revision prompt from aggregated feedback.
// The prompt demands a complete revised plan rather than a diff: the model
// has no memory of the prior plan text within this call, so a patch would
// be unusable.
func RegenerationPrompt(agg Aggregated) (string, error) {
	data := regenerationData{
		Corrections:      blockOr(agg.Corrections, "None"),
		Suggestions:      blockOr(agg.Suggestions, "None"),
		ApprovedSections: joinOr(agg.ApprovedSections, "None yet"),
	}

	var buf bytes.Buffer
	if err := regenerationTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// joinOr joins items with a comma, falling back to the marker when empty.
func joinOr(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, ", ")
}

// blockOr joins multi-line blocks with newlines, falling back to the
// marker when empty.
func blockOr(blocks []string, empty string) string {
	if len(blocks) == 0 {
		return empty
	}
	return strings.Join(blocks, "\n")
}

const generationPromptTemplate = `You are a clinical pharmacist specializing in specialty pharmacy care planning.
Based on the patient information and clinical records provided below, generate a comprehensive pharmacist care plan following the standardized format used in specialty pharmacy practice.

PATIENT INFORMATION:
- Name: {{.FirstName}} {{.LastName}}
- MRN: {{.MRN}}
- Primary Diagnosis (ICD-10): {{.PrimaryDiagnosis}}
- Additional Diagnoses: {{.AdditionalDiagnoses}}

PROVIDER INFORMATION:
- Referring Provider: {{.ReferringProvider}}
- Provider NPI: {{.ProviderNPI}}

MEDICATION INFORMATION:
- Prescribed Medication: {{.MedicationName}}
- Medication History: {{.MedicationHistory}}

PATIENT CLINICAL RECORDS:
{{.PatientRecords}}

Please generate a comprehensive pharmacist care plan using the following structure:

PROBLEM LIST / DRUG THERAPY PROBLEMS (DTPs)
List all relevant drug therapy problems including:
- Need for therapy / efficacy concerns
- Risk of adverse reactions (infusion-related, allergic, etc.)
- Risk of organ dysfunction (renal, hepatic, etc.)
- Risk of thromboembolic events or other serious complications
- Potential drug-drug interactions or dosing timing issues
- Patient education / adherence gaps

GOALS (SMART)
Define specific, measurable goals including:
- Primary therapeutic goal (efficacy)
- Safety goals (specific parameters to avoid complications)
- Process goals (completion of therapy with monitoring)

PHARMACIST INTERVENTIONS / PLAN
Provide detailed interventions for:

1. Dosing & Administration
   - Verify dose calculation and total course
   - Document lot number and expiration tracking requirements

2. Premedication
   - Recommend specific premeds with doses and timing
   - Rationale for premedication strategy

3. Infusion Rates & Titration
   - Starting rate and escalation schedule
   - How to manage infusion reactions

4. Hydration & Organ Protection (if applicable)
   - Renal protection strategies
   - Fluid management recommendations
   - Product selection considerations

5. Risk Mitigation (thrombosis, infections, etc.)
   - Risk assessment
   - Prophylactic measures if needed
   - Patient education on warning signs

6. Concomitant Medications
   - Continue/modify existing medications
   - Timing considerations
   - Drug interaction monitoring

7. Monitoring During Administration
   - Vital sign monitoring schedule
   - Lab monitoring (if applicable)
   - Documentation requirements

8. Adverse Event Management
   - Mild reaction management
   - Moderate/severe reaction protocols
   - Emergency contact information

9. Documentation & Communication
   - EMR documentation requirements
   - Communication plan with team

MONITORING PLAN & LAB SCHEDULE
Provide specific schedule:
- Before therapy: Required baseline labs and assessments
- During therapy: Monitoring frequency and parameters
- Post-therapy: Follow-up labs and timeframes
- Clinical follow-up: Schedule for efficacy and safety assessment

Please format the care plan in a clear, professional manner suitable for clinical documentation and EMR entry. Use bullet points and clear sections. Be specific with doses, frequencies, and timeframes where applicable.`

const regenerationPromptTemplate = `You are a clinical pharmacist reviewing and improving a care plan based on professional feedback.

PHARMACIST FEEDBACK RECEIVED:

CORRECTIONS NEEDED:
{{.Corrections}}

SUGGESTIONS FOR IMPROVEMENT:
{{.Suggestions}}

SECTIONS APPROVED AS-IS:
{{.ApprovedSections}}

Please revise the care plan below to:
1. Incorporate all corrections exactly as specified
2. Address all suggestions in the appropriate sections
3. Keep approved sections unchanged
4. Maintain the professional structure and all required sections
5. Ensure clinical accuracy and safety

Return the COMPLETE revised care plan with all sections, not just the changed parts.`
