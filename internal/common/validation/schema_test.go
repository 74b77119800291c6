package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSubmission = `{
	"application_id": "6f1c2a7e-3b4d-4e5f-8a9b-0c1d2e3f4a5b",
	"pan_number": "ABCDE1234F",
	"applicant_name": "Asha Rao",
	"monthly_income_inr": "80000.00",
	"loan_amount_inr": "500000.00",
	"loan_type": "SECURED_HOME",
	"timestamp": "2026-10-19T10:00:00Z",
	"correlation_id": "c0ffee00-0000-4000-8000-000000000001"
}`

func TestSubmissionMessageSchema(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		valid     bool
		errField  string
		errSubstr string
	}{
		{name: "valid", payload: validSubmission, valid: true},
		{
			name: "numeric money and null name",
			payload: `{"application_id":"6f1c2a7e-3b4d-4e5f-8a9b-0c1d2e3f4a5b","pan_number":"ABCDE1234F",
				"applicant_name":null,"monthly_income_inr":80000,"loan_amount_inr":500000.5,
				"loan_type":"SECURED_AUTO","timestamp":"2026-10-19T10:00:00Z","correlation_id":"x"}`,
			valid: true,
		},
		{
			name:     "missing pan",
			payload:  `{"application_id":"6f1c2a7e-3b4d-4e5f-8a9b-0c1d2e3f4a5b","monthly_income_inr":"1","loan_amount_inr":"1","loan_type":"SECURED_AUTO","timestamp":"2026-10-19T10:00:00Z","correlation_id":"x"}`,
			errField: "pan_number",
		},
		{
			name:     "bad loan type",
			payload:  `{"application_id":"6f1c2a7e-3b4d-4e5f-8a9b-0c1d2e3f4a5b","pan_number":"ABCDE1234F","monthly_income_inr":"1","loan_amount_inr":"1","loan_type":"PAYDAY","timestamp":"2026-10-19T10:00:00Z","correlation_id":"x"}`,
			errField: "loan_type",
		},
		{
			name:     "three decimal places",
			payload:  `{"application_id":"6f1c2a7e-3b4d-4e5f-8a9b-0c1d2e3f4a5b","pan_number":"ABCDE1234F","monthly_income_inr":"1.005","loan_amount_inr":"1","loan_type":"SECURED_AUTO","timestamp":"2026-10-19T10:00:00Z","correlation_id":"x"}`,
			errField: "monthly_income_inr",
		},
		{
			name:     "negative number",
			payload:  `{"application_id":"6f1c2a7e-3b4d-4e5f-8a9b-0c1d2e3f4a5b","pan_number":"ABCDE1234F","monthly_income_inr":-5,"loan_amount_inr":"1","loan_type":"SECURED_AUTO","timestamp":"2026-10-19T10:00:00Z","correlation_id":"x"}`,
			errField: "monthly_income_inr",
		},
		{
			name:      "not json",
			payload:   `{"application_id":`,
			errField:  "(root)",
			errSubstr: "malformed JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SubmissionMessageSchema.Validate([]byte(tt.payload))
			if tt.valid {
				assert.True(t, result.Valid, result.Summary())
				assert.Empty(t, result.Summary())
				return
			}
			require.False(t, result.Valid)
			fields := result.Fields()
			assert.Contains(t, fields, tt.errField)
			if tt.errSubstr != "" {
				assert.Contains(t, result.Summary(), tt.errSubstr)
			}
		})
	}
}

func TestScoreReportMessageSchema_ScoreRange(t *testing.T) {
	base := `{"application_id":"6f1c2a7e-3b4d-4e5f-8a9b-0c1d2e3f4a5b","pan_number":"ABCDE1234F",
		"monthly_income_inr":"80000.00","loan_amount_inr":"500000.00","loan_type":"SECURED_HOME",
		"timestamp":"2026-10-19T10:00:00Z","correlation_id":"x","cibil_score":`

	assert.True(t, ScoreReportMessageSchema.Validate([]byte(base+`712}`)).Valid)
	assert.True(t, ScoreReportMessageSchema.Validate([]byte(base+`300}`)).Valid)
	assert.True(t, ScoreReportMessageSchema.Validate([]byte(base+`900}`)).Valid)

	for _, bad := range []string{`299}`, `901}`, `"712"}`, `712.5}`} {
		result := ScoreReportMessageSchema.Validate([]byte(base + bad))
		assert.False(t, result.Valid, bad)
		assert.Contains(t, result.Fields(), "cibil_score", bad)
	}
}

func TestCreateApplicationRequestSchema_RejectsUnknownFields(t *testing.T) {
	result := CreateApplicationRequestSchema.Validate([]byte(`{
		"pan_number": "ABCDE1234F",
		"monthly_income_inr": "1000.00",
		"loan_amount_inr": "2000.00",
		"loan_type": "SECURED_AUTO",
		"status": "PRE_APPROVED"
	}`))
	assert.False(t, result.Valid)
	assert.Contains(t, result.Summary(), "status")
}

func TestCompile_InvalidSchema(t *testing.T) {
	_, err := Compile("broken", `{"type": 12}`)
	assert.Error(t, err)
	assert.Panics(t, func() { MustCompile("broken", `{`) })
	assert.Equal(t, "credit_report_generated", ScoreReportMessageSchema.Name())
}
