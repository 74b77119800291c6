package validation

const moneyProperty = `{
	"type": ["string", "number"],
	"pattern": "^[0-9]+(\\.[0-9]{1,2})?$",
	"exclusiveMinimum": 0
}`

const loanTypeProperty = `{
	"type": "string",
	"enum": ["UNSECURED_PERSONAL", "SECURED_HOME", "SECURED_AUTO"]
}`

const panProperty = `{
	"type": "string",
	"pattern": "^[A-Z]{5}[0-9]{4}[A-Z]$"
}`

const uuidProperty = `{
	"type": "string",
	"pattern": "^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$"
}`

var SubmissionMessageSchema = MustCompile("loan_application_submitted", `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["application_id", "pan_number", "monthly_income_inr", "loan_amount_inr", "loan_type", "timestamp", "correlation_id"],
	"properties": {
		"application_id": `+uuidProperty+`,
		"pan_number": `+panProperty+`,
		"applicant_name": {"type": ["string", "null"], "maxLength": 255},
		"monthly_income_inr": `+moneyProperty+`,
		"loan_amount_inr": `+moneyProperty+`,
		"loan_type": `+loanTypeProperty+`,
		"timestamp": {"type": "string", "format": "date-time"},
		"correlation_id": {"type": "string", "minLength": 1}
	}
}`)

var ScoreReportMessageSchema = MustCompile("credit_report_generated", `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["application_id", "pan_number", "cibil_score", "monthly_income_inr", "loan_amount_inr", "loan_type", "timestamp", "correlation_id"],
	"properties": {
		"application_id": `+uuidProperty+`,
		"pan_number": `+panProperty+`,
		"cibil_score": {"type": "integer", "minimum": 300, "maximum": 900},
		"monthly_income_inr": `+moneyProperty+`,
		"loan_amount_inr": `+moneyProperty+`,
		"loan_type": `+loanTypeProperty+`,
		"timestamp": {"type": "string", "format": "date-time"},
		"correlation_id": {"type": "string", "minLength": 1}
	}
}`)

var CreateApplicationRequestSchema = MustCompile("create_application_request", `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["pan_number", "monthly_income_inr", "loan_amount_inr", "loan_type"],
	"additionalProperties": false,
	"properties": {
		"pan_number": `+panProperty+`,
		"applicant_name": {"type": ["string", "null"], "minLength": 1, "maxLength": 255},
		"monthly_income_inr": `+moneyProperty+`,
		"loan_amount_inr": `+moneyProperty+`,
		"loan_type": `+loanTypeProperty+`
	}
}`)
