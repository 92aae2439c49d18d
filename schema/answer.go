package schema

// Language flags detected on a query.
const (
	LanguageEnglish = "en"
	LanguageKhmer   = "km"
)

// StructuredAnswer is the three-section response contract enforced on every
// generation. It is created per query and never persisted.
type StructuredAnswer struct {
	CustomerAnswer string `json:"customer_answer"`
	InternalNotes  string `json:"internal_notes"`
	AgentSteps     string `json:"agent_steps"`
	Smalltalk      bool   `json:"smalltalk,omitempty"`
	Language       string `json:"language"`
}
