package answer

import "strings"

// Intent labels what kind of message the agent typed.
type Intent string

const (
	// IntentSmalltalk is a greeting, thanks, or meta message with no case.
	IntentSmalltalk Intent = "smalltalk"
	// IntentCase is a real customer case that needs retrieval.
	IntentCase Intent = "case"
)

// Product, channel and security terms that strongly indicate a real case.
var caseKeywords = []string{
	"account", "savings", "current", "checking",
	"fixed deposit", "time deposit", "term deposit",
	"deposit", "withdrawal", "withdraw", "transfer",
	"remittance", "loan", "credit", "card", "debit",
	"atm", "cif", "kyc",
	"mobile app", "mobile banking", "internet banking",
	"online banking", "ibanking", "i-banking", "app login",
	"otp", "one time password", "one-time password",
	"password", "pin", "passcode", "login", "log in",
	"locked", "block", "blocked", "lock", "unlock",
	"statement", "passbook", "slip",
	"fees", "charges", "interest", "rate", "limit",
	"transaction", "failed transaction",
	"refund", "refunds",
	"verification", "auth", "authentication",
}

// Generic trouble tokens; combined with the terms above they rule out
// smalltalk.
var problemKeywords = []string{
	"cannot", "can't", "cant",
	"error", "issue", "problem", "failed", "not working",
	"still cannot", "still can't", "doesn't work", "does not work",
}

var smalltalkKeywords = []string{
	"hi", "hello", "hey",
	"good morning", "good afternoon", "good evening",
	"thanks", "thank you", "thank", "ok", "okay",
	"cool", "great", "nice",
	"bye", "goodbye", "see you",
	"got it", "understood",
}

var whWords = []string{"what", "how", "when", "where", "why", "which"}

func keywordScore(text string, keywords []string) int {
	score := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			score++
		}
	}
	return score
}

// ClassifyIntent decides, with rules only, whether a message is smalltalk or
// a real case. It errs toward case so genuine problems are never ignored.
func ClassifyIntent(text string) Intent {
	stripped := strings.TrimRight(strings.ToLower(strings.TrimSpace(text)), ".!?")
	if stripped == "" {
		return IntentSmalltalk
	}
	wordCount := len(strings.Fields(stripped))
	hasQuestionMark := strings.Contains(text, "?")
	hasWh := false
	for _, w := range whWords {
		if strings.Contains(stripped, w) {
			hasWh = true
			break
		}
	}

	if keywordScore(stripped, caseKeywords) > 0 || keywordScore(stripped, problemKeywords) > 0 {
		return IntentCase
	}

	if hasQuestionMark || hasWh {
		if strings.Contains(stripped, "how are you") || strings.Contains(stripped, "how's it going") {
			return IntentSmalltalk
		}
		return IntentCase
	}

	if keywordScore(stripped, smalltalkKeywords) > 0 && wordCount <= 12 {
		if strings.Contains(stripped, "question") && strings.Contains(stripped, "have") {
			return IntentSmalltalk
		}
		if strings.Contains(stripped, "want to ask") || strings.Contains(stripped, "can i ask") ||
			strings.Contains(stripped, "can you answer") || strings.Contains(stripped, "you can answer") {
			return IntentSmalltalk
		}
		if wordCount <= 6 {
			return IntentSmalltalk
		}
	}

	if wordCount <= 4 {
		return IntentSmalltalk
	}
	return IntentCase
}

// ContainsKhmer reports whether the text holds any Khmer script characters.
func ContainsKhmer(text string) bool {
	for _, r := range text {
		if r >= 0x1780 && r <= 0x17FF {
			return true
		}
	}
	return false
}
