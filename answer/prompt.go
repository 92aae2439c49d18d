package answer

import (
	"fmt"
	"strings"

	"github.com/viant/agentkb/schema"
)

// Section markers the generated reply must contain, in order.
const (
	markerCustomer = "Customer answer:"
	markerInternal = "Internal notes:"
	markerSteps    = "Agent steps:"
)

const systemInstruction = `You are an internal assistant helping call-center agents at a financial institution.
You must follow these rules:
1) Use ONLY the provided evidence documents. Do not invent policies.
2) If the evidence does not contain enough information, say you are not sure and suggest escalating or checking the official system.
3) Always respond in exactly this structure:
   Customer answer: <short, simple explanation the agent will say to the customer>.
   Internal notes: <detailed internal explanation referring to the evidence, numbers, and conditions>.
   Agent steps: <1-3 bullet points on what the agent should do>.
4) Keep tone polite, clear, and professional. Do not mention embeddings, vectors, or retrieval.`

const khmerInstruction = `
5) The agent's question is in Khmer. Write the content of every section in Khmer, but keep the three English section markers exactly as given.`

const reinforcedInstruction = `
IMPORTANT: your previous reply did not follow the required structure. Respond again and include all three markers verbatim, each starting its own line: "Customer answer:", "Internal notes:", "Agent steps:".`

// promptSettings selects instruction variants.
type promptSettings struct {
	language   string
	reinforced bool
}

// BuildPrompt assembles the system instruction and user prompt for one
// question and its ranked evidence.
func BuildPrompt(question string, evidence schema.RetrievalResult, settings promptSettings) (string, string) {
	instruction := systemInstruction
	if settings.language == schema.LanguageKhmer {
		instruction += khmerInstruction
	}
	if settings.reinforced {
		instruction += reinforcedInstruction
	}

	var blocks []string
	for i, hit := range evidence {
		source := "unknown source"
		if hit.Meta != nil {
			source = hit.Meta.Source()
			if narrative, ok := hit.Meta.(*schema.NarrativeMeta); ok && narrative.PageStart > 0 {
				source = fmt.Sprintf("%s (page %d)", source, narrative.PageStart)
			}
		}
		blocks = append(blocks, fmt.Sprintf("[Doc %d | %s | score=%.2f]\n%s", i+1, source, hit.Score, hit.Text))
	}
	evidenceBlock := "No evidence found."
	if len(blocks) > 0 {
		evidenceBlock = strings.Join(blocks, "\n\n---\n\n")
	}

	prompt := fmt.Sprintf("Knowledge base evidence:\n%s\n\nAgent's question: %s\n\nNow produce the structured answer.", evidenceBlock, question)
	return instruction, prompt
}
