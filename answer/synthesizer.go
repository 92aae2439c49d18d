// Package answer turns a question and ranked evidence into a structured
// three-section reply for the agent, guarding against ungrounded generation.
package answer

import (
	"context"
	"errors"
	"hash/fnv"
	"time"

	"github.com/viant/agentkb/schema"
	"go.uber.org/zap"
)

var smalltalkReplies = []string{
	"Sure. What case are you working on?",
	"No problem. Tell me the customer's question when you're ready.",
	"Happy to help. What does the customer need?",
	"Got it. Please type the customer's question.",
}

const (
	noEvidenceAnswer = "I could not find grounded information for this question in the knowledge base. " +
		"Please inform the customer that you will double-check and get back to them."
	noEvidenceAnswerKhmer = "ខ្ញុំមិនអាចរកឃើញព័ត៌មានដែលមានមូលដ្ឋានសម្រាប់សំណួរនេះនៅក្នុងមូលដ្ឋានចំណេះដឹងទេ។ " +
		"សូមជម្រាបអតិថិជនថាអ្នកនឹងពិនិត្យបន្ថែម ហើយទាក់ទងត្រឡប់ទៅវិញ។"
	failedAnswer = "I could not produce a reliable answer right now. " +
		"Please check the official system manually or escalate to a supervisor."
	failedAnswerKhmer = "ខ្ញុំមិនអាចផ្តល់ចម្លើយដែលអាចទុកចិត្តបាននៅពេលនេះទេ។ " +
		"សូមពិនិត្យប្រព័ន្ធផ្លូវការដោយផ្ទាល់ ឬបញ្ជូនទៅប្រធានក្រុម។"
)

func noEvidenceText(language string) string {
	if language == schema.LanguageKhmer {
		return noEvidenceAnswerKhmer
	}
	return noEvidenceAnswer
}

func failedText(language string) string {
	if language == schema.LanguageKhmer {
		return failedAnswerKhmer
	}
	return failedAnswer
}

// Unavailable returns the could-not-answer variant for failures that happen
// before generation, with the reason in Internal Notes. The language follows
// the question, matching Synthesize.
func Unavailable(question, reason string) schema.StructuredAnswer {
	language := schema.LanguageEnglish
	if ContainsKhmer(question) {
		language = schema.LanguageKhmer
	}
	return schema.StructuredAnswer{
		CustomerAnswer: failedText(language),
		InternalNotes:  reason,
		Language:       language,
	}
}

// Config holds generation tuning knobs.
type Config struct {
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"maxRetries"`
}

// Synthesizer produces StructuredAnswers from retrieval results.
type Synthesizer struct {
	generator Generator
	logger    *zap.Logger
	cfg       Config
}

// Option customizes a Synthesizer.
type Option func(*Synthesizer)

// WithLogger sets the synthesizer logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Synthesizer) {
		s.logger = logger
	}
}

// New creates a Synthesizer; zero config fields take defaults.
func New(generator Generator, cfg Config, opts ...Option) *Synthesizer {
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	s := &Synthesizer{generator: generator, logger: zap.NewNop(), cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize always returns a usable StructuredAnswer. Generation and parse
// failures are folded into an explicit could-not-answer variant with the
// failure reason in Internal Notes, alongside the error for the caller's log.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, evidence schema.RetrievalResult) (schema.StructuredAnswer, error) {
	language := schema.LanguageEnglish
	if ContainsKhmer(question) {
		language = schema.LanguageKhmer
	}

	if evidence.Empty() {
		if language == schema.LanguageEnglish && ClassifyIntent(question) == IntentSmalltalk {
			return schema.StructuredAnswer{
				CustomerAnswer: smalltalkReply(question),
				Smalltalk:      true,
				Language:       language,
			}, nil
		}
		return schema.StructuredAnswer{
			CustomerAnswer: noEvidenceText(language),
			InternalNotes:  "no retrieval hit",
			Language:       language,
		}, nil
	}

	settings := promptSettings{language: language}
	result, err := s.generate(ctx, question, evidence, settings)
	var malformed *MalformedResponseError
	if errors.As(err, &malformed) {
		s.logger.Warn("reply missing sections, retrying with reinforced prompt",
			zap.Strings("missing", malformed.Missing))
		settings.reinforced = true
		result, err = s.generate(ctx, question, evidence, settings)
	}
	if err != nil {
		return schema.StructuredAnswer{
			CustomerAnswer: failedText(language),
			InternalNotes:  "answer generation failed: " + err.Error(),
			Language:       language,
		}, err
	}
	result.Language = language
	return result, nil
}

func (s *Synthesizer) generate(ctx context.Context, question string, evidence schema.RetrievalResult, settings promptSettings) (schema.StructuredAnswer, error) {
	instruction, prompt := BuildPrompt(question, evidence, settings)
	reply, err := generateWithRetry(ctx, s.generator, &Request{
		SystemInstruction: instruction,
		Prompt:            prompt,
		Temperature:       s.cfg.Temperature,
	}, s.cfg.Timeout, s.cfg.MaxRetries)
	if err != nil {
		return schema.StructuredAnswer{}, err
	}
	return ParseStructured(reply)
}

// smalltalkReply picks a canned reply deterministically per question.
func smalltalkReply(question string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(question))
	return smalltalkReplies[int(h.Sum32())%len(smalltalkReplies)]
}
