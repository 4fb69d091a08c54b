package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidLLMAnswer = errors.New("llm answer is not valid json")

const documentSystemPrompt = `You summarize business documents for a shared knowledge base.
Answer with JSON only, no prose, in this shape:
{"summary": "2-3 sentence summary", "suggestedTags": ["short", "lowercase", "tags"]}`

const corpusSystemPrompt = `You write an executive overview of an organisation's document corpus.
Answer with JSON only, no prose, in this shape:
{"executive_summary": "one paragraph",
 "key_insights": ["..."],
 "action_items": ["..."],
 "key_themes": ["..."],
 "important_dates": [{"date": "YYYY-MM-DD or as written", "description": "..."}]}`

type DocumentInsight struct {
	Summary       string   `json:"summary"`
	SuggestedTags []string `json:"suggestedTags"`
}

type DatedEvent struct {
	Date        string `json:"date"`
	Description string `json:"description"`
}

type CorpusInsight struct {
	ExecutiveSummary string       `json:"executive_summary"`
	KeyInsights      []string     `json:"key_insights"`
	ActionItems      []string     `json:"action_items"`
	KeyThemes        []string     `json:"key_themes"`
	ImportantDates   []DatedEvent `json:"important_dates"`
}

// Excerpt is one sampled chunk handed to the corpus prompt.
type Excerpt struct {
	DocumentName string
	PageNumber   *int
	Content      string
}

// Summarizer asks the chat model for document and corpus level summaries.
type Summarizer struct {
	client *OpenAICompatibleClient
	cfg    ChatConfig
}

func NewSummarizer(client *OpenAICompatibleClient, cfg ChatConfig) *Summarizer {
	return &Summarizer{client: client, cfg: cfg}
}

func (s *Summarizer) IsConfigured() bool {
	return s.cfg.IsConfigured()
}

func (s *Summarizer) SummarizeDocument(ctx context.Context, name string, excerpts []string) (*DocumentInsight, error) {
	if !s.IsConfigured() {
		return nil, ErrNotConfigured
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Document: %s\n\n", name)
	for _, e := range excerpts {
		sb.WriteString(e)
		sb.WriteString("\n---\n")
	}

	answer, err := s.client.Complete(ctx, s.cfg, []ChatMessage{
		{Role: "system", Content: documentSystemPrompt},
		{Role: "user", Content: sb.String()},
	})
	if err != nil {
		return nil, err
	}

	var insight DocumentInsight
	if err := parseJSONAnswer(answer, &insight); err != nil {
		return nil, err
	}
	return &insight, nil
}

func (s *Summarizer) SummarizeCorpus(ctx context.Context, documentCount int, excerpts []Excerpt) (*CorpusInsight, error) {
	if !s.IsConfigured() {
		return nil, ErrNotConfigured
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "The corpus holds %d documents. Representative excerpts follow.\n\n", documentCount)
	for _, e := range excerpts {
		if e.PageNumber != nil {
			fmt.Fprintf(&sb, "[%s, page %d]\n", e.DocumentName, *e.PageNumber)
		} else {
			fmt.Fprintf(&sb, "[%s]\n", e.DocumentName)
		}
		sb.WriteString(e.Content)
		sb.WriteString("\n\n")
	}

	answer, err := s.client.Complete(ctx, s.cfg, []ChatMessage{
		{Role: "system", Content: corpusSystemPrompt},
		{Role: "user", Content: sb.String()},
	})
	if err != nil {
		return nil, err
	}

	var insight CorpusInsight
	if err := parseJSONAnswer(answer, &insight); err != nil {
		return nil, err
	}
	return &insight, nil
}

// parseJSONAnswer decodes the JSON object in answer, tolerating code fences and surrounding text.
func parseJSONAnswer(answer string, out interface{}) error {
	start := strings.Index(answer, "{")
	end := strings.LastIndex(answer, "}")
	if start == -1 || end < start {
		return fmt.Errorf("%w: no object found", ErrInvalidLLMAnswer)
	}
	if err := json.Unmarshal([]byte(answer[start:end+1]), out); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidLLMAnswer, err)
	}
	return nil
}
