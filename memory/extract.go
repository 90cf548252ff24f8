package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/amicalabs/amica/core"
)

const extractionSystemPrompt = "You are a memory extraction expert. Extract only important, specific information."

const extractionTemperature = 0.1

// fallbackSummaryLimit bounds the context memory stored when extraction
// output is unusable.
const fallbackSummaryLimit = 200

// extractedRecord is the shape the extraction model is asked to return.
type extractedRecord struct {
	Content    string `json:"content"`
	Type       string `json:"type"`
	Importance int    `json:"importance"`
	Reasoning  string `json:"reasoning"`
}

// ExtractAndStore mines one completed exchange for memories worth keeping
// and stores them. It returns the contents of the memories created.
//
// The model reply is untrusted input. A reply that fails to decode as a
// record array, or decodes but yields no valid record, degrades to a single
// low-importance context memory summarizing the exchange; extraction never
// propagates a parse failure to the caller. Provider and storage failures
// are returned.
func (s *Store) ExtractAndStore(ctx context.Context, userID string, userMessage string, assistantResponse string) ([]string, error) {
	if s.provider == nil {
		return nil, fmt.Errorf("extract memories: no provider configured")
	}

	prompt := extractionPrompt(userMessage, assistantResponse)
	reply, err := s.provider.Generate(ctx, []core.Message{
		{Role: core.RoleSystem, Content: extractionSystemPrompt},
		{Role: core.RoleUser, Content: prompt},
	}, extractionTemperature, s.cfg.ExtractionMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("extraction model call: %w", err)
	}

	records, err := parseExtraction(reply.Content)
	if err != nil {
		s.logger.Warn("extraction output unusable, storing context fallback",
			zap.String("user_id", userID),
			zap.Error(err))
		summary := "User said: " + truncateRunes(userMessage, fallbackSummaryLimit) + "..."
		if _, err := s.Store(ctx, userID, summary, TypeContext, 3); err != nil {
			return nil, err
		}
		return []string{"conversation context"}, nil
	}

	created := make([]string, 0, len(records))
	for _, rec := range records {
		t := Type(rec.Type)
		if !ValidType(t) {
			t = TypeFact
		}
		importance := rec.Importance
		if importance == 0 {
			importance = 5
		}
		if _, err := s.Store(ctx, userID, rec.Content, t, importance); err != nil {
			s.logger.Warn("failed to store extracted memory",
				zap.String("user_id", userID),
				zap.Error(err))
			continue
		}
		created = append(created, rec.Content)
	}

	s.logger.Debug("memories extracted",
		zap.String("user_id", userID),
		zap.Int("count", len(created)))
	return created, nil
}

func extractionPrompt(userMessage, assistantResponse string) string {
	var b strings.Builder
	b.WriteString("Analyze this conversation and extract important information to remember about the user.\n")
	b.WriteString("Focus on: preferences, personal facts, interests, emotional state, goals, relationships.\n\n")
	fmt.Fprintf(&b, "User message: %q\n", userMessage)
	fmt.Fprintf(&b, "Assistant response: %q\n\n", assistantResponse)
	b.WriteString("Return a JSON list of memories in this format:\n")
	b.WriteString(`[
    {
        "content": "specific fact or preference",
        "type": "preference|fact|emotion|goal|interest",
        "importance": 1-10,
        "reasoning": "why this is important to remember"
    }
]
`)
	b.WriteString("\nOnly extract genuinely important information. Return an empty list if nothing significant.")
	return b.String()
}

// parseExtraction decodes and validates the model's record array. Records
// with empty content are dropped; a payload yielding zero valid records is
// treated the same as one that fails to decode, except for an explicitly
// empty array, which means the model found nothing worth keeping.
func parseExtraction(raw string) ([]extractedRecord, error) {
	raw = strings.TrimSpace(raw)
	var records []extractedRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrParseFailure, err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	valid := records[:0]
	for _, rec := range records {
		if strings.TrimSpace(rec.Content) == "" {
			continue
		}
		valid = append(valid, rec)
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("%w: no usable records in payload", core.ErrParseFailure)
	}
	return valid, nil
}

// truncateRunes truncates on rune boundaries so multi-byte content never
// splits mid-character.
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
