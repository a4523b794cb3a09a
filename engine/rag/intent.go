package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/SiteSageAI/sitesage-mvp/engine/domain"
	"github.com/SiteSageAI/sitesage-mvp/pkg/queryintent"
)

// Retrieval budgets by query type. Listing queries need enough headroom to
// cover a full division roster.
var topKByType = map[queryintent.QueryType]int{
	queryintent.ListContacts:  200,
	queryintent.ListStaff:     300,
	queryintent.ListEquipment: 100,
	queryintent.CountQuery:    200,
	queryintent.DetailQuery:   20,
	queryintent.General:       15,
}

const (
	// exhaustiveTopK is the floor when the question asks for everything.
	exhaustiveTopK = 300
	// divisionListTopK overrides the budget once a division filter
	// narrows the search space.
	divisionListTopK = 100
)

func retrievalBudget(intent queryintent.Intent) int {
	k, ok := topKByType[intent.Type]
	if !ok {
		k = topKByType[queryintent.General]
	}
	if intent.Exhaustive && k < exhaustiveTopK {
		k = exhaustiveTopK
	}
	if intent.Division != "" && isListQuery(intent.Type) {
		k = divisionListTopK
	}
	return k
}

// analyzeIntent runs the keyword fast paths and escalates inconclusive
// questions to the LLM analyzer. Analyzer failures keep the fast-path
// result, so a dead LLM degrades rather than blocks.
func (s *Service) analyzeIntent(ctx context.Context, question string) queryintent.Intent {
	intent := s.analyzer.Analyze(question)
	if intent.Confidence >= s.opts.IntentConfidence {
		return intent
	}

	refined, err := s.llmIntent(ctx, question)
	if err != nil {
		s.logger.Warn("rag: intent analysis fell back to keywords", "err", err)
		return intent
	}
	return refined
}

// intentPayload is the JSON shape the analyzer model returns.
type intentPayload struct {
	TargetDivision     string `json:"target_division"`
	QueryType          string `json:"query_type"`
	RequiresExhaustive bool   `json:"requires_exhaustive"`
}

var intentSystemPrompt = buildIntentPrompt()

func buildIntentPrompt() string {
	names, _ := json.MarshalIndent(domain.Divisions, "", "  ")
	return fmt.Sprintf(`You analyze questions for an institute chatbot. Return ONLY a JSON object with these fields:

"target_division": the EXACT name from this list when the question concerns one division, else null:
%s
Common abbreviations: "CCN" is Computer Center & Networking, "ESD" is Engineering Service Division, "GWS" is General & Works Section, "BES" is Bridge Engineering and Structures. Questions about accommodation, guest house, quarters or staying map to "Guest House wing-1".

"query_type": one of "list_contacts" (contact info for multiple people), "list_staff" (list of staff or employees), "list_equipment" (list of equipment), "count_query" (how many), "detail_query" (details about a specific item or person), "general" (anything else).

"requires_exhaustive": true when the question needs ALL items, else false.`, names)
}

func (s *Service) llmIntent(ctx context.Context, question string) (queryintent.Intent, error) {
	reply, err := s.chat.Chat(ctx, intentSystemPrompt, question)
	if err != nil {
		return queryintent.Intent{}, fmt.Errorf("rag: intent analysis: %w", err)
	}

	var payload intentPayload
	if err := json.Unmarshal([]byte(stripFences(reply)), &payload); err != nil {
		return queryintent.Intent{}, fmt.Errorf("rag: intent analysis: parse %q: %w", reply, err)
	}

	intent := queryintent.Intent{
		Type:       queryintent.General,
		Exhaustive: payload.RequiresExhaustive,
		Confidence: 1,
	}
	if qt := queryintent.QueryType(payload.QueryType); knownQueryType(qt) {
		intent.Type = qt
	}
	if payload.TargetDivision != "" {
		if canonical, ok := domain.CanonicalDivision(payload.TargetDivision); ok {
			intent.Division = canonical
		} else {
			intent.Division = payload.TargetDivision
		}
	}
	return intent, nil
}

func knownQueryType(t queryintent.QueryType) bool {
	switch t {
	case queryintent.ListContacts, queryintent.ListStaff, queryintent.ListEquipment,
		queryintent.CountQuery, queryintent.DetailQuery, queryintent.General:
		return true
	}
	return false
}

// stripFences unwraps a fenced code-block reply, which chat models add even
// when told to return bare JSON.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
