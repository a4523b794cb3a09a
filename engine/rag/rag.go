// Package rag orchestrates retrieval-augmented answers over the institute
// knowledge base. It analyzes a question's intent, retrieves chunks with a
// budget suited to the query type, post-filters staff results, optionally
// pulls the directory-graph roster, and synthesizes the final answer with
// the chat LLM.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SiteSageAI/sitesage-mvp/engine/domain"
	"github.com/SiteSageAI/sitesage-mvp/engine/graph"
	"github.com/SiteSageAI/sitesage-mvp/engine/semantic"
	"github.com/SiteSageAI/sitesage-mvp/pkg/queryintent"
)

// Embedder turns query text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SemanticSearcher abstracts Qdrant vector search.
type SemanticSearcher interface {
	Search(ctx context.Context, embedding []float32, topK int) ([]semantic.SearchResult, error)
	SearchFiltered(ctx context.Context, embedding []float32, topK int, filters map[string]string) ([]semantic.SearchResult, error)
}

// DirectoryLookup serves authoritative division rosters from the graph.
type DirectoryLookup interface {
	PeopleOfDivision(ctx context.Context, division string) ([]graph.Person, error)
	EquipmentOfDivision(ctx context.Context, division string) ([]graph.Equipment, error)
}

// ChatModel synthesizes answers and refines query intent.
type ChatModel interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

// Options configures the answer pipeline behaviour.
type Options struct {
	SystemPrompt string
	// IntentConfidence is the fast-path confidence below which the LLM
	// analyzer refines the intent.
	IntentConfidence float64
	// MaxContacts caps how many staff names feed the contact lookup.
	MaxContacts int
	// MaxSources caps the citations carried on the Answer; the full
	// retrieval still reaches the LLM as context.
	MaxSources    int
	UseDirectory  bool
	SearchTimeout time.Duration
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		SystemPrompt:     defaultSystemPrompt,
		IntentConfidence: 0.75,
		MaxContacts:      30,
		MaxSources:       10,
		UseDirectory:     true,
		SearchTimeout:    10 * time.Second,
	}
}

const defaultSystemPrompt = `You are a helpful colleague at the institute who enjoys sharing accurate information about it. Speak naturally and keep answers concise by default; expand only when the user asks for detail.

Answer ONLY from the provided context:
- If the user asks for a list of people or staff, list EVERY person present in the context. Do not omit anyone.
- If the context does not contain the answer, say so honestly and direct the user to the relevant division.
- Never invent a count. When asked "how many", count the actual items in the context; if you cannot count precisely, say you have information on several instead of guessing a number.
- Ignore any pricing or usage-charge information in the context. If the user asks about charges, reply only that they should contact the relevant division directly.

Formatting:
- Staff entries: **Name** | Designation, then email and phone on the next line, then the division.
- Three or more similar items: use a table.
- Tender or event listings: a one-line intro, then the structured data inside a fenced json code block.
- Otherwise flowing paragraphs with bold keywords; avoid walls of bullet points.`

// contextSeparator joins retrieved chunks into the prompt context.
const contextSeparator = "\n\n---\n\n"

// Service is the retrieval orchestration service.
type Service struct {
	embed    Embedder
	search   SemanticSearcher
	dir      DirectoryLookup
	chat     ChatModel
	analyzer *queryintent.Analyzer
	opts     Options
	logger   *slog.Logger
}

// New creates a Service over the given collaborators. dir may be nil when no
// graph is deployed.
func New(embed Embedder, search SemanticSearcher, dir DirectoryLookup, chat ChatModel, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		embed:    embed,
		search:   search,
		dir:      dir,
		chat:     chat,
		analyzer: queryintent.New(domain.Divisions, domain.DivisionAliases),
		opts:     opts,
		logger:   logger,
	}
}

// Answer is the structured response from the retrieval pipeline.
type Answer struct {
	Text      string   `json:"text"`
	Sources   []Source `json:"sources"`
	Division  string   `json:"division,omitempty"`
	QueryType string   `json:"query_type"`
	Retrieved int      `json:"retrieved"`
}

// Source is one retrieved chunk backing the answer.
type Source struct {
	ID         string  `json:"id"`
	Content    string  `json:"content"`
	SourceType string  `json:"source_type"`
	Score      float32 `json:"score"`
}

// Answer runs the full pipeline for a user question.
func (s *Service) Answer(ctx context.Context, question string) (*Answer, error) {
	if err := domain.ValidateQuestion(question); err != nil {
		return nil, err
	}

	intent := s.analyzeIntent(ctx, question)
	topK := retrievalBudget(intent)
	s.logger.Info("rag answer start",
		"division", intent.Division,
		"query_type", intent.Type,
		"exhaustive", intent.Exhaustive,
		"top_k", topK)

	results, err := s.retrieve(ctx, question, intent, topK)
	if err != nil {
		return nil, err
	}
	s.logger.Info("rag semantic search done", "results", len(results))

	if intent.Division != "" && isListQuery(intent.Type) {
		results = s.refineStaffResults(ctx, results)
	}

	parts := make([]string, 0, len(results)+1)
	for _, r := range results {
		parts = append(parts, r.Content)
	}
	if s.opts.UseDirectory && s.dir != nil {
		if roster := s.directoryContext(ctx, intent); roster != "" {
			parts = append(parts, roster)
		}
	}

	reply, err := s.chat.Chat(ctx, s.opts.SystemPrompt, userPrompt(question, strings.Join(parts, contextSeparator)))
	if err != nil {
		return nil, fmt.Errorf("rag: chat: %w", err)
	}

	return &Answer{
		Text:      reply,
		Sources:   sourcesFrom(results, s.opts.MaxSources),
		Division:  intent.Division,
		QueryType: string(intent.Type),
		Retrieved: len(results),
	}, nil
}

// retrieve embeds the search text and runs the vector search, division
// filtered for roster-style queries.
func (s *Service) retrieve(ctx context.Context, question string, intent queryintent.Intent, topK int) ([]semantic.SearchResult, error) {
	searchText := question
	if intent.Division != "" && isListQuery(intent.Type) {
		// A roster-style probe recalls staff chunks better than the
		// user's phrasing.
		searchText = "staff members employees scientists technicians officers working in " + intent.Division + " division"
	}

	vector, err := s.embed.Embed(ctx, searchText)
	if err != nil {
		return nil, fmt.Errorf("rag: embed query: %w", err)
	}

	searchCtx, cancel := context.WithTimeout(ctx, s.opts.SearchTimeout)
	defer cancel()

	if intent.Division != "" && isListQuery(intent.Type) {
		results, err := s.search.SearchFiltered(searchCtx, vector, topK, map[string]string{"divisions": intent.Division})
		if err != nil {
			return nil, fmt.Errorf("rag: semantic search: %w", err)
		}
		return results, nil
	}

	results, err := s.search.Search(searchCtx, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("rag: semantic search: %w", err)
	}
	return results, nil
}

// refineStaffResults narrows a division listing to staff-profile chunks and
// joins in the contact chunks for the same people. Contact lookup failures
// degrade to the staff profiles alone.
func (s *Service) refineStaffResults(ctx context.Context, results []semantic.SearchResult) []semantic.SearchResult {
	var staff []semantic.SearchResult
	var names []string
	for _, r := range results {
		if r.Meta["page_type"] != "staff_profile" {
			continue
		}
		staff = append(staff, r)
		if name := r.Meta["name"]; name != "" {
			names = append(names, name)
		}
	}
	if len(staff) == 0 {
		return results
	}
	if len(names) == 0 {
		return staff
	}

	if len(names) > s.opts.MaxContacts {
		names = names[:s.opts.MaxContacts]
	}
	contacts, err := s.lookupContacts(ctx, names)
	if err != nil {
		s.logger.Warn("rag: contact lookup failed, continuing with profiles only", "err", err)
		return staff
	}

	merged := make([]semantic.SearchResult, 0, len(staff)+len(contacts))
	seen := make(map[string]bool)
	for _, r := range append(staff, contacts...) {
		if seen[r.Content] {
			continue
		}
		seen[r.Content] = true
		merged = append(merged, r)
	}
	return merged
}

// minContactSearch is the search floor for the contact pass; contact chunks
// rank poorly against roster probes, so the net is cast wide.
const minContactSearch = 500

func (s *Service) lookupContacts(ctx context.Context, names []string) ([]semantic.SearchResult, error) {
	vector, err := s.embed.Embed(ctx, "contact details email phone mobile for "+strings.Join(names, " "))
	if err != nil {
		return nil, err
	}

	topK := len(names) * 10
	if topK < minContactSearch {
		topK = minContactSearch
	}
	searchCtx, cancel := context.WithTimeout(ctx, s.opts.SearchTimeout)
	defer cancel()

	candidates, err := s.search.Search(searchCtx, vector, topK)
	if err != nil {
		return nil, err
	}

	var matched []semantic.SearchResult
	for _, c := range candidates {
		cname := c.Meta["name"]
		if cname == "" {
			continue
		}
		for _, name := range names {
			if queryintent.SameName(name, cname) {
				matched = append(matched, c)
				break
			}
		}
	}
	return matched, nil
}

// directoryContext renders the graph's authoritative roster for listing and
// count queries. Graph failures are logged and skipped.
func (s *Service) directoryContext(ctx context.Context, intent queryintent.Intent) string {
	if intent.Division == "" {
		return ""
	}

	switch intent.Type {
	case queryintent.ListStaff, queryintent.ListContacts, queryintent.CountQuery:
		people, err := s.dir.PeopleOfDivision(ctx, intent.Division)
		if err != nil {
			s.logger.Warn("rag: directory lookup failed, continuing without", "err", err)
			return ""
		}
		if len(people) == 0 {
			return ""
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Directory roster for %s (%d people):\n", intent.Division, len(people))
		for _, p := range people {
			b.WriteString("- " + p.Name)
			switch {
			case p.Title != "":
				b.WriteString(", " + p.Title)
			case p.Designation != "":
				b.WriteString(", " + p.Designation)
			}
			b.WriteString("\n")
		}
		return b.String()

	case queryintent.ListEquipment:
		items, err := s.dir.EquipmentOfDivision(ctx, intent.Division)
		if err != nil {
			s.logger.Warn("rag: directory lookup failed, continuing without", "err", err)
			return ""
		}
		if len(items) == 0 {
			return ""
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Directory equipment for %s (%d items):\n", intent.Division, len(items))
		for _, e := range items {
			b.WriteString("- " + e.Name)
			if e.Make != "" {
				b.WriteString(" (" + e.Make)
				if e.Model != "" {
					b.WriteString(" " + e.Model)
				}
				b.WriteString(")")
			}
			b.WriteString("\n")
		}
		return b.String()
	}
	return ""
}

func userPrompt(question, context string) string {
	return fmt.Sprintf("Here's my question: %s\n\nContext from the institute knowledge base:\n%s\n\nPlease answer following the formatting rules. Keep it clean and professional.", question, context)
}

func sourcesFrom(results []semantic.SearchResult, limit int) []Source {
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	sources := make([]Source, len(results))
	for i, r := range results {
		sources[i] = Source{
			ID:         r.ID,
			Content:    r.Content,
			SourceType: r.SourceType,
			Score:      r.Score,
		}
	}
	return sources
}

func isListQuery(t queryintent.QueryType) bool {
	return t == queryintent.ListContacts || t == queryintent.ListStaff
}
