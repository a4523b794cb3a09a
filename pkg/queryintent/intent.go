// Package queryintent classifies chat questions: which division they target,
// what kind of answer they need, and whether they require an exhaustive
// listing. Keyword fast paths only; callers refine inconclusive results with
// an LLM analyzer.
package queryintent

import (
	"regexp"
	"sort"
	"strings"
)

// QueryType is the kind of answer a question is asking for.
type QueryType string

const (
	ListContacts  QueryType = "list_contacts"  // contact info for multiple people
	ListStaff     QueryType = "list_staff"     // list of staff or employees
	ListEquipment QueryType = "list_equipment" // list of equipment or facilities
	CountQuery    QueryType = "count_query"    // "how many"
	DetailQuery   QueryType = "detail_query"   // details about one item or person
	General       QueryType = "general"        // everything else
)

// Intent is the analyzed shape of a question.
type Intent struct {
	Division   string // canonical division name, empty when none detected
	Type       QueryType
	Exhaustive bool
	Confidence float64 // 0.0-1.0; low values mean an LLM pass should refine
}

// Analyzer matches questions against a division vocabulary.
type Analyzer struct {
	divisions []divEntry // longest name first
	aliases   map[string]string
	aliasRe   *regexp.Regexp
	lodging   string // canonical guest-house division, if the vocabulary has one
}

type divEntry struct {
	norm      string
	canonical string
}

// New builds an Analyzer over canonical division names and an abbreviation
// map (lowercase alias to canonical name).
func New(divisions []string, aliases map[string]string) *Analyzer {
	a := &Analyzer{aliases: make(map[string]string, len(aliases))}

	for _, d := range divisions {
		a.divisions = append(a.divisions, divEntry{norm: normalizeDivText(d), canonical: d})
		if a.lodging == "" && strings.Contains(strings.ToLower(d), "guest house") {
			a.lodging = d
		}
	}
	// Longest first so "Establishment Section-II" wins over its
	// "Establishment Section-I" prefix.
	sort.Slice(a.divisions, func(i, j int) bool {
		return len(a.divisions[i].norm) > len(a.divisions[j].norm)
	})

	var quoted []string
	for alias, canonical := range aliases {
		lower := strings.ToLower(alias)
		a.aliases[lower] = canonical
		quoted = append(quoted, regexp.QuoteMeta(lower))
	}
	if len(quoted) > 0 {
		sort.Slice(quoted, func(i, j int) bool { return len(quoted[i]) > len(quoted[j]) })
		a.aliasRe = regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`)
	}

	return a
}

var (
	// Stay and lodging questions rarely name the guest-house division
	// directly, so they fast-track to it.
	lodgingRe = regexp.MustCompile(`(?i)\b(accommodation|accomodation|guest[ -]?house|quarters|living|stay|staying)\b`)
	tenderRe  = regexp.MustCompile(`(?i)\btenders?\b`)

	countRe     = regexp.MustCompile(`(?i)\bhow many\b`)
	contactsRe  = regexp.MustCompile(`(?i)\bcontacts?\b|\be-?mail(?:s|ed)?\b|\bphone\b|\bmobile\b|\breach\b|\bcall\b`)
	staffRe     = regexp.MustCompile(`(?i)\bstaff\b|\bemployees?\b|\bscientists?\b|\btechnicians?\b|\bofficers?\b|\bpeople\b|\bwho works\b|\bmembers?\b`)
	equipmentRe = regexp.MustCompile(`(?i)\bequipments?\b|\binstruments?\b|\bmachines?\b|\bfacilit(?:y|ies)\b|\bapparatus\b|\blabs?\b|\blaborator(?:y|ies)\b`)
	detailRe    = regexp.MustCompile(`(?i)^\s*who is\b|^\s*what is\b|\btell me about\b|\bdetails? (?:of|about|for)\b`)

	exhaustiveRe = regexp.MustCompile(`(?i)\ball\b|\bevery\b|\bentire\b|\bcomplete\b|\bfull list\b|\bexhaustive\b`)
)

// Analyze runs the keyword fast paths over a question.
func (a *Analyzer) Analyze(question string) Intent {
	if strings.TrimSpace(question) == "" {
		return Intent{Type: General}
	}

	if a.lodging != "" && lodgingRe.MatchString(question) {
		return Intent{Division: a.lodging, Type: ListContacts, Confidence: 0.95}
	}
	if tenderRe.MatchString(question) {
		return Intent{Type: General, Confidence: 0.9}
	}

	intent := Intent{
		Division:   a.DetectDivision(question),
		Exhaustive: Exhaustive(question),
	}
	intent.Type, intent.Confidence = ClassifyType(question)
	if intent.Division != "" && intent.Confidence < 0.5 {
		// A named division narrows retrieval even when the type is fuzzy.
		intent.Confidence = 0.5
	}
	return intent
}

// DetectDivision finds the first known division mentioned in the question,
// by abbreviation or by name. Returns the canonical name or "".
func (a *Analyzer) DetectDivision(question string) string {
	if a.aliasRe != nil {
		if m := a.aliasRe.FindString(question); m != "" {
			return a.aliases[strings.ToLower(m)]
		}
	}

	norm := normalizeDivText(question)
	for _, d := range a.divisions {
		if strings.Contains(norm, d.norm) {
			return d.canonical
		}
	}
	return ""
}

// ClassifyType picks a query type from keyword patterns. The confidence is
// low when nothing matched and the caller should ask the LLM instead.
func ClassifyType(question string) (QueryType, float64) {
	switch {
	case countRe.MatchString(question):
		return CountQuery, 0.9
	case contactsRe.MatchString(question):
		return ListContacts, 0.85
	case staffRe.MatchString(question):
		return ListStaff, 0.85
	case equipmentRe.MatchString(question):
		return ListEquipment, 0.85
	case detailRe.MatchString(question):
		return DetailQuery, 0.8
	default:
		return General, 0.3
	}
}

// Exhaustive reports whether the question asks for a complete listing.
func Exhaustive(question string) bool {
	return exhaustiveRe.MatchString(question)
}

// honorifics are stripped in this order, one pass each, when normalizing
// person names.
var honorifics = []string{"mr ", "dr ", "ms ", "mrs ", "sh "}

// NormalizeName lowercases a person name, turns dots into spaces, and strips
// leading honorifics, so "Dr. A.K. Sharma" and "A K Sharma" compare equal.
func NormalizeName(name string) string {
	n := strings.ToLower(name)
	n = strings.ReplaceAll(n, ".", " ")
	for _, h := range honorifics {
		n = strings.TrimPrefix(n, h)
	}
	return strings.TrimSpace(n)
}

// SameName reports whether candidate plausibly names the same person as ref.
// Names match on containment either way, on sharing two name tokens, or on a
// full match when ref is a single token.
func SameName(ref, candidate string) bool {
	rn := NormalizeName(ref)
	cn := NormalizeName(candidate)
	if rn == "" || cn == "" {
		return false
	}
	if strings.Contains(rn, cn) || strings.Contains(cn, rn) {
		return true
	}

	rt := make(map[string]bool)
	for _, t := range strings.Fields(rn) {
		rt[t] = true
	}
	ct := make(map[string]bool)
	for _, t := range strings.Fields(cn) {
		ct[t] = true
	}
	common := 0
	for t := range rt {
		if ct[t] {
			common++
		}
	}
	return common >= 2 || (len(rt) == 1 && common == 1)
}

// normalizeDivText canonicalizes text for division-name matching: lowercase,
// "&" spelled out, commas dropped, whitespace collapsed.
func normalizeDivText(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "&", "and")
	s = strings.ReplaceAll(s, ",", "")
	return strings.Join(strings.Fields(s), " ")
}
