// Package domain defines core domain types, constants, and validation for
// the SiteSage pipeline. It acts as the validation gate at pipeline entry
// and exit points.
package domain

import "strings"

// Chunk is the unit of pipeline output: one normalized natural-language
// description of an entity plus index-ready metadata. A chunk is immutable
// once created and is emitted whole or dropped whole.
type Chunk struct {
	Content  string         `json:"page_content"`
	Metadata map[string]any `json:"metadata"`
}

// SourceType tags which scraped source a record came from. The set is
// closed; classifiers receive the tag explicitly from their caller, and
// filename sniffing happens only in the outermost boundary adapter.
type SourceType string

const (
	SourceStaff      SourceType = "staff"
	SourceNews       SourceType = "news"
	SourceEquipment  SourceType = "equipment"
	SourceTender     SourceType = "tender"
	SourceEvent      SourceType = "event"
	SourcePDFContact SourceType = "staff_directory_pdf"
)

// ValidSourceTypes is the set of recognised source tags.
var ValidSourceTypes = map[SourceType]bool{
	SourceStaff: true, SourceNews: true, SourceEquipment: true,
	SourceTender: true, SourceEvent: true, SourcePDFContact: true,
}

// PageType returns the page_type discriminator recorded in chunk metadata
// for this source. PDF contact chunks carry no page_type.
func (s SourceType) PageType() string {
	switch s {
	case SourceStaff:
		return "staff_profile"
	case SourceNews:
		return "news_detail"
	case SourceEquipment:
		return "equipment_detail"
	case SourceTender:
		return "tender_detail"
	case SourceEvent:
		return "event_detail"
	default:
		return ""
	}
}

// sniffOrder fixes which keyword wins when a filename matches several.
var sniffOrder = []struct {
	keyword string
	source  SourceType
}{
	{"staff", SourceStaff},
	{"news", SourceNews},
	{"equipment", SourceEquipment},
	{"tender", SourceTender},
	{"event", SourceEvent},
}

// SniffSourceType infers a source tag from a raw scrape filename, first
// keyword match winning. This is the only place filenames decide routing;
// everything past the boundary adapter works from explicit tags.
func SniffSourceType(filename string) (SourceType, bool) {
	lower := strings.ToLower(filename)
	for _, c := range sniffOrder {
		if strings.Contains(lower, c.keyword) {
			return c.source, true
		}
	}
	return "", false
}

// CommonMetadata returns the uniform keys every classifier chunk carries.
// Entity-specific fields are layered on top by the classifier.
func CommonMetadata(s SourceType, sourceURL, scrapedAt string) map[string]any {
	return map[string]any{
		"source_type": string(s),
		"page_type":   s.PageType(),
		"source_url":  sourceURL,
		"scraped_at":  scrapedAt,
	}
}
