package domain

import "strings"

// Divisions is the institute's known division roster, used as the default
// vocabulary for query intent detection, metadata filters, and graph
// seeding. Staff records may still carry divisions outside this list; the
// pipeline never rejects them.
var Divisions = []string{
	"Accounts Section",
	"Administration AO Office",
	"Administration COA Office",
	"Bridge Engineering and Structures",
	"Canteen",
	"Computer Center & Networking",
	"Director Office",
	"Engineering Service Division",
	"Establishment Section-I",
	"Establishment Section-II",
	"Flexible Pavements",
	"General & Works Section",
	"Geotechnical Engineering",
	"Guest House wing-1",
	"Horticulture",
	"Information, Liaison & Training",
	"Institute Headquarters",
	"Knowledge Resource Centre",
	"Main Store",
	"Mechanical and Transport",
	"Pavement Evaluation",
	"Personnel Cell",
	"Planning, Monitoring & Evaluation",
	"Purchase Section",
	"Rajbhasha",
	"Right to Information Cell",
	"Rigid Pavements",
	"Staff Quarter Maintenance",
	"Traffic Engineering and Safety",
	"Transport Planning and Environment",
	"Vigilance",
}

// DivisionAliases maps common abbreviations to canonical division names.
var DivisionAliases = map[string]string{
	"ccn": "Computer Center & Networking",
	"esd": "Engineering Service Division",
	"gws": "General & Works Section",
	"bes": "Bridge Engineering and Structures",
}

// UnknownDivision is the fallback primary division for staff records that
// carry none.
const UnknownDivision = "Unknown"

// CanonicalDivision resolves a free-form division mention to its canonical
// name, via alias lookup then case-insensitive comparison.
func CanonicalDivision(s string) (string, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", false
	}
	if full, ok := DivisionAliases[strings.ToLower(trimmed)]; ok {
		return full, true
	}
	for _, d := range Divisions {
		if strings.EqualFold(d, trimmed) {
			return d, true
		}
	}
	return "", false
}
