// Package graph provides Neo4j directory graph operations for institute
// divisions, people, and equipment.
package graph

// Division represents an institute division or section.
type Division struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Person represents a staff member known from scraped profiles or the
// PDF contact directory.
type Person struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Title       string   `json:"title,omitempty"`
	Designation string   `json:"designation,omitempty"`
	Email       string   `json:"email,omitempty"`
	Mobile      string   `json:"mobile,omitempty"`
	Division    string   `json:"division"`
	Divisions   []string `json:"divisions,omitempty"`
	SourceType  string   `json:"source_type"`
}

// Equipment represents an instrument or facility housed in a division.
type Equipment struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Division string `json:"division"`
	Make     string `json:"make,omitempty"`
	Model    string `json:"model,omitempty"`
}

// DivisionID returns the stable node ID for a division name.
func DivisionID(name string) string {
	return sanitizeID(name)
}

// PersonID returns the stable node ID for a person. Identity is the
// (name, division) pair, matching how staff records are merged upstream.
func PersonID(name, division string) string {
	return sanitizeID(name) + ":" + sanitizeID(division)
}

// EquipmentID returns the stable node ID for an equipment entry.
func EquipmentID(name, division string) string {
	return sanitizeID(name) + ":" + sanitizeID(division)
}

// sanitizeID converts a name to a lowercase dash-separated ID.
func sanitizeID(name string) string {
	b := make([]byte, 0, len(name))
	for i := range name {
		c := name[i]
		switch {
		case c >= 'A' && c <= 'Z':
			b = append(b, c+32) // lowercase
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b = append(b, c)
		case c == ' ' || c == '/' || c == '_' || c == '.' || c == '&' || c == ',':
			if len(b) > 0 && b[len(b)-1] != '-' {
				b = append(b, '-')
			}
		}
	}
	if len(b) > 0 && b[len(b)-1] == '-' {
		b = b[:len(b)-1]
	}
	return string(b)
}
