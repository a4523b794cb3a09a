package graph

import (
	"github.com/SiteSageAI/sitesage-mvp/pkg/repo"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// newPersonRepo creates a Neo4j-backed repository for Person nodes.
func newPersonRepo(driver neo4j.DriverWithContext) *repo.Neo4jRepo[Person, string] {
	return repo.NewNeo4jRepo[Person, string](
		driver,
		"Person",
		personToMap,
		personFromRecord,
	)
}

func personToMap(p Person) map[string]any {
	m := map[string]any{
		"id":          p.ID,
		"name":        p.Name,
		"division":    p.Division,
		"source_type": p.SourceType,
	}
	if p.Title != "" {
		m["title"] = p.Title
	}
	if p.Designation != "" {
		m["designation"] = p.Designation
	}
	if p.Email != "" {
		m["email"] = p.Email
	}
	if p.Mobile != "" {
		m["mobile"] = p.Mobile
	}
	if len(p.Divisions) > 0 {
		m["divisions"] = p.Divisions
	}
	return m
}

func personFromRecord(rec *neo4j.Record) (Person, error) {
	node, _, err := neo4j.GetRecordValue[dbtype.Node](rec, "n")
	if err != nil {
		return Person{}, err
	}
	return personFromProps(node.Props), nil
}

func equipmentToMap(e Equipment) map[string]any {
	m := map[string]any{
		"id":       e.ID,
		"name":     e.Name,
		"division": e.Division,
	}
	if e.Make != "" {
		m["make"] = e.Make
	}
	if e.Model != "" {
		m["model"] = e.Model
	}
	return m
}
