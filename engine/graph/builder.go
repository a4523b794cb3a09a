package graph

import (
	"context"
	"fmt"

	"github.com/SiteSageAI/sitesage-mvp/engine/domain"
)

// Directory holds the graph entities extracted from one snapshot.
type Directory struct {
	Divisions []Division
	Persons   []Person
	Equipment []Equipment
}

// Builder turns snapshot chunks into directory graph nodes.
type Builder struct {
	graph *GraphStore
}

// NewBuilder creates a new Builder.
func NewBuilder(gs *GraphStore) *Builder {
	return &Builder{graph: gs}
}

// BuildDirectory extracts Division, Person, and Equipment entities from
// chunk metadata. Chunks from sources that carry no directory entities
// are ignored. Entity IDs repeat across snapshots, so rebuilds are
// idempotent under MERGE.
func BuildDirectory(chunks []domain.Chunk) Directory {
	dir := Directory{}
	seenDiv := map[string]bool{}
	seenEntity := map[string]bool{}

	addDivision := func(name string) {
		id := DivisionID(name)
		if name == "" || seenDiv[id] {
			return
		}
		seenDiv[id] = true
		dir.Divisions = append(dir.Divisions, Division{ID: id, Name: name})
	}
	// Canonical roster first so empty divisions still exist as nodes.
	for _, name := range domain.Divisions {
		addDivision(name)
	}

	for _, c := range chunks {
		meta := c.Metadata
		switch metaString(meta, "source_type") {
		case string(domain.SourceStaff):
			name := metaString(meta, "name")
			if name == "" {
				continue
			}
			primary := metaString(meta, "primary_division")
			p := Person{
				ID:         PersonID(name, primary),
				Name:       name,
				Title:      metaString(meta, "title"),
				Division:   primary,
				Divisions:  metaStrings(meta, "divisions"),
				SourceType: string(domain.SourceStaff),
			}
			if len(p.Divisions) == 0 && primary != "" {
				p.Divisions = []string{primary}
			}
			if seenEntity["p:"+p.ID] {
				continue
			}
			seenEntity["p:"+p.ID] = true
			for _, d := range p.Divisions {
				addDivision(d)
			}
			dir.Persons = append(dir.Persons, p)

		case string(domain.SourcePDFContact):
			name := metaString(meta, "name")
			if name == "" {
				continue
			}
			p := Person{
				ID:          PersonID(name, domain.UnknownDivision),
				Name:        name,
				Designation: metaString(meta, "designation"),
				Email:       metaString(meta, "email"),
				Mobile:      metaString(meta, "mobile"),
				Division:    domain.UnknownDivision,
				SourceType:  string(domain.SourcePDFContact),
			}
			if seenEntity["p:"+p.ID] {
				continue
			}
			seenEntity["p:"+p.ID] = true
			addDivision(domain.UnknownDivision)
			dir.Persons = append(dir.Persons, p)

		case string(domain.SourceEquipment):
			name := metaString(meta, "equipment_name")
			if name == "" {
				continue
			}
			e := Equipment{
				ID:       EquipmentID(name, metaString(meta, "division")),
				Name:     name,
				Division: metaString(meta, "division"),
				Make:     metaString(meta, "make"),
				Model:    metaString(meta, "model"),
			}
			if seenEntity["e:"+e.ID] {
				continue
			}
			seenEntity["e:"+e.ID] = true
			addDivision(e.Division)
			dir.Equipment = append(dir.Equipment, e)
		}
	}
	return dir
}

// Sync writes a snapshot's directory into the graph in a single
// transaction. Existing nodes are updated in place; node identity is
// stable across snapshots.
func (b *Builder) Sync(ctx context.Context, chunks []domain.Chunk) (Directory, error) {
	dir := BuildDirectory(chunks)

	sess := b.graph.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	_, err := sess.ExecuteWrite(ctx, func(tx CypherRunner) (any, error) {
		for _, d := range dir.Divisions {
			cypher := `MERGE (n:Division {id: $id}) SET n.name = $name`
			if _, err := tx.Run(ctx, cypher, map[string]any{"id": d.ID, "name": d.Name}); err != nil {
				return nil, err
			}
		}
		for _, p := range dir.Persons {
			if err := savePersonTx(ctx, tx, p); err != nil {
				return nil, err
			}
		}
		for _, e := range dir.Equipment {
			if err := saveEquipmentTx(ctx, tx, e); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return Directory{}, fmt.Errorf("graph: sync directory: %w", err)
	}
	return dir, nil
}

// Orphan is a node whose division edge is missing but whose stored
// division property still names one.
type Orphan struct {
	ID       string
	Name     string
	Division string
	Label    string // Person or Equipment
}

// FindOrphans returns Person and Equipment nodes that carry a division
// property but no edge into a Division node.
func (b *Builder) FindOrphans(ctx context.Context) ([]Orphan, error) {
	sess := b.graph.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	var orphans []Orphan

	cypher := `MATCH (p:Person)
	           WHERE NOT (p)-[:MEMBER_OF]->(:Division) AND p.division IS NOT NULL AND p.division <> ''
	           RETURN p.id AS id, p.name AS name, p.division AS division`
	result, err := sess.Run(ctx, cypher, nil)
	if err != nil {
		return nil, err
	}
	orphans = appendOrphans(ctx, orphans, result, "Person")

	cypher = `MATCH (e:Equipment)
	          WHERE NOT (e)-[:HOUSED_IN]->(:Division) AND e.division IS NOT NULL AND e.division <> ''
	          RETURN e.id AS id, e.name AS name, e.division AS division`
	result, err = sess.Run(ctx, cypher, nil)
	if err != nil {
		return nil, err
	}
	orphans = appendOrphans(ctx, orphans, result, "Equipment")

	return orphans, nil
}

// LinkOrphan restores the division edge for one orphaned node, creating
// the Division node if the snapshot that named it is gone.
func (b *Builder) LinkOrphan(ctx context.Context, o Orphan) error {
	rel := ""
	switch o.Label {
	case "Person":
		rel = "MEMBER_OF"
	case "Equipment":
		rel = "HOUSED_IN"
	default:
		return fmt.Errorf("graph: unknown orphan label %q", o.Label)
	}

	sess := b.graph.opener.OpenSession(ctx)
	defer sess.Close(ctx)
	cypher := fmt.Sprintf(
		`MERGE (d:Division {id: $divID}) ON CREATE SET d.name = $divName
		 WITH d
		 MATCH (n:%s {id: $id})
		 MERGE (n)-[:%s]->(d)`, o.Label, rel)
	_, err := sess.Run(ctx, cypher, map[string]any{
		"id":      o.ID,
		"divID":   DivisionID(o.Division),
		"divName": o.Division,
	})
	return err
}

func appendOrphans(ctx context.Context, orphans []Orphan, result CypherResult, label string) []Orphan {
	for result.Next(ctx) {
		rec := result.Record()
		o := Orphan{Label: label}
		if v, ok := rec.Get("id"); ok && v != nil {
			o.ID = fmt.Sprint(v)
		}
		if v, ok := rec.Get("name"); ok && v != nil {
			o.Name = fmt.Sprint(v)
		}
		if v, ok := rec.Get("division"); ok && v != nil {
			o.Division = fmt.Sprint(v)
		}
		orphans = append(orphans, o)
	}
	return orphans
}

func metaString(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func metaStrings(m map[string]any, key string) []string {
	v, ok := m[key]
	if !ok {
		return nil
	}
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
