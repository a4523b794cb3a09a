package graph

import (
	"context"
)

// DivisionRoster holds per-division membership counts.
type DivisionRoster struct {
	Division  string `json:"division"`
	People    int64  `json:"people"`
	Equipment int64  `json:"equipment"`
}

// NodeCounts returns node counts grouped by label.
func (g *GraphStore) NodeCounts(ctx context.Context) (map[string]int64, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (n) RETURN labels(n)[0] AS type, count(*) AS count`
	result, err := sess.Run(ctx, cypher, nil)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64)
	for result.Next(ctx) {
		rec := result.Record()
		typ, _ := rec.Get("type")
		cnt, _ := rec.Get("count")
		if t, ok := typ.(string); ok {
			if c, ok := cnt.(int64); ok {
				counts[t] = c
			}
		}
	}
	return counts, nil
}

// RelationshipCounts returns relationship counts grouped by type.
func (g *GraphStore) RelationshipCounts(ctx context.Context) (map[string]int64, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH ()-[r]->() RETURN type(r) AS type, count(*) AS count`
	result, err := sess.Run(ctx, cypher, nil)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64)
	for result.Next(ctx) {
		rec := result.Record()
		typ, _ := rec.Get("type")
		cnt, _ := rec.Get("count")
		if t, ok := typ.(string); ok {
			if c, ok := cnt.(int64); ok {
				counts[t] = c
			}
		}
	}
	return counts, nil
}

// DivisionRosters returns the top divisions by headcount, with their
// equipment counts.
func (g *GraphStore) DivisionRosters(ctx context.Context, limit int) ([]DivisionRoster, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (d:Division)
		OPTIONAL MATCH (p:Person)-[:MEMBER_OF]->(d)
		OPTIONAL MATCH (e:Equipment)-[:HOUSED_IN]->(d)
		RETURN d.name AS division, count(DISTINCT p) AS people, count(DISTINCT e) AS equipment
		ORDER BY people DESC, division LIMIT $limit`
	result, err := sess.Run(ctx, cypher, map[string]any{"limit": int64(limit)})
	if err != nil {
		return nil, err
	}
	var rosters []DivisionRoster
	for result.Next(ctx) {
		rec := result.Record()
		div, _ := rec.Get("division")
		people, _ := rec.Get("people")
		equip, _ := rec.Get("equipment")
		r := DivisionRoster{}
		if d, ok := div.(string); ok {
			r.Division = d
		}
		if p, ok := people.(int64); ok {
			r.People = p
		}
		if e, ok := equip.(int64); ok {
			r.Equipment = e
		}
		rosters = append(rosters, r)
	}
	return rosters, nil
}
