package graph

import (
	"context"
	"fmt"

	"github.com/SiteSageAI/sitesage-mvp/pkg/repo"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// CypherResult is the minimal read surface of a neo4j result.
type CypherResult interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
}

// CypherRunner runs a single cypher statement.
type CypherRunner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (CypherResult, error)
}

// CypherSession is the minimal surface of a neo4j session.
type CypherSession interface {
	CypherRunner
	ExecuteWrite(ctx context.Context, work func(tx CypherRunner) (any, error)) (any, error)
	Close(ctx context.Context) error
}

// SessionOpener opens sessions; satisfied by the driver adapter in
// production and by mocks in tests.
type SessionOpener interface {
	OpenSession(ctx context.Context) CypherSession
}

// driverOpener adapts neo4j.DriverWithContext to SessionOpener.
type driverOpener struct {
	driver neo4j.DriverWithContext
}

func (o driverOpener) OpenSession(ctx context.Context) CypherSession {
	return driverSession{sess: o.driver.NewSession(ctx, neo4j.SessionConfig{})}
}

type driverSession struct {
	sess neo4j.SessionWithContext
}

func (s driverSession) Run(ctx context.Context, cypher string, params map[string]any) (CypherResult, error) {
	res, err := s.sess.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s driverSession) ExecuteWrite(ctx context.Context, work func(tx CypherRunner) (any, error)) (any, error) {
	return s.sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return work(managedRunner{tx: tx})
	})
}

func (s driverSession) Close(ctx context.Context) error { return s.sess.Close(ctx) }

type managedRunner struct {
	tx neo4j.ManagedTransaction
}

func (r managedRunner) Run(ctx context.Context, cypher string, params map[string]any) (CypherResult, error) {
	res, err := r.tx.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// GraphStore provides directory graph operations on top of the generic
// Neo4j repository.
type GraphStore struct {
	opener  SessionOpener
	persons *repo.Neo4jRepo[Person, string]
}

// New creates a new GraphStore from a neo4j driver.
func New(driver neo4j.DriverWithContext) *GraphStore {
	return &GraphStore{
		opener:  driverOpener{driver: driver},
		persons: newPersonRepo(driver),
	}
}

// NewWithOpener creates a GraphStore with an injected session opener.
// The person repository is unavailable in this mode; tests exercise the
// cypher surface directly.
func NewWithOpener(opener SessionOpener) *GraphStore {
	return &GraphStore{opener: opener}
}

// GetPerson returns a person node by ID.
func (g *GraphStore) GetPerson(ctx context.Context, id string) (Person, error) {
	return g.persons.Get(ctx, id)
}

// SaveDivision creates or updates a Division node.
func (g *GraphStore) SaveDivision(ctx context.Context, d Division) error {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MERGE (n:Division {id: $id}) SET n.name = $name`
	_, err := sess.Run(ctx, cypher, map[string]any{
		"id":   d.ID,
		"name": d.Name,
	})
	return err
}

// SavePerson creates or updates a Person node and links it to every
// division it belongs to. The primary division edge carries primary=true.
func (g *GraphStore) SavePerson(ctx context.Context, p Person) error {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	_, err := sess.ExecuteWrite(ctx, func(tx CypherRunner) (any, error) {
		return nil, savePersonTx(ctx, tx, p)
	})
	return err
}

// SaveEquipment creates or updates an Equipment node and links it to its
// division.
func (g *GraphStore) SaveEquipment(ctx context.Context, e Equipment) error {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	_, err := sess.ExecuteWrite(ctx, func(tx CypherRunner) (any, error) {
		return nil, saveEquipmentTx(ctx, tx, e)
	})
	return err
}

// PeopleOfDivision returns all people linked to a division, matched by
// canonical division ID.
func (g *GraphStore) PeopleOfDivision(ctx context.Context, division string) ([]Person, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (p:Person)-[:MEMBER_OF]->(d:Division {id: $id}) RETURN p AS n`
	result, err := sess.Run(ctx, cypher, map[string]any{"id": DivisionID(division)})
	if err != nil {
		return nil, err
	}
	return collectPersons(ctx, result)
}

// EquipmentOfDivision returns all equipment housed in a division.
func (g *GraphStore) EquipmentOfDivision(ctx context.Context, division string) ([]Equipment, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (e:Equipment)-[:HOUSED_IN]->(d:Division {id: $id}) RETURN e AS n`
	result, err := sess.Run(ctx, cypher, map[string]any{"id": DivisionID(division)})
	if err != nil {
		return nil, err
	}
	return collectEquipment(ctx, result)
}

// savePersonTx merges a Person node and its MEMBER_OF edges inside an
// open transaction.
func savePersonTx(ctx context.Context, tx CypherRunner, p Person) error {
	cypher := `MERGE (n:Person {id: $id}) SET n += $props`
	if _, err := tx.Run(ctx, cypher, map[string]any{
		"id":    p.ID,
		"props": personToMap(p),
	}); err != nil {
		return err
	}

	divisions := p.Divisions
	if len(divisions) == 0 && p.Division != "" {
		divisions = []string{p.Division}
	}
	for _, div := range divisions {
		cypher = `MERGE (d:Division {id: $divID}) ON CREATE SET d.name = $divName
		          WITH d
		          MATCH (p:Person {id: $id})
		          MERGE (p)-[r:MEMBER_OF]->(d)
		          SET r.primary = $primary`
		if _, err := tx.Run(ctx, cypher, map[string]any{
			"id":      p.ID,
			"divID":   DivisionID(div),
			"divName": div,
			"primary": div == p.Division,
		}); err != nil {
			return err
		}
	}
	return nil
}

// saveEquipmentTx merges an Equipment node and its HOUSED_IN edge inside
// an open transaction.
func saveEquipmentTx(ctx context.Context, tx CypherRunner, e Equipment) error {
	cypher := `MERGE (n:Equipment {id: $id}) SET n += $props`
	if _, err := tx.Run(ctx, cypher, map[string]any{
		"id":    e.ID,
		"props": equipmentToMap(e),
	}); err != nil {
		return err
	}

	if e.Division == "" {
		return nil
	}
	cypher = `MERGE (d:Division {id: $divID}) ON CREATE SET d.name = $divName
	          WITH d
	          MATCH (e:Equipment {id: $id})
	          MERGE (e)-[:HOUSED_IN]->(d)`
	_, err := tx.Run(ctx, cypher, map[string]any{
		"id":      e.ID,
		"divID":   DivisionID(e.Division),
		"divName": e.Division,
	})
	return err
}

// collectPersons reads all Person nodes from a result set.
func collectPersons(ctx context.Context, result CypherResult) ([]Person, error) {
	var items []Person
	for result.Next(ctx) {
		props, err := nodeProps(result.Record())
		if err != nil {
			return nil, err
		}
		items = append(items, personFromProps(props))
	}
	return items, nil
}

// collectEquipment reads all Equipment nodes from a result set.
func collectEquipment(ctx context.Context, result CypherResult) ([]Equipment, error) {
	var items []Equipment
	for result.Next(ctx) {
		props, err := nodeProps(result.Record())
		if err != nil {
			return nil, err
		}
		items = append(items, equipmentFromProps(props))
	}
	return items, nil
}

// nodeProps extracts node properties from the "n" column. Mocks may
// return a raw property map instead of a dbtype.Node.
func nodeProps(rec *neo4j.Record) (map[string]any, error) {
	val, ok := rec.Get("n")
	if !ok {
		return nil, fmt.Errorf("graph: result record has no node column")
	}
	switch n := val.(type) {
	case dbtype.Node:
		return n.Props, nil
	case map[string]any:
		return n, nil
	}
	return nil, fmt.Errorf("graph: unexpected node type %T", val)
}

// personFromProps constructs a Person from node properties.
func personFromProps(props map[string]any) Person {
	return Person{
		ID:          strProp(props, "id"),
		Name:        strProp(props, "name"),
		Title:       strProp(props, "title"),
		Designation: strProp(props, "designation"),
		Email:       strProp(props, "email"),
		Mobile:      strProp(props, "mobile"),
		Division:    strProp(props, "division"),
		Divisions:   strSliceProp(props, "divisions"),
		SourceType:  strProp(props, "source_type"),
	}
}

// equipmentFromProps constructs an Equipment from node properties.
func equipmentFromProps(props map[string]any) Equipment {
	return Equipment{
		ID:       strProp(props, "id"),
		Name:     strProp(props, "name"),
		Division: strProp(props, "division"),
		Make:     strProp(props, "make"),
		Model:    strProp(props, "model"),
	}
}

func strProp(props map[string]any, key string) string {
	if v, ok := props[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// strSliceProp reads a list property; neo4j returns lists as []any.
func strSliceProp(props map[string]any, key string) []string {
	v, ok := props[key]
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
