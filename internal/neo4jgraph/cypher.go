package neo4jgraph

import (
	"fmt"

	"github.com/rohankatakam/grin/internal/catalog"
	gerrors "github.com/rohankatakam/grin/internal/errors"
)

// Label every vertex node carries next to its type label
const vertexLabel = "GrinVertex"

// catalogLabel marks the node holding the encoded schema
const catalogLabel = "_GrinCatalog"

// Bookkeeping keys on nodes and relationships. User property names cannot
// collide with them because the catalog rejects the grin_ prefix.
const (
	keyVID   = "grin_vid"
	keyVType = "grin_vtype"
	keyOID   = "grin_oid"
	keyEID   = "grin_eid"
	keyRow   = "grin_row"
	keySrc   = "grin_src"
	keyDst   = "grin_dst"
)

// CypherBuilder builds parameterized Cypher. Values always travel as
// parameters; only validated identifiers are spliced into the text.
type CypherBuilder struct {
	params  map[string]any
	counter int
}

func NewCypherBuilder() *CypherBuilder {
	return &CypherBuilder{params: make(map[string]any)}
}

// AddParam adds a parameter and returns its placeholder
func (b *CypherBuilder) AddParam(value any) string {
	name := fmt.Sprintf("p%d", b.counter)
	b.counter++
	b.params[name] = value
	return "$" + name
}

// Params returns all parameters for the query
func (b *CypherBuilder) Params() map[string]any {
	return b.params
}

// Label quotes a type name for use as a node label or relationship type
func Label(name string) (string, error) {
	if !catalog.IsValidIdentifier(name) {
		return "", gerrors.ValidationErrorf("invalid label %q (must be alphanumeric + underscore)", name)
	}
	return "`" + name + "`", nil
}

// BuildCreateVertices creates one node per element of the rows parameter.
// Each row is a complete property map.
func (b *CypherBuilder) BuildCreateVertices(typeName string, rows []map[string]any) (string, error) {
	label, err := Label(typeName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`
		UNWIND %s AS row
		CREATE (n:%s:%s)
		SET n = row
		RETURN count(n) AS created
	`, b.AddParam(rows), vertexLabel, label), nil
}

// BuildCreateEdges connects existing vertices by handle. Each row holds src,
// dst and the relationship's property map under props.
func (b *CypherBuilder) BuildCreateEdges(typeName string, rows []map[string]any) (string, error) {
	rel, err := Label(typeName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`
		UNWIND %s AS row
		MATCH (s:%s {%s: row.src})
		MATCH (d:%s {%s: row.dst})
		CREATE (s)-[r:%s]->(d)
		SET r = row.props
		RETURN count(r) AS created
	`, b.AddParam(rows), vertexLabel, keyVID, vertexLabel, keyVID, rel), nil
}

// BuildMatchEdge finds one relationship of a type by handle
func (b *CypherBuilder) BuildMatchEdge(typeName string, eid int64) (string, error) {
	rel, err := Label(typeName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("MATCH ()-[r:%s {%s: %s}]->() RETURN r", rel, keyEID, b.AddParam(eid)), nil
}

// BuildListEdges returns the row numbers of all relationships of a type
func (b *CypherBuilder) BuildListEdges(typeName string) (string, error) {
	rel, err := Label(typeName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("MATCH ()-[r:%s]->() RETURN r.%s AS row ORDER BY row", rel, keyRow), nil
}

// BuildCountEdges counts relationships of a type
func (b *CypherBuilder) BuildCountEdges(typeName string) (string, error) {
	rel, err := Label(typeName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("MATCH ()-[r:%s]->() RETURN count(r) AS n", rel), nil
}

// BuildNextEdgeRow returns the first unused row of a relationship type
func (b *CypherBuilder) BuildNextEdgeRow(typeName string) (string, error) {
	rel, err := Label(typeName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("MATCH ()-[r:%s]->() RETURN coalesce(max(r.%s) + 1, 0) AS n", rel, keyRow), nil
}

// BuildEdgeIndex indexes the handle of one relationship type
func BuildEdgeIndex(typeName string) (string, error) {
	rel, err := Label(typeName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("CREATE INDEX %s IF NOT EXISTS FOR ()-[r:%s]-() ON (r.%s)",
		"grin_eid_"+typeName, rel, keyEID), nil
}

// schemaStatements are run once per Open
var schemaStatements = []string{
	fmt.Sprintf("CREATE CONSTRAINT grin_vid IF NOT EXISTS FOR (n:%s) REQUIRE n.%s IS UNIQUE", vertexLabel, keyVID),
	fmt.Sprintf("CREATE CONSTRAINT grin_oid IF NOT EXISTS FOR (n:%s) REQUIRE n.%s IS UNIQUE", vertexLabel, keyOID),
	fmt.Sprintf("CREATE INDEX grin_vtype IF NOT EXISTS FOR (n:%s) ON (n.%s)", vertexLabel, keyVType),
}
