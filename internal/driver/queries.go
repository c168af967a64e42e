package driver

// Cypher used by the Memgraph backend. Persons are (:Person) nodes, edges are
// [:PARENT_OF] and closure rows are [:ANCESTOR_OF {depth}] including self
// loops at depth 0.

var memgraphIndexQueries = []string{
	"CREATE INDEX ON :Person(id);",
	"CREATE INDEX ON :Person(family_name);",
	"CREATE INDEX ON :Person(given_name);",
	"CREATE INDEX ON :Dataset(id);",
	"CREATE CONSTRAINT ON (p:Person) ASSERT p.id IS UNIQUE;",
}

const personProjection = `
		p.id AS id,
		p.given_name AS given_name,
		p.family_name AS family_name,
		p.birth_date AS birth_date,
		p.metadata AS metadata,
		p.created_at AS created_at,
		p.updated_at AS updated_at`

const personOrdering = `coalesce(family_name, ''), coalesce(given_name, ''), id`

const (
	UpsertPersonsQuery = `
		UNWIND $persons AS row
		MERGE (p:Person {id: row.id})
		ON CREATE SET p.created_at = row.now
		SET p.given_name = row.given_name,
			p.family_name = row.family_name,
			p.birth_date = row.birth_date,
			p.metadata = row.metadata,
			p.updated_at = row.now
	`

	PersonIDsQuery = `
		MATCH (p:Person)
		RETURN p.id AS id
		ORDER BY id
	`

	InsertEdgesQuery = `
		UNWIND $edges AS row
		MATCH (a:Person {id: row.parent}), (b:Person {id: row.child})
		OPTIONAL MATCH (a)-[existing:PARENT_OF]->(b)
		WITH a, b, existing
		WHERE existing IS NULL
		CREATE (a)-[:PARENT_OF]->(b)
		RETURN count(*) AS stored
	`

	EdgesQuery = `
		MATCH (a:Person)-[:PARENT_OF]->(b:Person)
		RETURN a.id AS parent, b.id AS child
		ORDER BY parent, child
	`

	DeleteClosureQuery = `
		MATCH (:Person)-[c:ANCESTOR_OF]->(:Person)
		DELETE c
	`

	InsertClosureQuery = `
		UNWIND $entries AS row
		MATCH (a:Person {id: row.ancestor}), (d:Person {id: row.descendant})
		CREATE (a)-[:ANCESTOR_OF {depth: row.depth}]->(d)
		RETURN count(*) AS written
	`

	ClosureEntriesQuery = `
		MATCH (a:Person)-[c:ANCESTOR_OF]->(d:Person)
		RETURN a.id AS ancestor, d.id AS descendant, c.depth AS depth
		ORDER BY ancestor, descendant
	`

	ClearPersonsQuery = `
		MATCH (p:Person)
		DETACH DELETE p
	`

	ClearDatasetQuery = `
		MATCH (d:Dataset)
		DELETE d
	`

	GetPersonQuery = `
		MATCH (p:Person {id: $id})
		RETURN` + personProjection

	ParentsQuery = `
		MATCH (p:Person)-[:PARENT_OF]->(:Person {id: $id})
		RETURN` + personProjection + `
		ORDER BY ` + personOrdering

	ChildrenQuery = `
		MATCH (:Person {id: $id})-[:PARENT_OF]->(p:Person)
		RETURN` + personProjection + `
		ORDER BY ` + personOrdering

	DescendantsQuery = `
		MATCH (:Person {id: $id})-[c:ANCESTOR_OF]->(p:Person)
		WHERE c.depth > 0
		RETURN` + personProjection + `,
		c.depth AS depth
		ORDER BY depth, ` + personOrdering

	AncestorsQuery = `
		MATCH (p:Person)-[c:ANCESTOR_OF]->(:Person {id: $id})
		WHERE c.depth > 0
		RETURN` + personProjection + `,
		c.depth AS depth
		ORDER BY depth, ` + personOrdering

	SearchPersonsQuery = `
		MATCH (p:Person)
		WHERE toLower(coalesce(p.given_name, '')) CONTAINS $q
		   OR toLower(coalesce(p.family_name, '')) CONTAINS $q
		   OR toLower(coalesce(p.metadata, '')) CONTAINS $q
		RETURN p.id AS id,
			p.given_name AS given_name,
			p.family_name AS family_name,
			p.birth_date AS birth_date
		ORDER BY ` + personOrdering + `
		LIMIT $limit
	`

	CountPersonsQuery = `
		MATCH (p:Person)
		RETURN count(p) AS n
	`

	SaveDatasetQuery = `
		MERGE (d:Dataset {id: $id})
		SET d.payload = $payload,
			d.run_id = $run_id,
			d.updated_at = $updated_at
	`

	LoadDatasetQuery = `
		MATCH (d:Dataset {id: $id})
		RETURN d.id AS id, d.payload AS payload, d.run_id AS run_id, d.updated_at AS updated_at
	`
)
