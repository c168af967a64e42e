package driver

const personColumns = `id, given_name, family_name, birth_date, metadata, created_at, updated_at`

// Persons are ordered with missing names sorting as empty strings.
const personOrder = `ifnull(p.family_name, ''), ifnull(p.given_name, ''), p.id`

const (
	sqlUpsertPerson = `
		INSERT INTO persons (` + personColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			given_name = excluded.given_name,
			family_name = excluded.family_name,
			birth_date = excluded.birth_date,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`

	sqlPersonIDs = `SELECT id FROM persons ORDER BY id`

	sqlInsertEdge = `INSERT OR IGNORE INTO relationships (parent_id, child_id) VALUES (?, ?)`

	sqlEdges = `SELECT parent_id, child_id FROM relationships ORDER BY parent_id, child_id`

	sqlDeleteClosure = `DELETE FROM closure`

	sqlInsertClosure = `INSERT INTO closure (ancestor_id, descendant_id, depth) VALUES (?, ?, ?)`

	sqlClosureEntries = `SELECT ancestor_id, descendant_id, depth FROM closure ORDER BY ancestor_id, descendant_id`

	sqlGetPerson = `SELECT ` + personColumns + ` FROM persons WHERE id = ?`

	sqlParents = `
		SELECT p.id, p.given_name, p.family_name, p.birth_date, p.metadata, p.created_at, p.updated_at
		FROM persons AS p
		JOIN relationships AS r ON p.id = r.parent_id
		WHERE r.child_id = ?
		ORDER BY ` + personOrder

	sqlChildren = `
		SELECT p.id, p.given_name, p.family_name, p.birth_date, p.metadata, p.created_at, p.updated_at
		FROM persons AS p
		JOIN relationships AS r ON p.id = r.child_id
		WHERE r.parent_id = ?
		ORDER BY ` + personOrder

	sqlDescendants = `
		SELECT p.id, p.given_name, p.family_name, p.birth_date, p.metadata, p.created_at, p.updated_at, c.depth
		FROM closure AS c
		JOIN persons AS p ON p.id = c.descendant_id
		WHERE c.ancestor_id = ? AND c.depth > 0
		ORDER BY c.depth, ` + personOrder

	sqlAncestors = `
		SELECT p.id, p.given_name, p.family_name, p.birth_date, p.metadata, p.created_at, p.updated_at, c.depth
		FROM closure AS c
		JOIN persons AS p ON p.id = c.ancestor_id
		WHERE c.descendant_id = ? AND c.depth > 0
		ORDER BY c.depth, ` + personOrder

	sqlSearch = `
		SELECT p.id, p.given_name, p.family_name, p.birth_date
		FROM persons AS p
		WHERE lower(ifnull(p.given_name, '')) LIKE ? ESCAPE '\'
		   OR lower(ifnull(p.family_name, '')) LIKE ? ESCAPE '\'
		   OR lower(ifnull(p.metadata, '')) LIKE ? ESCAPE '\'
		ORDER BY ` + personOrder + `
		LIMIT ?`

	sqlCountPersons = `SELECT COUNT(*) FROM persons`

	sqlSaveDataset = `
		INSERT INTO dataset (id, payload, run_id, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			payload = excluded.payload,
			run_id = excluded.run_id,
			updated_at = excluded.updated_at
	`

	sqlLoadDataset = `SELECT id, payload, run_id, updated_at FROM dataset WHERE id = ?`
)

// Clear order respects foreign keys.
var sqlClear = []string{
	`DELETE FROM closure`,
	`DELETE FROM relationships`,
	`DELETE FROM persons`,
	`DELETE FROM dataset`,
}
