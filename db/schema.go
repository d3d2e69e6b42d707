// ABOUTME: Database schema definitions and initialization
// ABOUTME: One documents table keyed by namespace, collection, and id
package db

import (
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	namespace TEXT NOT NULL,
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	body TEXT NOT NULL CHECK(json_valid(body)),
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (namespace, collection, id)
);

CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(namespace, collection);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
