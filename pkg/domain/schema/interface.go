// Package schema is the versioned schema of the archive database.
package schema

import kschema "github.com/fitsarchive/calassoc/pkg/domain/schema/db"

type Interface interface {
	Database() kschema.SchemaInterface
}

type schema struct {
	db kschema.SchemaInterface
}

func New(db kschema.SchemaInterface) Interface {
	return &schema{db: db}
}

func (s *schema) Database() kschema.SchemaInterface {
	return s.db
}
