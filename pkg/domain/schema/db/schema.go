package db

import "context"

// SchemaInterface manages versions of the database schema.
//
// Versions are positive integers. 0 means no schema is installed.
type SchemaInterface interface {
	// Upgrade installs versions newer than the database's, in order.
	Upgrade(ctx context.Context) error

	// Version is the version installed in the database.
	Version(ctx context.Context) (int, error)

	// Latest is the newest version in the schema repository.
	Latest(ctx context.Context) (int, error)

	// Context derives a context which is canceled when the database gets
	// a version different from the one when this is called.
	//
	// Long-running processes stop with it, so that they restart with new
	// binaries for the new schema.
	Context(ctx context.Context) (context.Context, context.CancelFunc)
}
