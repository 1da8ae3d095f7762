// Package featgen builds a small synthetic per-user feature table and writes
// it as CSV. The cmd package wraps it in a CLI; app adds paths, logging and
// metrics around the same two calls.
package featgen

import (
	"github.com/TFMV/featgen/generator"
	"github.com/TFMV/featgen/storage"
	"github.com/TFMV/featgen/table"
)

// Generate returns nUsers rows drawn from a generator seeded with seed.
// The same arguments always produce the same table. The caller must Release it.
func Generate(nUsers int, seed int64) (*table.Table, error) {
	return generator.Generate(generator.Config{NUsers: nUsers, Seed: seed})
}

// Write saves t as CSV at path, creating parent directories and replacing
// any existing file.
func Write(t *table.Table, path string) error {
	_, err := storage.Save(t, path, storage.CSV)
	return err
}
