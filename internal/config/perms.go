package config

import (
	"io/fs"
	"os"
)

// LoosePermissions reports whether the file at path is readable by group
// or other. Databases and key files should be 0600; a loose mode is worth
// a warning but never aborts a run.
func LoosePermissions(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.Mode().Perm()&(fs.FileMode(0044)) != 0, nil
}
