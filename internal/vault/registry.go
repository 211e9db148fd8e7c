package vault

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// Opener opens and decrypts a database file with the given credentials.
// Backends register themselves with Register().
type Opener func(path string, creds Credentials) (Database, error)

// registry maps lowercase file extensions (".kdbx") to backend openers.
var (
	registry      = make(map[string]Opener)
	registryMutex sync.RWMutex
)

// Register registers a backend opener for a file extension.
// This is called from init() functions in backend packages.
//
// Example:
//
//	func init() {
//	    vault.Register(".kdbx", Open)
//	}
func Register(ext string, opener Opener) {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if opener == nil {
		panic(fmt.Sprintf("vault: Register opener is nil for %s", ext))
	}

	ext = strings.ToLower(ext)
	if _, exists := registry[ext]; exists {
		panic(fmt.Sprintf("vault: Register called twice for %s", ext))
	}

	registry[ext] = opener
}

// RegisteredFormats returns the extensions of all registered backends.
// Useful for error messages and debugging.
func RegisteredFormats() []string {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	exts := make([]string, 0, len(registry))
	for ext := range registry {
		exts = append(exts, ext)
	}
	return exts
}

// Open opens the database at path, choosing the backend by file extension.
// Returns ErrUnknownFormat if no backend claims the extension.
func Open(path string, creds Credentials) (Database, error) {
	ext := strings.ToLower(filepath.Ext(path))

	registryMutex.RLock()
	opener := registry[ext]
	registryMutex.RUnlock()

	if opener == nil {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrUnknownFormat, ext, RegisteredFormats())
	}
	return opener(path, creds)
}
