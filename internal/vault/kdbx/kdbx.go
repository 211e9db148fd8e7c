// Package kdbx implements the vault interfaces on top of KeePass KDBX
// files using gokeepasslib.
//
// The backend registers itself for the ".kdbx" extension; callers normally
// reach it through vault.Open():
//
//	import _ "github.com/jrabinow/kpsync/internal/vault/kdbx"
//
//	db, err := vault.Open("passwords.kdbx", creds)
//
// Entries and groups are addressed by index paths into the group tree
// rather than raw pointers. Group and entry slices are append-only for the
// lifetime of an open database, so index paths stay valid across
// EnsureGroup and AddEntry calls while pointers into the slices would not.
package kdbx

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tobischo/gokeepasslib/v3"
	w "github.com/tobischo/gokeepasslib/v3/wrappers"

	"github.com/jrabinow/kpsync/internal/vault"
)

func init() {
	vault.Register(".kdbx", Open)
}

// Database is a KDBX database opened through gokeepasslib.
type Database struct {
	path  string
	db    *gokeepasslib.Database
	dirty bool
}

// Open opens and decrypts the KDBX file at path.
//
// Returns an error wrapping vault.ErrUnlock if the credentials do not
// decrypt the file. File system errors (missing file, permissions) are
// returned as-is.
func Open(path string, creds vault.Credentials) (vault.Database, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dbCreds, err := makeCredentials(creds)
	if err != nil {
		return nil, err
	}

	db := gokeepasslib.NewDatabase()
	db.Credentials = dbCreds

	if err := gokeepasslib.NewDecoder(f).Decode(db); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", vault.ErrUnlock, path, err)
	}
	if err := db.UnlockProtectedEntries(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", vault.ErrUnlock, path, err)
	}

	return &Database{path: path, db: db}, nil
}

// Create builds a new, empty KDBX v4 database that will be written to
// path on the first Save. Used by tests and by `kpsync config init`
// walkthroughs; sync runs themselves never create databases.
func Create(path string, creds vault.Credentials) (*Database, error) {
	dbCreds, err := makeCredentials(creds)
	if err != nil {
		return nil, err
	}

	root := gokeepasslib.NewGroup()
	root.Name = "Root"

	db := gokeepasslib.NewDatabase(gokeepasslib.WithDatabaseKDBXVersion4())
	db.Credentials = dbCreds
	db.Content.Root = &gokeepasslib.RootData{Groups: []gokeepasslib.Group{root}}

	return &Database{path: path, db: db, dirty: true}, nil
}

// makeCredentials converts vault credentials into gokeepasslib form.
func makeCredentials(creds vault.Credentials) (*gokeepasslib.DBCredentials, error) {
	switch {
	case creds.KeyFile != "" && len(creds.Password) > 0:
		return gokeepasslib.NewPasswordAndKeyCredentials(string(creds.Password), creds.KeyFile)
	case creds.KeyFile != "":
		return gokeepasslib.NewKeyCredentials(creds.KeyFile)
	default:
		return gokeepasslib.NewPasswordCredentials(string(creds.Password)), nil
	}
}

// Path implements vault.Database.
func (d *Database) Path() string {
	return d.path
}

// Dirty implements vault.Database.
func (d *Database) Dirty() bool {
	return d.dirty
}

// rootGroup returns the database root group, creating it for databases
// that were saved without one.
func (d *Database) rootGroup() *gokeepasslib.Group {
	root := d.db.Content.Root
	if len(root.Groups) == 0 {
		g := gokeepasslib.NewGroup()
		g.Name = "Root"
		root.Groups = append(root.Groups, g)
		d.dirty = true
	}
	return &root.Groups[0]
}

// groupAt resolves an index path below the root group.
func (d *Database) groupAt(idx []int) *gokeepasslib.Group {
	g := d.rootGroup()
	for _, i := range idx {
		g = &g.Groups[i]
	}
	return g
}

// findGroup locates a folder path by name, returning its index path.
func (d *Database) findGroup(folder []string) ([]int, bool) {
	idx := make([]int, 0, len(folder))
	g := d.rootGroup()
	for _, name := range folder {
		found := false
		for i := range g.Groups {
			if g.Groups[i].Name == name {
				idx = append(idx, i)
				g = &g.Groups[i]
				found = true
				break
			}
		}
		if !found {
			return nil, false
		}
	}
	return idx, true
}

// Entries implements vault.Database.
func (d *Database) Entries() []vault.Entry {
	var out []vault.Entry
	d.walk(d.rootGroup(), nil, &out)
	return out
}

func (d *Database) walk(g *gokeepasslib.Group, idx []int, out *[]vault.Entry) {
	for i := range g.Entries {
		*out = append(*out, &entry{db: d, groupIdx: append([]int(nil), idx...), index: i})
	}
	for i := range g.Groups {
		d.walk(&g.Groups[i], append(idx, i), out)
	}
}

// EnsureGroup implements vault.Database.
func (d *Database) EnsureGroup(folder []string) error {
	g := d.rootGroup()
	for _, name := range folder {
		next := -1
		for i := range g.Groups {
			if g.Groups[i].Name == name {
				next = i
				break
			}
		}
		if next == -1 {
			ng := gokeepasslib.NewGroup()
			ng.Name = name
			g.Groups = append(g.Groups, ng)
			next = len(g.Groups) - 1
			d.dirty = true
		}
		g = &g.Groups[next]
	}
	return nil
}

// AddEntry implements vault.Database.
func (d *Database) AddEntry(folder []string, fields map[string]string, modified time.Time) (vault.Entry, error) {
	idx, ok := d.findGroup(folder)
	if !ok {
		return nil, fmt.Errorf("%w: %q in %s", vault.ErrGroupNotFound, folder, d.path)
	}
	g := d.groupAt(idx)

	e := gokeepasslib.NewEntry()
	for name, value := range fields {
		setValue(&e, name, value)
	}
	mt := w.TimeWrapper{Time: modified}
	e.Times.LastModificationTime = &mt

	g.Entries = append(g.Entries, e)
	d.dirty = true

	return &entry{db: d, groupIdx: idx, index: len(g.Entries) - 1}, nil
}

// Save implements vault.Database. The file is written to a temporary
// sibling and renamed into place so a failed encode never clobbers the
// original database.
func (d *Database) Save() error {
	if err := d.db.LockProtectedEntries(); err != nil {
		return fmt.Errorf("%w: %s: %w", vault.ErrPersist, d.path, err)
	}
	// Keep the in-memory copy usable regardless of the outcome below.
	defer func() { _ = d.db.UnlockProtectedEntries() }()

	dir := filepath.Dir(d.path)
	tmp, err := os.CreateTemp(dir, ".kpsync-*.kdbx")
	if err != nil {
		return fmt.Errorf("%w: %s: %w", vault.ErrPersist, d.path, err)
	}
	tmpPath := tmp.Name()

	if err := gokeepasslib.NewEncoder(tmp).Encode(d.db); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %s: %w", vault.ErrPersist, d.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %s: %w", vault.ErrPersist, d.path, err)
	}

	if err := os.Chmod(tmpPath, 0600); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %s: %w", vault.ErrPersist, d.path, err)
	}
	if err := os.Rename(tmpPath, d.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %s: %w", vault.ErrPersist, d.path, err)
	}

	d.dirty = false
	return nil
}

// setValue updates or appends a string value on a raw gokeepasslib entry.
// Password values carry the KDBX protected bit.
func setValue(e *gokeepasslib.Entry, name, value string) {
	for i := range e.Values {
		if e.Values[i].Key == name {
			e.Values[i].Value.Content = value
			return
		}
	}
	protected := name == vault.FieldPassword
	e.Values = append(e.Values, gokeepasslib.ValueData{
		Key: name,
		Value: gokeepasslib.V{
			Content:   value,
			Protected: w.NewBoolWrapper(protected),
		},
	})
}
