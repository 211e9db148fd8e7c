package sync

import (
	"errors"
	"slices"
	"time"

	"github.com/jrabinow/kpsync/internal/vault"
)

// fakeDB is an in-memory vault.Database for engine tests.
type fakeDB struct {
	path    string
	entries []*fakeEntry
	groups  [][]string
	dirty   bool
	saves   int
	saveErr error
}

func newFakeDB(path string) *fakeDB {
	return &fakeDB{path: path}
}

func (d *fakeDB) add(title string, folder []string, modified time.Time, fields map[string]string) *fakeEntry {
	e := &fakeEntry{
		db:       d,
		title:    title,
		folder:   folder,
		modified: modified,
		fields:   make(map[string]string, len(fields)),
	}
	for k, v := range fields {
		e.fields[k] = v
	}
	d.entries = append(d.entries, e)
	return e
}

func (d *fakeDB) Path() string { return d.path }

func (d *fakeDB) Entries() []vault.Entry {
	out := make([]vault.Entry, len(d.entries))
	for i, e := range d.entries {
		out[i] = e
	}
	return out
}

func (d *fakeDB) EnsureGroup(folder []string) error {
	for _, g := range d.groups {
		if slices.Equal(g, folder) {
			return nil
		}
	}
	d.groups = append(d.groups, slices.Clone(folder))
	d.dirty = true
	return nil
}

func (d *fakeDB) AddEntry(folder []string, fields map[string]string, modified time.Time) (vault.Entry, error) {
	title, ok := fields[vault.FieldTitle]
	if !ok {
		return nil, errors.New("fake: entry without title")
	}
	e := d.add(title, slices.Clone(folder), modified, fields)
	d.dirty = true
	return e, nil
}

func (d *fakeDB) Dirty() bool { return d.dirty }

func (d *fakeDB) Save() error {
	d.saves++
	if d.saveErr != nil {
		return d.saveErr
	}
	d.dirty = false
	return nil
}

type fakeEntry struct {
	db       *fakeDB
	title    string
	folder   []string
	modified time.Time
	fields   map[string]string
}

func (e *fakeEntry) Title() string         { return e.title }
func (e *fakeEntry) FolderPath() []string  { return e.folder }
func (e *fakeEntry) Modified() time.Time   { return e.modified }

func (e *fakeEntry) Fields() map[string]string {
	out := make(map[string]string, len(e.fields))
	for k, v := range e.fields {
		out[k] = v
	}
	return out
}

func (e *fakeEntry) Field(name string) (string, bool) {
	v, ok := e.fields[name]
	return v, ok
}

func (e *fakeEntry) SetField(name, value string) {
	e.fields[name] = value
	if name == vault.FieldTitle {
		e.title = value
	}
	e.modified = time.Now()
	e.db.dirty = true
}

func (e *fakeEntry) Secret(name string) bool {
	return name == vault.FieldPassword
}
