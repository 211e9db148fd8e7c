package kdbx

import (
	"time"

	"github.com/tobischo/gokeepasslib/v3"
	w "github.com/tobischo/gokeepasslib/v3/wrappers"

	"github.com/jrabinow/kpsync/internal/vault"
)

// entry addresses one KDBX entry by its position in the group tree.
// Resolution happens on every access so the reference survives later
// appends to the tree (see the package comment).
type entry struct {
	db       *Database
	groupIdx []int
	index    int
}

func (e *entry) node() *gokeepasslib.Entry {
	g := e.db.groupAt(e.groupIdx)
	return &g.Entries[e.index]
}

// Title implements vault.Entry.
func (e *entry) Title() string {
	return e.node().GetTitle()
}

// FolderPath implements vault.Entry.
func (e *entry) FolderPath() []string {
	folder := make([]string, 0, len(e.groupIdx))
	g := e.db.rootGroup()
	for _, i := range e.groupIdx {
		g = &g.Groups[i]
		folder = append(folder, g.Name)
	}
	return folder
}

// Modified implements vault.Entry.
func (e *entry) Modified() time.Time {
	times := e.node().Times
	if times.LastModificationTime == nil {
		return time.Time{}
	}
	return times.LastModificationTime.Time
}

// Fields implements vault.Entry. Every string value of the entry is a
// field; UUID, timestamps, and history are not part of the value list and
// therefore never leak into the map.
func (e *entry) Fields() map[string]string {
	node := e.node()
	fields := make(map[string]string, len(node.Values))
	for _, v := range node.Values {
		fields[v.Key] = v.Value.Content
	}
	return fields
}

// Field implements vault.Entry.
func (e *entry) Field(name string) (string, bool) {
	if v := e.node().Get(name); v != nil {
		return v.Value.Content, true
	}
	return "", false
}

// SetField implements vault.Entry.
func (e *entry) SetField(name, value string) {
	node := e.node()
	setValue(node, name, value)
	mt := w.TimeWrapper{Time: time.Now()}
	node.Times.LastModificationTime = &mt
	e.db.dirty = true
}

// Secret implements vault.Entry.
func (e *entry) Secret(name string) bool {
	if v := e.node().Get(name); v != nil {
		return v.Value.Protected.Bool
	}
	return name == vault.FieldPassword
}
