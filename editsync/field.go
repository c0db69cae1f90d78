package editsync

import "strings"

// Field is a single editable value in a settings table.
type Field struct {
	// Namespace groups keys on the server. An empty namespace routes edits to the default collection endpoint.
	Namespace string

	// Name is the key within the namespace.
	Name string

	// Value is the content of the field at the time of the commit.
	Value string
}

// Column positions of a Row.
const (
	NamespaceColumn = 0
	KeyColumn       = 1
	ValueColumn     = 2
)

// Row is a settings table row addressed by position, for tables where every cell is editable.
// Cells hold the namespace, key and value, in that order. Any further cells are display-only.
type Row struct {
	Cells []string
}

// FieldAt resolves a commit in the given column into a Field.
// Only commits in the value column are edits; ok is false for every other column.
// A row always names its namespace, so ok is also false when the namespace cell is blank.
func (r Row) FieldAt(column int) (f Field, ok bool) {
	if column != ValueColumn || len(r.Cells) <= ValueColumn {
		return Field{}, false
	}
	if strings.TrimSpace(r.Cells[NamespaceColumn]) == "" {
		return Field{}, false
	}

	return Field{
		Namespace: r.Cells[NamespaceColumn],
		Name:      r.Cells[KeyColumn],
		Value:     r.Cells[ValueColumn],
	}, true
}
