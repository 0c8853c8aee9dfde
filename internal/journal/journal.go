// Package journal records undo closures so a failed pool operation can be
// rolled back to the exact state it started from.
package journal

// Journal is not safe for concurrent use; the owning pool serializes access.
// A nil *Journal records nothing.
type Journal struct {
	undo []func()
}

func New() *Journal { return &Journal{} }

// Append registers fn to run on Revert.
func (j *Journal) Append(fn func()) {
	if j == nil {
		return
	}
	j.undo = append(j.undo, fn)
}

// Revert runs recorded closures newest first and clears the journal.
func (j *Journal) Revert() {
	if j == nil {
		return
	}
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = j.undo[:0]
}

// Discard forgets recorded closures, making the changes permanent.
func (j *Journal) Discard() {
	if j == nil {
		return
	}
	j.undo = j.undo[:0]
}

func (j *Journal) Len() int {
	if j == nil {
		return 0
	}
	return len(j.undo)
}
