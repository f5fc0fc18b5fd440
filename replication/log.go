package replication

// Entry is a single replicated value and the term it was created in
type Entry struct {
	Term  int    `json:"term"`
	Value string `json:"value"`
}

// Log is a 1-indexed sequence of entries. Index 0 is the position before the
// first entry and always has term 0.
//
// Log is not safe for concurrent use, the owning node serializes access.
type Log struct {
	entries []Entry
}

// NewLog creates a log holding a copy of entries
func NewLog(entries ...Entry) *Log {
	l := &Log{}
	l.Append(entries...)
	return l
}

// Len is the index of the last entry
func (l *Log) Len() int {
	return len(l.entries)
}

// TermAt returns the term of the entry at index, or 0 when index is outside the log
func (l *Log) TermAt(index int) int {
	if index < 1 || index > len(l.entries) {
		return 0
	}
	return l.entries[index-1].Term
}

// LastTerm is the term of the last entry
func (l *Log) LastTerm() int {
	return l.TermAt(len(l.entries))
}

// Append will just add to the entries
func (l *Log) Append(entries ...Entry) {
	l.entries = append(l.entries, entries...)
}

// Slice returns a copy of the entries after index from, up to and including index to
func (l *Log) Slice(from, to int) []Entry {
	if from < 0 {
		from = 0
	}
	if to > len(l.entries) {
		to = len(l.entries)
	}
	if from >= to {
		return []Entry{}
	}

	out := make([]Entry, to-from)
	copy(out, l.entries[from:to])
	return out
}

// Entries returns a copy of the whole log
func (l *Log) Entries() []Entry {
	return l.Slice(0, len(l.entries))
}

// TruncateFrom drops the entry at index and everything after it
func (l *Log) TruncateFrom(index int) {
	if index < 1 {
		index = 1
	}
	if index > len(l.entries) {
		return
	}
	l.entries = l.entries[:index-1]
}

// Matches is the AppendEntries consistency check: the log holds an entry at
// prevIndex with prevTerm, or prevIndex is the sentinel 0.
func (l *Log) Matches(prevIndex, prevTerm int) bool {
	if prevIndex == 0 {
		return true
	}
	return prevIndex <= len(l.entries) && l.TermAt(prevIndex) == prevTerm
}

// Reconcile writes entries after prevIndex. An entry whose position already
// holds the same term is kept; the first mismatch trims the rest of the log
// before appending. It returns the index of the last entry written.
//
// Callers must check Matches first.
func (l *Log) Reconcile(prevIndex int, entries []Entry) int {
	index := prevIndex
	for _, e := range entries {
		index++
		if l.TermAt(index) == e.Term {
			continue
		}

		// Trim off any conflicting entries
		l.TruncateFrom(index)
		l.entries = append(l.entries, e)
	}

	return index
}
