package mono

import "slices"

// NoteStack is the set of held notes in the order they were pressed. A note
// is in the stack at most once and the most recently pressed is last.
type NoteStack struct {
	notes []int
}

// Push moves n to the top of the stack, adding it if it isn't there.
func (s *NoteStack) Push(n int) {
	s.Remove(n)
	s.notes = append(s.notes, n)
}

// Remove takes n out of the stack, reporting whether it was there.
func (s *NoteStack) Remove(n int) bool {
	i := slices.Index(s.notes, n)
	if i < 0 {
		return false
	}
	s.notes = slices.Delete(s.notes, i, i+1)
	return true
}

// Top returns the most recently pressed note still held.
func (s *NoteStack) Top() (int, bool) {
	if len(s.notes) == 0 {
		return 0, false
	}
	return s.notes[len(s.notes)-1], true
}

func (s *NoteStack) Len() int { return len(s.notes) }

// Notes returns a copy of the stack, oldest first.
func (s *NoteStack) Notes() []int { return slices.Clone(s.notes) }

func (s *NoteStack) Clear() { s.notes = s.notes[:0] }
