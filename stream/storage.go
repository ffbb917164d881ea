package stream

import "github.com/uxrce/client/seqnum"

// InitialSeqNum is the sentinel "one before the first real sequence
// number" every stream's cursors start at, so the first write/receive
// lands on seq 0.
const InitialSeqNum = seqnum.SeqNum(0xFFFF)

// Storage holds a session's four fixed-capacity stream arrays —
// output-best-effort, output-reliable, input-best-effort,
// input-reliable — indexed by the 6-bit StreamId index, per spec.md
// §9 "Stream storage" ("no heap growth after init_session").
type Storage struct {
	outputBestEffort [MaxIndex + 1]*OutputBestEffort
	outputReliable   [MaxIndex + 1]*OutputReliable
	inputBestEffort  [MaxIndex + 1]*InputBestEffort
	inputReliable    [MaxIndex + 1]*InputReliable
}

func NewStorage() *Storage { return &Storage{} }

// AddOutputBestEffort registers s at the first free best-effort output
// index, or returns Invalid if the table is full (spec.md §4.2).
func (st *Storage) AddOutputBestEffort(s *OutputBestEffort) Id {
	for i := 0; i <= MaxIndex; i++ {
		if st.outputBestEffort[i] == nil {
			st.outputBestEffort[i] = s
			return NewId(TypeBestEffort, byte(i))
		}
	}
	return Invalid
}

func (st *Storage) AddOutputReliable(s *OutputReliable) Id {
	for i := 0; i <= MaxIndex; i++ {
		if st.outputReliable[i] == nil {
			st.outputReliable[i] = s
			return NewId(TypeReliable, byte(i))
		}
	}
	return Invalid
}

func (st *Storage) AddInputBestEffort(s *InputBestEffort) Id {
	for i := 0; i <= MaxIndex; i++ {
		if st.inputBestEffort[i] == nil {
			st.inputBestEffort[i] = s
			return NewId(TypeBestEffort, byte(i))
		}
	}
	return Invalid
}

func (st *Storage) AddInputReliable(s *InputReliable) Id {
	for i := 0; i <= MaxIndex; i++ {
		if st.inputReliable[i] == nil {
			st.inputReliable[i] = s
			return NewId(TypeReliable, byte(i))
		}
	}
	return Invalid
}

func (st *Storage) OutputBestEffort(id Id) (*OutputBestEffort, bool) {
	if id.Type() != TypeBestEffort {
		return nil, false
	}
	s := st.outputBestEffort[id.Index()]
	return s, s != nil
}

func (st *Storage) OutputReliable(id Id) (*OutputReliable, bool) {
	if id.Type() != TypeReliable {
		return nil, false
	}
	s := st.outputReliable[id.Index()]
	return s, s != nil
}

func (st *Storage) InputBestEffort(id Id) (*InputBestEffort, bool) {
	if id.Type() != TypeBestEffort {
		return nil, false
	}
	s := st.inputBestEffort[id.Index()]
	return s, s != nil
}

func (st *Storage) InputReliable(id Id) (*InputReliable, bool) {
	if id.Type() != TypeReliable {
		return nil, false
	}
	s := st.inputReliable[id.Index()]
	return s, s != nil
}

// ForEachOutputBestEffort/ForEachOutputReliable iterate live streams in
// index order, used by flush_output_streams (spec.md §4.4).
func (st *Storage) ForEachOutputBestEffort(fn func(Id, *OutputBestEffort)) {
	for i, s := range st.outputBestEffort {
		if s != nil {
			fn(NewId(TypeBestEffort, byte(i)), s)
		}
	}
}

func (st *Storage) ForEachOutputReliable(fn func(Id, *OutputReliable)) {
	for i, s := range st.outputReliable {
		if s != nil {
			fn(NewId(TypeReliable, byte(i)), s)
		}
	}
}

func (st *Storage) ForEachInputReliable(fn func(Id, *InputReliable)) {
	for i, s := range st.inputReliable {
		if s != nil {
			fn(NewId(TypeReliable, byte(i)), s)
		}
	}
}
