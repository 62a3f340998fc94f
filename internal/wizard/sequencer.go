// Package wizard implements the multi-step booking flows: a cursor over an
// ordered list of validated steps and the single terminal submission.
package wizard

// Step is one screen of a flow. Required reports whether the draft carries
// what this step collects; Message is shown when it does not.
type Step[D any] struct {
	Name     string
	Required func(D) bool
	Message  string
}

// Sequencer tracks the current step of a flow. It is not safe for
// concurrent use; callers own one sequencer per flow instance.
type Sequencer[D any] struct {
	steps  []Step[D]
	cursor int
}

func NewSequencer[D any](steps []Step[D]) *Sequencer[D] {
	if len(steps) == 0 {
		panic("wizard: sequencer needs at least one step")
	}
	return &Sequencer[D]{steps: steps}
}

// Current returns the 1-based step number.
func (s *Sequencer[D]) Current() int { return s.cursor + 1 }

func (s *Sequencer[D]) Len() int { return len(s.steps) }

func (s *Sequencer[D]) Step() Step[D] { return s.steps[s.cursor] }

func (s *Sequencer[D]) IsFirst() bool { return s.cursor == 0 }

func (s *Sequencer[D]) IsTerminal() bool { return s.cursor == len(s.steps)-1 }

// Advance moves forward one step if the current step is satisfied by draft.
// The cursor is clamped to the terminal step.
func (s *Sequencer[D]) Advance(draft D) error {
	if err := s.check(s.cursor, draft); err != nil {
		return err
	}
	if s.cursor < len(s.steps)-1 {
		s.cursor++
	}
	return nil
}

// Retreat moves back one step without validation, clamped to the first step.
func (s *Sequencer[D]) Retreat() {
	if s.cursor > 0 {
		s.cursor--
	}
}

// Restore places the cursor at the 1-based step n, clamped into range.
func (s *Sequencer[D]) Restore(n int) {
	switch {
	case n < 1:
		s.cursor = 0
	case n > len(s.steps):
		s.cursor = len(s.steps) - 1
	default:
		s.cursor = n - 1
	}
}

// ValidateThrough checks every step up to and including the current one and
// returns the first that draft does not satisfy.
func (s *Sequencer[D]) ValidateThrough(draft D) error {
	for i := 0; i <= s.cursor; i++ {
		if err := s.check(i, draft); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sequencer[D]) check(i int, draft D) error {
	st := s.steps[i]
	if st.Required == nil || st.Required(draft) {
		return nil
	}
	return &ValidationError{Step: i + 1, Name: st.Name, Message: st.Message}
}
