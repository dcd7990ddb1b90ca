// Package session holds per-chat conversation state.
package session

import (
	"maps"
	"slices"
	"time"
)

// Stage is the conversation stage of a chat.
type Stage string

const (
	StageIdle             Stage = "idle"
	StageAskName          Stage = "ask_name"
	StageFlow             Stage = "flow"
	StageResultsShown     Stage = "results_shown"
	StageTeacherSelection Stage = "teacher_selection"
	StageLinkSent         Stage = "link_sent"
)

// Pref is what the parent chose for one subject.
type Pref struct {
	Mode           string `json:"mode,omitempty"`
	LessonsPerWeek int    `json:"lessons_per_week,omitempty"`
}

// Selection is one completed board/grade/subjects request.
type Selection struct {
	Board    string          `json:"board"`
	Grade    int             `json:"grade"`
	Codes    []string        `json:"codes"`
	Subjects []string        `json:"subjects"`
	Prefs    map[string]Pref `json:"prefs,omitempty"`
}

// PrefFlow tracks the subject preference loop of the current selection.
type PrefFlow struct {
	Remaining []string `json:"remaining,omitempty"`
}

// Session is the mutable state of one chat.
type Session struct {
	Stage            Stage       `json:"stage"`
	Name             string      `json:"name,omitempty"`
	BoardCode        string      `json:"board_code,omitempty"`
	Grade            int         `json:"grade,omitempty"`
	Selections       []Selection `json:"selections,omitempty"`
	PrefFlow         *PrefFlow   `json:"pref_flow,omitempty"`
	Results          []string    `json:"results,omitempty"`
	SelectedTeachers []string    `json:"selected_teachers,omitempty"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// New returns an idle session.
func New() *Session {
	return &Session{Stage: StageIdle}
}

// Restart wipes everything and waits for the parent's name.
func (s *Session) Restart() {
	*s = Session{Stage: StageAskName}
}

// ParentName returns the stored name or "Parent".
func (s *Session) ParentName() string {
	if s.Name == "" {
		return "Parent"
	}
	return s.Name
}

// Current returns the selection being worked on, or nil.
func (s *Session) Current() *Selection {
	if len(s.Selections) == 0 {
		return nil
	}
	return &s.Selections[len(s.Selections)-1]
}

// BeginSelection starts a new selection for the given subjects and queues
// their preference questions.
func (s *Session) BeginSelection(board string, grade int, codes, subjects []string) *Selection {
	s.Selections = append(s.Selections, Selection{
		Board:    board,
		Grade:    grade,
		Codes:    slices.Clone(codes),
		Subjects: slices.Clone(subjects),
		Prefs:    map[string]Pref{},
	})
	s.PrefFlow = &PrefFlow{Remaining: slices.Clone(codes)}
	s.Stage = StageFlow
	return s.Current()
}

// RecordPref stores the preference for subject on the current selection and
// pops code from the pending preference queue.
func (s *Session) RecordPref(code, subject string, p Pref) {
	sel := s.Current()
	if sel == nil {
		return
	}
	if sel.Prefs == nil {
		sel.Prefs = map[string]Pref{}
	}
	sel.Prefs[subject] = p
	if s.PrefFlow != nil {
		s.PrefFlow.Remaining = slices.DeleteFunc(s.PrefFlow.Remaining, func(c string) bool { return c == code })
		if len(s.PrefFlow.Remaining) == 0 {
			s.PrefFlow = nil
		}
	}
}

// ToggleTeacher adds key to the chosen tutors, or removes it when already
// chosen. It reports whether key is chosen afterwards.
func (s *Session) ToggleTeacher(key string) bool {
	if i := slices.Index(s.SelectedTeachers, key); i >= 0 {
		s.SelectedTeachers = slices.Delete(s.SelectedTeachers, i, i+1)
		return false
	}
	s.SelectedTeachers = append(s.SelectedTeachers, key)
	return true
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	c := *s
	c.Selections = make([]Selection, len(s.Selections))
	for i, sel := range s.Selections {
		sel.Codes = slices.Clone(sel.Codes)
		sel.Subjects = slices.Clone(sel.Subjects)
		sel.Prefs = maps.Clone(sel.Prefs)
		c.Selections[i] = sel
	}
	if s.Selections == nil {
		c.Selections = nil
	}
	if s.PrefFlow != nil {
		c.PrefFlow = &PrefFlow{Remaining: slices.Clone(s.PrefFlow.Remaining)}
	}
	c.Results = slices.Clone(s.Results)
	c.SelectedTeachers = slices.Clone(s.SelectedTeachers)
	return &c
}
