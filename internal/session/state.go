package session

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrInvalidTransition is returned when an event does not apply to the current state
var ErrInvalidTransition = errors.New("invalid state transition")

// State is one screen of the application flow. Exactly one is active at a time.
type State interface {
	Name() string
	state()
}

// Landing is the initial screen before login
type Landing struct{}

// Authenticating waits for the service to open an interview
type Authenticating struct{}

// Interviewing holds the open question and the conversation so far
type Interviewing struct {
	SessionID  string
	Question   string
	Transcript []Turn
}

// Loading waits for the root scenarios of a finished interview
type Loading struct {
	SessionID string
}

// Dashboard shows the constellation
type Dashboard struct {
	SessionID string
}

// Failed keeps the state the error interrupted so Retry can return to it
type Failed struct {
	Err  error
	From State
}

func (Landing) Name() string        { return "landing" }
func (Authenticating) Name() string { return "authenticating" }
func (Interviewing) Name() string   { return "interviewing" }
func (Loading) Name() string        { return "loading" }
func (Dashboard) Name() string      { return "dashboard" }
func (Failed) Name() string         { return "failed" }

func (Landing) state()        {}
func (Authenticating) state() {}
func (Interviewing) state()   {}
func (Loading) state()        {}
func (Dashboard) state()      {}
func (Failed) state()         {}

// Role identifies the author of a transcript turn
type Role string

const (
	RoleAgent Role = "agent"
	RoleUser  Role = "user"
)

// Turn is one transcript message
type Turn struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"timestamp"`
}

// Event drives a transition
type Event interface{ event() }

// Login starts authentication
type Login struct{}

// Started means authentication succeeded and the interview opened with Question
type Started struct {
	SessionID string
	Question  string
}

// Answered records the user's reply to the open question
type Answered struct {
	Answer string
	// Next is the follow-up question; empty when the interview is over
	Next string
}

// Completed means the interview has no more questions
type Completed struct{}

// Loaded means the root scenarios arrived
type Loaded struct{}

// Fail moves any state to Failed
type Fail struct{ Err error }

// Retry returns from Failed to the interrupted state
type Retry struct{}

// Logout returns to Landing from any state
type Logout struct{}

func (Login) event()     {}
func (Started) event()   {}
func (Answered) event()  {}
func (Completed) event() {}
func (Loaded) event()    {}
func (Fail) event()      {}
func (Retry) event()     {}
func (Logout) event()    {}

// Next computes the state that follows s on e. The input state is not modified.
func Next(s State, e Event, now time.Time) (State, error) {
	switch ev := e.(type) {
	case Logout:
		return Landing{}, nil
	case Fail:
		if f, ok := s.(Failed); ok {
			return Failed{Err: ev.Err, From: f.From}, nil
		}
		return Failed{Err: ev.Err, From: s}, nil
	}

	switch cur := s.(type) {
	case Landing:
		if _, ok := e.(Login); ok {
			return Authenticating{}, nil
		}
	case Authenticating:
		if ev, ok := e.(Started); ok {
			if ev.SessionID == "" {
				return nil, fmt.Errorf("%w: interview started without a session id", ErrInvalidTransition)
			}
			return Interviewing{
				SessionID:  ev.SessionID,
				Question:   ev.Question,
				Transcript: []Turn{{Role: RoleAgent, Content: ev.Question, At: now}},
			}, nil
		}
	case Interviewing:
		switch ev := e.(type) {
		case Answered:
			transcript := make([]Turn, len(cur.Transcript), len(cur.Transcript)+2)
			copy(transcript, cur.Transcript)
			transcript = append(transcript, Turn{Role: RoleUser, Content: ev.Answer, At: now})
			if ev.Next != "" {
				transcript = append(transcript, Turn{Role: RoleAgent, Content: ev.Next, At: now})
			}
			return Interviewing{SessionID: cur.SessionID, Question: ev.Next, Transcript: transcript}, nil
		case Completed:
			return Loading{SessionID: cur.SessionID}, nil
		}
	case Loading:
		if _, ok := e.(Loaded); ok {
			return Dashboard{SessionID: cur.SessionID}, nil
		}
	case Failed:
		if _, ok := e.(Retry); ok {
			if cur.From == nil {
				return Landing{}, nil
			}
			return cur.From, nil
		}
	}
	return nil, fmt.Errorf("%w: %s on %T", ErrInvalidTransition, s.Name(), e)
}

// Machine holds the current state and applies events under a lock
type Machine struct {
	mu    sync.Mutex
	state State
	now   func() time.Time
}

// NewMachine starts at initial, or Landing when initial is nil
func NewMachine(initial State) *Machine {
	if initial == nil {
		initial = Landing{}
	}
	return &Machine{state: initial, now: time.Now}
}

// State returns the current state
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Fire applies e and returns the new state. An illegal event leaves the state unchanged.
func (m *Machine) Fire(e Event) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, err := Next(m.state, e, m.now())
	if err != nil {
		return m.state, err
	}
	m.state = next
	return next, nil
}
