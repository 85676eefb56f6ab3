// Package elicit runs the turn-bounded requirements dialogue between a text
// generator and a human operator.
package elicit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kalambet/blueprint/internal/engine"
	"github.com/kalambet/blueprint/internal/requirements"
)

// State is a session state.
type State string

const (
	StateAwaitingResponse State = "AWAITING_RESPONSE"
	StateCandidateFound   State = "CANDIDATE_FOUND"
	StateApproved         State = "APPROVED"
	StateMaxTurnsReached  State = "MAX_TURNS_REACHED"
)

const (
	// DefaultMaxTurns is the turn budget when the caller gives none.
	DefaultMaxTurns = 20
	// SimpleMaxTurns replaces the budget for simple requests.
	SimpleMaxTurns = 3
	// SimpleWordLimit: requests with fewer words are simple.
	SimpleWordLimit = 10
	// SimpleMarker flags a request as simple regardless of length.
	SimpleMarker = "simple"
)

// Generator produces the next assistant reply for a conversation.
// engine.Engine satisfies it.
type Generator interface {
	Chat(ctx context.Context, model string, messages []engine.Message, jsonSchema *engine.Schema) (string, error)
}

// Asker obtains a line of text from the operator.
type Asker interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

// AskerFunc adapts a function to Asker.
type AskerFunc func(ctx context.Context, prompt string) (string, error)

func (f AskerFunc) Ask(ctx context.Context, prompt string) (string, error) { return f(ctx, prompt) }

// Recorder persists a session as it progresses.
type Recorder interface {
	RecordEntry(ctx context.Context, e Entry) error
	RecordOutcome(ctx context.Context, o Outcome) error
}

// EventKind classifies observer events.
type EventKind string

const (
	EventSimple    EventKind = "simple"
	EventTurn      EventKind = "turn"
	EventReply     EventKind = "reply"
	EventCandidate EventKind = "candidate"
	EventState     EventKind = "state"
)

// Event is emitted to the observer as the session runs.
type Event struct {
	Kind  EventKind
	Turn  int
	State State
	Text  string
}

// Outcome is the result of a session. When State is StateApproved, Document
// holds the approved document. When State is StateMaxTurnsReached the result
// is partial: Raw holds the final best-effort reply and Document is nil.
type Outcome struct {
	State      State                  `json:"state"`
	Document   *requirements.Document `json:"document,omitempty"`
	Raw        string                 `json:"raw"`
	Turns      int                    `json:"turns"`
	Budget     int                    `json:"budget"`
	Simple     bool                   `json:"simple"`
	Transcript []Entry                `json:"transcript"`
}

// Approved reports whether the operator approved a document.
func (o Outcome) Approved() bool { return o.State == StateApproved && o.Document != nil }

// Partial reports whether the budget ran out before approval.
func (o Outcome) Partial() bool { return o.State == StateMaxTurnsReached }

// Options configure a Session.
type Options struct {
	Model        string
	MaxTurns     int
	SystemPrompt string
	Observer     func(Event)
	Recorder     Recorder
}

// Session owns one conversation. It is not safe for concurrent use and runs
// once.
type Session struct {
	gen   Generator
	asker Asker
	opts  Options

	state      State
	transcript *Transcript
	turns      int
}

// NewSession creates a session. Zero-valued options take defaults.
func NewSession(gen Generator, asker Asker, opts Options) *Session {
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = DefaultMaxTurns
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = SystemPrompt
	}
	return &Session{gen: gen, asker: asker, opts: opts}
}

// IsSimple reports whether a request takes the fast path.
func IsSimple(request string) bool {
	return strings.Contains(strings.ToLower(request), SimpleMarker) ||
		len(strings.Fields(request)) < SimpleWordLimit
}

// Budget returns the effective turn budget for a request.
func Budget(request string, maxTurns int) int {
	if IsSimple(request) {
		return SimpleMaxTurns
	}
	if maxTurns <= 0 {
		return DefaultMaxTurns
	}
	return maxTurns
}

// State returns the current state.
func (s *Session) State() State { return s.state }

// Run drives the dialogue for request until the operator approves a document
// or the turn budget is spent. Generator and Asker errors abort the session.
func (s *Session) Run(ctx context.Context, request string) (Outcome, error) {
	if s.transcript != nil {
		return Outcome{}, fmt.Errorf("session already ran")
	}
	s.transcript = NewTranscript(s.opts.SystemPrompt, request)
	s.state = StateAwaitingResponse
	for _, e := range s.transcript.Entries() {
		s.record(ctx, e)
	}

	simple := IsSimple(request)
	budget := Budget(request, s.opts.MaxTurns)
	if simple {
		s.emit(Event{Kind: EventSimple, Text: "simple request: proceeding with reasonable assumptions"})
	}

	for turn := 0; turn < budget && s.state == StateAwaitingResponse; turn++ {
		s.emit(Event{Kind: EventTurn, Turn: turn + 1})

		reply, err := s.generate(ctx)
		if err != nil {
			return Outcome{}, err
		}

		doc, ok := requirements.Accept(requirements.Extract(reply))
		if !ok {
			answer, err := s.ask(ctx, askReply)
			if err != nil {
				return Outcome{}, err
			}
			if err := s.appendUser(ctx, answer); err != nil {
				return Outcome{}, err
			}
			continue
		}

		s.setState(StateCandidateFound)
		s.emit(Event{Kind: EventCandidate, Turn: turn + 1, Text: doc.ProjectName})

		approval, err := s.ask(ctx, askApproval)
		if err != nil {
			return Outcome{}, err
		}

		switch strings.ToLower(strings.TrimSpace(approval)) {
		case "yes", "y":
			s.setState(StateApproved)
			out := s.outcome(reply, budget, simple)
			out.Document = &doc
			s.finish(ctx, out)
			return out, nil
		case "modify":
			change, err := s.ask(ctx, askChanges)
			if err != nil {
				return Outcome{}, err
			}
			if err := s.appendUser(ctx, "Please modify requirements: "+change); err != nil {
				return Outcome{}, err
			}
		default:
			more, err := s.ask(ctx, askAdditional)
			if err != nil {
				return Outcome{}, err
			}
			if err := s.appendUser(ctx, more); err != nil {
				return Outcome{}, err
			}
		}
		s.setState(StateAwaitingResponse)
	}

	s.setState(StateMaxTurnsReached)
	raw, err := s.generate(ctx)
	if err != nil {
		return Outcome{}, err
	}
	out := s.outcome(raw, budget, simple)
	s.finish(ctx, out)
	return out, nil
}

func (s *Session) generate(ctx context.Context) (string, error) {
	reply, err := s.gen.Chat(ctx, s.opts.Model, s.transcript.Messages(), nil)
	if err != nil {
		return "", fmt.Errorf("generating turn %d: %w", s.turns+1, err)
	}
	s.turns++
	if err := s.transcript.Append(RoleAssistant, reply); err != nil {
		return "", err
	}
	s.record(ctx, Entry{Role: RoleAssistant, Text: reply})
	s.emit(Event{Kind: EventReply, Turn: s.turns, Text: reply})
	return reply, nil
}

func (s *Session) ask(ctx context.Context, prompt string) (string, error) {
	answer, err := s.asker.Ask(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("asking operator: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

func (s *Session) appendUser(ctx context.Context, text string) error {
	if err := s.transcript.Append(RoleUser, text); err != nil {
		return err
	}
	s.record(ctx, Entry{Role: RoleUser, Text: text})
	return nil
}

func (s *Session) setState(next State) {
	if s.state == next {
		return
	}
	slog.Debug("elicit state", "from", s.state, "to", next)
	s.state = next
	s.emit(Event{Kind: EventState, Turn: s.turns, State: next})
}

func (s *Session) outcome(raw string, budget int, simple bool) Outcome {
	return Outcome{
		State:      s.state,
		Raw:        raw,
		Turns:      s.turns,
		Budget:     budget,
		Simple:     simple,
		Transcript: s.transcript.Entries(),
	}
}

func (s *Session) emit(e Event) {
	if s.opts.Observer != nil {
		s.opts.Observer(e)
	}
}

func (s *Session) record(ctx context.Context, e Entry) {
	if s.opts.Recorder == nil {
		return
	}
	if err := s.opts.Recorder.RecordEntry(ctx, e); err != nil {
		slog.Warn("recording transcript entry", "role", e.Role, "error", err)
	}
}

func (s *Session) finish(ctx context.Context, o Outcome) {
	if s.opts.Recorder == nil {
		return
	}
	if err := s.opts.Recorder.RecordOutcome(ctx, o); err != nil {
		slog.Warn("recording session outcome", "state", o.State, "error", err)
	}
}
