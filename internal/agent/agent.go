package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/qmuntal/stateless" // FSM library

	"github.com/comigor/unichat/internal/history"
	"github.com/comigor/unichat/internal/logger"
)

// FSM States
type FSMState stateless.State

var (
	StateIdle           FSMState = "Idle"
	StateAwaitingAnswer FSMState = "AwaitingAnswer"
)

// FSM Triggers
type FSMTrigger stateless.Trigger

var (
	TriggerSubmit       FSMTrigger = "Submit"
	TriggerAnswerReady  FSMTrigger = "AnswerReady"
	TriggerAnswerFailed FSMTrigger = "AnswerFailed" // apology or fallback was used
)

// ApologyMessage replaces the answer when the answerer fails.
const ApologyMessage = "Sorry, there was a problem connecting to the chatbot server."

var (
	// ErrEmptyMessage rejects blank input before anything is recorded.
	ErrEmptyMessage = errors.New("agent: message is empty")
	// ErrBusy rejects a message while the session still waits for an answer.
	ErrBusy = errors.New("agent: session is still waiting for an answer")
	// ErrUnknownSession is returned for a session id the store does not hold.
	ErrUnknownSession = errors.New("agent: unknown session")
)

// Answerer produces the reply to a question.
type Answerer interface {
	Answer(ctx context.Context, question string) (string, error)
}

// FollowUpSource is implemented by answerers that can suggest next questions.
type FollowUpSource interface {
	FollowUps(question string) []string
}

// Status reports a session entering or leaving the thinking state.
type Status struct {
	SessionID string
	Thinking  bool
}

// Notice is a transient message for the user, e.g. a failed request.
type Notice struct {
	Title       string
	Description string
}

// Agent records each exchange in the history store and obtains answers.
type Agent struct {
	store    *history.Store
	answerer Answerer
	fallback Answerer
	onStatus func(Status)
	onNotice func(Notice)
	now      func() time.Time

	fireMu   sync.Mutex
	machines sync.Map // session id -> *stateless.StateMachine
}

// Option customises an Agent.
type Option func(*Agent)

// WithFallback answers from fb when the main answerer fails, instead of
// replying with ApologyMessage.
func WithFallback(fb Answerer) Option {
	return func(a *Agent) { a.fallback = fb }
}

// WithStatusHandler receives thinking on/off events. It runs synchronously on
// the goroutine handling the message.
func WithStatusHandler(fn func(Status)) Option {
	return func(a *Agent) { a.onStatus = fn }
}

// WithNoticeHandler receives user-facing notices.
func WithNoticeHandler(fn func(Notice)) Option {
	return func(a *Agent) { a.onNotice = fn }
}

// WithClock replaces time.Now for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Agent) { a.now = now }
}

// New creates a new agent.
func New(store *history.Store, answerer Answerer, opts ...Option) *Agent {
	a := &Agent{
		store:    store,
		answerer: answerer,
		onStatus: func(Status) {},
		onNotice: func(Notice) {},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// HandleUserMessage sends text in the current session, creating a session
// first if there is none, and returns the bot's reply.
func (a *Agent) HandleUserMessage(ctx context.Context, text string) (history.Message, error) {
	if strings.TrimSpace(text) == "" {
		return history.Message{}, ErrEmptyMessage
	}
	sess := a.store.EnsureCurrent(ctx)
	return a.HandleSessionMessage(ctx, sess.ID, text)
}

// HandleSessionMessage sends text in the given session.
//
// The session moves Idle -> AwaitingAnswer -> Idle. A second message for the
// same session while it is AwaitingAnswer fails with ErrBusy and records
// nothing. The reply goes to the session the question was asked in, even if
// the user has switched away; it is dropped if that session was deleted.
// Answerer failures never surface as errors: the reply becomes ApologyMessage
// (or the fallback's answer) and a Notice is published.
func (a *Agent) HandleSessionMessage(ctx context.Context, sessionID, text string) (history.Message, error) {
	if strings.TrimSpace(text) == "" {
		return history.Message{}, ErrEmptyMessage
	}
	if _, ok := a.store.Get(sessionID); !ok {
		return history.Message{}, fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}

	fsm := a.machine(sessionID)
	if err := a.fire(ctx, fsm, TriggerSubmit); err != nil {
		logger.L.Debug("message rejected while awaiting answer", "session", sessionID, "error", err)
		return history.Message{}, ErrBusy
	}

	outcome := TriggerAnswerFailed
	defer func() {
		if err := a.fire(context.WithoutCancel(ctx), fsm, outcome); err != nil {
			logger.L.Error("FSM failed to leave AwaitingAnswer", "session", sessionID, "error", err)
		}
		a.release(sessionID)
	}()

	a.store.AppendMessage(ctx, sessionID, history.NewUserMessage(text, a.now()))

	body, followUps, err := a.answer(ctx, text)
	if err == nil {
		outcome = TriggerAnswerReady
	}

	reply := history.NewBotMessage(body, followUps, a.now())
	if !a.store.AppendMessage(ctx, sessionID, reply) {
		logger.L.Info("session deleted while answering; reply dropped", "session", sessionID)
	}
	return reply, nil
}

// answer asks the main answerer, then the fallback, then gives up with the
// apology. The returned error is the main answerer's failure, if any.
func (a *Agent) answer(ctx context.Context, question string) (string, []string, error) {
	body, err := a.answerer.Answer(ctx, question)
	if err == nil {
		return body, followUpsFrom(a.answerer, question), nil
	}

	logger.L.Warn("failed to get answer", "error", err)
	a.onNotice(Notice{Title: "Error", Description: "Failed to get response from server."})

	if a.fallback != nil {
		fb, fbErr := a.fallback.Answer(ctx, question)
		if fbErr == nil {
			return fb, followUpsFrom(a.fallback, question), err
		}
		logger.L.Warn("fallback answer failed", "error", fbErr)
	}
	return ApologyMessage, nil, err
}

func followUpsFrom(ans Answerer, question string) []string {
	if src, ok := ans.(FollowUpSource); ok {
		return src.FollowUps(question)
	}
	return nil
}

// Thinking reports whether the session is waiting for an answer.
func (a *Agent) Thinking(sessionID string) bool {
	v, ok := a.machines.Load(sessionID)
	if !ok {
		return false
	}
	return v.(*stateless.StateMachine).MustState() == StateAwaitingAnswer
}

func (a *Agent) machine(sessionID string) *stateless.StateMachine {
	if v, ok := a.machines.Load(sessionID); ok {
		return v.(*stateless.StateMachine)
	}

	fsm := stateless.NewStateMachine(StateIdle)

	// State: Idle
	// Transitions:
	//   - On Submit -> StateAwaitingAnswer
	fsm.Configure(StateIdle).
		Permit(TriggerSubmit, StateAwaitingAnswer)

	// State: AwaitingAnswer
	// Action: publish thinking on entry and off on exit.
	// Transitions:
	//   - On AnswerReady / AnswerFailed -> StateIdle
	// Submit is not permitted here, which is what rejects overlapping messages.
	fsm.Configure(StateAwaitingAnswer).
		OnEntry(func(ctx context.Context, args ...any) error {
			a.onStatus(Status{SessionID: sessionID, Thinking: true})
			return nil
		}).
		OnExit(func(ctx context.Context, args ...any) error {
			a.onStatus(Status{SessionID: sessionID, Thinking: false})
			return nil
		}).
		Permit(TriggerAnswerReady, StateIdle).
		Permit(TriggerAnswerFailed, StateIdle)

	v, _ := a.machines.LoadOrStore(sessionID, fsm)
	return v.(*stateless.StateMachine)
}

// fire serialises transitions so two submissions cannot both leave Idle.
func (a *Agent) fire(ctx context.Context, fsm *stateless.StateMachine, trigger FSMTrigger) error {
	a.fireMu.Lock()
	defer a.fireMu.Unlock()
	return fsm.FireCtx(ctx, trigger)
}

// DeleteSession removes the session from the store and forgets its state
// machine. A reply still in flight for it is dropped when it arrives.
func (a *Agent) DeleteSession(ctx context.Context, sessionID string) bool {
	ok := a.store.DeleteSession(ctx, sessionID)
	if ok {
		a.machines.Delete(sessionID)
	}
	return ok
}

// release forgets the machine of a session that no longer exists.
func (a *Agent) release(sessionID string) {
	if _, ok := a.store.Get(sessionID); !ok {
		a.machines.Delete(sessionID)
	}
}
