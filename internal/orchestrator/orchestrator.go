// Package orchestrator drives one conversation turn: classify the inbound
// message, branch to the emergency or the normal path, append the response to
// the display history and attempt persistence. Persistence and alert writes
// are best-effort; the user always receives a message.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/qmuntal/stateless"
	"github.com/sashabaranov/go-openai"

	"github.com/hocduong/assistant/internal/llm"
	"github.com/hocduong/assistant/internal/logger"
	"github.com/hocduong/assistant/internal/risk"
	"github.com/hocduong/assistant/internal/session"
	"github.com/hocduong/assistant/internal/store"
)

// FSM States
type FSMState stateless.State

var (
	StateReceived         FSMState = "Received"
	StateClassified       FSMState = "Classified"
	StateEmergency        FSMState = "EmergencyPath"
	StateNormal           FSMState = "NormalPath"
	StateResponded        FSMState = "Responded"
	StatePersistAttempted FSMState = "PersistAttempted" // Terminal in both branches
)

// FSM Triggers
type FSMTrigger stateless.Trigger

var (
	TriggerMessageAccepted FSMTrigger = "MessageAccepted"
	TriggerClassify        FSMTrigger = "Classify"
	TriggerRiskDetected    FSMTrigger = "RiskDetected"
	TriggerNoRisk          FSMTrigger = "NoRisk"
	TriggerResponseReady   FSMTrigger = "ResponseReady"
	TriggerPersist         FSMTrigger = "Persist"
)

// Orchestrator processes conversation turns.
type Orchestrator struct {
	model    *llm.Service
	gateway  store.Gateway
	detector *risk.Detector
}

// New creates an orchestrator.
func New(model *llm.Service, gateway store.Gateway, detector *risk.Detector) *Orchestrator {
	return &Orchestrator{model: model, gateway: gateway, detector: detector}
}

// Turn is the outcome of processing one inbound message.
type Turn struct {
	SessionID string
	// Appended lists every message added to the display history during this
	// turn, in order: the greeting when the conversation is new, the user
	// message, then the assistant response.
	Appended []session.Message
	Reply    session.Message
}

// Process runs one conversation turn for s. It never surfaces external-call
// failures to the caller: model errors become the apology fallback and
// persistence errors are logged and swallowed. A non-nil error means the
// turn itself could not be driven to completion, which is an internal fault.
func (o *Orchestrator) Process(ctx context.Context, s *session.Session, text string) (Turn, error) {
	// One turn at a time per session: a concurrent host must not interleave
	// two turns' history appends, persistence or context updates.
	s.BeginTurn()
	defer s.EndTurn()

	turn := Turn{SessionID: s.ID()}

	// A brand-new conversation opens with the greeting. This is the first
	// real exchange, so the anonymous user id is minted here.
	if s.Empty() {
		greeting := s.Append(session.Message{
			Sender:     session.SenderAssistant,
			Content:    greetingContent,
			IsGreeting: true,
		})
		turn.Appended = append(turn.Appended, greeting)
		o.persist(ctx, s.AnonymousUserID(), greeting)
	}
	userID := s.AnonymousUserID()

	// Per-turn FSM context, mirroring the conversation-flow machine style:
	// OnEntry actions do the work and fire the next trigger.
	type fsmContext struct {
		category  string
		risky     bool
		alertID   string
		replyText string
	}
	fsmCtx := &fsmContext{}

	fsm := stateless.NewStateMachine(StateReceived)

	// State: Received
	// Action: append the user message to the display history, attempt persistence.
	fsm.Configure(StateReceived).
		PermitReentry(TriggerMessageAccepted).
		OnEntry(func(ctx context.Context, args ...any) error {
			userMsg := s.Append(session.Message{Sender: session.SenderUser, Content: text})
			turn.Appended = append(turn.Appended, userMsg)
			o.persist(ctx, userID, userMsg)
			return fsm.FireCtx(ctx, TriggerClassify)
		}).
		Permit(TriggerClassify, StateClassified)

	// State: Classified
	// Action: run the lexical risk classifier and branch.
	fsm.Configure(StateClassified).
		OnEntry(func(ctx context.Context, args ...any) error {
			fsmCtx.category, fsmCtx.risky = o.detector.Classify(text)
			if fsmCtx.risky {
				logger.L.Warn("risk detected", "session_id", s.ID(), "category", fsmCtx.category)
				return fsm.FireCtx(ctx, TriggerRiskDetected)
			}
			return fsm.FireCtx(ctx, TriggerNoRisk)
		}).
		Permit(TriggerRiskDetected, StateEmergency).
		Permit(TriggerNoRisk, StateNormal)

	// State: EmergencyPath
	// Action: synthesize the canned safety message and record an alert.
	// The language model is not invoked. Alert failure never blocks the
	// safety response.
	fsm.Configure(StateEmergency).
		OnEntry(func(ctx context.Context, args ...any) error {
			fsmCtx.replyText = emergencyResponse(fsmCtx.category)
			alertID, err := o.gateway.CreateAlert(ctx, store.Alert{
				SessionID: s.ID(),
				Reason:    alertReason(fsmCtx.category),
				Snippet:   snippet(text),
				Priority:  1,
				Status:    store.StatusNew,
			})
			if err != nil {
				logger.L.Error("alert not recorded", "session_id", s.ID(), "category", fsmCtx.category, "error", err)
			} else {
				fsmCtx.alertID = alertID
				logger.L.Info("alert created", "session_id", s.ID(), "alert_id", alertID, "category", fsmCtx.category)
			}
			return fsm.FireCtx(ctx, TriggerResponseReady)
		}).
		Permit(TriggerResponseReady, StateResponded)

	// State: NormalPath
	// Action: send the model context plus the new message to the language
	// model. Provider failure degrades to the apology fallback.
	fsm.Configure(StateNormal).
		OnEntry(func(ctx context.Context, args ...any) error {
			history := s.ModelContext()
			reply, err := o.model.SendMessage(ctx, history, text)
			if err != nil {
				logger.L.Error("language model call failed", "session_id", s.ID(), "error", err)
				fsmCtx.replyText = fallbackApology
			} else {
				fsmCtx.replyText = reply
				s.ExtendModelContext(openai.ChatMessageRoleUser, text)
				s.ExtendModelContext(openai.ChatMessageRoleAssistant, reply)
			}
			return fsm.FireCtx(ctx, TriggerResponseReady)
		}).
		Permit(TriggerResponseReady, StateResponded)

	// State: Responded
	// Action: append the assistant message to the display history.
	fsm.Configure(StateResponded).
		OnEntry(func(ctx context.Context, args ...any) error {
			turn.Reply = s.Append(session.Message{
				Sender:         session.SenderAssistant,
				Content:        fsmCtx.replyText,
				IsEmergency:    fsmCtx.risky,
				RelatedAlertID: fsmCtx.alertID,
			})
			turn.Appended = append(turn.Appended, turn.Reply)
			return fsm.FireCtx(ctx, TriggerPersist)
		}).
		Permit(TriggerPersist, StatePersistAttempted)

	// State: PersistAttempted
	// Action: attempt persistence of the assistant message. Terminal either way.
	fsm.Configure(StatePersistAttempted).
		OnEntry(func(ctx context.Context, args ...any) error {
			o.persist(ctx, userID, turn.Reply)
			return nil
		})

	if err := fsm.FireCtx(ctx, TriggerMessageAccepted); err != nil {
		return Turn{}, fmt.Errorf("escalation fsm: %w", err)
	}

	state, err := fsm.State(ctx)
	if err != nil {
		return Turn{}, fmt.Errorf("escalation fsm state: %w", err)
	}
	if state != StatePersistAttempted {
		return Turn{}, fmt.Errorf("escalation fsm ended in unexpected state: %v", state)
	}
	return turn, nil
}

// persist hands one message to the gateway, logging the outcome. Failures
// never propagate; persistence is auxiliary to the conversation.
func (o *Orchestrator) persist(ctx context.Context, userID string, msg session.Message) {
	if err := o.gateway.SaveMessage(ctx, userID, msg); err != nil {
		logger.L.Error("message not persisted", "session_id", msg.SessionID, "sender", msg.Sender, "error", err)
		return
	}
	logger.L.Debug("message persisted", "session_id", msg.SessionID, "sender", msg.Sender)
}
