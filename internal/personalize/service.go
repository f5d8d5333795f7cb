package personalize

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/giftbox-backend/internal/catalog"
	"github.com/angelmondragon/giftbox-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftbox-backend/pkg/errors"
	"github.com/angelmondragon/giftbox-backend/pkg/logger"
	"github.com/angelmondragon/giftbox-backend/pkg/personalizer"
	"github.com/google/uuid"
)

const defaultSuggestionCount = 5

// Transport is the subset of the recommendation client the wizard drives.
type Transport interface {
	Init(ctx context.Context) (personalizer.InitResult, error)
	Submit(ctx context.Context, sessionID, answer string) (json.RawMessage, error)
	Next(ctx context.Context, sessionID string) (string, error)
	Back(ctx context.Context, sessionID string) (json.RawMessage, error)
	Suggestion(ctx context.Context, sessionID, query string, k int) ([]personalizer.Suggestion, error)
	Followup(ctx context.Context, sessionID, answer, auxID string) ([]personalizer.Suggestion, error)
	Reset(ctx context.Context) (json.RawMessage, error)
}

// Resolver turns raw suggestions into display items.
type Resolver interface {
	ResolveSuggestions(ctx context.Context, suggestions []personalizer.Suggestion) ([]catalog.Item, error)
}

// ServiceParams groups dependencies for the wizard service.
type ServiceParams struct {
	Transport       Transport
	Resolver        Resolver
	Store           *Store
	Logger          *logger.Logger
	SuggestionCount int
	Clock           func() time.Time
}

// Service drives the basics → interests → preferences → results wizard.
type Service interface {
	Start(ctx context.Context) (*Session, error)
	Get(ctx context.Context, wizardID uuid.UUID) (*Session, error)
	SubmitBasics(ctx context.Context, wizardID uuid.UUID, input BasicsInput) (*Session, error)
	SubmitInterests(ctx context.Context, wizardID uuid.UUID, input InterestsInput) (*Session, error)
	SubmitPreferences(ctx context.Context, wizardID uuid.UUID, input PreferencesInput) (*Session, error)
	Back(ctx context.Context, wizardID uuid.UUID) (BackResult, error)
	Followup(ctx context.Context, wizardID uuid.UUID, input FollowupInput) (*Session, error)
	StartOver(ctx context.Context, wizardID uuid.UUID) (*Session, error)
}

type service struct {
	transport Transport
	resolver  Resolver
	store     *Store
	logg      *logger.Logger
	k         int
	now       func() time.Time
}

// NewService builds the wizard service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Transport == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "personalizer transport is required")
	}
	if params.Resolver == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog resolver is required")
	}
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session store is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	k := params.SuggestionCount
	if k <= 0 {
		k = defaultSuggestionCount
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		transport: params.Transport,
		resolver:  params.Resolver,
		store:     params.Store,
		logg:      params.Logger,
		k:         k,
		now:       func() time.Time { return clock().UTC() },
	}, nil
}

func (s *service) Start(ctx context.Context) (*Session, error) {
	return s.start(ctx, uuid.New())
}

func (s *service) start(ctx context.Context, wizardID uuid.UUID) (*Session, error) {
	res, err := s.transport.Init(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	sess := &Session{
		ID:          wizardID,
		SessionID:   res.SessionID,
		Question:    res.Question,
		Suggestions: []catalog.Item{},
		CreatedAt:   now,
	}
	sess.moveTo(enums.WizardStepBasics, now)
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	ctx = s.logg.WithSessionID(s.logg.WithWizardID(ctx, wizardID.String()), sess.SessionID)
	s.logg.Info(ctx, "personalize.started")
	return sess, nil
}

func (s *service) Get(ctx context.Context, wizardID uuid.UUID) (*Session, error) {
	return s.store.Load(ctx, wizardID)
}

func (s *service) SubmitBasics(ctx context.Context, wizardID uuid.UUID, input BasicsInput) (*Session, error) {
	input = normalizeBasics(input)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	relationship, err := enums.ParseRelationship(input.Relationship)
	if err != nil {
		return nil, fieldError("relationship", "is invalid")
	}
	occasion, err := enums.ParseOccasion(input.Occasion)
	if err != nil {
		return nil, fieldError("occasion", "is invalid")
	}

	return s.transition(ctx, wizardID, enums.WizardStepBasics, func(ctx context.Context, sess *Session) error {
		form := sess.Form
		form.RecipientName = input.Name
		form.City = input.City
		form.Relationship = relationship
		form.CustomRelationship = input.CustomRelationship
		form.Occasion = occasion
		form.CustomOccasion = input.CustomOccasion
		form.BudgetMin = input.BudgetMin
		form.BudgetMax = input.BudgetMax

		if _, err := s.transport.Submit(ctx, sess.SessionID, basicsAnswer(form)); err != nil {
			return err
		}
		question, err := s.transport.Next(ctx, sess.SessionID)
		if err != nil {
			return err
		}
		sess.Form = form
		sess.Question = question
		sess.moveTo(enums.WizardStepInterests, s.now())
		return nil
	})
}

func (s *service) SubmitInterests(ctx context.Context, wizardID uuid.UUID, input InterestsInput) (*Session, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	selected := cleanList(input.Selected)
	freeText := strings.TrimSpace(input.FreeText)
	if len(selected) == 0 && freeText == "" {
		return nil, fieldError("selected", "choose at least one interest or describe them")
	}
	joined := joinInterests(selected, freeText)

	return s.transition(ctx, wizardID, enums.WizardStepInterests, func(ctx context.Context, sess *Session) error {
		if _, err := s.transport.Submit(ctx, sess.SessionID, joined); err != nil {
			return err
		}
		items, err := s.suggest(ctx, sess.SessionID, joined)
		if err != nil {
			return err
		}
		sess.Form.Interests = selected
		sess.Form.InterestsText = freeText
		sess.Suggestions = items
		sess.Question = ""
		if input.SkipPreferences {
			sess.moveTo(enums.WizardStepResults, s.now())
		} else {
			sess.moveTo(enums.WizardStepPreferences, s.now())
		}
		return nil
	})
}

func (s *service) SubmitPreferences(ctx context.Context, wizardID uuid.UUID, input PreferencesInput) (*Session, error) {
	input.Narrative = strings.TrimSpace(input.Narrative)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	return s.transition(ctx, wizardID, enums.WizardStepPreferences, func(ctx context.Context, sess *Session) error {
		if _, err := s.transport.Submit(ctx, sess.SessionID, input.Narrative); err != nil {
			return err
		}
		items, err := s.suggest(ctx, sess.SessionID, input.Narrative)
		if err != nil {
			return err
		}
		sess.Form.Preferences = input.Narrative
		sess.Suggestions = items
		sess.moveTo(enums.WizardStepResults, s.now())
		return nil
	})
}

// Back rewinds one step. The remote rewind is attempted first; if it fails the
// local step still moves and the failure is reported as a warning.
func (s *service) Back(ctx context.Context, wizardID uuid.UUID) (BackResult, error) {
	var warning string
	sess, err := s.transition(ctx, wizardID, "", func(ctx context.Context, sess *Session) error {
		prev, ok := sess.Step.Previous()
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "already at the first step").
				WithDetails(map[string]any{"step": sess.Step})
		}
		if _, err := s.transport.Back(ctx, sess.SessionID); err != nil {
			s.logg.Warn(ctx, "personalize.back_remote_failed: "+err.Error())
			warning = userMessage(err)
		}
		if prev != enums.WizardStepResults {
			sess.Suggestions = []catalog.Item{}
		}
		sess.moveTo(prev, s.now())
		return nil
	})
	if err != nil {
		return BackResult{}, err
	}
	return BackResult{Session: sess, Warning: warning}, nil
}

func (s *service) Followup(ctx context.Context, wizardID uuid.UUID, input FollowupInput) (*Session, error) {
	input.Answer = strings.TrimSpace(input.Answer)
	input.AuxID = strings.TrimSpace(input.AuxID)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	return s.transition(ctx, wizardID, enums.WizardStepResults, func(ctx context.Context, sess *Session) error {
		raw, err := s.transport.Followup(ctx, sess.SessionID, input.Answer, input.AuxID)
		if err != nil {
			return err
		}
		items, err := s.resolver.ResolveSuggestions(ctx, raw)
		if err != nil {
			return err
		}
		sess.Suggestions = items
		sess.UpdatedAt = s.now()
		return nil
	})
}

// StartOver clears remote state when possible, discards the local session and
// opens a fresh run under the same wizard id.
func (s *service) StartOver(ctx context.Context, wizardID uuid.UUID) (*Session, error) {
	release, err := s.store.Lock(ctx, wizardID)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx = s.logg.WithWizardID(ctx, wizardID.String())
	if _, err := s.transport.Reset(ctx); err != nil {
		s.logg.Warn(ctx, "personalize.reset_failed: "+err.Error())
	}
	if err := s.store.Delete(ctx, wizardID); err != nil {
		return nil, err
	}
	return s.start(ctx, wizardID)
}

// transition loads the session under the wizard lock, checks the expected
// step (empty means any), applies fn and saves. On error nothing is saved and
// the session stays on its current step.
func (s *service) transition(ctx context.Context, wizardID uuid.UUID, expected enums.WizardStep, fn func(context.Context, *Session) error) (*Session, error) {
	release, err := s.store.Lock(ctx, wizardID)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := s.store.Load(ctx, wizardID)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithSessionID(s.logg.WithWizardID(ctx, wizardID.String()), sess.SessionID)

	if expected != "" && sess.Step != expected {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("wizard is at step %s", sess.Step)).
			WithDetails(map[string]any{"step": sess.Step, "expected": expected})
	}
	from := sess.Step
	if err := fn(ctx, sess); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"from": from, "to": sess.Step}), "personalize.transition")
	return sess, nil
}

func (s *service) suggest(ctx context.Context, sessionID, query string) ([]catalog.Item, error) {
	raw, err := s.transport.Suggestion(ctx, sessionID, query, s.k)
	if err != nil {
		return nil, err
	}
	return s.resolver.ResolveSuggestions(ctx, raw)
}

func normalizeBasics(in BasicsInput) BasicsInput {
	in.Name = strings.TrimSpace(in.Name)
	in.City = strings.TrimSpace(in.City)
	in.Relationship = strings.ToLower(strings.TrimSpace(in.Relationship))
	in.CustomRelationship = strings.TrimSpace(in.CustomRelationship)
	in.Occasion = strings.ToLower(strings.TrimSpace(in.Occasion))
	in.CustomOccasion = strings.TrimSpace(in.CustomOccasion)
	return in
}

// basicsAnswer composes name`city`relation`occasion`min-max, substituting the
// free-text override when the enum is "other".
func basicsAnswer(form FormData) string {
	relation := string(form.Relationship)
	if form.Relationship == enums.RelationshipOther {
		relation = form.CustomRelationship
	}
	occasion := string(form.Occasion)
	if form.Occasion == enums.OccasionOther {
		occasion = form.CustomOccasion
	}
	return strings.Join([]string{
		form.RecipientName,
		form.City,
		relation,
		occasion,
		fmt.Sprintf("%d-%d", form.BudgetMin, form.BudgetMax),
	}, personalizer.AnswerDelimiter)
}

func joinInterests(selected []string, freeText string) string {
	parts := append([]string{}, selected...)
	if freeText != "" {
		parts = append(parts, freeText)
	}
	return strings.Join(parts, ", ")
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[strings.ToLower(v)]; ok {
			continue
		}
		seen[strings.ToLower(v)] = struct{}{}
		out = append(out, v)
	}
	return out
}

func userMessage(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Message()
	}
	return "could not reach the recommendation service"
}
