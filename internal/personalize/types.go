package personalize

import (
	"time"

	"github.com/angelmondragon/giftbox-backend/internal/catalog"
	"github.com/angelmondragon/giftbox-backend/pkg/enums"
	"github.com/google/uuid"
)

// FormData accumulates the answers given across the wizard.
type FormData struct {
	RecipientName      string             `json:"recipient_name,omitempty"`
	City               string             `json:"city,omitempty"`
	Relationship       enums.Relationship `json:"relationship,omitempty"`
	CustomRelationship string             `json:"custom_relationship,omitempty"`
	Occasion           enums.Occasion     `json:"occasion,omitempty"`
	CustomOccasion     string             `json:"custom_occasion,omitempty"`
	BudgetMin          int64              `json:"budget_min,omitempty"`
	BudgetMax          int64              `json:"budget_max,omitempty"`
	Interests          []string           `json:"interests,omitempty"`
	InterestsText      string             `json:"interests_text,omitempty"`
	Preferences        string             `json:"preferences,omitempty"`
}

// Session is one wizard run. ID is ours; SessionID is issued by the
// recommendation service and sent unchanged on every call for this run.
type Session struct {
	ID          uuid.UUID        `json:"id"`
	SessionID   string           `json:"session_id"`
	Step        enums.WizardStep `json:"step"`
	Progress    int              `json:"progress"`
	Question    string           `json:"question,omitempty"`
	Form        FormData         `json:"form"`
	Suggestions []catalog.Item   `json:"suggestions"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func (s *Session) moveTo(step enums.WizardStep, now time.Time) {
	s.Step = step
	s.Progress = step.Progress()
	s.UpdatedAt = now
}

// BasicsInput is the first wizard step.
type BasicsInput struct {
	Name               string `json:"name" validate:"required,max=80"`
	City               string `json:"city" validate:"required,max=120"`
	Relationship       string `json:"relationship" validate:"required"`
	CustomRelationship string `json:"custom_relationship" validate:"required_if=Relationship other,max=60"`
	Occasion           string `json:"occasion" validate:"required"`
	CustomOccasion     string `json:"custom_occasion" validate:"required_if=Occasion other,max=60"`
	BudgetMin          int64  `json:"budget_min" validate:"gte=0"`
	BudgetMax          int64  `json:"budget_max" validate:"gt=0,gtefield=BudgetMin"`
}

// InterestsInput is the second wizard step. At least one selection or a
// non-empty free text is required.
type InterestsInput struct {
	Selected        []string `json:"selected" validate:"max=20,dive,max=60"`
	FreeText        string   `json:"free_text" validate:"max=500"`
	SkipPreferences bool     `json:"skip_preferences"`
}

// PreferencesInput is the free-text narrative step.
type PreferencesInput struct {
	Narrative string `json:"narrative" validate:"required,max=2000"`
}

// FollowupInput refines the displayed results.
type FollowupInput struct {
	Answer string `json:"answer" validate:"required,max=1000"`
	AuxID  string `json:"aux_id" validate:"max=120"`
}

// BackResult carries the session after a back transition. Warning is set when
// the remote rewind failed but the local step still moved.
type BackResult struct {
	Session *Session `json:"session"`
	Warning string   `json:"warning,omitempty"`
}
