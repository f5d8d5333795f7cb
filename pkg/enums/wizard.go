package enums

import "slices"

// WizardStep is a stage of the gift personalization flow.
type WizardStep string

const (
	WizardStepBasics      WizardStep = "basics"
	WizardStepInterests   WizardStep = "interests"
	WizardStepPreferences WizardStep = "preferences"
	WizardStepResults     WizardStep = "results"
)

// WizardSteps lists the steps in flow order.
var WizardSteps = []WizardStep{
	WizardStepBasics,
	WizardStepInterests,
	WizardStepPreferences,
	WizardStepResults,
}

// Index returns the zero-based position of the step, or -1.
func (s WizardStep) Index() int {
	return slices.Index(WizardSteps, s)
}

// Progress is the linear completion percentage for the step.
func (s WizardStep) Progress() int {
	idx := s.Index()
	if idx < 0 {
		return 0
	}
	return (idx + 1) * 100 / len(WizardSteps)
}

// Previous returns the step before s. The first step has no predecessor.
func (s WizardStep) Previous() (WizardStep, bool) {
	idx := s.Index()
	if idx <= 0 {
		return s, false
	}
	return WizardSteps[idx-1], true
}

func (s WizardStep) IsValid() bool {
	return s.Index() >= 0
}

// OtherOption is the sentinel that requires a free-text override.
const OtherOption = "other"

// Relationship describes who the gift is for.
type Relationship string

const (
	RelationshipPartner   Relationship = "partner"
	RelationshipParent    Relationship = "parent"
	RelationshipSibling   Relationship = "sibling"
	RelationshipFriend    Relationship = "friend"
	RelationshipChild     Relationship = "child"
	RelationshipColleague Relationship = "colleague"
	RelationshipOther     Relationship = OtherOption
)

var relationships = []Relationship{
	RelationshipPartner,
	RelationshipParent,
	RelationshipSibling,
	RelationshipFriend,
	RelationshipChild,
	RelationshipColleague,
	RelationshipOther,
}

// ParseRelationship normalizes case and validates the value.
func ParseRelationship(value string) (Relationship, error) {
	return parse("relationship", relationships, value)
}

// Occasion is the reason for the gift.
type Occasion string

const (
	OccasionBirthday    Occasion = "birthday"
	OccasionAnniversary Occasion = "anniversary"
	OccasionWedding     Occasion = "wedding"
	OccasionGraduation  Occasion = "graduation"
	OccasionFestival    Occasion = "festival"
	OccasionThankYou    Occasion = "thank_you"
	OccasionJustBecause Occasion = "just_because"
	OccasionOther       Occasion = OtherOption
)

var occasions = []Occasion{
	OccasionBirthday,
	OccasionAnniversary,
	OccasionWedding,
	OccasionGraduation,
	OccasionFestival,
	OccasionThankYou,
	OccasionJustBecause,
	OccasionOther,
}

// ParseOccasion normalizes case and validates the value.
func ParseOccasion(value string) (Occasion, error) {
	return parse("occasion", occasions, value)
}
