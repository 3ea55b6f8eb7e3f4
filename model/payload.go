package model

// Request payloads shared between the HTTP layer and the domain packages.

type FormInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// FormUpdate is the desired-state payload consumed by the reconciliation
// engine. The question list is authoritative: persisted questions whose ids
// are missing from it get deleted.
type FormUpdate struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Questions   []QuestionEntry `json:"questions"`
	Theme       *ThemeInput     `json:"theme,omitempty"`
	Settings    *SettingsInput  `json:"settings,omitempty"`
}

// QuestionEntry is one entry of a reconciliation batch. A nil ID means
// "create"; a non-nil ID means "update that persisted question". There is no
// id-format sniffing: the discriminator is the field itself.
type QuestionEntry struct {
	ID          *int         `json:"id,omitempty"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Type        QuestionType `json:"type"`
	Required    bool         `json:"required"`
	Options     *Options     `json:"options,omitempty"`
	Validation  *Validation  `json:"validation,omitempty"`
	Order       int          `json:"order"`
	Logic       *LogicInput  `json:"logic,omitempty"`
}

type LogicInput struct {
	Enabled bool        `json:"enabled"`
	Rules   []RuleInput `json:"rules"`
}

type RuleInput struct {
	Operator         Operator   `json:"operator"`
	Value            string     `json:"value"`
	TargetQuestionID int        `json:"targetQuestionId"`
	Action           RuleAction `json:"action"`
}

type ThemeInput struct {
	PrimaryColor    string `json:"primaryColor"`
	BackgroundColor string `json:"backgroundColor"`
	FontFamily      string `json:"fontFamily"`
}

type SettingsInput struct {
	ConfirmationMessage    string `json:"confirmationMessage"`
	AllowMultipleResponses bool   `json:"allowMultipleResponses"`
	NotifyOnResponse       bool   `json:"notifyOnResponse"`
	// nil leaves the stored list untouched; non-nil fully replaces it.
	NotificationEmails []string `json:"notificationEmails,omitempty"`
}

type QuestionOrder struct {
	QuestionID int `json:"questionId"`
	Order      int `json:"order"`
}

type VisitInput struct {
	IP        string
	UserAgent string
	Referrer  string
}
