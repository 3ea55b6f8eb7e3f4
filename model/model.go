package model

import "time"

type QuestionType string

const (
	ShortText      QuestionType = "short_text"
	Paragraph      QuestionType = "paragraph"
	MultipleChoice QuestionType = "multiple_choice"
	Checkboxes     QuestionType = "checkboxes"
	Dropdown       QuestionType = "dropdown"
	Number         QuestionType = "number"
	Date           QuestionType = "date"
	Rating         QuestionType = "rating"
	FileUpload     QuestionType = "file_upload"
)

// ChoiceLike reports whether Options carry meaning for this question type.
func (t QuestionType) ChoiceLike() bool {
	switch t {
	case MultipleChoice, Checkboxes, Dropdown:
		return true
	}
	return false
}

type Operator string

const (
	Equals      Operator = "equals"
	NotEquals   Operator = "not_equals"
	Contains    Operator = "contains"
	GreaterThan Operator = "greater_than"
)

type RuleAction string

const ActionShow RuleAction = "show"

type Form struct {
	ID          int        `json:"id"`
	UserID      int        `json:"-"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Published   bool       `json:"published"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	Questions   []Question `json:"questions"`
	Theme       *Theme     `json:"theme,omitempty"`
	Settings    *Settings  `json:"settings,omitempty"`
}

// FormSummary is the list-view shape: no questions, just counts.
type FormSummary struct {
	ID            int       `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Published     bool      `json:"published"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	QuestionCount int       `json:"questionCount"`
	ResponseCount int       `json:"responseCount"`
}

type Question struct {
	ID          int               `json:"id"`
	FormID      int               `json:"-"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Type        QuestionType      `json:"type"`
	Required    bool              `json:"required"`
	Options     *Options          `json:"options,omitempty"`
	Validation  *Validation       `json:"validation,omitempty"`
	Order       int               `json:"order"`
	Logic       *ConditionalLogic `json:"logic,omitempty"`
}

type Options struct {
	Choices    []string `json:"choices"`
	AllowOther bool     `json:"allowOther,omitempty"`
}

type Validation struct {
	Min     *int   `json:"min,omitempty"`
	Max     *int   `json:"max,omitempty"`
	Pattern string `json:"pattern,omitempty"`
}

type ConditionalLogic struct {
	ID      int               `json:"id"`
	Enabled bool              `json:"enabled"`
	Rules   []ConditionalRule `json:"rules"`
}

type ConditionalRule struct {
	ID               int        `json:"id"`
	Operator         Operator   `json:"operator"`
	Value            string     `json:"value"`
	TargetQuestionID int        `json:"targetQuestionId"`
	Action           RuleAction `json:"action"`
}

type Theme struct {
	ID              int    `json:"id"`
	PrimaryColor    string `json:"primaryColor"`
	BackgroundColor string `json:"backgroundColor"`
	FontFamily      string `json:"fontFamily"`
}

const (
	DefaultPrimaryColor    = "#3b82f6"
	DefaultBackgroundColor = "#f8fafc"
	DefaultFontFamily      = "Inter, sans-serif"
)

type Settings struct {
	ID                     int      `json:"id"`
	ConfirmationMessage    string   `json:"confirmationMessage"`
	AllowMultipleResponses bool     `json:"allowMultipleResponses"`
	NotifyOnResponse       bool     `json:"notifyOnResponse"`
	NotificationEmails     []string `json:"notificationEmails"`
}

type Response struct {
	ID           int        `json:"id"`
	FormID       int        `json:"formId"`
	RespondentID string     `json:"respondentId,omitempty"`
	Completed    bool       `json:"completed"`
	StartedAt    time.Time  `json:"startedAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	Answers      []Answer   `json:"answers,omitempty"`
}

type Answer struct {
	ID         int    `json:"id"`
	ResponseID int    `json:"-"`
	QuestionID int    `json:"questionId"`
	Value      string `json:"value,omitempty"`
	FileURL    string `json:"fileUrl,omitempty"`

	// set on read paths that join the question for display
	QuestionTitle string       `json:"questionTitle,omitempty"`
	QuestionType  QuestionType `json:"questionType,omitempty"`
}

type FormVisit struct {
	ID        int       `json:"id"`
	FormID    int       `json:"formId"`
	VisitedAt time.Time `json:"visitedAt"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	Referrer  string    `json:"referrer,omitempty"`
}

type FormAnalytics struct {
	VisitCount     int             `json:"visitCount"`
	ResponseCount  int             `json:"responseCount"`
	CompletedCount int             `json:"completedCount"`
	CompletionRate float64         `json:"completionRate"`
	Questions      []QuestionStats `json:"questions"`
}

type QuestionStats struct {
	QuestionID  int     `json:"questionId"`
	Title       string  `json:"title"`
	Order       int     `json:"order"`
	AnswerCount int     `json:"answerCount"`
	DropOffRate float64 `json:"dropOffRate"`
}
