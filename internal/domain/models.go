package domain

import "time"

// Identity is the authenticated user as seen by the session. It never carries a credential.
type Identity struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// Session is the client-side view of authentication. A nil Identity means absent.
type Session struct {
	Identity *Identity `json:"identity,omitempty"`
}

// Authenticated reports whether the session carries an identity.
func (s Session) Authenticated() bool {
	return s.Identity != nil
}

const RoleUser = "user"

// User is the persisted identity record, including the password hash.
type User struct {
	ID           int64
	DisplayName  string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// Identity strips the credential from the record.
func (u User) Identity() Identity {
	return Identity{ID: u.ID, DisplayName: u.DisplayName, Email: u.Email}
}

// Quiz is a persisted quiz header.
type Quiz struct {
	ID                 int64     `json:"id"`
	OwnerID            int64     `json:"ownerId"`
	Title              string    `json:"title"`
	CategoryID         int       `json:"categoryId"`
	CoverImage         string    `json:"coverImage"`
	CreatedAt          time.Time `json:"createdAt"`
	ParticipationCount int       `json:"participationCount"`
}

// Question is a true/false prompt belonging to a quiz.
type Question struct {
	ID     int64  `json:"id"`
	QuizID int64  `json:"quizId"`
	Text   string `json:"text"`
}

// Answer is the expected boolean for exactly one question.
type Answer struct {
	QuizID     int64 `json:"quizId"`
	QuestionID int64 `json:"questionId"`
	Value      bool  `json:"value"`
}

// QuizQuestion pairs a question with its answer for read views.
type QuizQuestion struct {
	ID     int64  `json:"id"`
	Text   string `json:"text"`
	Answer bool   `json:"answer"`
}

// QuizDetail is the read model behind /quiz/{id}.
type QuizDetail struct {
	Quiz      Quiz           `json:"quiz"`
	Category  string         `json:"category"`
	Questions []QuizQuestion `json:"questions"`
}

// QuizSummary is a list entry with the category name resolved.
type QuizSummary struct {
	Quiz
	Category string `json:"category"`
}

// QuizFilter narrows quiz listings. Zero values mean "no constraint".
type QuizFilter struct {
	Title      string
	CategoryID int
	OwnerID    int64
	Limit      int
	Popular    bool
}

// QuestionResult is the outcome of one answered question.
type QuestionResult struct {
	QuestionID int64 `json:"questionId"`
	Expected   bool  `json:"expected"`
	Given      *bool `json:"given,omitempty"`
	Correct    bool  `json:"correct"`
}

// AttemptResult summarizes one play-through of a quiz.
type AttemptResult struct {
	QuizID  int64            `json:"quizId"`
	Total   int              `json:"total"`
	Correct int              `json:"correct"`
	Results []QuestionResult `json:"results"`
}
