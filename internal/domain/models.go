package domain

import "time"

// Stage is the phase a session is in. Transitions only move forward;
// any non-terminal stage may jump straight to StageFinished.
type Stage string

const (
	StageWaiting  Stage = "waiting"
	StageQuestion Stage = "question"
	StageReveal   Stage = "reveal"
	StageFinished Stage = "finished"
)

// Settings are captured at session creation and never change afterwards.
type Settings struct {
	ShuffleQuestions bool `json:"shuffleQuestions" yaml:"shuffleQuestions"`
	ShuffleOptions   bool `json:"shuffleOptions" yaml:"shuffleOptions"`
}

// Answer is one scored submission. Records are append-only; a player holds
// at most one per question index.
type Answer struct {
	QuestionIndex  int  `json:"questionIndex"`
	ChosenOption   int  `json:"chosenOption"`
	IsCorrect      bool `json:"isCorrect"`
	PointsAwarded  int  `json:"pointsAwarded"`
	ResponseTimeMs int  `json:"responseTimeMs"`
}

// Player is a roster entry. ConnectionID is empty once disconnected; score
// and answers survive disconnects so prior points still count.
type Player struct {
	Name         string    `json:"name"`
	ConnectionID string    `json:"connectionId"`
	Score        int       `json:"score"`
	Answers      []Answer  `json:"answers"`
	Active       bool      `json:"active"`
	JoinedAt     time.Time `json:"joinedAt"`
}

// QuestionStats counts submissions per question. TotalAnswers is always
// CorrectCount + IncorrectCount.
type QuestionStats struct {
	CorrectCount   int `json:"correctCount"`
	IncorrectCount int `json:"incorrectCount"`
	TotalAnswers   int `json:"totalAnswers"`
}

// Session is one running game, addressed by its code.
type Session struct {
	Code                 string          `json:"code"`
	QuizID               string          `json:"quizId"`
	HostID               string          `json:"hostId"`
	HostConnectionID     string          `json:"hostConnectionId"`
	Stage                Stage           `json:"stage"`
	CurrentQuestionIndex int             `json:"currentQuestionIndex"`
	Players              []*Player       `json:"players"`
	QuestionStats        []QuestionStats `json:"questionStats"`
	Settings             Settings        `json:"settings"`

	// QuestionOrder maps presented question number -> quiz question index.
	// OptionOrder[i] maps presented option slot -> original option index for
	// quiz question i. Both are identity permutations unless shuffling is on.
	QuestionOrder []int   `json:"questionOrder"`
	OptionOrder   [][]int `json:"optionOrder"`

	CreatedAt  time.Time  `json:"createdAt"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// Finished reports whether the session reached its terminal stage.
func (s *Session) Finished() bool {
	return s.Stage == StageFinished
}

// PlayerByConnection finds the roster entry bound to a live connection.
func (s *Session) PlayerByConnection(connectionID string) *Player {
	if connectionID == "" {
		return nil
	}
	for _, p := range s.Players {
		if p.ConnectionID == connectionID {
			return p
		}
	}
	return nil
}

// Option is a possible answer presented to players.
type Option struct {
	Text string `json:"text"`
}

// Question models a single-choice question with a fixed option list.
type Question struct {
	Text               string   `json:"text"`
	Options            []Option `json:"options"`
	CorrectOptionIndex int      `json:"correctOptionIndex"`
	TimeLimitSeconds   int      `json:"timeLimitSeconds"`
	Points             int      `json:"points"`
	Explanation        string   `json:"explanation,omitempty"`
	MediaURL           string   `json:"mediaUrl,omitempty"`
}

// Quiz is external quiz content: an ordered question list, read-only to
// the game core.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// LeaderboardEntry is one ranked row. Ranks are dense and 1-based: tied
// scores get distinct consecutive ranks in join order.
type LeaderboardEntry struct {
	Rank  int    `json:"rank"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// QuestionSummary is the per-question recap sent when a game finishes.
type QuestionSummary struct {
	QuestionNumber     int           `json:"questionNumber"`
	Question           string        `json:"question"`
	Options            []Option      `json:"options"`
	CorrectOptionIndex int           `json:"correctOptionIndex"`
	Explanation        string        `json:"explanation,omitempty"`
	Stats              QuestionStats `json:"stats"`
}

// AnswerResult is the private outcome of a submission for one player.
type AnswerResult struct {
	IsCorrect     bool `json:"isCorrect"`
	PointsAwarded int  `json:"pointsAwarded"`
	TotalScore    int  `json:"totalScore"`
}
