package game

import (
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/Hrishi-524/Quiz-Burst/internal/domain"
)

// Rules carry the tunable parts of the game logic. Zero values fall back to
// the canonical configuration.
type Rules struct {
	// MaxPlayers caps the roster size; 0 means unlimited.
	MaxPlayers int
	// TimeBonusFactor scales the speed bonus applied to correct answers.
	TimeBonusFactor float64
	// AllowSkipReveal lets the host advance straight from the question stage
	// without revealing first.
	AllowSkipReveal bool
}

const (
	defaultPoints    = 1000
	defaultTimeLimit = 30
)

// Engine owns the session state machine. It performs no I/O and no locking;
// callers must hold exclusive access to the session they pass in.
type Engine struct {
	rules Rules
	now   func() time.Time
}

func NewEngine(rules Rules) *Engine {
	return NewEngineWithClock(rules, time.Now)
}

// NewEngineWithClock allows deterministic timestamps in tests.
func NewEngineWithClock(rules Rules, now func() time.Time) *Engine {
	return &Engine{rules: rules, now: now}
}

// NewSession builds a waiting session for a quiz. The code must already be
// unique; uniqueness against the store is the caller's concern.
func (e *Engine) NewSession(quiz domain.Quiz, hostID, code string, settings domain.Settings) (*domain.Session, error) {
	if len(quiz.Questions) == 0 {
		return nil, domain.ErrQuizEmpty
	}

	n := len(quiz.Questions)
	sess := &domain.Session{
		Code:                 code,
		QuizID:               quiz.ID,
		HostID:               hostID,
		Stage:                domain.StageWaiting,
		CurrentQuestionIndex: -1,
		QuestionStats:        make([]domain.QuestionStats, n),
		Settings:             settings,
		QuestionOrder:        identity(n),
		OptionOrder:          make([][]int, n),
		CreatedAt:            e.now(),
	}
	for i, q := range quiz.Questions {
		sess.OptionOrder[i] = identity(len(q.Options))
	}
	// The global rand source is safe for concurrent session creation.
	if settings.ShuffleQuestions {
		rand.Shuffle(n, func(i, j int) {
			sess.QuestionOrder[i], sess.QuestionOrder[j] = sess.QuestionOrder[j], sess.QuestionOrder[i]
		})
	}
	if settings.ShuffleOptions {
		for i := range sess.OptionOrder {
			perm := sess.OptionOrder[i]
			rand.Shuffle(len(perm), func(a, b int) {
				perm[a], perm[b] = perm[b], perm[a]
			})
		}
	}
	return sess, nil
}

// Join appends a player to a waiting session. Names are unique
// case-insensitively among active players.
func (e *Engine) Join(sess *domain.Session, name, connectionID string) (*domain.Player, error) {
	if sess.Stage != domain.StageWaiting {
		return nil, domain.ErrSessionAlreadyStarted
	}
	active := 0
	for _, p := range sess.Players {
		if !p.Active {
			continue
		}
		active++
		if strings.EqualFold(p.Name, name) {
			return nil, domain.ErrNameTaken
		}
	}
	if e.rules.MaxPlayers > 0 && active >= e.rules.MaxPlayers {
		return nil, domain.ErrSessionFull
	}

	player := &domain.Player{
		Name:         name,
		ConnectionID: connectionID,
		Active:       true,
		JoinedAt:     e.now(),
	}
	sess.Players = append(sess.Players, player)
	return player, nil
}

// Start moves a waiting session to the first question.
func (e *Engine) Start(sess *domain.Session, hostID string) error {
	if sess.HostID != hostID {
		return domain.ErrUnauthorized
	}
	if sess.Stage != domain.StageWaiting {
		return domain.ErrSessionAlreadyStarted
	}
	if activePlayers(sess) == 0 {
		return domain.ErrNotEnoughPlayers
	}

	now := e.now()
	sess.Stage = domain.StageQuestion
	sess.CurrentQuestionIndex = 0
	sess.StartedAt = &now
	return nil
}

// SubmitAnswer scores one submission for the current question. The option
// index refers to the presented (possibly shuffled) option order.
func (e *Engine) SubmitAnswer(sess *domain.Session, quiz domain.Quiz, connectionID string, optionIndex, responseTimeMs int) (domain.AnswerResult, error) {
	if sess.Stage != domain.StageQuestion {
		return domain.AnswerResult{}, domain.ErrNotAcceptingAnswers
	}
	player := sess.PlayerByConnection(connectionID)
	if player == nil {
		return domain.AnswerResult{}, domain.ErrPlayerNotFound
	}
	idx := sess.CurrentQuestionIndex
	for _, a := range player.Answers {
		if a.QuestionIndex == idx {
			return domain.AnswerResult{}, domain.ErrDuplicateAnswer
		}
	}

	question := e.currentQuestion(sess, quiz)
	correct := e.resolveOption(sess, quiz, idx, optionIndex) == question.CorrectOptionIndex

	points := 0
	if correct {
		points = scorePoints(question, responseTimeMs, e.rules.TimeBonusFactor)
	}

	player.Answers = append(player.Answers, domain.Answer{
		QuestionIndex:  idx,
		ChosenOption:   optionIndex,
		IsCorrect:      correct,
		PointsAwarded:  points,
		ResponseTimeMs: responseTimeMs,
	})
	player.Score += points

	stat := &sess.QuestionStats[idx]
	stat.TotalAnswers++
	if correct {
		stat.CorrectCount++
	} else {
		stat.IncorrectCount++
	}

	return domain.AnswerResult{
		IsCorrect:     correct,
		PointsAwarded: points,
		TotalScore:    player.Score,
	}, nil
}

// Reveal discloses the current question's answer and stops further scoring.
// Revealing an already-revealed question is a no-op that returns the same
// payload, so a late timer cannot escalate an error.
type Reveal struct {
	CorrectOptionIndex int                  `json:"correctOptionIndex"`
	Explanation        string               `json:"explanation,omitempty"`
	Stats              domain.QuestionStats `json:"stats"`
}

func (e *Engine) RevealAnswer(sess *domain.Session, quiz domain.Quiz) (Reveal, error) {
	switch sess.Stage {
	case domain.StageQuestion:
		sess.Stage = domain.StageReveal
	case domain.StageReveal:
		// already revealed for this index
	default:
		return Reveal{}, domain.ErrInvalidStage
	}

	idx := sess.CurrentQuestionIndex
	question := e.currentQuestion(sess, quiz)
	return Reveal{
		CorrectOptionIndex: e.presentedCorrectOption(sess, quiz, idx, question),
		Explanation:        question.Explanation,
		Stats:              sess.QuestionStats[idx],
	}, nil
}

// Advance moves to the next question, or finishes the game past the last
// one. It reports whether the game is over.
func (e *Engine) Advance(sess *domain.Session, hostID string) (bool, error) {
	if sess.HostID != hostID {
		return false, domain.ErrUnauthorized
	}
	switch sess.Stage {
	case domain.StageReveal:
	case domain.StageQuestion:
		if !e.rules.AllowSkipReveal {
			return false, domain.ErrInvalidStage
		}
	default:
		return false, domain.ErrInvalidStage
	}

	sess.CurrentQuestionIndex++
	if sess.CurrentQuestionIndex >= len(sess.QuestionOrder) {
		e.finish(sess)
		return true, nil
	}
	sess.Stage = domain.StageQuestion
	return false, nil
}

// End forces the session to its terminal stage from any non-terminal one.
func (e *Engine) End(sess *domain.Session, hostID string) error {
	if sess.HostID != hostID {
		return domain.ErrUnauthorized
	}
	if sess.Finished() {
		return nil
	}
	e.finish(sess)
	return nil
}

// RemovePlayer marks the player on a connection inactive. Score and answer
// history are kept so earlier points stay on the books. Unknown connections
// are a no-op: disconnect races must never fail.
func (e *Engine) RemovePlayer(sess *domain.Session, connectionID string) *domain.Player {
	player := sess.PlayerByConnection(connectionID)
	if player == nil {
		return nil
	}
	player.Active = false
	player.ConnectionID = ""
	return player
}

func (e *Engine) finish(sess *domain.Session) {
	now := e.now()
	sess.Stage = domain.StageFinished
	sess.FinishedAt = &now
}

func (e *Engine) currentQuestion(sess *domain.Session, quiz domain.Quiz) domain.Question {
	return quiz.Questions[sess.QuestionOrder[sess.CurrentQuestionIndex]]
}

// resolveOption maps a presented option slot back to the original option
// index of the quiz question shown at presented index idx.
func (e *Engine) resolveOption(sess *domain.Session, quiz domain.Quiz, idx, slot int) int {
	perm := sess.OptionOrder[sess.QuestionOrder[idx]]
	if slot < 0 || slot >= len(perm) {
		return -1
	}
	return perm[slot]
}

// presentedCorrectOption is the inverse mapping: the slot at which the
// correct option appears in the presented order.
func (e *Engine) presentedCorrectOption(sess *domain.Session, quiz domain.Quiz, idx int, q domain.Question) int {
	perm := sess.OptionOrder[sess.QuestionOrder[idx]]
	for slot, orig := range perm {
		if orig == q.CorrectOptionIndex {
			return slot
		}
	}
	return q.CorrectOptionIndex
}

// scorePoints applies the speed bonus: full base points at the buzzer,
// up to base*(1+factor) for an instant answer. The remaining fraction is
// clamped to [0,1]; response times are client-reported, so a negative value
// must not push the bonus past the instant-answer maximum.
func scorePoints(q domain.Question, responseTimeMs int, factor float64) int {
	base := q.Points
	if base == 0 {
		base = defaultPoints
	}
	limit := float64(q.TimeLimitSeconds)
	if limit == 0 {
		limit = defaultTimeLimit
	}
	remaining := (limit - float64(responseTimeMs)/1000.0) / limit
	if remaining < 0 {
		remaining = 0
	}
	if remaining > 1 {
		remaining = 1
	}
	return int(math.Floor(float64(base) * (1 + factor*remaining)))
}

// Leaderboard ranks active players by score descending; ties keep join
// order (stable sort), and ranks are dense 1-based positions.
func Leaderboard(sess *domain.Session) []domain.LeaderboardEntry {
	players := make([]*domain.Player, 0, len(sess.Players))
	for _, p := range sess.Players {
		if p.Active {
			players = append(players, p)
		}
	}
	sort.SliceStable(players, func(i, j int) bool {
		return players[i].Score > players[j].Score
	})

	entries := make([]domain.LeaderboardEntry, len(players))
	for i, p := range players {
		entries[i] = domain.LeaderboardEntry{Rank: i + 1, Name: p.Name, Score: p.Score}
	}
	return entries
}

// QuestionSummaries builds the end-of-game recap, one entry per question in
// the order it was presented.
func (e *Engine) QuestionSummaries(sess *domain.Session, quiz domain.Quiz) []domain.QuestionSummary {
	summaries := make([]domain.QuestionSummary, len(sess.QuestionOrder))
	for i, quizIdx := range sess.QuestionOrder {
		q := quiz.Questions[quizIdx]
		summaries[i] = domain.QuestionSummary{
			QuestionNumber:     i + 1,
			Question:           q.Text,
			Options:            e.presentedOptions(sess, quizIdx, q),
			CorrectOptionIndex: e.presentedCorrectOption(sess, quiz, i, q),
			Explanation:        q.Explanation,
			Stats:              sess.QuestionStats[i],
		}
	}
	return summaries
}

// QuestionView is the player-safe projection of the current question: it
// never carries the correct option index.
type QuestionView struct {
	QuestionNumber int             `json:"questionNumber"`
	TotalQuestions int             `json:"totalQuestions"`
	Question       string          `json:"question"`
	Options        []domain.Option `json:"options"`
	TimeLimit      int             `json:"timeLimit"`
	Points         int             `json:"points"`
	MediaURL       string          `json:"mediaUrl,omitempty"`
}

// CurrentQuestionView renders the current question for broadcast.
func (e *Engine) CurrentQuestionView(sess *domain.Session, quiz domain.Quiz) QuestionView {
	quizIdx := sess.QuestionOrder[sess.CurrentQuestionIndex]
	q := quiz.Questions[quizIdx]
	limit := q.TimeLimitSeconds
	if limit == 0 {
		limit = defaultTimeLimit
	}
	points := q.Points
	if points == 0 {
		points = defaultPoints
	}
	return QuestionView{
		QuestionNumber: sess.CurrentQuestionIndex + 1,
		TotalQuestions: len(sess.QuestionOrder),
		Question:       q.Text,
		Options:        e.presentedOptions(sess, quizIdx, q),
		TimeLimit:      limit,
		Points:         points,
		MediaURL:       q.MediaURL,
	}
}

func (e *Engine) presentedOptions(sess *domain.Session, quizIdx int, q domain.Question) []domain.Option {
	perm := sess.OptionOrder[quizIdx]
	options := make([]domain.Option, len(perm))
	for slot, orig := range perm {
		options[slot] = q.Options[orig]
	}
	return options
}

func activePlayers(sess *domain.Session) int {
	n := 0
	for _, p := range sess.Players {
		if p.Active {
			n++
		}
	}
	return n
}

func identity(n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i
	}
	return ids
}
