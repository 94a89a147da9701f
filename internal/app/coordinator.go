package app

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/Hrishi-524/Quiz-Burst/internal/domain"
	"github.com/Hrishi-524/Quiz-Burst/internal/game"
)

// SessionStore abstracts how game sessions are persisted (in-memory, Redis).
// Save must keep the connection index in sync so FindByConnection can
// resolve disconnects.
type SessionStore interface {
	Get(ctx context.Context, code string) (*domain.Session, error)
	Save(ctx context.Context, sess *domain.Session) error
	ExistsActive(ctx context.Context, code string) (bool, error)
	FindByConnection(ctx context.Context, connectionID string) (*domain.Session, error)
	Delete(ctx context.Context, code string) error
}

// QuizProvider loads quiz content (from cache/backing store).
type QuizProvider interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// Broadcaster delivers events to the live connections of a room. The
// transport layer implements it; the coordinator never touches sockets.
type Broadcaster interface {
	ToRoom(code, event string, payload any)
	ToRoomExcept(code, exceptConnectionID, event string, payload any)
	ToHost(code, event string, payload any)
	ToConn(code, connectionID, event string, payload any)
}

// Config tunes the coordinator. Zero values fall back to defaults.
type Config struct {
	Rules game.Rules
	// RevealDelay is the pause between an automatic reveal and the
	// auto-advance that follows it.
	RevealDelay time.Duration
	// CodeAttempts bounds how many codes are tried before giving up.
	CodeAttempts int
}

const (
	defaultRevealDelay  = 3 * time.Second
	defaultCodeAttempts = 10
	storeReadAttempts   = 3
)

// Coordinator bridges inbound messages to the state machine, owns the
// per-question countdown timers, and decides who receives each event.
// It holds no game state itself; sessions live in the store and every
// read-modify-write happens under that session's lock.
type Coordinator struct {
	store   SessionStore
	quizzes QuizProvider
	rooms   Broadcaster
	engine  *game.Engine
	cfg     Config
	newCode func() string

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	timersMu sync.Mutex
	timers   map[string]*questionTimer
}

func NewCoordinator(store SessionStore, quizzes QuizProvider, rooms Broadcaster, cfg Config) *Coordinator {
	return NewCoordinatorWithClock(store, quizzes, rooms, cfg, time.Now)
}

// NewCoordinatorWithClock allows deterministic timestamps in tests.
func NewCoordinatorWithClock(store SessionStore, quizzes QuizProvider, rooms Broadcaster, cfg Config, now func() time.Time) *Coordinator {
	if cfg.RevealDelay <= 0 {
		cfg.RevealDelay = defaultRevealDelay
	}
	if cfg.CodeAttempts <= 0 {
		cfg.CodeAttempts = defaultCodeAttempts
	}
	return &Coordinator{
		store:   store,
		quizzes: quizzes,
		rooms:   rooms,
		engine:  game.NewEngineWithClock(cfg.Rules, now),
		cfg:     cfg,
		newCode: game.NewCode,
		locks:   make(map[string]*sync.Mutex),
		timers:  make(map[string]*questionTimer),
	}
}

// lockCode serializes all mutations of one session. Sessions are fully
// independent, so the lock is per code, never global.
func (c *Coordinator) lockCode(code string) func() {
	c.locksMu.Lock()
	mu, ok := c.locks[code]
	if !ok {
		mu = &sync.Mutex{}
		c.locks[code] = mu
	}
	c.locksMu.Unlock()
	mu.Lock()
	return mu.Unlock
}

// getSession retries transient store failures; a missing session is final.
func (c *Coordinator) getSession(ctx context.Context, code string) (*domain.Session, error) {
	var err error
	for attempt := 0; attempt < storeReadAttempts; attempt++ {
		var sess *domain.Session
		sess, err = c.store.Get(ctx, code)
		if err == nil {
			return sess, nil
		}
		if err == domain.ErrSessionNotFound {
			return nil, err
		}
	}
	return nil, err
}

// CreateSession builds a new lobby for a quiz and returns it together with
// the quiz title for the host's lobby view.
func (c *Coordinator) CreateSession(ctx context.Context, quizID, hostID, hostConnectionID string, settings domain.Settings) (*domain.Session, string, error) {
	quiz, err := c.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, "", err
	}

	code, err := c.uniqueCode(ctx)
	if err != nil {
		return nil, "", err
	}

	sess, err := c.engine.NewSession(quiz, hostID, code, settings)
	if err != nil {
		return nil, "", err
	}
	sess.HostConnectionID = hostConnectionID

	unlock := c.lockCode(code)
	defer unlock()
	if err := c.store.Save(ctx, sess); err != nil {
		return nil, "", err
	}
	log.Printf("created game %s for quiz %s", code, quizID)
	return sess, quiz.Title, nil
}

func (c *Coordinator) uniqueCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < c.cfg.CodeAttempts; attempt++ {
		code := c.newCode()
		taken, err := c.store.ExistsActive(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", domain.ErrCodeExhausted
}

// HostJoin re-binds a host connection to an existing lobby (page refresh,
// reconnect) and returns a snapshot for the lobby view.
func (c *Coordinator) HostJoin(ctx context.Context, code, hostID, connectionID string) (LobbyInfo, error) {
	unlock := c.lockCode(code)
	defer unlock()

	sess, err := c.getSession(ctx, code)
	if err != nil {
		return LobbyInfo{}, err
	}
	if sess.HostID != hostID {
		return LobbyInfo{}, domain.ErrUnauthorized
	}
	sess.HostConnectionID = connectionID
	if err := c.store.Save(ctx, sess); err != nil {
		return LobbyInfo{}, err
	}

	quiz, err := c.quizzes.GetQuiz(ctx, sess.QuizID)
	if err != nil {
		return LobbyInfo{}, err
	}

	c.rooms.ToRoom(code, EventPlayersUpdate, PlayersUpdate{Players: rosterOf(sess)})
	return LobbyInfo{
		Code:           code,
		QuizTitle:      quiz.Title,
		TotalQuestions: len(quiz.Questions),
		Stage:          sess.Stage,
		Players:        rosterOf(sess),
	}, nil
}

// Join adds a player to a waiting lobby and announces the new roster.
func (c *Coordinator) Join(ctx context.Context, code, name, connectionID string) (JoinSuccess, error) {
	unlock := c.lockCode(code)
	defer unlock()

	sess, err := c.getSession(ctx, code)
	if err != nil {
		return JoinSuccess{}, err
	}
	if _, err := c.engine.Join(sess, name, connectionID); err != nil {
		return JoinSuccess{}, err
	}
	if err := c.store.Save(ctx, sess); err != nil {
		return JoinSuccess{}, err
	}

	quiz, err := c.quizzes.GetQuiz(ctx, sess.QuizID)
	if err != nil {
		return JoinSuccess{}, err
	}

	roster := rosterOf(sess)
	c.rooms.ToRoomExcept(code, connectionID, EventPlayersUpdate, PlayersUpdate{Players: roster})
	log.Printf("player %s joined game %s", name, code)
	return JoinSuccess{
		Code:       code,
		PlayerName: name,
		QuizTitle:  quiz.Title,
		Players:    roster,
	}, nil
}

// Start opens the first question and arms its countdown.
func (c *Coordinator) Start(ctx context.Context, code, hostID string) error {
	unlock := c.lockCode(code)
	defer unlock()

	sess, err := c.getSession(ctx, code)
	if err != nil {
		return err
	}
	if err := c.engine.Start(sess, hostID); err != nil {
		return err
	}
	if err := c.store.Save(ctx, sess); err != nil {
		return err
	}

	quiz, err := c.quizzes.GetQuiz(ctx, sess.QuizID)
	if err != nil {
		return err
	}

	view := c.engine.CurrentQuestionView(sess, quiz)
	c.rooms.ToRoom(code, EventGameStarted, GameStarted{Code: code, QuizTitle: quiz.Title})
	c.rooms.ToRoom(code, EventNewQuestion, view)
	c.armQuestionTimer(code, sess.CurrentQuestionIndex, time.Duration(view.TimeLimit)*time.Second)
	log.Printf("game %s started with %d players", code, len(sess.Players))
	return nil
}

// SubmitAnswer scores one player's answer. The private result goes back to
// the submitting connection only; the host gets a leaderboard update.
func (c *Coordinator) SubmitAnswer(ctx context.Context, code, connectionID string, optionIndex, responseTimeMs int) error {
	unlock := c.lockCode(code)
	defer unlock()

	sess, err := c.getSession(ctx, code)
	if err != nil {
		return err
	}
	quiz, err := c.quizzes.GetQuiz(ctx, sess.QuizID)
	if err != nil {
		return err
	}
	result, err := c.engine.SubmitAnswer(sess, quiz, connectionID, optionIndex, responseTimeMs)
	if err != nil {
		return err
	}
	if err := c.store.Save(ctx, sess); err != nil {
		return err
	}

	c.rooms.ToConn(code, connectionID, EventAnswerResult, result)
	c.rooms.ToHost(code, EventLeaderboardUpdate, LeaderboardUpdate{Leaderboard: game.Leaderboard(sess)})
	return nil
}

// Reveal discloses the current answer to the room. Both the host and the
// countdown call it; a manual reveal supersedes the pending timer.
func (c *Coordinator) Reveal(ctx context.Context, code string) (game.Reveal, error) {
	c.cancelTimer(code)

	unlock := c.lockCode(code)
	defer unlock()
	return c.revealLocked(ctx, code)
}

func (c *Coordinator) revealLocked(ctx context.Context, code string) (game.Reveal, error) {
	sess, err := c.getSession(ctx, code)
	if err != nil {
		return game.Reveal{}, err
	}
	quiz, err := c.quizzes.GetQuiz(ctx, sess.QuizID)
	if err != nil {
		return game.Reveal{}, err
	}
	already := sess.Stage == domain.StageReveal
	reveal, err := c.engine.RevealAnswer(sess, quiz)
	if err != nil {
		return game.Reveal{}, err
	}
	if !already {
		if err := c.store.Save(ctx, sess); err != nil {
			return game.Reveal{}, err
		}
		c.rooms.ToRoom(code, EventAnswerReveal, reveal)
	}
	return reveal, nil
}

// Advance moves the room to the next question or ends the game. A manual
// advance supersedes any pending timer.
func (c *Coordinator) Advance(ctx context.Context, code, hostID string) (bool, error) {
	c.cancelTimer(code)

	unlock := c.lockCode(code)
	defer unlock()
	return c.advanceLocked(ctx, code, hostID)
}

func (c *Coordinator) advanceLocked(ctx context.Context, code, hostID string) (bool, error) {
	sess, err := c.getSession(ctx, code)
	if err != nil {
		return false, err
	}
	quiz, err := c.quizzes.GetQuiz(ctx, sess.QuizID)
	if err != nil {
		return false, err
	}
	over, err := c.engine.Advance(sess, hostID)
	if err != nil {
		return false, err
	}
	if err := c.store.Save(ctx, sess); err != nil {
		return false, err
	}

	if over {
		c.finishRoom(sess, quiz)
		return true, nil
	}
	view := c.engine.CurrentQuestionView(sess, quiz)
	c.rooms.ToRoom(code, EventNewQuestion, view)
	c.armQuestionTimer(code, sess.CurrentQuestionIndex, time.Duration(view.TimeLimit)*time.Second)
	return false, nil
}

// End finishes the game immediately from any non-terminal stage.
func (c *Coordinator) End(ctx context.Context, code, hostID string) error {
	c.cancelTimer(code)

	unlock := c.lockCode(code)
	defer unlock()

	sess, err := c.getSession(ctx, code)
	if err != nil {
		return err
	}
	quiz, err := c.quizzes.GetQuiz(ctx, sess.QuizID)
	if err != nil {
		return err
	}
	if err := c.engine.End(sess, hostID); err != nil {
		return err
	}
	if err := c.store.Save(ctx, sess); err != nil {
		return err
	}
	c.finishRoom(sess, quiz)
	log.Printf("game %s ended by host", code)
	return nil
}

// finishRoom announces the final standings and drops the pending timer.
// Callers must hold the session lock.
func (c *Coordinator) finishRoom(sess *domain.Session, quiz domain.Quiz) {
	c.cancelTimer(sess.Code)
	c.rooms.ToRoom(sess.Code, EventGameEnded, GameEnded{
		Leaderboard:       game.Leaderboard(sess),
		QuestionSummaries: c.engine.QuestionSummaries(sess, quiz),
	})
}

// Disconnect reconciles a dropped connection. It never returns an error:
// disconnect races with game shutdown are routine, not failures.
func (c *Coordinator) Disconnect(ctx context.Context, connectionID string) {
	sess, err := c.store.FindByConnection(ctx, connectionID)
	if err != nil || sess == nil {
		return
	}
	code := sess.Code

	unlock := c.lockCode(code)
	defer unlock()

	// Re-read under the lock; the first lookup only resolved the code.
	sess, err = c.getSession(ctx, code)
	if err != nil {
		return
	}

	if sess.HostConnectionID == connectionID {
		sess.HostConnectionID = ""
		if err := c.store.Save(ctx, sess); err != nil {
			log.Printf("save after host disconnect on %s: %v", code, err)
		}
		return
	}

	removed := c.engine.RemovePlayer(sess, connectionID)
	if removed == nil {
		return
	}
	if err := c.store.Save(ctx, sess); err != nil {
		log.Printf("save after disconnect of %s on %s: %v", removed.Name, code, err)
		return
	}
	c.rooms.ToRoom(code, EventPlayersUpdate, PlayersUpdate{Players: rosterOf(sess)})
	log.Printf("player %s disconnected from game %s", removed.Name, code)
}

func rosterOf(sess *domain.Session) []RosterEntry {
	roster := make([]RosterEntry, 0, len(sess.Players))
	for _, p := range sess.Players {
		if !p.Active {
			continue
		}
		roster = append(roster, RosterEntry{Name: p.Name, Score: p.Score})
	}
	return roster
}
