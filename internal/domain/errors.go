package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no session exists for a code.
	ErrSessionNotFound = errors.New("game session not found")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuizEmpty indicates a quiz with no questions cannot be hosted.
	ErrQuizEmpty = errors.New("quiz has no questions")
	// ErrPlayerNotFound is returned when a connection has no roster entry.
	ErrPlayerNotFound = errors.New("player not found in session")
	// ErrUnauthorized is returned when a host-only action comes from a
	// different actor than the session's host.
	ErrUnauthorized = errors.New("only the host may perform this action")
	// ErrSessionAlreadyStarted rejects joins and starts after the lobby closed.
	ErrSessionAlreadyStarted = errors.New("game already started")
	// ErrNameTaken rejects a join whose name collides case-insensitively
	// with an active player.
	ErrNameTaken = errors.New("name already taken")
	// ErrSessionFull rejects joins beyond the configured player cap.
	ErrSessionFull = errors.New("game is full")
	// ErrNotEnoughPlayers rejects starting with an empty roster.
	ErrNotEnoughPlayers = errors.New("at least one player required")
	// ErrNotAcceptingAnswers rejects submissions outside the question stage.
	ErrNotAcceptingAnswers = errors.New("not accepting answers")
	// ErrDuplicateAnswer rejects a second submission for the same question.
	ErrDuplicateAnswer = errors.New("answer already submitted for this question")
	// ErrInvalidStage rejects a transition attempted outside its valid stage.
	ErrInvalidStage = errors.New("invalid stage for this action")
	// ErrCodeExhausted means no free code was found within the attempt bound.
	ErrCodeExhausted = errors.New("failed to generate unique game code")
)
