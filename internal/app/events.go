package app

import (
	"github.com/Hrishi-524/Quiz-Burst/internal/domain"
)

// Outbound event names. These are the wire-level message types the room
// transport fans out; inbound types live in the transport package.
const (
	EventPlayersUpdate     = "playersUpdate"
	EventGameStarted       = "gameStarted"
	EventNewQuestion       = "newQuestion"
	EventAnswerResult      = "answerResult"
	EventAnswerReveal      = "answerReveal"
	EventLeaderboardUpdate = "leaderboardUpdate"
	EventGameEnded         = "gameEnded"
	EventLobbyInfo         = "lobbyInfo"
	EventJoinSuccess       = "joinSuccess"
	EventError             = "error"
)

// RosterEntry is the public view of one player in the lobby list.
type RosterEntry struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// PlayersUpdate is broadcast whenever the roster changes.
type PlayersUpdate struct {
	Players []RosterEntry `json:"players"`
}

// GameStarted announces the transition out of the lobby.
type GameStarted struct {
	Code      string `json:"code"`
	QuizTitle string `json:"quizTitle"`
}

// LobbyInfo is the host's snapshot of an existing lobby.
type LobbyInfo struct {
	Code           string        `json:"code"`
	QuizTitle      string        `json:"quizTitle"`
	TotalQuestions int           `json:"totalQuestions"`
	Stage          domain.Stage  `json:"stage"`
	Players        []RosterEntry `json:"players"`
}

// JoinSuccess is the private reply to a joining player.
type JoinSuccess struct {
	Code       string        `json:"code"`
	PlayerName string        `json:"playerName"`
	QuizTitle  string        `json:"quizTitle"`
	Players    []RosterEntry `json:"players"`
}

// LeaderboardUpdate goes to the host after every scored answer.
type LeaderboardUpdate struct {
	Leaderboard []domain.LeaderboardEntry `json:"leaderboard"`
}

// GameEnded carries the final standings and the per-question recap.
type GameEnded struct {
	Leaderboard       []domain.LeaderboardEntry `json:"leaderboard"`
	QuestionSummaries []domain.QuestionSummary  `json:"questionSummaries"`
}

// ErrorPayload is sent only to the connection whose action failed.
type ErrorPayload struct {
	Message string `json:"message"`
}
