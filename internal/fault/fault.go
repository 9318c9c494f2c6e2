// Package fault defines the typed business-rule failures returned by the game
// engines and the action surface. A Failure carries a stable machine code so
// callers branch on Code rather than parsing messages; infrastructure errors
// stay ordinary wrapped errors and never use these codes.
package fault

import "errors"

// Code identifies a business-rule failure class.
type Code string

const (
	InvalidName      Code = "invalid_name"
	InvalidGuess     Code = "invalid_guess"
	InvalidPile      Code = "invalid_pile"
	InvalidSession   Code = "invalid_session"
	GameInProgress   Code = "game_in_progress"
	NotYourTurn      Code = "not_your_turn"
	PlayerNotFound   Code = "player_not_found"
	PlayerInactive   Code = "player_inactive"
	PlayerOffline    Code = "player_offline"
	SessionComplete  Code = "session_complete"
	DeckEmpty        Code = "deck_empty"
	PileLocked       Code = "pile_locked"
	PileEmpty        Code = "pile_empty"
	NoTarget         Code = "no_target"
	NotEnoughPlayers Code = "not_enough_players"
	NotEnoughCards   Code = "not_enough_cards"
	ShuffleLocked    Code = "shuffle_locked"
	Internal         Code = "internal"
)

// Failure is a business-rule rejection. It is terminal: retrying the same
// request against the same state cannot succeed.
type Failure struct {
	Code Code
	Msg  string
}

func (f *Failure) Error() string {
	if f.Msg == "" {
		return string(f.Code)
	}
	return string(f.Code) + ": " + f.Msg
}

// New builds a Failure with the given code and message.
func New(code Code, msg string) error {
	return &Failure{Code: code, Msg: msg}
}

// CodeOf extracts the failure code from err, or Internal if err is not a
// Failure.
func CodeOf(err error) Code {
	var f *Failure
	if errors.As(err, &f) {
		return f.Code
	}
	return Internal
}
