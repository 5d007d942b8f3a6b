package games

import "fmt"

// ErrorCode classifies engine failures for the event router. Turn and rules
// errors come out of engines; the router translates both into ERROR frames
// for the sender without touching state.
type ErrorCode string

const (
	CodeNotYourTurn   ErrorCode = "not_your_turn"
	CodeInvalidPhase  ErrorCode = "invalid_phase"
	CodeIllegalMove   ErrorCode = "illegal_move"
	CodeBadPayload    ErrorCode = "bad_payload"
	CodeUnknownAction ErrorCode = "unknown_action"
	CodeNotSeated     ErrorCode = "not_seated"
	CodeGameOver      ErrorCode = "game_over"
	// Poker-specific rules errors.
	CodeCannotCheck       ErrorCode = "cannot_check"
	CodeInsufficientChips ErrorCode = "insufficient_chips"
	CodeRaiseTooSmall     ErrorCode = "raise_too_small"
	// Chess-specific rules errors.
	CodeBadPromotion ErrorCode = "invalid_promotion"
)

// Error is the typed failure result engines return from HandleAction.
type Error struct {
	Code ErrorCode
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// NewError builds a typed engine error.
func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// ErrNotYourTurn is the bare not-your-turn failure, common enough to share.
func ErrNotYourTurn() *Error { return &Error{Code: CodeNotYourTurn, Msg: "not your turn to act"} }
