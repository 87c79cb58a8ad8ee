package fundd

import (
	"errors"
	"net/http"

	"fundflow/native/common"
	"fundflow/native/crowdfund"
	"fundflow/native/stream"
)

// ErrBadRequest marks malformed requests that never reach an engine.
var ErrBadRequest = errors.New("fundd: bad request")

type errorMapping struct {
	err    error
	status int
	code   string
}

// Errors the engines reject based on current state map to 409; malformed
// input maps to 400.
var errorMappings = []errorMapping{
	{ErrBadRequest, http.StatusBadRequest, "bad_request"},
	{ErrLedgerNotFound, http.StatusNotFound, "ledger_not_found"},
	{ErrStreamNotFound, http.StatusNotFound, "stream_not_found"},
	{common.ErrModulePaused, http.StatusServiceUnavailable, "module_paused"},

	{crowdfund.ErrInvalidGoal, http.StatusBadRequest, "invalid_goal"},
	{crowdfund.ErrInvalidContributor, http.StatusBadRequest, "invalid_contributor"},
	{crowdfund.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
	{crowdfund.ErrInvalidCost, http.StatusBadRequest, "invalid_cost"},
	{crowdfund.ErrInvalidPolicy, http.StatusBadRequest, "invalid_policy"},
	{crowdfund.ErrGoalExceeded, http.StatusConflict, "goal_exceeded"},
	{crowdfund.ErrNotFunded, http.StatusConflict, "not_funded"},
	{crowdfund.ErrDivisionByZero, http.StatusConflict, "division_by_zero"},

	{stream.ErrInvalidRecipient, http.StatusBadRequest, "invalid_recipient"},
	{stream.ErrInvalidDeposit, http.StatusBadRequest, "invalid_deposit"},
	{stream.ErrInvalidDuration, http.StatusBadRequest, "invalid_duration"},
	{stream.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
	{stream.ErrInvalidTopUp, http.StatusBadRequest, "invalid_topup"},
	{stream.ErrBlockOverflow, http.StatusBadRequest, "block_overflow"},
	{stream.ErrAmountOverflow, http.StatusBadRequest, "amount_overflow"},
	{stream.ErrInsufficientEarned, http.StatusConflict, "insufficient_earned"},
	{stream.ErrStaleBlock, http.StatusConflict, "stale_block"},
}

// toStatus returns the HTTP status and stable error code for err.
func toStatus(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

// ErrorCode returns the stable error code reported for err, or an empty
// string for a nil error.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	_, code := toStatus(err)
	return code
}
