package bot

import (
	"errors"
	"strconv"
	"strings"
)

var errBadWithdrawLine = errors.New("malformed withdraw line")

// parseReferralPayload extracts the referrer id from a /start payload of the
// form "ref<id>". Anything else, including a non-numeric id, is ignored.
func parseReferralPayload(payload string) (string, bool) {
	payload = strings.TrimSpace(payload)
	if !strings.HasPrefix(payload, "ref") {
		return "", false
	}
	id := strings.TrimPrefix(payload, "ref")
	if id == "" {
		return "", false
	}
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		return "", false
	}
	return id, true
}

// parseWithdrawLine splits a "METHOD|ACCOUNT|AMOUNT" dialogue reply. Format
// validation lives here at the boundary; the ledger only sees parsed values.
func parseWithdrawLine(line string) (method, account string, amount int, err error) {
	parts := strings.Split(line, "|")
	if len(parts) != 3 {
		return "", "", 0, errBadWithdrawLine
	}

	method = strings.TrimSpace(parts[0])
	account = strings.TrimSpace(parts[1])
	amount, convErr := strconv.Atoi(strings.TrimSpace(parts[2]))
	if method == "" || account == "" || convErr != nil {
		return "", "", 0, errBadWithdrawLine
	}
	return method, account, amount, nil
}
