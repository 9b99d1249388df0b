package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseReferralPayload(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantID   string
		wantOK   bool
	}{
		{name: "plain referral", payload: "ref7", wantID: "7", wantOK: true},
		{name: "long id", payload: "ref123456789", wantID: "123456789", wantOK: true},
		{name: "surrounding whitespace", payload: "  ref42  ", wantID: "42", wantOK: true},
		{name: "empty payload", payload: "", wantOK: false},
		{name: "missing id", payload: "ref", wantOK: false},
		{name: "non-numeric id", payload: "refabc", wantOK: false},
		{name: "unrelated payload", payload: "promo2024", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := parseReferralPayload(tt.payload)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestParseWithdrawLine(t *testing.T) {
	tests := []struct {
		name        string
		line        string
		wantMethod  string
		wantAccount string
		wantAmount  int
		wantErr     bool
	}{
		{
			name:        "valid line",
			line:        "PayPal|me@example.com|100",
			wantMethod:  "PayPal",
			wantAccount: "me@example.com",
			wantAmount:  100,
		},
		{
			name:        "spaces around fields",
			line:        " bKash | 01700000000 | 250 ",
			wantMethod:  "bKash",
			wantAccount: "01700000000",
			wantAmount:  250,
		},
		{name: "too few fields", line: "PayPal|100", wantErr: true},
		{name: "too many fields", line: "a|b|c|d", wantErr: true},
		{name: "non-numeric amount", line: "PayPal|me@example.com|lots", wantErr: true},
		{name: "empty method", line: "|me@example.com|100", wantErr: true},
		{name: "empty account", line: "PayPal||100", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method, account, amount, err := parseWithdrawLine(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantMethod, method)
			assert.Equal(t, tt.wantAccount, account)
			assert.Equal(t, tt.wantAmount, amount)
		})
	}
}
