package cregiswebhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapStatus(t *testing.T) {
	cases := []struct {
		raw  string
		want Outcome
	}{
		{"paid", OutcomeSuccess},
		{"complete", OutcomeSuccess},
		{"success", OutcomeSuccess},
		{"confirmed", OutcomeSuccess},
		{"PAID", OutcomeIndeterminate},
		{" confirmed ", OutcomeIndeterminate},
		{"rejected", OutcomeFailure},
		{"failed", OutcomeFailure},
		{"cancelled", OutcomeFailure},
		{"expired", OutcomeFailure},
		{"processing", OutcomeIndeterminate},
		{"pending", OutcomeIndeterminate},
		{"", OutcomeIndeterminate},
		{"refunded", OutcomeIndeterminate},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, MapStatus(tc.raw), "status %q", tc.raw)
	}
}
