package shared_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clientdesk/clientdesk/internal/shared"
	_ "github.com/clientdesk/clientdesk/testing"
)

func TestDecide(t *testing.T) {
	cases := []struct {
		name          string
		authenticated bool
		staff         bool
		want          shared.AccessDecision
	}{
		{"anonymous", false, false, shared.AccessUnauthenticated},
		{"anonymous staff flag ignored", false, true, shared.AccessUnauthenticated},
		{"authenticated non-staff", true, false, shared.AccessForbidden},
		{"authenticated staff", true, true, shared.AccessAllowed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, shared.Decide(tc.authenticated, tc.staff))
		})
	}
}
