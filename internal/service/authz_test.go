package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOwnerOrAdmin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		owner     string
		requester string
		roles     string
		want      bool
	}{
		{name: "owner", owner: "u1", requester: "u1", roles: "User", want: true},
		{name: "admin among roles", owner: "u1", requester: "u2", roles: "Shop&Admin", want: true},
		{name: "sole admin role", owner: "u1", requester: "u2", roles: "Admin", want: true},
		{name: "other user", owner: "u1", requester: "u2", roles: "Restaurant&Shop", want: false},
		{name: "no roles", owner: "u1", requester: "u2", roles: "", want: false},
		{name: "role substring is not admin", owner: "u1", requester: "u2", roles: "Administrator", want: false},
		{name: "empty ids never match", owner: "", requester: "", roles: "User", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, OwnerOrAdmin(tt.owner, tt.requester, tt.roles))
		})
	}
}
