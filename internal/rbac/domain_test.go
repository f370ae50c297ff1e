package rbac

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wardenhq/warden/internal/shared"
)

func TestParseAction(t *testing.T) {
	action, err := ParseAction("Update")
	require.NoError(t, err)
	require.Equal(t, ActionUpdate, action)

	_, err = ParseAction("destroy")
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = ParseAction("")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestParseResource(t *testing.T) {
	resource, err := ParseResource("Doc")
	require.NoError(t, err)
	require.Equal(t, Resource("doc"), resource)

	for _, raw := range []string{"", "9doc", "doc name", "doc:update", "_doc"} {
		_, err := ParseResource(raw)
		require.ErrorIs(t, err, shared.ErrValidation, "resource %q must be rejected", raw)
	}

	_, err = ParseResource("invoice_line-item2")
	require.NoError(t, err)
}

func TestPermissionCode(t *testing.T) {
	require.Equal(t, "doc:update", PermissionCode("doc", ActionUpdate))
}
