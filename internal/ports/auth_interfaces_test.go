package ports_test

import (
	"testing"

	mocks "github.com/jobmatcher/jm-portal/internal/mocks/auth"
	"github.com/jobmatcher/jm-portal/internal/ports"
)

// This test only verifies that our mocks conform to the ports at compile time.
func TestMocksImplementPorts(t *testing.T) {
	t.Helper()

	var _ ports.SlotStore = (*mocks.MemorySlotStore)(nil)
	var _ ports.IdentityVerifier = (*mocks.StubVerifier)(nil)
	var _ ports.Authenticator = (*mocks.StubAuthenticator)(nil)
	var _ ports.AuthProvider = (*mocks.MockAuthProvider)(nil)
	var _ ports.RoleMapper = (*mocks.StaticRoleMapper)(nil)
}
