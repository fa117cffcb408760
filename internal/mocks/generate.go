// Package mocks provides generated mock implementations for the portal ports.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for port interfaces.
// Hand-written doubles for the same ports live in internal/mocks/auth.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	verifier := mocks.NewMockIdentityVerifier(ctrl)
//	verifier.EXPECT().Verify(gomock.Any(), "tok").Return(profile, nil)
package mocks

// Generate mock for IdentityVerifier interface from internal/ports package.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=identity_verifier_mock.go github.com/jobmatcher/jm-portal/internal/ports IdentityVerifier

// Generate mock for Authenticator interface from internal/ports package.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=authenticator_mock.go github.com/jobmatcher/jm-portal/internal/ports Authenticator
