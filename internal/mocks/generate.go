// Package mocks provides gomock implementations of the gateway's ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	provider := mocks.NewMockIdentityProvider(ctrl)
//	provider.EXPECT().ReadSession(gomock.Any(), gomock.Any()).Return(ports.SessionRead{AccessToken: "tok"}, nil)
package mocks

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=identity_provider_mock.go github.com/target/storefront-gateway/internal/ports IdentityProvider

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=credential_cache_mock.go github.com/target/storefront-gateway/internal/ports CredentialCache
