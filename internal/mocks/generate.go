// Package mocks provides gomock implementations of the store and identity
// contracts.
//
// To regenerate after an interface change, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	store := mocks.NewMockStore(ctrl)
//	store.EXPECT().Take(gomock.Any(), gomock.Any()).Return("", session.ErrNotFound)
package mocks

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=store_mock.go github.com/MrEthical07/handleAuth/session Store

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=repository_mock.go github.com/MrEthical07/handleAuth/identity Repository
