package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/handleAuth/session"
	"golang.org/x/sync/errgroup"
)

// TokenPair holds the two handles returned to the client.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Signer signs a token for a principal in one namespace and reports the
// namespace TTL.
type Signer interface {
	Sign(principalID, tenantID string) (string, error)
	TTL() time.Duration
}

// IssueDeps captures what is needed to mint and persist a token pair.
type IssueDeps struct {
	TenantID    string
	Access      Signer
	Refresh     Signer
	AccessKey   func(principalID, fingerprint string) string
	RefreshKey  func(principalID, fingerprint string) string
	Fingerprint func(token string) string
	Store       session.Store

	// SignFailed and StoreFailed classify signing and store errors.
	SignFailed  func(error) error
	StoreFailed func(error) error
}

var errIssueNotReady = errors.New("issue dependencies incomplete")

// RunIssue signs an access and a refresh token, writes both records
// concurrently and returns the handles once both writes completed. When
// either write fails both keys are removed again.
func RunIssue(ctx context.Context, principalID string, deps IssueDeps) (TokenPair, error) {
	if deps.Access == nil || deps.Refresh == nil || deps.AccessKey == nil ||
		deps.RefreshKey == nil || deps.Fingerprint == nil || deps.Store == nil {
		return TokenPair{}, errIssueNotReady
	}

	accessJWT, err := deps.Access.Sign(principalID, deps.TenantID)
	if err != nil {
		return TokenPair{}, wrap(deps.SignFailed, err)
	}
	refreshJWT, err := deps.Refresh.Sign(principalID, deps.TenantID)
	if err != nil {
		return TokenPair{}, wrap(deps.SignFailed, err)
	}

	accessFP := deps.Fingerprint(accessJWT)
	refreshFP := deps.Fingerprint(refreshJWT)
	accessKey := deps.AccessKey(principalID, accessFP)
	refreshKey := deps.RefreshKey(principalID, refreshFP)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return deps.Store.Set(gctx, accessKey, accessJWT, deps.Access.TTL())
	})
	g.Go(func() error {
		return deps.Store.Set(gctx, refreshKey, refreshJWT, deps.Refresh.TTL())
	})
	if err := g.Wait(); err != nil {
		// Neither handle reaches the client, so drop whichever record landed.
		_ = deps.Store.Del(context.WithoutCancel(ctx), accessKey, refreshKey)
		return TokenPair{}, wrap(deps.StoreFailed, err)
	}

	return TokenPair{
		AccessToken:  principalID + ":" + accessFP,
		RefreshToken: principalID + ":" + refreshFP,
	}, nil
}

func wrap(classify func(error) error, cause error) error {
	if classify == nil {
		return cause
	}
	return classify(cause)
}
