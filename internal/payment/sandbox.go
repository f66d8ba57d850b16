package payment

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"

	"charity/internal/domain"
)

// Sandbox is an in-process gateway for development. Initiated payments verify
// successfully when the amount matches; everything else fails verification.
type Sandbox struct {
	callbackURL string

	mu       sync.Mutex
	payments map[string]int64
}

func NewSandbox(callbackURL string) *Sandbox {
	return &Sandbox{callbackURL: callbackURL, payments: make(map[string]int64)}
}

func (s *Sandbox) Name() string { return "sandbox" }

func (s *Sandbox) Initiate(ctx context.Context, req Request) (Initiation, error) {
	if req.Amount <= 0 {
		return Initiation{}, fmt.Errorf("%w: amount must be positive", domain.ErrGateway)
	}
	authority := "SBX-" + strings.ReplaceAll(uuid.NewString(), "-", "")
	s.mu.Lock()
	s.payments[authority] = req.Amount
	s.mu.Unlock()

	redirect := s.callbackURL
	if redirect != "" {
		q := url.Values{}
		q.Set("Authority", authority)
		q.Set("Status", "OK")
		if req.Reference != "" {
			q.Set("code", req.Reference)
		}
		sep := "?"
		if strings.Contains(redirect, "?") {
			sep = "&"
		}
		redirect += sep + q.Encode()
	}
	return Initiation{Authority: authority, RedirectURL: redirect}, nil
}

func (s *Sandbox) Verify(ctx context.Context, authority string, amount int64) (string, error) {
	s.mu.Lock()
	want, ok := s.payments[authority]
	s.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("%w: unknown authority", domain.ErrGateway)
	}
	if want != amount {
		return "", fmt.Errorf("%w: amount mismatch", domain.ErrGateway)
	}
	return "REF-" + authority[len("SBX-"):len("SBX-")+12], nil
}

var _ Gateway = (*Sandbox)(nil)
