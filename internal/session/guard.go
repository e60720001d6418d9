package session

import (
	"log/slog"
	"net/http"
	"time"
)

// Doer issues a single HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Guard wraps every session-protected request the pipeline issues. It checks
// the stored token before the request leaves the process and intercepts
// unauthorized responses afterwards; both paths tear the session down through
// the store's idempotent Clear.
type Guard struct {
	store  *Store
	client Doer
	logger *slog.Logger
	now    func() time.Time
}

// NewGuard creates a guard around the given client. A nil client falls back
// to http.DefaultClient.
func NewGuard(store *Store, client Doer, logger *slog.Logger) *Guard {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Guard{
		store:  store,
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// Do issues the request with the stored bearer credential. It fails with
// ErrSessionExpired without contacting the network when the token is already
// expired, and after the fact when the backend answers 401.
func (g *Guard) Do(req *http.Request) (*http.Response, error) {
	if g.store.IsExpired(g.now()) {
		g.teardown("token expired locally")
		return nil, ErrSessionExpired
	}

	req.Header.Set("Authorization", "Bearer "+g.store.Token())

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		g.teardown("unauthorized response from backend")
		return nil, ErrSessionExpired
	}

	return resp, nil
}

func (g *Guard) teardown(reason string) {
	if g.store.Clear() {
		g.logger.Warn("Session torn down",
			slog.String("reason", reason),
		)
	}
}
