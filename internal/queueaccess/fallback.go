package queueaccess

import (
	"fmt"

	"swipely/internal/ipc"
	"swipely/internal/store"
)

// Session represents an access handle and its cleanup function.
type Session struct {
	Access Access
	// Remote is true when a running daemon serves the session.
	Remote bool
	close  func() error
}

// Close releases resources associated with the session.
func (s Session) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenWithFallback tries the daemon API first, then falls back to direct
// store access.
func OpenWithFallback(
	dial func() (*ipc.Client, error),
	openStore func() (*store.Store, error),
) (Session, error) {
	if dial != nil {
		if client, err := dial(); err == nil {
			return Session{
				Access: NewIPCAccess(client),
				Remote: true,
				close:  client.Close,
			}, nil
		}
	}

	if openStore == nil {
		return Session{}, fmt.Errorf("open store: no store opener configured")
	}
	st, err := openStore()
	if err != nil {
		return Session{}, fmt.Errorf("open store: %w", err)
	}
	return Session{
		Access: NewStoreAccess(st),
		close:  st.Close,
	}, nil
}
