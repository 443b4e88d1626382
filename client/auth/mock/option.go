package mock

import "time"

type Option func(*AuthenticationService)

// WithUser registers a user that can log in.
func WithUser(username, password string) Option {
	return func(s *AuthenticationService) {
		s.Users[username] = password
	}
}

// WithRotation issues a fresh refresh token on every refresh.
func WithRotation() Option {
	return func(s *AuthenticationService) {
		s.Rotate = true
	}
}

// WithSingleUse invalidates refresh tokens once exchanged.
func WithSingleUse() Option {
	return func(s *AuthenticationService) {
		s.SingleUse = true
	}
}

// WithRefreshDelay delays refresh responses.
func WithRefreshDelay(delay time.Duration) Option {
	return func(s *AuthenticationService) {
		s.RefreshDelay = delay
	}
}
