package session

import (
	"github.com/Moonlight-Companies/gologger/logger"
)

// Option configures a Session.
type Option func(*Session)

// WithLogger replaces the session logger. Pointers created by the session log
// their debug traces through it too.
func WithLogger(log *logger.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// WithCacheImage controls whether the main module image is copied once per
// attach (the default) or read from the target on every scan.
func WithCacheImage(cache bool) Option {
	return func(s *Session) {
		s.cacheImage = cache
	}
}

// WithPointerDebug turns on hop tracing for every pointer the session creates.
func WithPointerDebug(debug bool) Option {
	return func(s *Session) {
		s.pointerDebug = debug
	}
}
