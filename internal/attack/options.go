package attack

import "go.uber.org/zap"

const (
	DefaultMaxGuess    = 128
	DefaultMaxAttempts = 16
)

type settings struct {
	workers     int
	log         *zap.SugaredLogger
	maxGuess    int
	maxAttempts int
	filler      byte
}

type Option func(*settings)

// WithWorkers dispatches the 256 candidates of each position over n
// goroutines. n <= 1 searches sequentially and stops at the first match.
func WithWorkers(n int) Option {
	return func(s *settings) { s.workers = n }
}

func WithLogger(lg *zap.SugaredLogger) Option {
	return func(s *settings) {
		if lg != nil {
			s.log = lg
		}
	}
}

// WithMaxGuess bounds the filler length used while probing for a block size.
func WithMaxGuess(n int) Option {
	return func(s *settings) { s.maxGuess = n }
}

// WithMaxAttempts bounds the retries of RecoverIVKey.
func WithMaxAttempts(n int) Option {
	return func(s *settings) { s.maxAttempts = n }
}

// WithFiller sets the byte used for attacker-controlled filler. FindPrefixLength
// ignores it and always compares three fillers of its own.
func WithFiller(b byte) Option {
	return func(s *settings) { s.filler = b }
}

func newSettings(opts []Option) settings {
	s := settings{
		workers:     1,
		log:         zap.NewNop().Sugar(),
		maxGuess:    DefaultMaxGuess,
		maxAttempts: DefaultMaxAttempts,
		filler:      'A',
	}
	for _, o := range opts {
		o(&s)
	}
	if s.maxAttempts < 1 {
		s.maxAttempts = 1
	}
	return s
}
