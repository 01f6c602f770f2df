package main

import "errors"

// Configuration and flag validation errors.
var (
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrInvalidCount      = errors.New("count must be positive")
	ErrInvalidEpsilons   = errors.New("invalid epsilons")
	ErrInvalidLevels     = errors.New("invalid levels")
	ErrInvalidWordLength = errors.New("invalid word lengths")
	ErrInvalidLogLevel   = errors.New("invalid log level")
	ErrInvalidRecordType = errors.New("unknown DNS record type")
	ErrNoModelSource     = errors.New("one of --input or --model is required")
	ErrUnsupportedNgram  = errors.New("only bigram transitions are supported")
)
