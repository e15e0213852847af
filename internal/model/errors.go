package model

import "errors"

var (
	// ErrInvalidInput marks malformed attempts, features or transcripts.
	ErrInvalidInput = errors.New("invalid input")
	// ErrModelUnavailable means the clustering model could not be loaded.
	ErrModelUnavailable = errors.New("cluster model unavailable")
	// ErrUpstreamTransient marks embedding or LLM calls that failed after retrying.
	ErrUpstreamTransient = errors.New("upstream call failed")
	// ErrIndexEmpty means the vector index holds no chunks.
	ErrIndexEmpty = errors.New("vector index is empty")
)
