// Package model contains simple struct definitions shared across packages.
package model

import (
	"io"
	"time"
)

// Outcome is the result of checking a signed URL.
type Outcome string

const (
	OutcomeGranted  Outcome = "granted"
	OutcomeRejected Outcome = "rejected"
)

// AccessRecord is one audit entry: who asked for what and whether the signed
// URL was accepted. It never carries the signature or any secret.
type AccessRecord struct {
	ID         string    `json:"id"`
	Time       time.Time `json:"time"`
	RemoteAddr string    `json:"remoteAddr"`
	Path       string    `json:"path"`
	// Version is the key version claimed by the URL, empty when absent.
	Version string  `json:"version,omitempty"`
	Outcome Outcome `json:"outcome"`
	// Reason is set for rejections only.
	Reason string `json:"reason,omitempty"`
}

// Object is a protected resource served once its signed URL checks out.
type Object struct {
	Key         string
	ContentType string
	Size        int64
	ModTime     time.Time
	// Body is seekable so range requests can be served.
	Body io.ReadSeekCloser
}
