// Package share moves files shared into the app from the edge, where the
// share route receives them, to the page, which imports them. The two sides
// only meet through the blob store.
package share

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoFile reports a share submission without a usable file part.
	ErrNoFile = errors.New("share: no file in submission")
	// ErrTooLarge reports a file part over the upload limit.
	ErrTooLarge = errors.New("share: file exceeds upload limit")
)

// SelectionPolicy decides which multipart file part is kept.
type SelectionPolicy string

const (
	// SelectExact keeps only the part named by the configured field.
	SelectExact SelectionPolicy = "exact"
	// SelectFirst keeps the first file part in body order.
	SelectFirst SelectionPolicy = "first"
	// SelectExactThenFirst prefers the named field and falls back to the first file part.
	SelectExactThenFirst SelectionPolicy = "exact_then_first"
)

// ParseSelectionPolicy validates a configured policy name. Empty means the default.
func ParseSelectionPolicy(raw string) (SelectionPolicy, error) {
	switch policy := SelectionPolicy(strings.ToLower(strings.TrimSpace(raw))); policy {
	case "":
		return SelectExactThenFirst, nil
	case SelectExact, SelectFirst, SelectExactThenFirst:
		return policy, nil
	default:
		return "", fmt.Errorf("share: unknown selection policy %q", raw)
	}
}

// UnconsumedPolicy decides what happens to pending files the page did not pick.
type UnconsumedPolicy string

const (
	// DiscardUnconsumed clears the whole store after a collection.
	DiscardUnconsumed UnconsumedPolicy = "discard"
	// KeepUnconsumed deletes only the collected file.
	KeepUnconsumed UnconsumedPolicy = "keep"
)

// ParseUnconsumedPolicy validates a configured policy name. Empty means the default.
func ParseUnconsumedPolicy(raw string) (UnconsumedPolicy, error) {
	switch policy := UnconsumedPolicy(strings.ToLower(strings.TrimSpace(raw))); policy {
	case "":
		return DiscardUnconsumed, nil
	case DiscardUnconsumed, KeepUnconsumed:
		return policy, nil
	default:
		return "", fmt.Errorf("share: unknown unconsumed policy %q", raw)
	}
}

// Defaults for the share pipeline.
const (
	DefaultRoute        = "/share-target"
	DefaultFieldName    = "csvfile"
	DefaultTriggerParam = "trigger-import"
	DefaultErrorParam   = "share-target-error"
	// RouteMarker is the query parameter that also identifies a share submission.
	RouteMarker        = "share-target"
	DefaultMaxUploadMB = 10
)
