/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * http://www.nethesis.it - info@nethesis.it
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */

// Package report implements the reporting sink: one append-only
// JSON-lines mismatch journal per collection, plus the per-collection
// summary log line.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/nethesis/store-verify/internal/differ"
	"github.com/nethesis/store-verify/internal/document"
)

// record is one mismatch journal line, per §4.6.
type record struct {
	Timestamp        string        `json:"ts"`
	BusinessKey      string        `json:"business_key"`
	BusinessKeyValue document.Value `json:"business_key_value"`
	Differences      []diffRecord  `json:"differences"`
	Source           document.Document `json:"source"`
	Target           document.Document `json:"target"`
}

type diffRecord struct {
	Path   string          `json:"path"`
	Kind   differ.Kind     `json:"kind"`
	Source document.Value  `json:"source"`
	Target document.Value  `json:"target"`
}

// Journal manages one append-only JSON-lines file per collection under
// a configured output directory. The directory is created on first
// use; each collection's file is truncated once at the start of its
// run and appended to thereafter. Each collection's file is exclusive
// to a single writer (the draining goroutine), so no per-file lock is
// required beyond serializing directory creation.
type Journal struct {
	outputDir string
	mu        sync.Mutex
	opened    map[string]*os.File
}

// NewJournal returns a Journal writing under outputDir.
func NewJournal(outputDir string) *Journal {
	return &Journal{outputDir: outputDir, opened: make(map[string]*os.File)}
}

var sanitizePattern = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// sanitizeFilename implements §4.6's collection-name sanitization: runs
// of non [A-Za-z0-9._-] characters become a single underscore, the
// result is trimmed of leading/trailing "._-", and an empty result
// falls back to "collection".
func sanitizeFilename(name string) string {
	s := sanitizePattern.ReplaceAllString(name, "_")
	s = strings.Trim(s, "._-")
	if s == "" {
		s = "collection"
	}
	return s
}

func (j *Journal) path(collection string) string {
	return filepath.Join(j.outputDir, sanitizeFilename(collection)+"_mismatches.jsonl")
}

// Truncate creates the output directory if missing and truncates (or
// creates) the named collection's journal file, opening it in append
// mode for subsequent writes within this run.
func (j *Journal) Truncate(collection string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := os.MkdirAll(j.outputDir, 0o755); err != nil {
		return fmt.Errorf("report: creating output directory %s: %w", j.outputDir, err)
	}

	if f, ok := j.opened[collection]; ok {
		f.Close()
	}

	f, err := os.OpenFile(j.path(collection), os.O_CREATE|os.O_TRUNC|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("report: truncating journal for %s: %w", collection, err)
	}
	j.opened[collection] = f
	return nil
}

// Append writes one mismatch record for collection. Non-JSON-native
// values fall through document.Value's conservative MarshalJSON
// fallback and never fail the write.
func (j *Journal) Append(collection, businessKey string, keyValue document.Value, diffs []differ.Diff, source, target document.Document) error {
	j.mu.Lock()
	f, ok := j.opened[collection]
	j.mu.Unlock()
	if !ok {
		return fmt.Errorf("report: journal for collection %s was never truncated", collection)
	}

	diffRecords := make([]diffRecord, len(diffs))
	for i, d := range diffs {
		diffRecords[i] = diffRecord{Path: d.Path, Kind: d.Kind, Source: d.Source, Target: d.Target}
	}

	rec := record{
		Timestamp:        document.Now(time.Now()),
		BusinessKey:      businessKey,
		BusinessKeyValue: keyValue,
		Differences:      diffRecords,
		Source:           source,
		Target:           target,
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("report: marshaling journal record: %w", err)
	}
	line = append(line, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("report: writing journal record for %s: %w", collection, err)
	}
	return nil
}

// Close closes every opened journal file. Safe to call more than once.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	var firstErr error
	for name, f := range j.opened {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(j.opened, name)
	}
	return firstErr
}
