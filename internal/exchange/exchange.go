// Package exchange reads and writes the import/export document: flat arrays
// of goal and reward records in their stored JSON shape.
package exchange

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hyperengineering/cadence/internal/types"
)

// FormatVersion is written into every exported document.
const FormatVersion = 1

var ErrInvalidDocument = errors.New("invalid exchange document")

// Document is the export envelope.
type Document struct {
	Version        int            `json:"version"`
	ExportedAt     time.Time      `json:"exportedAt"`
	Goals          []types.Goal   `json:"goals"`
	Rewards        []types.Reward `json:"rewards"`
	LifetimePoints int64          `json:"lifetimePoints,omitempty"`
	PointsSpent    int64          `json:"pointsSpent,omitempty"`
}

// New builds a document from the current state.
func New(goals []types.Goal, rewards []types.Reward, ledger types.LedgerState, now time.Time) Document {
	if goals == nil {
		goals = []types.Goal{}
	}
	if rewards == nil {
		rewards = []types.Reward{}
	}
	return Document{
		Version:        FormatVersion,
		ExportedAt:     now.UTC(),
		Goals:          goals,
		Rewards:        rewards,
		LifetimePoints: ledger.LifetimePointsEarned,
		PointsSpent:    ledger.PointsSpent,
	}
}

// Encode writes doc as indented JSON.
func Encode(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return nil
}

// Marshal returns doc as indented JSON.
func Marshal(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads a document. A bare JSON array is accepted as a list of
// goals with no rewards.
func Decode(r io.Reader) (Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Document{}, fmt.Errorf("read document: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Document{}, fmt.Errorf("%w: empty input", ErrInvalidDocument)
	}

	var doc Document
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &doc.Goals); err != nil {
			return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		doc.Version = FormatVersion
	} else if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	if doc.Version == 0 {
		doc.Version = FormatVersion
	}
	if doc.Version > FormatVersion {
		return Document{}, fmt.Errorf("%w: unsupported version %d", ErrInvalidDocument, doc.Version)
	}
	if doc.Goals == nil {
		doc.Goals = []types.Goal{}
	}
	if doc.Rewards == nil {
		doc.Rewards = []types.Reward{}
	}
	if err := Validate(doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Validate checks record identity and enum fields. Cross references
// (parents, dependencies, reward links) are left to the importer, which
// tolerates dangling IDs.
func Validate(doc Document) error {
	goalIDs := make(map[int64]bool, len(doc.Goals))
	for i, g := range doc.Goals {
		if g.ID == 0 {
			return fmt.Errorf("%w: goals[%d] has no id", ErrInvalidDocument, i)
		}
		if goalIDs[g.ID] {
			return fmt.Errorf("%w: duplicate goal id %d", ErrInvalidDocument, g.ID)
		}
		goalIDs[g.ID] = true
		if g.Direction != "" && !g.Direction.Valid() {
			return fmt.Errorf("%w: goal %d has direction %q", ErrInvalidDocument, g.ID, g.Direction)
		}
		if g.Period != "" && !g.Period.Valid() {
			return fmt.Errorf("%w: goal %d has period %q", ErrInvalidDocument, g.ID, g.Period)
		}
	}

	rewardIDs := make(map[string]bool, len(doc.Rewards))
	for i, r := range doc.Rewards {
		if r.ID == "" {
			return fmt.Errorf("%w: rewards[%d] has no id", ErrInvalidDocument, i)
		}
		if rewardIDs[r.ID] {
			return fmt.Errorf("%w: duplicate reward id %s", ErrInvalidDocument, r.ID)
		}
		rewardIDs[r.ID] = true
	}
	return nil
}
