package install

import (
	"errors"
	"slices"
	"strconv"
	"strings"

	"github.com/addonctl/addonctl/internal/archive"
	"github.com/addonctl/addonctl/internal/state"
)

// Stage is a step in one asset's install pipeline.
type Stage uint8

const (
	StagePending Stage = iota
	StageFetching
	StageLocating
	StageRegistering
	StageExtracting
	StageInstalled
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StagePending:
		return "pending"
	case StageFetching:
		return "fetching"
	case StageLocating:
		return "locating"
	case StageRegistering:
		return "registering"
	case StageExtracting:
		return "extracting"
	case StageInstalled:
		return "installed"
	case StageFailed:
		return "failed"
	default:
		return "stage(" + strconv.Itoa(int(s)) + ")"
	}
}

// Event is emitted on every stage transition of a unit.
type Event struct {
	AssetID string
	Title   string
	Stage   Stage
	// Folder is set once the plugin root is known.
	Folder    string
	FromCache bool
	// Err is set only with StageFailed.
	Err error
}

// Reporter receives events from concurrently running units, so
// implementations must be safe for concurrent use.
type Reporter interface {
	Report(Event)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Event)

func (f ReporterFunc) Report(e Event) { f(e) }

type nopReporter struct{}

func (nopReporter) Report(Event) {}

// Outcome is the final result for one asset. When Err is set, Stage is the
// stage that failed.
type Outcome struct {
	Asset     state.Asset
	Folder    string
	Stage     Stage
	Err       error
	FromCache bool
	Files     archive.Result
}

// Failed reports whether the asset did not install.
func (o Outcome) Failed() bool { return o.Err != nil }

// Report aggregates the outcomes of one run.
type Report struct {
	RunID    string
	Outcomes []Outcome
}

// Installed counts successful outcomes.
func (r Report) Installed() int {
	n := 0
	for _, o := range r.Outcomes {
		if !o.Failed() {
			n++
		}
	}
	return n
}

// Failed counts failed outcomes.
func (r Report) Failed() int {
	return len(r.Outcomes) - r.Installed()
}

// Err joins the errors of every failed outcome, or returns nil.
func (r Report) Err() error {
	var failures []error
	for _, o := range r.Outcomes {
		if o.Failed() {
			failures = append(failures, o.Err)
		}
	}
	return errors.Join(failures...)
}

// compareIDs orders numeric ids numerically and anything else lexically.
func compareIDs(a, b string) int {
	na, errA := strconv.ParseUint(a, 10, 64)
	nb, errB := strconv.ParseUint(b, 10, 64)
	if errA == nil && errB == nil {
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}

func sortOutcomes(outcomes []Outcome) {
	slices.SortStableFunc(outcomes, func(a, b Outcome) int {
		return compareIDs(a.Asset.ID, b.Asset.ID)
	})
}
