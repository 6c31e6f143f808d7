package mirror

import (
	"fmt"
	"io/fs"
	"log/slog"
	"sort"

	"github.com/b1naryth1ef/mirror/transport"
	mapset "github.com/deckarep/golang-set/v2"
)

// Side names one of the two trees.
type Side uint8

const (
	SideServer Side = iota
	SideClient
)

func (s Side) String() string {
	if s == SideServer {
		return "server"
	}
	return "client"
}

// PlanDeletion returns the paths present in base and absent from reference,
// in lexical order. Nothing at or below a subtree that either snapshot
// failed to list is ever planned, since its absence is not known.
func PlanDeletion(base, reference *Snapshot) []string {
	candidates := mapset.NewThreadUnsafeSet[string]()
	for p := range base.Entries {
		if base.Reachable(p) && reference.Reachable(p) {
			candidates.Add(p)
		}
	}

	present := mapset.NewThreadUnsafeSet[string]()
	for p := range reference.Entries {
		present.Add(p)
	}

	return sorted(candidates.Difference(present))
}

// PlanItem is a planned path as it looks right before confirmation.
type PlanItem struct {
	Path string
	Kind transport.Kind
	Size int64
	Err  error
}

// Confirmer shows a deletion plan and returns the user's decision. Anything
// but an explicit yes must return false.
type Confirmer interface {
	Confirm(side Side, items []PlanItem) (bool, error)
}

type ConfirmFunc func(side Side, items []PlanItem) (bool, error)

func (f ConfirmFunc) Confirm(side Side, items []PlanItem) (bool, error) {
	return f(side, items)
}

// DeletionReport is the result of ConfirmAndDelete.
type DeletionReport struct {
	Side      Side
	Deleted   int
	Total     int
	Cancelled bool
	Outcomes  Outcomes
}

func (r *DeletionReport) String() string {
	return fmt.Sprintf("Finished: %d/%d items removed from %s.", r.Deleted, r.Total, r.Side)
}

type Reconciler struct {
	logger  *slog.Logger
	confirm Confirmer
}

func NewReconciler(confirm Confirmer, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{logger: logger, confirm: confirm}
}

// Describe stats every planned path for display.
func (r *Reconciler) Describe(fsys transport.Filesystem, plan []string) []PlanItem {
	items := make([]PlanItem, 0, len(plan))
	for _, p := range plan {
		entry, err := fsys.Stat(p)
		if err != nil {
			items = append(items, PlanItem{Path: p, Err: err})
			continue
		}
		items = append(items, PlanItem{Path: p, Kind: entry.Kind, Size: entry.Size})
	}
	return items
}

// ConfirmAndDelete asks for a single confirmation of the whole plan and, if
// given, deletes it. A refusal or a failing prompt deletes nothing.
func (r *Reconciler) ConfirmAndDelete(side Side, fsys transport.Filesystem, plan []string) (*DeletionReport, error) {
	if len(plan) == 0 {
		return &DeletionReport{Side: side}, nil
	}

	ok, err := r.Confirm(side, fsys, plan)
	if err != nil || !ok {
		return &DeletionReport{Side: side, Total: len(plan), Cancelled: true}, err
	}
	return r.Delete(side, fsys, plan), nil
}

// Confirm shows the plan, with every path stat'd again, and returns the
// decision.
func (r *Reconciler) Confirm(side Side, fsys transport.Filesystem, plan []string) (bool, error) {
	ok, err := r.confirm.Confirm(side, r.Describe(fsys, plan))
	if err != nil {
		return false, fmt.Errorf("confirm deletion: %w", err)
	}
	if !ok {
		r.logger.Info("deletion cancelled", "side", side, "planned", len(plan))
	}
	return ok, nil
}

// Delete removes each planned path on its own: files are removed,
// directories only when empty. Children go before their parents. A failure
// on one path is recorded and the rest still run.
func (r *Reconciler) Delete(side Side, fsys transport.Filesystem, plan []string) *DeletionReport {
	report := &DeletionReport{Side: side, Total: len(plan)}

	ordered := make([]string, len(plan))
	copy(ordered, plan)
	sort.Sort(sort.Reverse(sort.StringSlice(ordered)))

	for _, p := range ordered {
		outcome := r.delete(fsys, p)
		switch outcome.Status {
		case StatusSuccess:
			report.Deleted++
			r.logger.Info("deleted", "side", side, "path", p)
		case StatusSkipped:
			r.logger.Warn("not deleted", "side", side, "path", p, "reason", outcome.Err)
		default:
			r.logger.Error("delete failed", "side", side, "path", p, "error", outcome.Err)
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	r.logger.Info(report.String())
	return report
}

func (r *Reconciler) delete(fsys transport.Filesystem, p string) Outcome {
	state, entry, err := transport.Probe(fsys, p)
	switch state {
	case transport.Absent:
		return skipped(ActionTypeDelete, p, fmt.Errorf("%s disappeared: %w", p, fs.ErrNotExist))
	case transport.Unknown:
		return failed(ActionTypeDelete, p, err)
	}

	switch entry.Kind {
	case transport.KindFile:
		err = fsys.Remove(p)
	case transport.KindDir:
		err = fsys.RemoveDir(p)
	default:
		return skipped(ActionTypeDelete, p, fmt.Errorf("%s: %w", p, ErrNotRegular))
	}
	if err != nil {
		return failed(ActionTypeDelete, p, err)
	}
	return succeeded(ActionTypeDelete, p, 0)
}
