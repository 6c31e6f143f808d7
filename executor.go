package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/b1naryth1ef/mirror/transport"
	"github.com/dustin/go-humanize"
)

var ErrNotRegular = errors.New("not a regular file or directory")

type ExecutorOpts struct {
	Logger   *slog.Logger
	Progress ProgressFunc
}

// Executor copies paths between the two trees one at a time. A path that
// fails or conflicts never stops the rest of the batch.
type Executor struct {
	logger   *slog.Logger
	progress ProgressFunc
}

func NewExecutor(opts ExecutorOpts) *Executor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{logger: logger, progress: opts.Progress}
}

// DownloadAll copies paths from the server tree into the client tree.
func (e *Executor) DownloadAll(ctx context.Context, server, client transport.Filesystem, paths []string) Outcomes {
	return e.run(ctx, ActionTypeDownload, server, client, paths)
}

// UploadAll copies paths from the client tree into the server tree.
func (e *Executor) UploadAll(ctx context.Context, client, server transport.Filesystem, paths []string) Outcomes {
	return e.run(ctx, ActionTypeUpload, client, server, paths)
}

func (e *Executor) run(ctx context.Context, actionType ActionType, src, dst transport.Filesystem, paths []string) Outcomes {
	outcomes := make(Outcomes, 0, len(paths))
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}

		var outcome Outcome
		if err := ctx.Err(); err != nil {
			outcome = skipped(actionType, p, err)
		} else {
			outcome = e.transfer(actionType, src, dst, p)
		}
		e.report(outcome)
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

func (e *Executor) transfer(actionType ActionType, src, dst transport.Filesystem, p string) Outcome {
	srcEntry, err := src.Stat(p)
	if err != nil {
		return failed(actionType, p, err)
	}

	if err := e.ensureDir(dst, path.Dir(p)); err != nil {
		if errors.Is(err, transport.ErrTypeConflict) {
			return skipped(actionType, p, err)
		}
		return failed(actionType, p, err)
	}

	state, dstEntry, err := transport.Probe(dst, p)
	if state == transport.Unknown {
		return failed(actionType, p, err)
	}

	switch srcEntry.Kind {
	case transport.KindDir:
		if state == transport.Exists {
			if dstEntry.IsDir() {
				return succeeded(actionType, p, 0)
			}
			return skipped(actionType, p, kindConflict(dst, p, dstEntry.Kind, transport.KindDir))
		}
		if err := dst.MkdirAll(p); err != nil {
			if errors.Is(err, transport.ErrTypeConflict) {
				return skipped(actionType, p, err)
			}
			return failed(actionType, p, err)
		}
		return succeeded(actionType, p, 0)
	case transport.KindFile:
		if state == transport.Exists && dstEntry.Kind != transport.KindFile {
			return skipped(actionType, p, kindConflict(dst, p, dstEntry.Kind, transport.KindFile))
		}
	default:
		return skipped(actionType, p, fmt.Errorf("%s: %w", p, ErrNotRegular))
	}

	n, err := e.copy(src, dst, p, srcEntry.Size)
	if err != nil {
		outcome := failed(actionType, p, err)
		outcome.Bytes = n
		return outcome
	}

	if err := ApplyModTime(dst, p, srcEntry.ModTime); err != nil {
		e.logger.Warn("mtime not preserved", "op", actionType, "path", p, "error", err)
	}

	return succeeded(actionType, p, n)
}

// ensureDir makes sure dir exists on dst as a directory, creating it and its
// ancestors if needed. An existing non-directory is ErrTypeConflict.
func (e *Executor) ensureDir(dst transport.Filesystem, dir string) error {
	state, entry, err := transport.Probe(dst, dir)
	switch state {
	case transport.Exists:
		if !entry.IsDir() {
			return kindConflict(dst, dir, entry.Kind, transport.KindDir)
		}
		return nil
	case transport.Unknown:
		return err
	}

	if err := dst.MkdirAll(dir); err != nil {
		return err
	}
	e.logger.Debug("create dir", "root", dst.String(), "path", dir)
	return nil
}

func (e *Executor) copy(src, dst transport.Filesystem, p string, size int64) (int64, error) {
	r, err := src.Open(p)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	w, err := dst.Create(p)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(w, newProgressReader(r, p, size, e.progress))
	if cerr := w.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("copy %s: %w", p, err)
	}
	return n, nil
}

func (e *Executor) report(o Outcome) {
	switch o.Status {
	case StatusSuccess:
		e.logger.Info("transfer", "op", o.Type, "path", o.Path, "size", humanize.Bytes(uint64(o.Bytes)))
	case StatusSkipped:
		e.logger.Warn("skip", "op", o.Type, "path", o.Path, "reason", o.Err)
	default:
		e.logger.Error("transfer failed", "op", o.Type, "path", o.Path, "error", o.Err)
	}
}

func kindConflict(fsys transport.Filesystem, p string, have, want transport.Kind) error {
	return fmt.Errorf("%s/%s is a %s, not a %s: %w", fsys.String(), p, have, want, transport.ErrTypeConflict)
}
