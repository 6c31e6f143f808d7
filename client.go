package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/b1naryth1ef/mirror/transport"
	"golang.org/x/sync/errgroup"
)

type Phase uint8

const (
	PhaseDisconnected Phase = iota
	PhaseConnecting
	PhaseConnected
	PhaseEnumerating
	PhaseDiffing
	PhaseTransferring
	PhasePlanning
	PhaseConfirming
	PhaseReconciling
	PhaseClosed
)

var phaseNames = [...]string{
	"disconnected", "connecting", "connected", "enumerating", "diffing",
	"transferring", "planning", "confirming", "reconciling", "closed",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

type ClientOpts struct {
	// Local is the client tree.
	Local transport.Filesystem
	// Dial opens the session to the server tree, once per operation.
	Dial Dialer

	SyncMode SyncMode
	Ignore   []string

	Logger   *slog.Logger
	Progress ProgressFunc
	Confirm  Confirmer
}

// Client runs one top-level operation at a time. Every operation opens its
// own session and closes it on the way out, whatever happens in between.
type Client struct {
	opts   ClientOpts
	logger *slog.Logger
	phase  Phase

	executor   *Executor
	reconciler *Reconciler
}

func NewClient(opts ClientOpts) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.SyncMode == "" {
		opts.SyncMode = Bidirectional
	}
	confirm := opts.Confirm
	if confirm == nil {
		confirm = ConfirmFunc(func(Side, []PlanItem) (bool, error) { return false, nil })
	}

	return &Client{
		opts:       opts,
		logger:     logger,
		executor:   NewExecutor(ExecutorOpts{Logger: logger, Progress: opts.Progress}),
		reconciler: NewReconciler(confirm, logger),
	}
}

// Phase returns where the last operation is, or ended.
func (c *Client) Phase() Phase {
	return c.phase
}

func (c *Client) enter(p Phase) {
	c.logger.Debug("state", "from", c.phase, "to", p)
	c.phase = p
}

func (c *Client) withSession(ctx context.Context, fn func(Session) error) (err error) {
	c.enter(PhaseConnecting)
	sess, err := c.opts.Dial(ctx)
	if err != nil {
		c.enter(PhaseClosed)
		return fmt.Errorf("connect: %w", err)
	}
	c.enter(PhaseConnected)

	defer func() {
		if cerr := sess.Close(); cerr != nil {
			c.logger.Warn("closing session", "error", cerr)
		}
		c.enter(PhaseClosed)
	}()

	return fn(sess)
}

func (c *Client) enumerateOpts() EnumerateOpts {
	return EnumerateOpts{Ignore: c.opts.Ignore, Logger: c.logger}
}

// snapshots enumerates both trees. They share no state, so they are walked
// side by side; the session itself is only used by one of them.
func (c *Client) snapshots(ctx context.Context, sess Session) (server, client *Snapshot, err error) {
	c.enter(PhaseEnumerating)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		server, err = Enumerate(ctx, sess, c.enumerateOpts())
		return err
	})
	g.Go(func() error {
		var err error
		client, err = Enumerate(ctx, c.opts.Local, c.enumerateOpts())
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	c.logger.Info("enumerated", "server", server.Len(), "client", client.Len())
	return server, client, nil
}

// Sync reconciles according to the configured mode: both directions, or
// only client to server.
func (c *Client) Sync(ctx context.Context) (*Report, error) {
	switch c.opts.SyncMode {
	case Bidirectional:
		return c.transfer(ctx, true, true)
	case ClientToServerOnly:
		return c.transfer(ctx, false, true)
	default:
		return nil, fmt.Errorf("unknown sync mode %q", c.opts.SyncMode)
	}
}

// Get copies what the server has and the client lacks or holds at a
// different size.
func (c *Client) Get(ctx context.Context) (*Report, error) {
	return c.transfer(ctx, true, false)
}

// Put copies what only the client has.
func (c *Client) Put(ctx context.Context) (*Report, error) {
	return c.transfer(ctx, false, true)
}

func (c *Client) transfer(ctx context.Context, download, upload bool) (*Report, error) {
	report := &Report{}
	start := time.Now()

	err := c.withSession(ctx, func(sess Session) error {
		server, client, err := c.snapshots(ctx, sess)
		if err != nil {
			return err
		}

		c.enter(PhaseDiffing)
		report.Diff = Diff(server, client)

		c.enter(PhaseTransferring)
		if download {
			report.Download = c.executor.DownloadAll(ctx, sess, c.opts.Local, report.Diff.DownloadPaths())
		}
		if upload {
			report.Upload = c.executor.UploadAll(ctx, c.opts.Local, sess, report.Diff.UploadPaths())
		}
		return nil
	})

	report.Elapsed = time.Since(start)
	return report, err
}

// Snapshot enumerates one side. The client side needs no session.
func (c *Client) Snapshot(ctx context.Context, side Side) (*Snapshot, error) {
	if side == SideClient {
		c.enter(PhaseEnumerating)
		defer c.enter(PhaseDisconnected)
		return Enumerate(ctx, c.opts.Local, c.enumerateOpts())
	}

	var snap *Snapshot
	err := c.withSession(ctx, func(sess Session) error {
		c.enter(PhaseEnumerating)
		var err error
		snap, err = Enumerate(ctx, sess, c.enumerateOpts())
		return err
	})
	return snap, err
}

// Diff enumerates both sides and diffs them without transferring anything.
func (c *Client) Diff(ctx context.Context) (DiffResult, error) {
	var result DiffResult
	err := c.withSession(ctx, func(sess Session) error {
		server, client, err := c.snapshots(ctx, sess)
		if err != nil {
			return err
		}
		c.enter(PhaseDiffing)
		result = Diff(server, client)
		return nil
	})
	return result, err
}

// Prune deletes, after confirmation, what side has and the other side
// lacks.
func (c *Client) Prune(ctx context.Context, side Side) (*DeletionReport, error) {
	var report *DeletionReport
	err := c.withSession(ctx, func(sess Session) error {
		server, client, err := c.snapshots(ctx, sess)
		if err != nil {
			return err
		}

		c.enter(PhasePlanning)
		var (
			plan   []string
			target transport.Filesystem
		)
		switch side {
		case SideServer:
			plan, target = PlanDeletion(server, client), sess
		case SideClient:
			plan, target = PlanDeletion(client, server), c.opts.Local
		default:
			return errors.New("unknown side")
		}
		if len(plan) == 0 {
			report = &DeletionReport{Side: side}
			c.logger.Info("nothing to delete", "side", side)
			return nil
		}

		c.enter(PhaseConfirming)
		ok, err := c.reconciler.Confirm(side, target, plan)
		if err != nil || !ok {
			report = &DeletionReport{Side: side, Total: len(plan), Cancelled: true}
			return err
		}

		c.enter(PhaseReconciling)
		report = c.reconciler.Delete(side, target, plan)
		return nil
	})
	return report, err
}
