package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/b1naryth1ef/mirror"
	"github.com/b1naryth1ef/mirror/transport"
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const defaultListen = "127.0.0.1:9594"

// splitRemote splits [user@]host:path.
func splitRemote(remote string) (user, host, dir string) {
	hostPart, dir, _ := strings.Cut(remote, ":")
	if u, h, ok := strings.Cut(hostPart, "@"); ok {
		return u, h, dir
	}
	return "", hostPart, dir
}

// applyRemote turns a positional [user@]host:path into the matching flags.
func applyRemote(flags *flag.FlagSet, args []string) error {
	if len(args) == 0 {
		return nil
	}
	user, host, dir := splitRemote(args[0])
	if host == "" {
		return fmt.Errorf("invalid remote %q, expected [user@]host:path", args[0])
	}
	flags.Set("host", host)
	if user != "" {
		flags.Set("user", user)
	}
	if dir != "" {
		flags.Set("server-root", dir)
	}
	return nil
}

func newClient(cmd *cobra.Command, args []string, confirm mirror.Confirmer) (*mirror.Client, *mirror.Config, error) {
	if err := applyRemote(cmd.Flags(), args); err != nil {
		return nil, nil, err
	}
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	cmd.SilenceUsage = true

	logger := slog.Default()
	slog.Debug("config", "path", cfg.Path, "server", cfg.Credentials.Host+":"+cfg.ServerRoot, "client", cfg.ClientRoot)

	client := mirror.NewClient(mirror.ClientOpts{
		Local:    transport.NewLocal(cfg.ClientRoot),
		Dial:     mirror.SFTPDialer(cfg, logger),
		SyncMode: cfg.SyncMode,
		Ignore:   cfg.Ignore,
		Logger:   logger,
		Progress: newProgress(os.Stdout),
		Confirm:  confirm,
	})
	return client, cfg, nil
}

func printReport(report *mirror.Report, notice string) {
	if report.Diff.Empty() {
		fmt.Println(cyan(notice))
		return
	}
	if len(report.Download) > 0 {
		fmt.Printf("%s %s\n", green("Download:"), report.Download.Summary())
	}
	if len(report.Upload) > 0 {
		fmt.Printf("%s %s\n", green("Upload:"), report.Upload.Summary())
	}
	if report.Failed() > 0 {
		fmt.Printf("%s %d transfers failed\n", red("Warning:"), report.Failed())
	}
	fmt.Printf("Done in %s (%.2f MB/s)\n", report.Elapsed.Round(time.Millisecond), report.MbPerSecond())
}

func transferCmd(use, short, notice string, run func(*mirror.Client, context.Context) (*mirror.Report, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [[user@]host:path]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient(cmd, args, nil)
			if err != nil {
				return err
			}
			report, err := run(client, cmd.Context())
			if err != nil {
				return err
			}
			printReport(report, notice)
			return nil
		},
	}
}

func newSyncCmd() *cobra.Command {
	return transferCmd("sync", "Reconcile both trees according to the sync mode", "Nothing to sync",
		(*mirror.Client).Sync)
}

func newGetCmd() *cobra.Command {
	return transferCmd("get", "Download what the server has and the client lacks", "Files already in directory",
		(*mirror.Client).Get)
}

func newPutCmd() *cobra.Command {
	return transferCmd("put", "Upload what only the client has", "Files already in directory",
		(*mirror.Client).Put)
}

func parseSide(s string) (mirror.Side, error) {
	switch s {
	case "server":
		return mirror.SideServer, nil
	case "client":
		return mirror.SideClient, nil
	default:
		return 0, fmt.Errorf("side must be server or client, got %q", s)
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "ls [server|client]",
		Short:     "Print a tree",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"server", "client"},
		RunE: func(cmd *cobra.Command, args []string) error {
			side := mirror.SideServer
			if len(args) == 1 {
				var err error
				if side, err = parseSide(args[0]); err != nil {
					return err
				}
			}

			client, cfg, err := newClient(cmd, nil, nil)
			if err != nil {
				return err
			}

			snap, err := client.Snapshot(cmd.Context(), side)
			if err != nil {
				return err
			}

			label := path.Base(cfg.ServerRoot)
			if side == mirror.SideClient {
				label = filepath.Base(cfg.ClientRoot)
			}
			return mirror.RenderTree(os.Stdout, label, snap)
		},
	}
}

func newPruneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "prune server|client",
		Short:     "Delete what one side has and the other lacks, after confirmation",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"server", "client"},
		RunE: func(cmd *cobra.Command, args []string) error {
			side, err := parseSide(args[0])
			if err != nil {
				return err
			}

			var confirm mirror.Confirmer = newPrompt(os.Stdin, os.Stdout)
			if yes, _ := cmd.Flags().GetBool("yes"); yes {
				confirm = mirror.ConfirmFunc(func(mirror.Side, []mirror.PlanItem) (bool, error) { return true, nil })
			}

			client, _, err := newClient(cmd, nil, confirm)
			if err != nil {
				return err
			}

			report, err := client.Prune(cmd.Context(), side)
			if err != nil {
				return err
			}
			if report.Total == 0 {
				fmt.Println(cyan("Nothing to delete"))
				return nil
			}
			fmt.Println(report.String())
			return nil
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve read-only tree and diff views over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient(cmd, nil, nil)
			if err != nil {
				return err
			}

			listen, _ := cmd.Flags().GetString("listen")
			srv := &http.Server{
				Addr:              listen,
				Handler:           mirror.NewServer(client, slog.Default()),
				ReadHeaderTimeout: 10 * time.Second,
			}

			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()

			slog.Info("listening", "addr", listen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().String("listen", defaultListen, "address to listen on")
	return cmd
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			if cfg.Path != "" {
				fmt.Printf("# %s\n", cfg.Path)
			}
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(cfg.Redacted())
		},
	}
}
