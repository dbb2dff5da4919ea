package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bamsammich/ferry/internal/fileservice"
	"github.com/bamsammich/ferry/internal/ui"
	"github.com/bamsammich/ferry/internal/visitor"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newPullCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "pull <source> <local-destination>",
		Short: "Copy a tree from a device or SSH host to a local folder",
		Long: `Copy a tree to a local folder. A directory source keeps its own name under
the destination (pulling dev://phone/DCIM into ./backup creates
./backup/DCIM); a file source is written to the destination path itself.
Files are written to temporary names and renamed once complete.`,
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			src := fileservice.ParseLocation(args[0])
			dst := fileservice.ParseLocation(args[1])
			if dst.IsRemote() {
				return fmt.Errorf("destination %s must be local; use push to write to a device", dst)
			}

			e, done, err := g.enumeratorFor(ctx, src)
			if err != nil {
				return err
			}
			defer done()
			return g.runWalk(ctx, e, visitor.NewLocalCopyVisitor(dst.Path), src.Path)
		},
	}
}

func newPushCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "push <local-source> <destination>",
		Short: "Copy a local tree to a device or SSH host",
		Long: `Copy a local tree through a file service. The destination may be a device
agent, an SSH host or a local path. A file interrupted by an error or by
cancellation stays truncated on the destination and is reported as failed.`,
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			src := fileservice.ParseLocation(args[0])
			dst := fileservice.ParseLocation(args[1])
			if src.IsRemote() {
				return fmt.Errorf("source %s must be local; use pull to read from a device", src)
			}

			svc, closeFn, err := g.openService(ctx, dst)
			if err != nil {
				return fmt.Errorf("destination %s: %w", dst, err)
			}
			defer closeFn() //nolint:errcheck // best-effort disconnect

			e, done, err := g.enumeratorFor(ctx, src)
			if err != nil {
				return err
			}
			defer done()
			return g.runWalk(ctx, e, visitor.NewTargetCopyVisitor(svc, dst.Path), src.Path)
		},
	}
}

func newZipCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "zip <source> <archive.zip>",
		Short: "Stream a tree into a zip archive",
		Long: `Stream a tree into a zip archive without staging it on disk. Entry names are
relative to the source; unreadable nodes become empty entries.`,
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			src := fileservice.ParseLocation(args[0])
			e, done, err := g.enumeratorFor(ctx, src)
			if err != nil {
				return err
			}
			defer done()
			return g.runWalk(ctx, e, visitor.CreateZipPackage(args[1]), src.Path)
		},
	}
}

func newPackageCmd(g *globals) *cobra.Command {
	var upload string
	cmd := &cobra.Command{
		Use:   "package <source> <package>",
		Short: "Build a zip package with a BLAKE3 manifest",
		Long: `Build a zip package whose META-INF/MANIFEST.MF lists every entry with its
size and BLAKE3 digest. With --upload the finished package is copied to a
device or SSH host.`,
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			src := fileservice.ParseLocation(args[0])
			e, done, err := g.enumeratorFor(ctx, src)
			if err != nil {
				return err
			}
			defer done()

			p := visitor.NewPackageVisitor(args[1])
			walkErr := g.runWalk(ctx, e, p, src.Path)
			if walkErr != nil || upload == "" {
				return walkErr
			}

			dst := fileservice.ParseLocation(upload)
			svc, closeFn, err := g.openService(ctx, dst)
			if err != nil {
				return fmt.Errorf("upload %s: %w", dst, err)
			}
			defer closeFn() //nolint:errcheck // best-effort disconnect
			if err := p.Upload(ctx, svc, dst.Path); err != nil {
				return fmt.Errorf("upload %s: %w", dst, err)
			}
			if !g.quiet {
				fmt.Fprintf(os.Stderr, "uploaded %s to %s\n", p.Path(), dst)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&upload, "upload", "", "copy the finished package to DEST")
	return cmd
}

func newCatCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "cat <source> <name>...",
		Short: "Print files found in a tree",
		Long: `Read a tree into memory and print the named files. Each name is matched
against full paths first, then file names, then path suffixes. Meant for a
handful of small files such as manifests or configuration.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			src := fileservice.ParseLocation(args[0])
			e, done, err := g.enumeratorFor(ctx, src)
			if err != nil {
				return err
			}
			defer done()

			v := visitor.NewBufferVisitor()
			quiet := g.quiet
			g.quiet = true
			walkErr := g.runWalk(ctx, e, v, src.Path)
			g.quiet = quiet
			if walkErr != nil {
				return walkErr
			}

			out := cmd.OutOrStdout()
			for _, name := range args[1:] {
				data := v.Find(name)
				if data == nil {
					return fmt.Errorf("%s: not found in %s", name, src)
				}
				if _, err := out.Write(data); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newDuCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "du <source>",
		Short: "Count files, folders and bytes in a tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			src := fileservice.ParseLocation(args[0])
			e, done, err := g.enumeratorFor(ctx, src)
			if err != nil {
				return err
			}
			defer done()

			v := visitor.NewLoggingVisitor(nil)
			quiet := g.quiet
			g.quiet = true
			walkErr := g.runWalk(ctx, e, v, src.Path)
			g.quiet = quiet

			s := v.Stats().Snapshot()
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s files\t%s dirs\t%s unreadable\t%s\n",
				ui.FormatBytes(s.Bytes),
				ui.FormatCount(s.Files),
				ui.FormatCount(s.Dirs),
				ui.FormatCount(s.Unknown),
				src,
			)
			return walkErr
		},
	}
}
