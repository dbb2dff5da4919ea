package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bamsammich/ferry/internal/enumerate"
	"github.com/bamsammich/ferry/internal/fileservice"
	"github.com/bamsammich/ferry/internal/fileservice/proto"
	"github.com/bamsammich/ferry/internal/filter"
)

// openService connects to the file service behind loc. The returned close
// function releases the connection.
//
//nolint:ireturn // factory returns interface by design
func (g *globals) openService(ctx context.Context, loc fileservice.Location) (fileservice.Service, func() error, error) {
	switch {
	case loc.IsDevice():
		c, err := proto.Dial(ctx, loc.Addr(), proto.DialOpts{Compress: g.compress})
		if err != nil {
			return nil, nil, err
		}
		return c, c.Shutdown, nil
	case loc.IsRemote():
		sshClient, err := fileservice.DialSSH(ctx, loc, fileservice.SSHOpts{
			KeyFile: g.sshKeyFile,
			Port:    g.sshPort,
			Timeout: 15 * time.Second,
		})
		if err != nil {
			return nil, nil, err
		}
		svc, err := fileservice.NewSFTPService(sshClient)
		if err != nil {
			sshClient.Close()
			return nil, nil, err
		}
		return svc, svc.Shutdown, nil
	default:
		svc := fileservice.NewLocalService()
		return svc, func() error { svc.CloseAll(); return nil }, nil
	}
}

// enumeratorFor builds the enumerator walking loc. Local paths use a
// LocalEnumerator; everything else goes through a bound TargetEnumerator.
//
//nolint:ireturn // factory returns interface by design
func (g *globals) enumeratorFor(ctx context.Context, loc fileservice.Location) (enumerate.Enumerator, func(), error) {
	opts, err := g.walkOptions()
	if err != nil {
		return nil, nil, err
	}
	if !loc.IsRemote() {
		return enumerate.NewLocalEnumerator(loc.Path, opts...), func() {}, nil
	}

	svc, closeFn, err := g.openService(ctx, loc)
	if err != nil {
		return nil, nil, fmt.Errorf("source %s: %w", loc, err)
	}
	e := enumerate.NewTargetEnumerator(loc.Path, opts...)
	if err := e.Begin(svc); err != nil {
		closeFn() //nolint:errcheck // already failing
		return nil, nil, err
	}
	return e, func() {
		e.End()
		if err := closeFn(); err != nil {
			slog.Debug("close source", "error", err)
		}
	}, nil
}

func (g *globals) walkOptions() ([]enumerate.Option, error) {
	opts := []enumerate.Option{enumerate.WithLogger(slog.Default())}

	if g.chunkStr != "" {
		n, err := filter.ParseSize(g.chunkStr)
		if err != nil {
			return nil, fmt.Errorf("invalid --chunk-size: %w", err)
		}
		if n <= 0 || n > proto.MaxReadLength {
			return nil, fmt.Errorf("invalid --chunk-size: must be between 1 and %d bytes", proto.MaxReadLength)
		}
		opts = append(opts, enumerate.WithChunkSize(int(n)))
	}
	if g.bwLimitStr != "" {
		n, err := filter.ParseSize(g.bwLimitStr)
		if err != nil {
			return nil, fmt.Errorf("invalid --bwlimit: %w", err)
		}
		if n > 0 {
			opts = append(opts, enumerate.WithBWLimit(enumerate.NewBWLimiter(n)))
		}
	}
	if !g.chain.Empty() {
		opts = append(opts, enumerate.WithFilter(g.chain))
	}
	return opts, nil
}
