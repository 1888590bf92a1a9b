// Copyright 2026 The Monzofs Authors
// SPDX-License-Identifier: Apache-2.0

// Package fuse bridges the engine's namespace to a kernel FUSE mount.
// Every filesystem operation maps onto one engine call; the engine's
// caches mean most of them never leave the process.
package fuse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/monzofs/monzofs/lib/engine"
	"github.com/monzofs/monzofs/lib/monzo"
	"github.com/monzofs/monzofs/lib/namespace"
)

// Options configures the FUSE mount.
type Options struct {
	// Mountpoint is the directory where the filesystem is mounted.
	Mountpoint string

	// Engine answers stat, list, and read operations.
	Engine *engine.Engine

	// AllowOther permits other users to access the mount. Requires
	// user_allow_other in /etc/fuse.conf.
	AllowOther bool

	// Logger receives diagnostic messages. If nil, errors go to a
	// stderr logger.
	Logger *slog.Logger
}

// Mount mounts the account filesystem at the configured mountpoint.
// The caller must call Unmount on the returned Server when done. The
// mountpoint directory is created if it does not exist.
func Mount(options Options) (*fuse.Server, error) {
	if options.Mountpoint == "" {
		return nil, fmt.Errorf("mountpoint is required")
	}
	if options.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	}

	if err := os.MkdirAll(options.Mountpoint, 0o755); err != nil {
		return nil, fmt.Errorf("creating mountpoint %s: %w", options.Mountpoint, err)
	}

	root := &node{options: &options, path: "/"}

	// Entry and attr timeouts bound how long the kernel trusts a
	// lookup without asking again. They stay well below the engine's
	// balance TTL so a fresh fetch is observable promptly.
	entryTimeout := 1 * time.Second
	attrTimeout := 1 * time.Second
	negativeTimeout := 1 * time.Second

	server, err := gofuse.Mount(options.Mountpoint, root, &gofuse.Options{
		EntryTimeout:    &entryTimeout,
		AttrTimeout:     &attrTimeout,
		NegativeTimeout: &negativeTimeout,
		MountOptions: fuse.MountOptions{
			FsName:     "monzofs",
			Name:       "monzofs",
			AllowOther: options.AllowOther,
			Options:    []string{"ro"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("mounting FUSE filesystem at %s: %w", options.Mountpoint, err)
	}

	options.Logger.Info("filesystem mounted", "mountpoint", options.Mountpoint)
	return server, nil
}

// node represents one position in the namespace. Nodes carry only
// their path; every operation resolves it through the engine, so the
// kernel's view always reflects the engine's current cache window.
type node struct {
	gofuse.Inode
	options *Options
	path    string
}

var _ gofuse.InodeEmbedder = (*node)(nil)
var _ gofuse.NodeLookuper = (*node)(nil)
var _ gofuse.NodeReaddirer = (*node)(nil)
var _ gofuse.NodeGetattrer = (*node)(nil)
var _ gofuse.NodeOpener = (*node)(nil)
var _ gofuse.NodeReader = (*node)(nil)

// childPath joins a child name onto this node's path.
func (n *node) childPath(name string) string {
	if n.path == "/" {
		return "/" + name
	}
	return n.path + "/" + name
}

func (n *node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	path := n.childPath(name)

	info, err := n.options.Engine.Stat(ctx, path)
	if err != nil {
		return nil, n.errno("lookup", path, err)
	}

	child := &node{options: n.options, path: path}
	if info.Dir {
		inode := n.NewPersistentInode(ctx, child, gofuse.StableAttr{Mode: syscall.S_IFDIR})
		out.Mode = syscall.S_IFDIR | 0o555
		return inode, 0
	}

	inode := n.NewPersistentInode(ctx, child, gofuse.StableAttr{Mode: syscall.S_IFREG})
	out.Mode = syscall.S_IFREG | 0o444
	out.Size = uint64(info.Size)
	return inode, 0
}

func (n *node) Readdir(ctx context.Context) (gofuse.DirStream, syscall.Errno) {
	children, err := n.options.Engine.ListChildren(ctx, n.path)
	if err != nil {
		return nil, n.errno("readdir", n.path, err)
	}

	entries := make([]fuse.DirEntry, 0, len(children))
	for _, name := range children {
		// Child kind follows from the path shape alone; no fetch.
		// Names that do not resolve (attachment ids) list as files.
		mode := uint32(syscall.S_IFREG)
		if ref, err := namespace.Resolve(n.childPath(name)); err == nil && ref.Kind.IsDir() {
			mode = syscall.S_IFDIR
		}
		entries = append(entries, fuse.DirEntry{Name: name, Mode: mode})
	}

	return &sliceDirStream{entries: entries}, 0
}

func (n *node) Getattr(ctx context.Context, _ gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	info, err := n.options.Engine.Stat(ctx, n.path)
	if err != nil {
		return n.errno("getattr", n.path, err)
	}

	if info.Dir {
		out.Mode = syscall.S_IFDIR | 0o555
		return 0
	}
	out.Mode = syscall.S_IFREG | 0o444
	out.Size = uint64(info.Size)
	return 0
}

func (n *node) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	if flags&(syscall.O_WRONLY|syscall.O_RDWR) != 0 {
		return nil, 0, syscall.EROFS
	}

	// Content can change when a cache window expires, so the kernel
	// page cache must not outlive a single open.
	return nil, fuse.FOPEN_DIRECT_IO, 0
}

func (n *node) Read(ctx context.Context, _ gofuse.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	content, err := n.options.Engine.ReadContent(ctx, n.path)
	if err != nil {
		return nil, n.errno("read", n.path, err)
	}

	if off >= int64(len(content)) {
		return fuse.ReadResultData(nil), 0
	}
	end := off + int64(len(dest))
	if end > int64(len(content)) {
		end = int64(len(content))
	}
	return fuse.ReadResultData(content[off:end]), 0
}

// errno maps an engine error to a FUSE errno, logging anything that
// is not an ordinary miss.
func (n *node) errno(operation, path string, err error) syscall.Errno {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		return syscall.ENOENT
	case errors.Is(err, engine.ErrIsDirectory):
		return syscall.EISDIR
	case errors.Is(err, engine.ErrNotDirectory):
		return syscall.ENOTDIR
	case monzo.IsUnauthorized(err):
		n.options.Logger.Error("credential rejected", "op", operation, "path", path, "error", err)
		return syscall.EACCES
	default:
		n.options.Logger.Error("operation failed", "op", operation, "path", path, "error", err)
		return syscall.EIO
	}
}

// sliceDirStream implements fs.DirStream from a slice of entries.
type sliceDirStream struct {
	entries []fuse.DirEntry
	index   int
}

func (s *sliceDirStream) HasNext() bool {
	return s.index < len(s.entries)
}

func (s *sliceDirStream) Next() (fuse.DirEntry, syscall.Errno) {
	if s.index >= len(s.entries) {
		return fuse.DirEntry{}, syscall.EINVAL
	}
	entry := s.entries[s.index]
	s.index++
	return entry, 0
}

func (s *sliceDirStream) Close() {}
