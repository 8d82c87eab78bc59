package main

import (
	"context"
	"net"
	"net/http"
	"os"

	log "github.com/fclairamb/go-log"
	"github.com/gorilla/handlers"
	"github.com/spf13/afero"
	"golang.org/x/net/webdav"
)

// FS adapts an afero.Fs to webdav.FileSystem.
type FS struct {
	afero.Fs
	logger log.Logger
}

var _ webdav.FileSystem = (*FS)(nil)

func newFS(fs afero.Fs, logger log.Logger) *FS {
	return &FS{
		Fs:     fs,
		logger: logger,
	}
}

func (f *FS) Mkdir(ctx context.Context, name string, perm os.FileMode) error {
	f.logger.Debug("webdav Mkdir", "name", name)
	return f.Fs.Mkdir(name, perm)
}

func (f *FS) OpenFile(ctx context.Context, name string, flag int, perm os.FileMode) (webdav.File, error) {
	f.logger.Debug("webdav OpenFile", "name", name, "flag", flag)
	return f.Fs.OpenFile(name, flag, perm)
}

func (f *FS) RemoveAll(ctx context.Context, name string) error {
	f.logger.Debug("webdav RemoveAll", "name", name)
	return f.Fs.RemoveAll(name)
}

func (f *FS) Rename(ctx context.Context, oldName, newName string) error {
	f.logger.Debug("webdav Rename", "old", oldName, "new", newName)
	return f.Fs.Rename(oldName, newName)
}

func (f *FS) Stat(ctx context.Context, name string) (os.FileInfo, error) {
	f.logger.Debug("webdav Stat", "name", name)
	return f.Fs.Stat(name)
}

func newHandler(fs webdav.FileSystem, prefix string, logger log.Logger) http.Handler {
	return &webdav.Handler{
		Prefix:     prefix,
		FileSystem: fs,
		LockSystem: webdav.NewMemLS(),
		Logger: func(r *http.Request, err error) {
			if err != nil {
				logger.Warn("webdav request failed", "method", r.Method, "path", r.URL.Path, "err", err)
			}
		},
	}
}

// Serve answers WebDAV requests for fs under /mount until listener closes.
func Serve(listener net.Listener, fs afero.Fs, logger log.Logger) error {
	h := newHandler(newFS(fs, logger), "/mount", logger)
	server := &http.Server{
		Handler: handlers.LoggingHandler(os.Stdout, h),
	}
	return server.Serve(listener)
}
