package main

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	ftpserver "github.com/fclairamb/ftpserverlib"
	log "github.com/fclairamb/go-log"
	logrusadapter "github.com/fclairamb/go-log/logrus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/OffBroadway/mdadm/pkg/jbod"
	"github.com/OffBroadway/mdadm/pkg/mdadm"
	"github.com/OffBroadway/mdadm/pkg/volfuse"
)

type options struct {
	dir      string
	geo      jbod.Geometry
	readOnly bool
	verbose  bool
}

// session is an opened and mounted array.
type session struct {
	array  *jbod.Array
	driver *mdadm.Driver
	volume *mdadm.Volume
	logger log.Logger
}

func (o *options) logger() log.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	if o.verbose {
		l.SetLevel(logrus.DebugLevel)
	}
	return logrusadapter.NewWrap(l)
}

// open opens the disk images, mounts them and, unless read-only, asks for
// write permission.
func (o *options) open() (*session, error) {
	logger := o.logger()

	array, err := jbod.OpenArray(afero.NewOsFs(), o.dir, o.geo, logger)
	if err != nil {
		return nil, err
	}

	var dev jbod.Device = array
	if o.verbose {
		dev = jbod.NewTracer(array, logger)
	}

	driver, err := mdadm.New(dev, o.geo, logger)
	if err != nil {
		array.Close()
		return nil, err
	}
	if err := driver.Mount(); err != nil {
		array.Close()
		return nil, err
	}
	if !o.readOnly {
		if err := driver.GrantWritePermission(); err != nil {
			driver.Unmount()
			array.Close()
			return nil, err
		}
	}

	return &session{array: array, driver: driver, volume: mdadm.NewVolume(driver), logger: logger}, nil
}

func (s *session) close() error {
	if s.driver.Writable() {
		if err := s.driver.RevokeWritePermission(); err != nil {
			s.logger.Warn("Revoking write permission failed", "err", err)
		}
	}
	if err := s.driver.Unmount(); err != nil {
		s.array.Close()
		return err
	}
	return s.array.Close()
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{geo: jbod.DefaultGeometry}

	cmd := &cobra.Command{
		Use:          "mdadm",
		Short:        "Linear block driver over a JBOD disk array",
		SilenceUsage: true,
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.dir, "dir", "disks", "directory holding the disk images")
	f.Uint32Var(&opts.geo.NumDisks, "disks", jbod.DefaultGeometry.NumDisks, "number of disks")
	f.Uint32Var(&opts.geo.DiskSize, "disk-size", jbod.DefaultGeometry.DiskSize, "bytes per disk")
	f.Uint32Var(&opts.geo.BlockSize, "block-size", jbod.DefaultGeometry.BlockSize, "bytes per block")
	f.Uint32Var(&opts.geo.MaxIOSize, "max-io", jbod.DefaultGeometry.MaxIOSize, "largest single driver transfer in bytes")
	f.BoolVar(&opts.readOnly, "read-only", false, "do not request write permission")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log every device operation")

	cmd.AddCommand(
		newFormatCommand(opts),
		newReadCommand(opts),
		newWriteCommand(opts),
		newServeCommand(opts),
		newMountCommand(opts),
	)
	return cmd
}

func newFormatCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "format",
		Short: "Create the disk images and zero the whole array",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open()
			if err != nil {
				return err
			}
			defer s.close()

			if _, err := s.volume.WriteAt(make([]byte, s.volume.Size()), 0); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "formatted %d disks, %d bytes\n", opts.geo.NumDisks, s.volume.Size())
			return nil
		},
	}
}

func newReadCommand(opts *options) *cobra.Command {
	var addr, length int64
	var raw bool

	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read a byte range of the array",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if length < 0 {
				return fmt.Errorf("negative length %d", length)
			}

			s, err := opts.open()
			if err != nil {
				return err
			}
			defer s.close()

			buf := make([]byte, length)
			n, err := s.volume.ReadAt(buf, addr)
			if err != nil && err != io.EOF {
				return err
			}

			if raw {
				_, err = cmd.OutOrStdout().Write(buf[:n])
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), hex.Dump(buf[:n]))
			return err
		},
	}
	cmd.Flags().Int64Var(&addr, "addr", 0, "flat start address")
	cmd.Flags().Int64Var(&length, "len", 256, "number of bytes")
	cmd.Flags().BoolVar(&raw, "raw", false, "write raw bytes instead of a hex dump")
	return cmd
}

func newWriteCommand(opts *options) *cobra.Command {
	var addr int64
	var data, file string

	cmd := &cobra.Command{
		Use:   "write",
		Short: "Write bytes to the array",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := []byte(data)
			if file != "" {
				var err error
				if file == "-" {
					payload, err = io.ReadAll(bufio.NewReader(cmd.InOrStdin()))
				} else {
					payload, err = os.ReadFile(file)
				}
				if err != nil {
					return err
				}
			}

			s, err := opts.open()
			if err != nil {
				return err
			}
			defer s.close()

			n, err := s.volume.WriteAt(payload, addr)
			if err != nil {
				return fmt.Errorf("wrote %d of %d bytes: %w", n, len(payload), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes at %d\n", n, addr)
			return nil
		},
	}
	cmd.Flags().Int64Var(&addr, "addr", 0, "flat start address")
	cmd.Flags().StringVar(&data, "data", "", "literal data to write")
	cmd.Flags().StringVar(&file, "file", "", "file to write, - for stdin")
	return cmd
}

func newServeCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Export the array over the network",
	}

	var ftpAddr, user, pass string
	ftpCmd := &cobra.Command{
		Use:   "ftp",
		Short: "Serve the volume image over FTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open()
			if err != nil {
				return err
			}
			defer s.close()

			srv := ftpserver.NewFtpServer(
				&FTPServer{
					Settings: &ftpserver.Settings{
						ListenAddr: ftpAddr,
					},
					FileSystem: mdadm.NewVolumeFs(s.volume),
					User:       user,
					Pass:       pass,
					Logger:     s.logger,
				},
			)
			srv.Logger = s.logger

			// Handle SIGINT and SIGTERM.
			sig := make(chan os.Signal, 1)
			go func() {
				<-sig
				srv.Stop()
			}()
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

			return srv.ListenAndServe()
		},
	}
	ftpCmd.Flags().StringVar(&ftpAddr, "listen", "0.0.0.0:7021", "listen address")
	ftpCmd.Flags().StringVar(&user, "user", "", "required user name, empty allows anyone")
	ftpCmd.Flags().StringVar(&pass, "pass", "", "required password")

	var davAddr string
	davCmd := &cobra.Command{
		Use:   "webdav",
		Short: "Serve the volume image over WebDAV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open()
			if err != nil {
				return err
			}
			defer s.close()

			ln, err := net.Listen("tcp", davAddr)
			if err != nil {
				return err
			}
			defer ln.Close()

			sig := make(chan os.Signal, 1)
			go func() {
				<-sig
				ln.Close()
			}()
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

			s.logger.Info("Serving WebDAV", "addr", ln.Addr().String())
			err = Serve(ln, mdadm.NewVolumeFs(s.volume), s.logger)
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		},
	}
	davCmd.Flags().StringVar(&davAddr, "listen", "0.0.0.0:7080", "listen address")

	cmd.AddCommand(ftpCmd, davCmd)
	return cmd
}

func newMountCommand(opts *options) *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "mount <mount point>",
		Short: "Mount the volume image with FUSE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open()
			if err != nil {
				return err
			}
			defer s.close()

			server, err := volfuse.Mount(args[0], s.volume, s.logger, debug)
			if err != nil {
				return err
			}

			sig := make(chan os.Signal, 1)
			go func() {
				<-sig
				server.Unmount()
			}()
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

			server.Wait()
			return nil
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "print FUSE debug information")
	return cmd
}
