package container

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yuya-takeyama/strict-vault-sync/internal/execx"
)

// Filesystem is the filesystem formatted inside a new container.
type Filesystem string

const (
	FilesystemExFAT Filesystem = "exfat"
	FilesystemExt4  Filesystem = "ext4"
	FilesystemFAT   Filesystem = "fat"
	FilesystemNTFS  Filesystem = "ntfs"
)

// ParseFilesystem validates a filesystem name.
func ParseFilesystem(s string) (Filesystem, error) {
	switch fs := Filesystem(strings.ToLower(s)); fs {
	case FilesystemExFAT, FilesystemExt4, FilesystemFAT, FilesystemNTFS:
		return fs, nil
	case "":
		return FilesystemExFAT, nil
	default:
		return "", fmt.Errorf("unsupported container filesystem %q", s)
	}
}

// VeraCrypt drives the veracrypt command line in text mode.
type VeraCrypt struct {
	Runner     execx.Runner
	Binary     string
	Filesystem Filesystem
	Encryption string
	Hash       string
}

// NewVeraCrypt creates a VeraCrypt manager with AES / SHA-512 defaults.
func NewVeraCrypt(runner execx.Runner, filesystem Filesystem) *VeraCrypt {
	return &VeraCrypt{
		Runner:     runner,
		Binary:     "veracrypt",
		Filesystem: filesystem,
		Encryption: "AES",
		Hash:       "SHA-512",
	}
}

func (v *VeraCrypt) Create(ctx context.Context, path string, sizeBytes uint64, creds Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}

	args := []string{
		"--create", path,
		"--size=" + strconv.FormatUint(sizeBytes, 10),
		"--volume-type=normal",
		"--encryption=" + v.Encryption,
		"--hash=" + v.Hash,
		"--filesystem=" + string(v.filesystem()),
		"--pim=0",
		"--random-source=/dev/urandom",
	}
	args = append(args, credentialArgs(creds)...)

	return v.run(ctx, "create "+path, args, creds)
}

func (v *VeraCrypt) Mount(ctx context.Context, path, mountPoint string, creds Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}

	args := []string{"--pim=0", "--protect-hidden=no"}
	args = append(args, credentialArgs(creds)...)
	args = append(args, path, mountPoint)

	return v.run(ctx, "mount "+path, args, creds)
}

func (v *VeraCrypt) Unmount(ctx context.Context, mountPoint string) error {
	return v.run(ctx, "unmount "+mountPoint, []string{"--dismount", mountPoint}, Credentials{})
}

func (v *VeraCrypt) filesystem() Filesystem {
	if v.Filesystem == "" {
		return FilesystemExFAT
	}
	return v.Filesystem
}

func (v *VeraCrypt) run(ctx context.Context, op string, args []string, creds Credentials) error {
	binary := v.Binary
	if binary == "" {
		binary = "veracrypt"
	}

	cmd := execx.Command{
		Name: binary,
		Args: append([]string{"--text", "--non-interactive"}, args...),
	}

	if creds.Password != nil {
		buf, err := creds.Password.Open()
		if err != nil {
			return fmt.Errorf("%s: open password enclave: %w", op, err)
		}
		defer buf.Destroy()
		cmd.Stdin = io.MultiReader(bytes.NewReader(buf.Bytes()), strings.NewReader("\n"))
	}

	if _, err := v.Runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// credentialArgs never carries the password itself; it is read from stdin.
func credentialArgs(creds Credentials) []string {
	args := []string{"--keyfiles=" + strings.Join(creds.Keyfiles, ",")}
	if creds.Password != nil {
		args = append(args, "--stdin")
	} else {
		args = append(args, "--password=")
	}
	return args
}
