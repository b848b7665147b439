package container

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passwordCreds(t *testing.T, pw string) Credentials {
	t.Helper()
	return Credentials{Password: NewPassword([]byte(pw))}
}

func TestVeraCrypt_Create(t *testing.T) {
	runner := &mockRunner{}
	v := NewVeraCrypt(runner, FilesystemExt4)

	err := v.Create(context.Background(), "/backups/vault.hc", 1<<30, passwordCreds(t, "s3cret"))
	require.NoError(t, err)

	require.Len(t, runner.calls, 1)
	call := runner.calls[0]
	assert.Equal(t, "veracrypt", call.cmd.Name)
	assert.Equal(t, []string{
		"--text", "--non-interactive",
		"--create", "/backups/vault.hc",
		"--size=1073741824",
		"--volume-type=normal",
		"--encryption=AES",
		"--hash=SHA-512",
		"--filesystem=ext4",
		"--pim=0",
		"--random-source=/dev/urandom",
		"--keyfiles=",
		"--stdin",
	}, call.cmd.Args)
	assert.Equal(t, "s3cret\n", call.stdin)
}

func TestVeraCrypt_PasswordNeverInArgs(t *testing.T) {
	runner := &mockRunner{}
	v := NewVeraCrypt(runner, "")
	creds := passwordCreds(t, "hunter2")
	creds.Keyfiles = []string{"/keys/a", "/keys/b"}

	require.NoError(t, v.Create(context.Background(), "/v.hc", 100, creds))
	require.NoError(t, v.Mount(context.Background(), "/v.hc", "/mnt/v", creds))

	for _, call := range runner.calls {
		assert.NotContains(t, strings.Join(call.cmd.Args, " "), "hunter2")
		assert.Contains(t, call.cmd.Args, "--keyfiles=/keys/a,/keys/b")
		assert.Equal(t, "hunter2\n", call.stdin)
	}
	assert.Contains(t, runner.calls[0].cmd.Args, "--filesystem=exfat")
}

func TestVeraCrypt_Mount(t *testing.T) {
	runner := &mockRunner{}
	v := NewVeraCrypt(runner, FilesystemExFAT)

	err := v.Mount(context.Background(), "/v.hc", "/mnt/v", Credentials{Keyfiles: []string{"/k"}})
	require.NoError(t, err)

	call := runner.calls[0]
	assert.Equal(t, []string{
		"--text", "--non-interactive",
		"--pim=0", "--protect-hidden=no",
		"--keyfiles=/k", "--password=",
		"/v.hc", "/mnt/v",
	}, call.cmd.Args)
	assert.Nil(t, call.cmd.Stdin)
}

func TestVeraCrypt_Unmount(t *testing.T) {
	runner := &mockRunner{}
	require.NoError(t, NewVeraCrypt(runner, "").Unmount(context.Background(), "/mnt/v"))
	assert.Equal(t, []string{"--text", "--non-interactive", "--dismount", "/mnt/v"}, runner.calls[0].cmd.Args)
}

func TestVeraCrypt_NoCredentials(t *testing.T) {
	runner := &mockRunner{}
	v := NewVeraCrypt(runner, "")

	err := v.Create(context.Background(), "/v.hc", 1, Credentials{})
	assert.ErrorIs(t, err, ErrNoCredentials)
	err = v.Mount(context.Background(), "/v.hc", "/mnt", Credentials{})
	assert.ErrorIs(t, err, ErrNoCredentials)
	assert.Empty(t, runner.calls)
}

func TestVeraCrypt_RunnerError(t *testing.T) {
	boom := errors.New("veracrypt exited with code 1")
	runner := &mockRunner{err: boom}

	err := NewVeraCrypt(runner, "").Unmount(context.Background(), "/mnt/v")
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "unmount /mnt/v")
}

func TestParseFilesystem(t *testing.T) {
	tests := []struct {
		in      string
		want    Filesystem
		wantErr bool
	}{
		{in: "", want: FilesystemExFAT},
		{in: "EXT4", want: FilesystemExt4},
		{in: "fat", want: FilesystemFAT},
		{in: "ntfs", want: FilesystemNTFS},
		{in: "zfs", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFilesystem(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCredentials_Validate(t *testing.T) {
	assert.ErrorIs(t, Credentials{}.Validate(), ErrNoCredentials)
	assert.NoError(t, Credentials{Keyfiles: []string{"/k"}}.Validate())
	assert.Error(t, Credentials{Keyfiles: []string{""}}.Validate())
	assert.Nil(t, NewPassword(nil))
}
