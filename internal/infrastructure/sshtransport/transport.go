// Package sshtransport talks to devices over SSH. The remote side is expected
// to expose the usual configuration session commands: load a candidate, show
// the resulting diff, run a commit check, commit with automatic rollback
// confirmation, and roll back.
package sshtransport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	gssh "golang.org/x/crypto/ssh"

	"github.com/topranks/homer/internal/domain"
)

const (
	cmdDiff     = "config diff"
	cmdCheck    = "config check"
	cmdCommit   = "config commit-confirmed"
	cmdRollback = "config rollback"
)

// Transport implements domain.Transport over per-operation SSH sessions. The
// candidate configuration travels on stdin of the remote command.
type Transport struct {
	Username string
	// KeyFile is the path to the private key used for authentication.
	KeyFile string
	Port    int
	// Timeout bounds each device operation, dial included.
	Timeout time.Duration
	Logger  zerolog.Logger
	// HostKeyCallback defaults to accepting any host key. Production
	// deployments should verify against a known hosts source.
	HostKeyCallback gssh.HostKeyCallback
}

func (t *Transport) ComputeDiff(ctx context.Context, device domain.Device, candidate string) domain.DiffResult {
	stdout, _, err := t.run(ctx, device, cmdDiff, candidate)
	if err != nil {
		return domain.DiffFailure(err.Error())
	}
	if strings.TrimSpace(stdout) == "" {
		return domain.NoDiff()
	}
	return domain.DiffOf(stdout)
}

func (t *Transport) CommitCheck(ctx context.Context, device domain.Device, candidate string) error {
	_, stderr, err := t.run(ctx, device, cmdCheck, candidate)
	if err != nil {
		return classify(err, stderr)
	}
	return nil
}

func (t *Transport) Commit(ctx context.Context, device domain.Device, candidate string, attempt int) error {
	cmd := cmdCommit + " " + strconv.Itoa(confirmMinutes(t.Timeout))
	_, stderr, err := t.run(ctx, device, cmd, candidate)
	if err != nil {
		return classify(err, stderr)
	}
	t.Logger.Debug().Str("device", device.FQDN).Int("attempt", attempt).Msg("commit confirmed on device")
	return nil
}

func (t *Transport) Rollback(ctx context.Context, device domain.Device) error {
	_, _, err := t.run(ctx, device, cmdRollback, "")
	if err != nil {
		return fmt.Errorf("rollback on %s: %w", device.FQDN, err)
	}
	return nil
}

// classify maps transport level failures onto the error kinds the attempt
// logic distinguishes. Only timeouts become retryable; a device-side abort is
// reported as such and everything else stays a generic failure.
func classify(err error, stderr string) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %s", domain.ErrCommitTimeout, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: %s", domain.ErrCommitTimeout, err)
	case strings.Contains(stderr, "commit aborted"):
		return fmt.Errorf("%w: %s", domain.ErrAborted, strings.TrimSpace(stderr))
	}
	if stderr != "" {
		return fmt.Errorf("%s: %w", strings.TrimSpace(stderr), err)
	}
	return err
}

// confirmMinutes picks the automatic rollback window passed to the device,
// at least one minute beyond the operation timeout.
func confirmMinutes(timeout time.Duration) int {
	minutes := int(timeout.Minutes()) + 1
	if minutes < 2 {
		minutes = 2
	}
	return minutes
}

func (t *Transport) run(ctx context.Context, device domain.Device, cmd, stdin string) (string, string, error) {
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := t.dial(ctx, device)
	if err != nil {
		return "", "", err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return "", "", fmt.Errorf("session on %s: %w", device.FQDN, err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr
	if stdin != "" {
		session.Stdin = strings.NewReader(stdin)
	}

	done := make(chan error, 1)
	go func() { done <- session.Run(cmd) }()

	select {
	case <-ctx.Done():
		// Close the connection to unblock the session goroutine.
		_ = client.Close()
		return stdout.String(), stderr.String(), ctx.Err()
	case err = <-done:
	}
	return stdout.String(), stderr.String(), err
}

func (t *Transport) dial(ctx context.Context, device domain.Device) (*gssh.Client, error) {
	raw, err := os.ReadFile(t.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	signer, err := gssh.ParsePrivateKey(raw)
	if err != nil {
		return nil, fmt.Errorf("parse key file: %w", err)
	}

	hostKey := t.HostKeyCallback
	if hostKey == nil {
		hostKey = gssh.InsecureIgnoreHostKey()
	}
	port := t.Port
	if port == 0 {
		port = 22
	}

	conf := &gssh.ClientConfig{
		User:            t.Username,
		Auth:            []gssh.AuthMethod{gssh.PublicKeys(signer)},
		HostKeyCallback: hostKey,
	}
	if deadline, ok := ctx.Deadline(); ok {
		conf.Timeout = time.Until(deadline)
	}

	addr := net.JoinHostPort(device.FQDN, strconv.Itoa(port))
	client, err := gssh.Dial("tcp", addr, conf)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return client, nil
}
