// Package credstore is the OS credential store collaborator: it spawns
// systemd-creds to encrypt a secret's plaintext and write it to a path on
// disk, exactly as original_source/src/actors/systemd_secrets.rs's
// SystemdSecret::write does. The core never reads this store back; it is
// side-effecting output only (spec §4.7).
package credstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/warren-mesh/warren/pkg/apperr"
)

// Store writes secret plaintext to systemd-creds-encrypted files under
// baseDir, one file per secret name.
type Store struct {
	baseDir   string
	userScope bool
}

// New creates a credential store rooted at baseDir. userScope selects
// `systemd-creds --user` (per-user credential store) over the system-wide
// store.
func New(baseDir string, userScope bool) *Store {
	return &Store{baseDir: baseDir, userScope: userScope}
}

// IsAvailable reports whether the systemd-creds binary can be found on PATH.
func (s *Store) IsAvailable() bool {
	_, err := exec.LookPath("systemd-creds")
	return err == nil
}

// Write encrypts content and writes it to baseDir/name, overwriting any
// existing credential at that path.
func (s *Store) Write(ctx context.Context, name string, content []byte) error {
	path := filepath.Join(s.baseDir, name)

	args := []string{"--json=short", "encrypt", "-", path}
	if s.userScope {
		args = append(args, "--user")
	}

	cmd := exec.CommandContext(ctx, "systemd-creds", args...)
	cmd.Stdin = bytes.NewReader(content)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return apperr.Wrap(apperr.CredentialStoreUnavailable, "systemd-creds binary not found", err)
		}

		stderrText := stderr.String()
		if strings.Contains(stderrText, "io.systemd.InteractiveAuthenticationRequired") {
			return apperr.New(apperr.CredentialPermissionDenied, fmt.Sprintf("systemd-creds denied writing credential %q", name))
		}
		return apperr.Wrap(apperr.CredentialStoreUnavailable, fmt.Sprintf("systemd-creds encrypt failed: %s", strings.TrimSpace(stderrText)), err)
	}

	return nil
}
