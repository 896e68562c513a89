package remote

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

const spaSecretEnv = "AZCOPY_SPA_CLIENT_SECRET"

type commandRunner func(ctx context.Context, env []string, args ...string) ([]byte, error)

// AzCopy implements Transport by shelling out to the azcopy binary.
type AzCopy struct {
	Binary string

	authMode     string
	sasToken     string
	tenantID     string
	clientID     string
	clientSecret string

	run commandRunner
}

// AzCopyConfig carries the authentication settings for one run.
type AzCopyConfig struct {
	AuthMode     string
	SASToken     string
	TenantID     string
	ClientID     string
	ClientSecret string
}

// NewAzCopy validates the auth mode and returns a transport. Validation
// happens here, before any remote I/O.
func NewAzCopy(cfg AzCopyConfig) (*AzCopy, error) {
	if err := validateAuthMode(cfg.AuthMode); err != nil {
		return nil, err
	}
	return &AzCopy{
		Binary:       "azcopy",
		authMode:     cfg.AuthMode,
		sasToken:     cfg.SASToken,
		tenantID:     cfg.TenantID,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		run:          runCommand,
	}, nil
}

// Login establishes the session for the two login based modes. The SAS mode
// needs no session, its token travels with every URL.
func (a *AzCopy) Login(ctx context.Context) error {
	switch a.authMode {
	case AuthSAS:
		return nil
	case AuthServicePrincipal:
		var env []string
		if a.clientSecret != "" {
			env = append(env, spaSecretEnv+"="+a.clientSecret)
		}
		_, err := a.run(ctx, env, a.Binary, "login", "--service-principal",
			"--application-id", a.clientID, "--tenant-id", a.tenantID)
		if err != nil {
			return fmt.Errorf("azcopy login: %w", err)
		}
	case AuthManagedIdentity:
		if _, err := a.run(ctx, nil, a.Binary, "login", "--identity"); err != nil {
			return fmt.Errorf("azcopy login: %w", err)
		}
	}
	log.Debug().Str("mode", a.authMode).Msg("storage session established")
	return nil
}

// Logout tears down the session established by Login. Failures are logged,
// not propagated; a leftover session does not endanger the snapshot.
func (a *AzCopy) Logout(ctx context.Context) {
	if a.authMode == AuthSAS {
		return
	}
	if _, err := a.run(ctx, nil, a.Binary, "logout"); err != nil {
		log.Warn().Err(err).Msg("azcopy logout failed")
	}
}

func (a *AzCopy) UploadDir(ctx context.Context, localDir, remoteURL string) error {
	source := filepath.Join(localDir, "*")
	_, err := a.run(ctx, nil, a.Binary, "copy", source, a.decorate(remoteURL),
		"--recursive", "--overwrite=ifSourceNewer")
	if err != nil {
		return fmt.Errorf("azcopy copy: %w", err)
	}
	return nil
}

func (a *AzCopy) PutObject(ctx context.Context, remoteURL string, payload []byte) error {
	tmp, err := os.CreateTemp("", "snapshot-object-*")
	if err != nil {
		return fmt.Errorf("staging object: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("staging object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("staging object: %w", err)
	}

	if _, err := a.run(ctx, nil, a.Binary, "copy", tmp.Name(), a.decorate(remoteURL)); err != nil {
		return fmt.Errorf("azcopy copy: %w", err)
	}
	return nil
}

func (a *AzCopy) List(ctx context.Context, remoteURL string) ([]Entry, error) {
	out, err := a.run(ctx, nil, a.Binary, "list", a.decorate(remoteURL))
	if err != nil {
		return nil, fmt.Errorf("azcopy list: %w", err)
	}
	return parseListing(string(out)), nil
}

func (a *AzCopy) RemoveAll(ctx context.Context, remoteURL string) error {
	if _, err := a.run(ctx, nil, a.Binary, "remove", a.decorate(remoteURL), "--recursive"); err != nil {
		return fmt.Errorf("azcopy remove: %w", err)
	}
	return nil
}

// decorate appends the pre-shared token in SAS mode. The other modes rely on
// the session from Login.
func (a *AzCopy) decorate(remoteURL string) string {
	if a.authMode != AuthSAS || a.sasToken == "" {
		return remoteURL
	}
	sep := "?"
	if strings.Contains(remoteURL, "?") {
		sep = "&"
	}
	return remoteURL + sep + strings.TrimPrefix(a.sasToken, "?")
}

// parseListing reduces azcopy list output to the immediate children of the
// listed path. Lines look like "INFO: <path>; Content Length: <size>"; a path
// containing a separator belongs to a nested object, so its first segment is
// a directory-like child.
func parseListing(out string) []Entry {
	seen := make(map[string]bool)
	var entries []Entry
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "INFO:"))
		semicolon := strings.Index(line, ";")
		if semicolon < 0 {
			continue
		}
		name := strings.TrimSpace(line[:semicolon])
		if name == "" {
			continue
		}
		dir := false
		if slash := strings.IndexByte(name, '/'); slash >= 0 {
			name = name[:slash]
			dir = true
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		entries = append(entries, Entry{Name: name, Dir: dir})
	}
	return entries
}

func runCommand(ctx context.Context, env []string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%s: %w: %s", args[0], err, lastLine(out))
	}
	return out, nil
}

func lastLine(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	return lines[len(lines)-1]
}
