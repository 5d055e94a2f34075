// Package updater implements self-update against GitHub releases:
// version check, Linux binary asset selection, and in-place binary
// replacement.
package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/cenk/backoff"
)

// Version is the running build's version, stamped via -ldflags.
var Version = "0.3.0"

// Release is the subset of the GitHub release payload the updater
// reads.
type Release struct {
	TagName string  `json:"tag_name"`
	HTMLURL string  `json:"html_url"`
	Assets  []Asset `json:"assets"`
}

type Asset struct {
	Name        string `json:"name"`
	DownloadURL string `json:"browser_download_url"`
	Size        int64  `json:"size"`
}

// Updater checks one GitHub repository for newer releases of the
// running binary.
type Updater struct {
	// Repo is the owner/name slug.
	Repo string
	// BaseURL defaults to the GitHub API; tests point it at a local
	// server.
	BaseURL string
	Client  *http.Client
	// Out receives progress lines; defaults to os.Stdout.
	Out io.Writer
}

func New(repo string) *Updater {
	return &Updater{
		Repo:    repo,
		BaseURL: "https://api.github.com",
		Client:  &http.Client{Timeout: 30 * time.Second},
		Out:     os.Stdout,
	}
}

// CheckAvailable reports the newer release tag, or "" when the running
// version is current.
func (u *Updater) CheckAvailable(ctx context.Context) (string, error) {
	release, err := u.latestRelease(ctx)
	if err != nil {
		return "", err
	}
	latest, err := parseTag(release.TagName)
	if err != nil {
		return "", err
	}
	current, err := semver.NewVersion(Version)
	if err != nil {
		return "", fmt.Errorf("parse current version %q: %w", Version, err)
	}
	if latest.GreaterThan(current) {
		return release.TagName, nil
	}
	return "", nil
}

// Run performs the full self-update: check, download, replace.
func (u *Updater) Run(ctx context.Context) error {
	fmt.Fprintf(u.out(), "scope self-updater\ncurrent version: v%s\n", Version)

	release, err := u.latestRelease(ctx)
	if err != nil {
		return err
	}
	latest, err := parseTag(release.TagName)
	if err != nil {
		return err
	}
	current, err := semver.NewVersion(Version)
	if err != nil {
		return fmt.Errorf("parse current version %q: %w", Version, err)
	}
	if !latest.GreaterThan(current) {
		fmt.Fprintln(u.out(), "already running the latest version")
		return nil
	}

	asset, err := SelectLinuxAsset(release.Assets)
	if err != nil {
		return err
	}
	fmt.Fprintf(u.out(), "updating to %s (%s, %.2f MB)\n",
		release.TagName, asset.Name, float64(asset.Size)/1_000_000)

	if err := u.downloadAndInstall(ctx, asset.DownloadURL); err != nil {
		return err
	}
	fmt.Fprintf(u.out(), "updated to %s; restart scope to use it\n", release.TagName)
	return nil
}

func (u *Updater) out() io.Writer {
	if u.Out != nil {
		return u.Out
	}
	return os.Stdout
}

// latestRelease fetches the release metadata, retrying transient
// failures with exponential backoff.
func (u *Updater) latestRelease(ctx context.Context) (*Release, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", u.BaseURL, u.Repo)

	var release *Release
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", "scope-updater")

		resp, err := u.Client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(fmt.Errorf("no releases found for %s", u.Repo))
		case resp.StatusCode >= 500:
			return fmt.Errorf("github api: %s", resp.Status)
		case resp.StatusCode != http.StatusOK:
			return backoff.Permanent(fmt.Errorf("github api: %s", resp.Status))
		}

		var r Release
		if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
			return backoff.Permanent(fmt.Errorf("decode release: %w", err))
		}
		release = &r
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return release, nil
}

func parseTag(tag string) (*semver.Version, error) {
	v, err := semver.NewVersion(strings.TrimPrefix(tag, "v"))
	if err != nil {
		return nil, fmt.Errorf("parse release tag %q: %w", tag, err)
	}
	return v, nil
}

// assetPatterns is the preference order for Linux binary names.
var assetPatterns = []string{
	"scope-linux-x86_64",
	"scope-linux-amd64",
	"scope-x86_64-linux",
	"scope_amd64",
	"scope-linux",
	"scope",
}

// SelectLinuxAsset picks the release asset that looks like a bare Linux
// binary, skipping packaged forms.
func SelectLinuxAsset(assets []Asset) (*Asset, error) {
	for _, pattern := range assetPatterns {
		for i := range assets {
			name := strings.ToLower(assets[i].Name)
			if strings.Contains(name, pattern) &&
				!strings.HasSuffix(name, ".deb") &&
				!strings.HasSuffix(name, ".tar.gz") {
				return &assets[i], nil
			}
		}
	}
	names := make([]string, len(assets))
	for i, a := range assets {
		names[i] = a.Name
	}
	return nil, fmt.Errorf("no compatible linux binary in release assets %v", names)
}

// downloadAndInstall writes the new binary next to the current one and
// swaps it in, keeping a backup until the swap succeeds.
func (u *Updater) downloadAndInstall(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "scope-updater")

	resp, err := u.Client.Do(req)
	if err != nil {
		return fmt.Errorf("download update: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed: %s", resp.Status)
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate current executable: %w", err)
	}
	tempPath := exe + ".new"
	backupPath := exe + ".backup"

	f, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o755)
	if err != nil {
		return fmt.Errorf("create temp binary: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("write temp binary: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	if err := os.Rename(exe, backupPath); err != nil {
		return fmt.Errorf("backup current binary (try with sudo): %w", err)
	}
	if err := os.Rename(tempPath, exe); err != nil {
		// restore the previous binary
		_ = os.Rename(backupPath, exe)
		return fmt.Errorf("install update (try with sudo): %w", err)
	}
	_ = os.Remove(backupPath)
	return nil
}
