package document

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"
)

// NormalizePath turns p into the canonical form used as the session key:
// home-expanded, absolute, cleaned, and with symlinks resolved when the
// file exists.
func NormalizePath(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", errors.New("empty document path")
	}

	expanded, err := homedir.Expand(p)
	if err != nil {
		return "", fmt.Errorf("unable to expand path: %w", err)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("unable to get absolute path: %w", err)
	}
	abs = filepath.Clean(abs)

	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

// Resolve maps a locator given on the command line to a local path.
// http(s) URLs are downloaded once into downloadDir; file URLs and plain
// paths are normalized.
func Resolve(ctx context.Context, locator, downloadDir string) (string, error) {
	if u, err := url.ParseRequestURI(locator); err == nil && strings.Contains(locator, "://") {
		switch u.Scheme {
		case "http", "https":
			return download(ctx, u, downloadDir)
		case "file":
			return NormalizePath(u.Path)
		default:
			return "", fmt.Errorf("%s is not a supported protocol", u.Scheme)
		}
	}

	p, err := NormalizePath(locator)
	if err != nil {
		return "", err
	}
	st, err := os.Stat(p)
	if err != nil {
		return "", fmt.Errorf("unable to open file: %w", err)
	}
	if st.IsDir() {
		return "", fmt.Errorf("%s is a directory", p)
	}
	return p, nil
}

// download fetches u into downloadDir. The file name is derived from the
// URL, so the same URL always maps to the same path and is only fetched
// once.
func download(ctx context.Context, u *url.URL, downloadDir string) (string, error) {
	dir, err := NormalizePath(downloadDir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("unable to create download dir: %w", err)
	}

	sum := sha256.Sum256([]byte(u.String()))
	base := strings.TrimSuffix(path.Base(u.Path), ".pdf")
	if base == "" || base == "." || base == "/" {
		base = "document"
	}
	dst := filepath.Join(dir, hex.EncodeToString(sum[:])[:16]+"-"+base+".pdf")

	if st, err := os.Stat(dst); err == nil && st.Size() > 0 {
		log.Debug("document: using downloaded copy", "url", u.String(), "path", dst)
		return dst, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("unable to get url: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("unable to get url: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("unable to create temp file: %w", err)
	}
	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("unable to download %s: %w", u.String(), err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("unable to store download: %w", err)
	}

	log.Info("document: downloaded", "url", u.String(), "path", dst, "bytes", n)
	return dst, nil
}
