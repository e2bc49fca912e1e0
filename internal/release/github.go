package release

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v59/github"

	"github.com/toolchest-dev/toolchest/internal/installer"
)

// Resolver errors.
var (
	// ErrNotReleaseURL indicates the source URL is not a GitHub release
	// download URL and cannot be resolved through the API.
	ErrNotReleaseURL = errors.New("not a GitHub release URL")

	// ErrAssetNotFound indicates the release exists but holds no asset with
	// the requested name.
	ErrAssetNotFound = errors.New("release asset not found")
)

// GitHubResolver resolves private release assets through the GitHub API.
// Given a regular release download URL and a token, it looks up the release
// by tag, finds the named asset, and returns the asset's API URL together
// with the headers that make the API serve the binary content.
type GitHubResolver struct {
	httpClient *http.Client
	baseURL    string
}

// ResolverOption configures a GitHubResolver.
type ResolverOption func(*GitHubResolver)

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(c *http.Client) ResolverOption {
	return func(r *GitHubResolver) { r.httpClient = c }
}

// WithBaseURL points the resolver at a different API endpoint (GitHub
// Enterprise, test servers). Must end with a slash.
func WithBaseURL(u string) ResolverOption {
	return func(r *GitHubResolver) { r.baseURL = u }
}

// NewGitHubResolver creates a resolver for github.com.
func NewGitHubResolver(opts ...ResolverOption) *GitHubResolver {
	r := &GitHubResolver{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve implements installer.AssetResolver.
func (r *GitHubResolver) Resolve(ctx context.Context, sourceURL, credential string) (installer.ResolvedAsset, error) {
	owner, repo, tag, assetName, err := parseReleaseURL(sourceURL)
	if err != nil {
		return installer.ResolvedAsset{}, err
	}

	client := github.NewClient(r.httpClient)
	if credential != "" {
		client = client.WithAuthToken(credential)
	}
	if r.baseURL != "" {
		parsed, err := url.Parse(r.baseURL)
		if err != nil {
			return installer.ResolvedAsset{}, fmt.Errorf("parse API base URL: %w", err)
		}
		client.BaseURL = parsed
	}

	rel, _, err := client.Repositories.GetReleaseByTag(ctx, owner, repo, tag)
	if err != nil {
		return installer.ResolvedAsset{}, fmt.Errorf("get release %s/%s@%s: %w", owner, repo, tag, err)
	}

	for _, asset := range rel.Assets {
		if asset.GetName() != assetName {
			continue
		}

		header := http.Header{}
		// The asset API URL serves the binary only with this Accept header.
		header.Set("Accept", "application/octet-stream")
		if credential != "" {
			header.Set("Authorization", "Bearer "+credential)
		}
		return installer.ResolvedAsset{
			URL:    asset.GetURL(),
			Header: header,
		}, nil
	}

	return installer.ResolvedAsset{}, fmt.Errorf("%w: %s in %s/%s@%s", ErrAssetNotFound, assetName, owner, repo, tag)
}

// parseReleaseURL splits a GitHub release download URL
// (https://github.com/<owner>/<repo>/releases/download/<tag>/<asset>) into
// its components. The tag may itself contain slashes.
func parseReleaseURL(sourceURL string) (owner, repo, tag, asset string, err error) {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return "", "", "", "", fmt.Errorf("parse source URL: %w", err)
	}
	if !strings.HasSuffix(u.Host, "github.com") {
		return "", "", "", "", fmt.Errorf("%w: %s", ErrNotReleaseURL, sourceURL)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	// owner / repo / releases / download / tag... / asset
	if len(parts) < 6 || parts[2] != "releases" || parts[3] != "download" {
		return "", "", "", "", fmt.Errorf("%w: %s", ErrNotReleaseURL, sourceURL)
	}

	owner = parts[0]
	repo = parts[1]
	tag = strings.Join(parts[4:len(parts)-1], "/")
	asset = parts[len(parts)-1]
	return owner, repo, tag, asset, nil
}
