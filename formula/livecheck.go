package formula

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/mod/semver"

	"github.com/aexvir/tap"
)

// Livecheck asks the formula's livecheck endpoint for the latest upstream release.
type Livecheck struct {
	client *http.Client
}

// NewLivecheck builds a checker; a nil client uses a client with a short timeout.
func NewLivecheck(client *http.Client) *Livecheck {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Livecheck{client: client}
}

// LivecheckResult compares the declared version with the upstream one.
type LivecheckResult struct {
	Current  string
	Latest   string
	Outdated bool
}

// Check queries the livecheck url, which must answer like the github releases api.
func (l *Livecheck) Check(ctx context.Context, f *Formula) (LivecheckResult, error) {
	if f.Livecheck == "" {
		return LivecheckResult{}, fmt.Errorf("%s declares no livecheck url", f.Name)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.Livecheck, nil)
	if err != nil {
		return LivecheckResult{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := l.client.Do(req)
	if err != nil {
		return LivecheckResult{}, tap.Fail("formula.livecheck", tap.KindFetch, f.Livecheck, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return LivecheckResult{}, tap.Fail("formula.livecheck", tap.KindFetch, f.Livecheck, fmt.Errorf("unexpected response: http%d", resp.StatusCode))
	}

	var release struct {
		TagName string `json:"tag_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return LivecheckResult{}, tap.Fail("formula.livecheck", tap.KindFetch, f.Livecheck, fmt.Errorf("failed to decode release: %w", err))
	}
	if release.TagName == "" {
		return LivecheckResult{}, tap.Fail("formula.livecheck", tap.KindFetch, f.Livecheck, fmt.Errorf("release has no tag name"))
	}

	current, latest := Canonical(f.Version), Canonical(strings.TrimSpace(release.TagName))
	if !semver.IsValid(latest) {
		return LivecheckResult{}, fmt.Errorf("upstream tag %q is not a semantic version", release.TagName)
	}

	return LivecheckResult{
		Current:  strings.TrimPrefix(current, "v"),
		Latest:   strings.TrimPrefix(latest, "v"),
		Outdated: semver.Compare(current, latest) < 0,
	}, nil
}
