package partysite

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/primoscope/CoomerDL-sub000/internal/models"
	"github.com/primoscope/CoomerDL-sub000/internal/net"
	"github.com/primoscope/CoomerDL-sub000/internal/utils/logging"
)

// Party hosts page their post listings in steps of 50.
const pageSize = 50

// target identifies one creator (or one post) on one party host.
type target struct {
	apiBase string
	service string
	userID  string
	postID  string
}

// parseTarget extracts the service/user/post coordinates from a profile or
// post URL. Mirror and CDN subdomains fold into the canonical API host.
func parseTarget(rawURL string) (target, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return target{}, fmt.Errorf("%w: %q", net.ErrMalformedURL, rawURL)
	}

	domain, err := net.CanonicalDomain(rawURL)
	if err != nil {
		return target{}, err
	}

	scheme := u.Scheme
	if scheme == "" {
		scheme = "https"
	}

	// Mirrors fold to the canonical host; direct hosts keep any port.
	host := domain
	if strings.ToLower(u.Hostname()) == domain {
		host = u.Host
	}

	t := target{apiBase: scheme + "://" + host}

	// Expected shapes: /{service}/user/{id} and /{service}/user/{id}/post/{pid}.
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segs) < 3 || segs[1] != "user" || segs[0] == "" || segs[2] == "" {
		return target{}, fmt.Errorf("%w: %q is not a creator or post URL", net.ErrMalformedURL, rawURL)
	}
	t.service = segs[0]
	t.userID = segs[2]

	if len(segs) >= 5 && segs[3] == "post" && segs[4] != "" {
		t.postID = segs[4]
	}
	return t, nil
}

// post is the wire shape of one API post entry.
type post struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Published   string     `json:"published"`
	File        postFile   `json:"file"`
	Attachments []postFile `json:"attachments"`
}

type postFile struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// publishedTime parses the post's publish timestamp. Malformed or absent
// timestamps return the zero time, which passes date filters.
func (p post) publishedTime() time.Time {
	if p.Published == "" {
		return time.Time{}
	}
	t, err := dateparse.ParseAny(p.Published)
	if err != nil {
		logging.D("Unparseable publish date %q on post %s", p.Published, p.ID)
		return time.Time{}
	}
	return t
}

// mediaItems maps the post's primary file plus attachments to media items.
func (p post) mediaItems(t target) []models.MediaItem {
	var items []models.MediaItem

	add := func(f postFile) {
		if f.Path == "" {
			return
		}
		items = append(items, models.MediaItem{
			URL:      mediaURL(t, f.Path),
			Filename: fileName(f),
			PostID:   p.ID,
		})
	}

	add(p.File)
	for _, f := range p.Attachments {
		add(f)
	}
	return items
}

func fileName(f postFile) string {
	if f.Name != "" {
		return f.Name
	}
	return path.Base(f.Path)
}

// mediaURL resolves an API file path against the host's data root.
func mediaURL(t target, p string) string {
	if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return p
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return t.apiBase + "/data" + p
}

// listPosts fetches the post pages (or the single post) for the target.
func (d *Downloader) listPosts(ctx context.Context, t target) ([]post, error) {
	if t.postID != "" {
		p, err := d.fetchPost(ctx, t)
		if err != nil {
			return nil, err
		}
		return []post{p}, nil
	}

	var posts []post
	for offset := 0; ; offset += pageSize {
		pageURL := fmt.Sprintf("%s/api/v1/%s/user/%s?o=%d", t.apiBase, t.service, t.userID, offset)

		var page []post
		if err := d.fetchJSON(ctx, pageURL, &page); err != nil {
			return nil, err
		}
		posts = append(posts, page...)

		if len(page) < pageSize {
			break
		}
		if err := d.CheckCancelled(ctx); err != nil {
			return nil, err
		}
	}
	return posts, nil
}

func (d *Downloader) fetchPost(ctx context.Context, t target) (post, error) {
	postURL := fmt.Sprintf("%s/api/v1/%s/user/%s/post/%s", t.apiBase, t.service, t.userID, t.postID)

	var p post
	if err := d.fetchJSON(ctx, postURL, &p); err != nil {
		return post{}, err
	}
	return p, nil
}

// fetchJSON GETs the URL and decodes the body into v.
func (d *Downloader) fetchJSON(ctx context.Context, rawURL string, v any) error {
	resp, err := d.Get(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("failed to query %q: %w", rawURL, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logging.E("Failed to close body for %q: %v", rawURL, closeErr)
		}
	}()

	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<20)).Decode(v); err != nil {
		return &net.ParseError{Site: d.SiteName(), URL: rawURL, Msg: err.Error()}
	}
	return nil
}
