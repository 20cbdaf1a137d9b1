// Package gitlabapi provides a hand-rolled client for the GitLab REST API (v4).
//
// Every outbound call goes through a single gateway, Client.Do, which builds
// the target URL, injects the PRIVATE-TOKEN header, serializes the optional
// request body, and normalizes the outcome into a Response regardless of
// whether the call succeeded, was rejected by GitLab, or failed at the
// transport layer. Context cancellation is the one condition that is returned
// as an error instead of a Response, so callers can tell "the caller gave up"
// apart from "the platform said no".
package gitlabapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

const (
	// DefaultBaseURL is the public GitLab instance.
	DefaultBaseURL = "https://gitlab.com"

	apiPrefix = "/api/v4"
)

// Config holds the two settings every call needs.
type Config struct {
	BaseURL string // instance base URL; DefaultBaseURL when empty
	Token   string // personal/project access token, sent as PRIVATE-TOKEN
}

// Client issues requests against one GitLab instance.
// It keeps no state beyond the base URL and token; every call is independent.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

// NewClient creates a client for the configured instance.
func NewClient(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(base, "/"),
		token:   cfg.Token,
		httpc:   http.DefaultClient,
	}
}

// Response is the normalized outcome of one API call.
//
// Data is non-nil only when OK is true, the response declared a JSON content
// type, the body was non-empty, and parsing succeeded. In every other case
// callers fall back to Body or treat the call as failed.
type Response struct {
	OK         bool
	StatusCode int    // 0 for transport-level failures
	Status     string // status text, or the transport error message
	Body       string // raw response body (read exactly once)
	Data       any    // parsed JSON payload, if any
}

// Err returns nil for a successful response, otherwise a *StatusError
// carrying the status code, status text and raw body.
func (r *Response) Err() error {
	if r.OK {
		return nil
	}
	return &StatusError{StatusCode: r.StatusCode, Status: r.Status, Body: r.Body}
}

// DecodeBody unmarshals the raw body into v. Useful when the caller wants a
// typed payload instead of the generic Data field.
func (r *Response) DecodeBody(v any) error {
	return json.Unmarshal([]byte(r.Body), v)
}

// StatusError is a platform rejection or transport failure surfaced
// as an error. Transport failures have StatusCode 0.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GitLab API error: %d %s", e.StatusCode, e.Status)
}

// CallOptions customizes a single gateway call.
type CallOptions struct {
	Method string      // defaults to GET
	Header http.Header // merged into the request; cannot displace PRIVATE-TOKEN
	Body   any         // JSON-serialized when non-nil
}

// Do performs one API call. path is relative to the instance's /api/v4 root
// and already carries its query string; a fully-qualified URL is used as-is.
//
// HTTP-level and network-level failures are reported inside the Response
// (OK=false), never as an error. The returned error is non-nil only for
// context cancellation (propagated untouched) and request-building failures.
func (c *Client) Do(ctx context.Context, path string, opt CallOptions) (*Response, error) {
	method := opt.Method
	if method == "" {
		method = http.MethodGet
	}

	target := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		target = c.baseURL + apiPrefix + path
	}

	var bodyReader io.Reader
	if opt.Body != nil {
		b, err := json.Marshal(opt.Body)
		if err != nil {
			return nil, errors.Wrap(err, "encode request body")
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	for k, vs := range opt.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	// Auth is injected after the merge so caller headers can never drop it.
	req.Header.Set("PRIVATE-TOKEN", c.token)
	if opt.Body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	ctx, span := startCallSpan(ctx, method, req.URL.Path)
	defer span.End()
	start := time.Now()

	resp, err := c.httpc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			// Deliberate abort, not a remote failure: re-raise.
			return nil, ctx.Err()
		}
		recordCall(ctx, method, 0, time.Since(start))
		return &Response{StatusCode: 0, Status: err.Error(), Body: err.Error()}, nil
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		recordCall(ctx, method, 0, time.Since(start))
		return &Response{StatusCode: 0, Status: err.Error(), Body: err.Error()}, nil
	}
	recordCall(ctx, method, resp.StatusCode, time.Since(start))

	out := &Response{
		OK:         resp.StatusCode >= 200 && resp.StatusCode < 300,
		StatusCode: resp.StatusCode,
		Status:     http.StatusText(resp.StatusCode),
		Body:       string(raw),
	}
	if out.OK && len(raw) > 0 && isJSONContentType(resp.Header.Get("Content-Type")) {
		var data any
		// Parse failures leave Data nil; the raw body is still usable.
		if json.Unmarshal(raw, &data) == nil {
			out.Data = data
		}
	}
	return out, nil
}

func isJSONContentType(ct string) bool {
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// =============================================================================
// Endpoint wrappers
//
// All take an already-normalized project reference (see NormalizeProject) and
// encode it as one opaque path segment, the form the API expects.
// =============================================================================

// RawFile fetches the raw content of one file. ref is optional; the default
// branch is used when it is empty.
func (c *Client) RawFile(ctx context.Context, project, filePath, ref string) (*Response, error) {
	p := "/projects/" + url.PathEscape(project) + "/repository/files/" + url.PathEscape(filePath) + "/raw"
	if ref != "" {
		p += "?ref=" + url.QueryEscape(ref)
	}
	return c.Do(ctx, p, CallOptions{})
}

// Tree lists one page of a repository tree. With recursive=false the listing
// covers a single directory level. ref is optional; the default branch is
// used when it is empty.
func (c *Client) Tree(ctx context.Context, project, path, ref string, recursive bool, page, perPage int) (*Response, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	if path != "" {
		q.Set("path", path)
	}
	if ref != "" {
		q.Set("ref", ref)
	}
	if recursive {
		q.Set("recursive", "true")
	}
	return c.Do(ctx, "/projects/"+url.PathEscape(project)+"/repository/tree?"+q.Encode(), CallOptions{})
}

// Projects lists one page of the caller's project index, most recently
// active first. search is an optional name filter.
func (c *Client) Projects(ctx context.Context, search string, page, perPage int) (*Response, error) {
	q := url.Values{}
	q.Set("membership", "true")
	q.Set("order_by", "last_activity_at")
	q.Set("sort", "desc")
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	if search != "" {
		q.Set("search", search)
	}
	return c.Do(ctx, "/projects?"+q.Encode(), CallOptions{})
}

// SearchBlobs runs one page of a blob-content search scoped to a project.
func (c *Client) SearchBlobs(ctx context.Context, project, query string, page, perPage int) (*Response, error) {
	q := url.Values{}
	q.Set("scope", "blobs")
	q.Set("search", query)
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	return c.Do(ctx, "/projects/"+url.PathEscape(project)+"/search?"+q.Encode(), CallOptions{})
}

// =============================================================================
// Payload shapes for the consumed endpoints
// =============================================================================

// TreeEntry is one row of a repository tree listing.
type TreeEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"` // "blob" or "tree"
	Path string `json:"path"`
	Mode string `json:"mode"`
}

// Project is the reduced projection of a project record retained by
// list_projects.
type Project struct {
	ID                int64   `json:"id"`
	Name              string  `json:"name"`
	PathWithNamespace string  `json:"path_with_namespace"`
	Description       *string `json:"description"`
	WebURL            string  `json:"web_url"`
	DefaultBranch     string  `json:"default_branch"`
	Visibility        string  `json:"visibility"`
	LastActivityAt    string  `json:"last_activity_at"`
}

// SearchBlob is one matched code fragment from a blob search.
type SearchBlob struct {
	Basename  string `json:"basename"`
	Data      string `json:"data"`
	Path      string `json:"path"`
	Filename  string `json:"filename"`
	Ref       string `json:"ref"`
	StartLine int    `json:"startline"`
	ProjectID int64  `json:"project_id"`
}

// MatchPath returns the file path a search match belongs to. Older GitLab
// releases populate filename instead of path.
func (b *SearchBlob) MatchPath() string {
	if b.Path != "" {
		return b.Path
	}
	return b.Filename
}
