// Package client talks to the annotation service over HTTP.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/lehigh-university-libraries/reviewbox/internal/models"
)

// DefaultTimeout bounds every request.
const DefaultTimeout = 30 * time.Second

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("%s %s returned status %d: %s", e.Method, e.Path, e.Code, body)
}

// Client is an annotation service client.
type Client struct {
	BaseURL string
	http    *resty.Client
	now     func() time.Time
}

// New returns a client for the service at baseURL.
func New(baseURL string) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	return &Client{
		BaseURL: baseURL,
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(DefaultTimeout).
			SetHeader("Accept", "application/json"),
		now: time.Now,
	}
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx)
}

// fresh marks a request as uncacheable and adds a cache-busting parameter.
func (c *Client) fresh(r *resty.Request) *resty.Request {
	return r.
		SetHeader("Cache-Control", "no-cache").
		SetQueryParam("t", strconv.FormatInt(c.now().UnixMilli(), 10))
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.IsError() {
		return &StatusError{
			Method: resp.Request.Method,
			Path:   resp.Request.URL,
			Code:   resp.StatusCode(),
			Body:   resp.String(),
		}
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, query map[string]string, fresh bool, out any) error {
	r := c.request(ctx).SetQueryParams(query).SetResult(out)
	if fresh {
		r = c.fresh(r)
	}
	if err := check(r.Get(path)); err != nil {
		return fmt.Errorf("failed to fetch %s: %w", path, err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	r := c.request(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body)
	if out != nil {
		r = r.SetResult(out)
	}
	if err := check(r.Post(path)); err != nil {
		return fmt.Errorf("failed to post %s: %w", path, err)
	}
	return nil
}

func annotationPath(coll models.Collection) string {
	if coll == models.Raw {
		return "/api/raw/annotation"
	}
	return "/api/annotation"
}

func imagePath(coll models.Collection, image string) string {
	if coll == models.Raw {
		return "/raw_image/" + url.PathEscape(image)
	}
	return "/image/" + url.PathEscape(image)
}

// Images lists one page of the catalog, optionally filtered by class.
func (c *Client) Images(ctx context.Context, page, pageSize int, class string) (models.ImagePage, error) {
	q := map[string]string{
		"page":      strconv.Itoa(page),
		"page_size": strconv.Itoa(pageSize),
	}
	if class != models.FilterAll {
		q["class"] = class
	}
	var out models.ImagePage
	err := c.getJSON(ctx, "/api/images", q, true, &out)
	return out, err
}

// RawImages lists the whole intake collection.
func (c *Client) RawImages(ctx context.Context) ([]string, error) {
	var out models.ImagePage
	if err := c.getJSON(ctx, "/api/raw_images", nil, true, &out); err != nil {
		return nil, err
	}
	return out.Images, nil
}

// Annotation fetches the stored record for image, bypassing HTTP caches.
func (c *Client) Annotation(ctx context.Context, coll models.Collection, image string) (models.Annotation, error) {
	var out models.AnnotationResponse
	if err := c.getJSON(ctx, annotationPath(coll), map[string]string{"image": image}, true, &out); err != nil {
		return models.Annotation{}, err
	}
	if out.Boxes == nil {
		out.Boxes = []models.Box{}
	}
	return models.Annotation{Boxes: out.Boxes, W: out.W, H: out.H}, nil
}

// SaveAnnotation overwrites the stored box list of image.
func (c *Client) SaveAnnotation(ctx context.Context, coll models.Collection, image string, boxes []models.Box) error {
	path := "/api/annotate"
	if coll == models.Raw {
		path = annotationPath(coll)
	}
	if boxes == nil {
		boxes = []models.Box{}
	}
	var out models.OKResponse
	if err := c.postJSON(ctx, path, models.AnnotateRequest{Image: image, Boxes: boxes}, &out); err != nil {
		return err
	}
	if !out.OK {
		return fmt.Errorf("save %s rejected: %s", image, out.Error)
	}
	return nil
}

// BulkAnnotations fetches box lists for many catalog images in one request.
func (c *Client) BulkAnnotations(ctx context.Context, images []string) (map[string][]models.Box, error) {
	var out models.BulkAnnotationsResponse
	if err := c.postJSON(ctx, "/api/annotations_bulk", models.BulkAnnotationsRequest{Images: images}, &out); err != nil {
		return nil, err
	}
	items := make(map[string][]models.Box, len(out.Items))
	for k, v := range out.Items {
		items[k] = v.Boxes
	}
	return items, nil
}

// Classes fetches the class list.
func (c *Client) Classes(ctx context.Context) ([]string, error) {
	var out models.ClassesPayload
	if err := c.getJSON(ctx, "/api/classes", nil, true, &out); err != nil {
		return nil, err
	}
	return out.Classes, nil
}

// SaveClasses replaces the class list.
func (c *Client) SaveClasses(ctx context.Context, classes []string) error {
	return c.postJSON(ctx, "/api/classes", models.ClassesPayload{Classes: classes}, nil)
}

// Accept moves intake images into the catalog. When label is set, unlabeled
// boxes of the accepted images take that label. Per-file failures are
// reported in the result.
func (c *Client) Accept(ctx context.Context, files []string, label string) (models.BulkResult, error) {
	var out models.AcceptResponse
	if err := c.postJSON(ctx, "/api/raw/accept", models.FilesRequest{Files: files, Label: label}, &out); err != nil {
		return models.BulkResult{}, err
	}
	return models.BulkResult{Done: acceptedFiles(files, out), Failed: out.Errors}, nil
}

// acceptedFiles tolerates services that report only errors.
func acceptedFiles(files []string, out models.AcceptResponse) []string {
	if out.Accepted != nil {
		return out.Accepted
	}
	failed := make(map[string]bool, len(out.Errors))
	for _, e := range out.Errors {
		failed[e.File] = true
	}
	var done []string
	for _, f := range files {
		if !failed[f] {
			done = append(done, f)
		}
	}
	return done
}

// Delete removes images and their annotations from a collection.
func (c *Client) Delete(ctx context.Context, coll models.Collection, files []string) (models.BulkResult, error) {
	path := "/api/delete"
	if coll == models.Raw {
		path = "/api/raw/delete"
	}
	var out models.DeleteResponse
	if err := c.postJSON(ctx, path, models.FilesRequest{Files: files}, &out); err != nil {
		return models.BulkResult{}, err
	}
	return models.BulkResult{Done: out.Deleted, Failed: out.Errors}, nil
}

// ImageBytes downloads the encoded image.
func (c *Client) ImageBytes(ctx context.Context, coll models.Collection, image string) ([]byte, error) {
	path := imagePath(coll, image)
	resp, err := c.request(ctx).SetHeader("Accept", "image/*").Get(path)
	if err := check(resp, err); err != nil {
		return nil, fmt.Errorf("failed to fetch image %s: %w", image, err)
	}
	return resp.Body(), nil
}

// ExportOptions lists the classes available for export.
func (c *Client) ExportOptions(ctx context.Context) ([]string, error) {
	var out models.ClassesPayload
	if err := c.getJSON(ctx, "/api/export_options", nil, true, &out); err != nil {
		return nil, err
	}
	return out.Classes, nil
}

// Export asks the service to build a VOC archive.
func (c *Client) Export(ctx context.Context, req models.ExportRequest) (models.ExportResponse, error) {
	var out models.ExportResponse
	if err := c.postJSON(ctx, "/api/export_voc", req, &out); err != nil {
		return out, err
	}
	if !out.OK {
		return out, fmt.Errorf("export failed: %s", out.Error)
	}
	return out, nil
}

// Download streams a service path such as an export zip URL into w.
func (c *Client) Download(ctx context.Context, path string, w io.Writer) error {
	resp, err := c.request(ctx).SetDoNotParseResponse(true).Get(path)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", path, err)
	}
	body := resp.RawBody()
	defer body.Close()
	if resp.StatusCode() != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(body, 1024))
		return &StatusError{Method: http.MethodGet, Path: path, Code: resp.StatusCode(), Body: string(b)}
	}
	if _, err := io.Copy(w, body); err != nil {
		return fmt.Errorf("failed to download %s: %w", path, err)
	}
	return nil
}

func (c *Client) upload(ctx context.Context, path, name string, r io.Reader) (models.ImportResponse, error) {
	var out models.ImportResponse
	resp, err := c.request(ctx).
		SetFileReader("file", name, r).
		SetResult(&out).
		SetError(&out).
		Post(path)
	if err := check(resp, err); err != nil {
		if out.Error != "" {
			return out, fmt.Errorf("import failed: %s: %w", out.Error, err)
		}
		return out, fmt.Errorf("import failed: %w", err)
	}
	return out, nil
}

// ImportVOC uploads a zip of images and VOC XML into the catalog.
func (c *Client) ImportVOC(ctx context.Context, name string, r io.Reader) (models.ImportResponse, error) {
	return c.upload(ctx, "/api/import_voc", name, r)
}

// ImportImages uploads a zip of images into the intake collection.
func (c *Client) ImportImages(ctx context.Context, name string, r io.Reader) (models.ImportResponse, error) {
	return c.upload(ctx, "/api/import_images", name, r)
}

// Projects lists projects and the active one.
func (c *Client) Projects(ctx context.Context) (models.ProjectsResponse, error) {
	var out models.ProjectsResponse
	err := c.getJSON(ctx, "/api/projects", nil, true, &out)
	return out, err
}

// SwitchProject makes name the active project.
func (c *Client) SwitchProject(ctx context.Context, name string) error {
	return c.postJSON(ctx, "/api/project/switch", models.ProjectRequest{Name: name}, nil)
}

// CreateProject creates and activates a project, optionally moving the
// content of moveFrom into it.
func (c *Client) CreateProject(ctx context.Context, name, moveFrom string) (string, error) {
	var out models.ProjectResponse
	if err := c.postJSON(ctx, "/api/project/create", models.ProjectRequest{Name: name, MoveFrom: moveFrom}, &out); err != nil {
		return "", err
	}
	return out.Name, nil
}

// Health checks that the service is up.
func (c *Client) Health(ctx context.Context) error {
	return check(c.request(ctx).Get("/healthcheck"))
}
