package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/reviewbox/internal/annotations"
	"github.com/lehigh-university-libraries/reviewbox/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestAnnotationIsCacheBusted(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/annotation" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("image") != "a b.jpg" {
			t.Errorf("Expected image param, got %q", r.URL.RawQuery)
		}
		seen = append(seen, r.URL.Query().Get("t"))
		if r.Header.Get("Cache-Control") != "no-cache" {
			t.Errorf("Expected no-cache header, got %q", r.Header.Get("Cache-Control"))
		}
		writeJSON(w, http.StatusOK, models.AnnotationResponse{
			Boxes: []models.Box{{X1: 1, Y1: 2, X2: 3, Y2: 4, Label: "cat"}},
			W:     640, H: 480,
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	a, err := c.Annotation(context.Background(), models.Catalog, "a b.jpg")
	if err != nil {
		t.Fatalf("Annotation: %v", err)
	}
	if a.W != 640 || a.H != 480 || len(a.Boxes) != 1 || a.Boxes[0].Label != "cat" {
		t.Errorf("Unexpected annotation %+v", a)
	}
	if len(seen) != 1 || seen[0] == "" {
		t.Errorf("Expected cache-busting t param, got %v", seen)
	}
}

func TestSaveAnnotationPaths(t *testing.T) {
	tests := []struct {
		coll models.Collection
		path string
	}{
		{models.Catalog, "/api/annotate"},
		{models.Raw, "/api/raw/annotation"},
	}
	for _, tt := range tests {
		t.Run(string(tt.coll), func(t *testing.T) {
			var body models.AnnotateRequest
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != tt.path {
					t.Errorf("Unexpected %s %s", r.Method, r.URL.Path)
				}
				_ = json.NewDecoder(r.Body).Decode(&body)
				writeJSON(w, http.StatusOK, models.OKResponse{OK: true})
			}))
			defer srv.Close()

			if err := New(srv.URL).SaveAnnotation(context.Background(), tt.coll, "x.png", nil); err != nil {
				t.Fatalf("SaveAnnotation: %v", err)
			}
			if body.Image != "x.png" || body.Boxes == nil || len(body.Boxes) != 0 {
				t.Errorf("Expected empty box list for x.png, got %+v", body)
			}
		})
	}
}

func TestStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Image not found.", http.StatusNotFound)
	}))
	defer srv.Close()

	err := New(srv.URL).SaveAnnotation(context.Background(), models.Catalog, "x.png", nil)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("Expected StatusError, got %v", err)
	}
	if se.Code != http.StatusNotFound || !strings.Contains(se.Body, "Image not found") {
		t.Errorf("Unexpected StatusError %+v", se)
	}
}

func TestAcceptReportsPartialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.FilesRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Label != "cat" {
			t.Errorf("Expected label cat, got %q", req.Label)
		}
		// Bare string errors, no accepted list.
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"errors":["b.jpg"]}`)
	}))
	defer srv.Close()

	res, err := New(srv.URL).Accept(context.Background(), []string{"a.jpg", "b.jpg"}, "cat")
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if !reflect.DeepEqual(res.Done, []string{"a.jpg"}) || !reflect.DeepEqual(res.FailedNames(), []string{"b.jpg"}) {
		t.Errorf("Unexpected result %+v", res)
	}
}

func TestDeleteRaw(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/raw/delete" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		writeJSON(w, http.StatusOK, models.DeleteResponse{
			Deleted: []string{"a.jpg"},
			Errors:  []models.FileError{{File: "b.jpg", Error: "invalid name"}},
		})
	}))
	defer srv.Close()

	res, err := New(srv.URL).Delete(context.Background(), models.Raw, []string{"a.jpg", "b.jpg"})
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(res.Done) != 1 || res.Failed[0].Error != "invalid name" {
		t.Errorf("Unexpected result %+v", res)
	}
}

func TestBulkBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.BulkAnnotationsRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		out := models.BulkAnnotationsResponse{Items: map[string]struct {
			Boxes []models.Box `json:"boxes"`
		}{}}
		for _, img := range req.Images {
			out.Items[img] = struct {
				Boxes []models.Box `json:"boxes"`
			}{Boxes: []models.Box{models.NullBox()}}
		}
		writeJSON(w, http.StatusOK, out)
	}))
	defer srv.Close()

	c := New(srv.URL)
	items, err := c.Annotations(models.Catalog).FetchBulk(context.Background(), []string{"a.jpg", "b.jpg"})
	if err != nil {
		t.Fatalf("FetchBulk: %v", err)
	}
	if len(items) != 2 || !items["b.jpg"][0].IsNull() {
		t.Errorf("Unexpected items %v", items)
	}
	if _, err := c.Annotations(models.Raw).FetchBulk(context.Background(), nil); !errors.Is(err, annotations.ErrBulkUnsupported) {
		t.Errorf("Expected ErrBulkUnsupported for raw, got %v", err)
	}
}

func TestImageBytesAndDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/raw_image/a.png":
			_, _ = w.Write([]byte("PNGDATA"))
		case "/exports/VOC_1.zip":
			_, _ = w.Write([]byte("ZIPDATA"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	b, err := c.ImageBytes(context.Background(), models.Raw, "a.png")
	if err != nil || string(b) != "PNGDATA" {
		t.Errorf("ImageBytes: %q, %v", b, err)
	}

	var buf bytes.Buffer
	if err := c.Download(context.Background(), "/exports/VOC_1.zip", &buf); err != nil || buf.String() != "ZIPDATA" {
		t.Errorf("Download: %q, %v", buf.String(), err)
	}
	if err := c.Download(context.Background(), "/exports/missing.zip", &buf); err == nil {
		t.Error("Expected error for missing export")
	}
}

func TestImportUploadsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			writeJSON(w, http.StatusBadRequest, models.ImportResponse{Error: "No file part"})
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if hdr.Filename != "set.zip" || string(data) != "zip" {
			t.Errorf("Unexpected upload %s %q", hdr.Filename, data)
		}
		writeJSON(w, http.StatusOK, models.ImportResponse{OK: true, Imported: 3})
	}))
	defer srv.Close()

	res, err := New(srv.URL).ImportVOC(context.Background(), "set.zip", strings.NewReader("zip"))
	if err != nil || res.Imported != 3 {
		t.Errorf("ImportVOC: %+v, %v", res, err)
	}
}
