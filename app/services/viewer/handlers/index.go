package handlers

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/ardanlabs/powchain/foundation/web"
)

//go:embed assets/index.html
var assets embed.FS

type index struct {
	page []byte
}

// newIndex renders the page once. The page talks to the node public api
// directly from the browser.
func newIndex(build string, nodeURL string) (*index, error) {
	tmpl, err := template.ParseFS(assets, "assets/index.html")
	if err != nil {
		return nil, err
	}

	nodeURL = strings.TrimSuffix(nodeURL, "/")
	if !strings.HasPrefix(nodeURL, "http://") && !strings.HasPrefix(nodeURL, "https://") {
		return nil, fmt.Errorf("node url %q must start with http:// or https://", nodeURL)
	}

	data := struct {
		Build     string
		NodeURL   string
		EventsURL string
	}{
		Build:     build,
		NodeURL:   nodeURL,
		EventsURL: "ws" + strings.TrimPrefix(nodeURL, "http") + "/v1/events",
	}

	var b bytes.Buffer
	if err := tmpl.Execute(&b, data); err != nil {
		return nil, err
	}

	return &index{page: b.Bytes()}, nil
}

func (ig *index) handler(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	web.SetStatusCode(ctx, http.StatusOK)
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(ig.page); err != nil {
		return fmt.Errorf("write index page: %w", err)
	}

	return nil
}
