package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/ardanlabs/powchain/business/web/errs"
)

// client talks to the public api of a node.
type client struct {
	url  string
	http http.Client
}

func newClient(url string, timeout time.Duration) *client {
	return &client{
		url:  url,
		http: http.Client{Timeout: timeout},
	}
}

// do sends the body to the path and decodes the response into dataRecv.
func (c *client) do(ctx context.Context, method string, path string, body []byte, dataRecv any) error {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var er errs.Response
		if err := json.NewDecoder(resp.Body).Decode(&er); err != nil || er.Error == "" {
			return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
		}
		if len(er.Fields) > 0 {
			return fmt.Errorf("%s %s: %s: %v", method, path, er.Error, er.Fields)
		}
		return fmt.Errorf("%s %s: %s", method, path, er.Error)
	}

	if dataRecv != nil {
		return json.NewDecoder(resp.Body).Decode(dataRecv)
	}

	return nil
}

// readData returns the JSON given on the command line or read from a file.
func readData(data string, file string) (json.RawMessage, error) {
	raw := []byte(data)
	if file != "" {
		var err error
		if raw, err = os.ReadFile(file); err != nil {
			return nil, err
		}
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}

	if !json.Valid(raw) {
		return nil, fmt.Errorf("data is not valid json: %s", raw)
	}

	return raw, nil
}

// printJSON writes the value indented.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
