package s3

import (
	"context"
	"log"
	"path/filepath"
	"strings"

	aderrors "github.com/autodoc/autodoc/pkg/errors"
)

var contentTypes = map[string]string{
	".pdf":  "application/pdf",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".png":  "image/png",
}

// uploader is the part of Client the Publisher needs.
type uploader interface {
	PutFile(ctx context.Context, key, localPath, contentType string) error
	URI(key string) string
}

// Publisher uploads run artifacts to <prefix>/<runID>/<file>.
type Publisher struct {
	client uploader
	prefix string
}

// NewPublisher creates a publisher writing under prefix.
func NewPublisher(client *Client, prefix string) *Publisher {
	return &Publisher{client: client, prefix: strings.Trim(prefix, "/")}
}

// Publish uploads every file and returns the s3:// URIs of the ones that
// made it. Failures are collected; any failure fails the call.
func (p *Publisher) Publish(ctx context.Context, runID string, files []string) ([]string, error) {
	var (
		uris []string
		errs aderrors.MultiError
	)

	for _, file := range files {
		key := ObjectKey(p.prefix, runID, file)
		ct := contentTypes[strings.ToLower(filepath.Ext(file))]

		if err := p.client.PutFile(ctx, key, file, ct); err != nil {
			errs.Add(err)
			continue
		}
		uri := p.client.URI(key)
		log.Printf("[publish] %s -> %s", file, uri)
		uris = append(uris, uri)
	}

	if err := errs.Combined(); err != nil {
		return uris, aderrors.Wrapf(err, aderrors.CodePublishFailed, "publish failed (%d of %d uploaded)", len(uris), len(files)).
			WithContext("run_id", runID)
	}
	return uris, nil
}
