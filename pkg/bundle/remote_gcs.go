package bundle

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/daniel-p-green/skillvault/pkg/errs"
	"github.com/daniel-p-green/skillvault/pkg/hashing"
)

// readGCS reads every object under a "gs://bucket/prefix" location into a
// Bundle. Object names are treated the same way ZIP entry names are: the
// prefix is stripped, backslashes are normalized, and the result is
// re-sorted by path bytes rather than trusting listing order.
func readGCS(ctx context.Context, uri string) (*Bundle, error) {
	bucket, prefix, err := parseRemoteURI(uri, "gs://")
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, errs.IO(err, "create GCS client for %s", uri)
	}
	defer func() { _ = client.Close() }()

	it := client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	var files []hashing.RawFile
	for {
		attrs, iterErr := it.Next()
		if iterErr == iterator.Done {
			break
		}
		if iterErr != nil {
			return nil, errs.IO(iterErr, "list GCS objects under %s", uri)
		}
		relPath := toPosix(strings.TrimPrefix(attrs.Name, prefix))
		relPath = strings.TrimPrefix(relPath, "/")
		if relPath == "" || strings.HasSuffix(attrs.Name, "/") {
			continue
		}

		rc, openErr := client.Bucket(bucket).Object(attrs.Name).NewReader(ctx)
		if openErr != nil {
			return nil, errs.IO(openErr, "open GCS object %s", attrs.Name)
		}
		data, readErr := io.ReadAll(rc)
		_ = rc.Close()
		if readErr != nil {
			return nil, errs.IO(readErr, "read GCS object %s", attrs.Name)
		}
		files = append(files, hashing.RawFile{Path: relPath, Bytes: data})
	}

	sortRawFiles(files)
	return &Bundle{Kind: KindGCS, Source: uri, Files: files}, nil
}

// parseRemoteURI splits "scheme://bucket/prefix" into bucket and prefix,
// always returning a prefix that ends in "/" when non-empty so trimming it
// from object names never leaves a stray separator.
func parseRemoteURI(uri, scheme string) (bucket, prefix string, err error) {
	rest := strings.TrimPrefix(uri, scheme)
	parts := strings.SplitN(rest, "/", 2)
	if parts[0] == "" {
		return "", "", fmt.Errorf("bundle: invalid remote URI %q: missing bucket", uri)
	}
	bucket = parts[0]
	if len(parts) == 2 && parts[1] != "" {
		prefix = strings.TrimSuffix(parts[1], "/") + "/"
	}
	return bucket, prefix, nil
}
