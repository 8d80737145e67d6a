package bundle

import (
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/daniel-p-green/skillvault/pkg/errs"
	"github.com/daniel-p-green/skillvault/pkg/hashing"
)

// readS3 reads every object under an "s3://bucket/prefix" location into a
// Bundle, mirroring readGCS's normalization and re-sort behavior.
func readS3(ctx context.Context, uri string) (*Bundle, error) {
	bucket, prefix, err := parseRemoteURI(uri, "s3://")
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errs.IO(err, "load AWS config for %s", uri)
	}
	client := s3.NewFromConfig(cfg)

	var files []hashing.RawFile
	var continuation *string
	for {
		out, listErr := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: continuation,
		})
		if listErr != nil {
			return nil, errs.IO(listErr, "list S3 objects under %s", uri)
		}

		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			relPath := toPosix(strings.TrimPrefix(key, prefix))
			relPath = strings.TrimPrefix(relPath, "/")
			if relPath == "" || strings.HasSuffix(key, "/") {
				continue
			}

			getOut, getErr := client.GetObject(ctx, &s3.GetObjectInput{
				Bucket: aws.String(bucket),
				Key:    aws.String(key),
			})
			if getErr != nil {
				return nil, errs.IO(getErr, "get S3 object %s", key)
			}
			data, readErr := io.ReadAll(getOut.Body)
			_ = getOut.Body.Close()
			if readErr != nil {
				return nil, errs.IO(readErr, "read S3 object %s", key)
			}
			files = append(files, hashing.RawFile{Path: relPath, Bytes: data})
		}

		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		continuation = out.NextContinuationToken
	}

	sortRawFiles(files)
	return &Bundle{Kind: KindS3, Source: uri, Files: files}, nil
}
