package transfer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"golang.org/x/sync/errgroup"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3store/s3types"
)

// maxParts is the largest part count S3 accepts for one upload.
const maxParts = 10000

// uploadMultipart streams r as a multipart upload. first holds the n bytes
// already read; it is owned by this call and returned to the pool.
func (m *Manager) uploadMultipart(
	ctx context.Context,
	bucket, key string,
	r io.Reader,
	first []byte,
	n int,
	last bool,
	cfg *uploadConfig,
	start time.Time,
) (*s3types.UploadResult, error) {
	uploadID, err := m.createMultipartUpload(ctx, bucket, key, cfg)
	if err != nil {
		m.parts.Put(first)
		return nil, err
	}

	logger := m.cfg.Logger.With("bucket", bucket, "key", key, "upload_id", uploadID)
	logger.Debug("multipart upload started")

	var (
		mu        sync.Mutex
		completed []awstypes.CompletedPart
		total     int64
		readErr   error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Concurrency)

	buf := first
	partNumber := int32(0)
	for {
		if n > 0 || partNumber == 0 {
			partNumber++
			if partNumber > maxParts {
				m.parts.Put(buf)
				readErr = errors.NewError("upload", errors.ErrInvalidInput).
					WithMessage(fmt.Sprintf("body needs more than %d parts of %d bytes", maxParts, m.cfg.PartSize))
				break
			}

			num, data, owned := partNumber, buf[:n], buf
			g.Go(func() error {
				defer m.parts.Put(owned)

				etag, err := m.uploadPart(gctx, bucket, key, uploadID, num, data)
				if err != nil {
					return err
				}

				mu.Lock()
				completed = append(completed, awstypes.CompletedPart{
					ETag:       aws.String(etag),
					PartNumber: aws.Int32(num),
				})
				total += int64(len(data))
				mu.Unlock()
				return nil
			})
		} else {
			m.parts.Put(buf)
		}

		if last {
			break
		}
		if err := gctx.Err(); err != nil {
			readErr = err
			break
		}

		buf = m.parts.Get()
		n, last, err = readPart(r, buf)
		if err != nil {
			m.parts.Put(buf)
			readErr = errors.NewObjectError("upload", bucket, key, err)
			break
		}
	}

	if err := g.Wait(); err != nil || readErr != nil {
		if err == nil {
			err = readErr
		}
		m.abortMultipartUpload(ctx, bucket, key, uploadID)
		logger.Debug("multipart upload aborted", "error", err)
		return nil, err
	}

	slices.SortFunc(completed, func(a, b awstypes.CompletedPart) int {
		return int(aws.ToInt32(a.PartNumber) - aws.ToInt32(b.PartNumber))
	})

	output, err := m.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
		MultipartUpload: &awstypes.CompletedMultipartUpload{
			Parts: completed,
		},
	})
	if err != nil {
		m.abortMultipartUpload(ctx, bucket, key, uploadID)
		return nil, errors.NewObjectError("completeMultipartUpload", bucket, key, err)
	}

	logger.Debug("multipart upload complete", "parts", len(completed), "bytes", total)

	return &s3types.UploadResult{
		Key:       key,
		Size:      total,
		ETag:      aws.ToString(output.ETag),
		VersionID: aws.ToString(output.VersionId),
		Parts:     len(completed),
		Duration:  time.Since(start),
	}, nil
}

// createMultipartUpload creates a new multipart upload
func (m *Manager) createMultipartUpload(
	ctx context.Context,
	bucket, key string,
	cfg *uploadConfig,
) (string, error) {
	input := &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		ContentType: aws.String(cfg.contentType),
	}
	if len(cfg.metadata) > 0 {
		input.Metadata = cfg.metadata
	}

	output, err := m.client.CreateMultipartUpload(ctx, input)
	if err != nil {
		return "", errors.NewObjectError("createMultipartUpload", bucket, key, err)
	}

	return aws.ToString(output.UploadId), nil
}

// uploadPart uploads a single part
func (m *Manager) uploadPart(
	ctx context.Context,
	bucket, key, uploadID string,
	partNumber int32,
	data []byte,
) (string, error) {
	output, err := m.client.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		UploadId:      aws.String(uploadID),
		PartNumber:    aws.Int32(partNumber),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", errors.NewObjectError("uploadPart", bucket, key, err)
	}

	return aws.ToString(output.ETag), nil
}

// abortMultipartUpload cleans up a failed multipart upload. The abort is
// detached from ctx cancellation.
func (m *Manager) abortMultipartUpload(ctx context.Context, bucket, key, uploadID string) {
	_, err := m.client.AbortMultipartUpload(context.WithoutCancel(ctx), &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	if err != nil {
		m.cfg.Logger.Warn("failed to abort multipart upload",
			"bucket", bucket, "key", key, "upload_id", uploadID, "error", err)
	}
}
