// Copyright 2024 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package chunkstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/golang/snappy"

	"github.com/dolthub/lazycc/geom"
	"github.com/dolthub/lazycc/internal/retry"
)

// s3API is the subset of *s3.Client the store needs, so tests can
// substitute a fake without standing up real AWS credentials.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3 is a Store backed by objects in an S3 bucket, one object per
// chunk coordinate under Prefix. WriteChunk and ReadSlab retry failed
// requests with bounded backoff before surfacing the error, since a
// transient network blip should not fail an entire region request;
// Has and Reset are not retried. Surfaced errors are classified as
// IOUpstream by the caller (package labeling).
type S3 struct {
	Client s3API
	Bucket string
	Prefix string
	Retry  retry.Params
}

// NewS3 returns an S3 store. client is typically *s3.Client from
// github.com/aws/aws-sdk-go-v2/service/s3, constructed by the caller
// from its own AWS config so credential resolution stays outside this
// package.
func NewS3(client s3API, bucket, prefix string) *S3 {
	return &S3{
		Client: client,
		Bucket: bucket,
		Prefix: prefix,
		Retry:  retry.Params{NumRetries: 3, Backoff: 100 * time.Millisecond, MaxDelay: 2 * time.Second},
	}
}

func (s *S3) key(coord geom.ChunkCoord) string {
	return fmt.Sprintf("%s%d_%d_%d.chunk", s.Prefix, coord[0], coord[1], coord[2])
}

func (s *S3) WriteChunk(ctx context.Context, coord geom.ChunkCoord, shape [3]int32, labels []uint32) error {
	buf := make([]byte, 12+4*len(labels))
	binary.LittleEndian.PutUint32(buf[0:], uint32(shape[0]))
	binary.LittleEndian.PutUint32(buf[4:], uint32(shape[1]))
	binary.LittleEndian.PutUint32(buf[8:], uint32(shape[2]))
	for i, v := range labels {
		binary.LittleEndian.PutUint32(buf[12+4*i:], v)
	}
	compressed := snappy.Encode(nil, buf)

	return retry.Call(ctx, s.Retry, func(ctx context.Context) error {
		_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.Bucket),
			Key:    aws.String(s.key(coord)),
			Body:   bytes.NewReader(compressed),
		})
		return err
	})
}

func (s *S3) readChunk(ctx context.Context, coord geom.ChunkCoord) ([3]int32, []uint32, error) {
	var body []byte
	err := retry.Call(ctx, s.Retry, func(ctx context.Context) error {
		out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.Bucket),
			Key:    aws.String(s.key(coord)),
		})
		if err != nil {
			var nsk *types.NoSuchKey
			if errors.As(err, &nsk) {
				return &notFoundError{coord}
			}
			return err
		}
		defer out.Body.Close()
		body, err = io.ReadAll(out.Body)
		return err
	})
	if err != nil {
		return [3]int32{}, nil, err
	}
	buf, err := snappy.Decode(nil, body)
	if err != nil {
		return [3]int32{}, nil, fmt.Errorf("chunkstore: decode s3://%s/%s: %w", s.Bucket, s.key(coord), err)
	}
	shape := [3]int32{
		int32(binary.LittleEndian.Uint32(buf[0:])),
		int32(binary.LittleEndian.Uint32(buf[4:])),
		int32(binary.LittleEndian.Uint32(buf[8:])),
	}
	n := int(shape[0]) * int(shape[1]) * int(shape[2])
	labels := make([]uint32, n)
	for i := range labels {
		labels[i] = binary.LittleEndian.Uint32(buf[12+4*i:])
	}
	return shape, labels, nil
}

func (s *S3) ReadSlab(ctx context.Context, coord geom.ChunkCoord, box geom.LocalBox) ([]uint32, error) {
	shape, labels, err := s.readChunk(ctx, coord)
	if err != nil {
		return nil, err
	}
	return sliceSlab(shape, labels, box), nil
}

func (s *S3) Has(ctx context.Context, coord geom.ChunkCoord) (bool, error) {
	_, err := s.Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.key(coord)),
	})
	if err == nil {
		return true, nil
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return false, nil
	}
	return false, err
}

// Reset deletes every object under Prefix. It is not transactional:
// a concurrent writer could race a Reset and leave a stray object
// behind, which is acceptable because Reset is only ever called
// between input versions, never concurrently with live requests.
func (s *S3) Reset(ctx context.Context) error {
	var continuation *string
	for {
		out, err := s.Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.Bucket),
			Prefix:            aws.String(s.Prefix),
			ContinuationToken: continuation,
		})
		if err != nil {
			return err
		}
		for _, obj := range out.Contents {
			if _, err := s.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(s.Bucket),
				Key:    obj.Key,
			}); err != nil {
				return err
			}
		}
		if out.IsTruncated == nil || !*out.IsTruncated {
			return nil
		}
		continuation = out.NextContinuationToken
	}
}
