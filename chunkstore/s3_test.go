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
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dolthub/lazycc/geom"
)

// fakeS3 is an in-process stand-in for *s3.Client, good enough to
// exercise S3's request shaping and retry behavior without any real
// AWS credentials or network access.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte

	failNextGets int
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: make(map[string][]byte)} }

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.objects[*in.Key] = body
	f.mu.Unlock()
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	if f.failNextGets > 0 {
		f.failNextGets--
		f.mu.Unlock()
		return nil, errors.New("transient get failure")
	}
	body, ok := f.objects[*in.Key]
	f.mu.Unlock()
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[*in.Key]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var contents []types.Object
	for k := range f.objects {
		if in.Prefix == nil || len(k) >= len(*in.Prefix) && k[:len(*in.Prefix)] == *in.Prefix {
			key := k
			contents = append(contents, types.Object{Key: &key})
		}
	}
	return &s3.ListObjectsV2Output{Contents: contents, IsTruncated: aws.Bool(false)}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func newTestS3Store(client s3API) *S3 {
	st := NewS3(client, "test-bucket", "v1/")
	st.Retry.Backoff = time.Millisecond
	st.Retry.MaxDelay = 5 * time.Millisecond
	return st
}

func TestS3WriteReadRoundTrips(t *testing.T) {
	st := newTestS3Store(newFakeS3())
	ctx := context.Background()
	shape := [3]int32{2, 1, 1}
	coord := geom.ChunkCoord{0, 0, 0}
	require.NoError(t, st.WriteChunk(ctx, coord, shape, []uint32{7, 8}))

	ok, err := st.Has(ctx, coord)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := st.ReadSlab(ctx, coord, geom.LocalBox{Min: [3]int32{0, 0, 0}, Max: shape})
	require.NoError(t, err)
	assert.Equal(t, []uint32{7, 8}, got)
}

func TestS3HasFalseForMissingKey(t *testing.T) {
	st := newTestS3Store(newFakeS3())
	ok, err := st.Has(context.Background(), geom.ChunkCoord{9, 9, 9})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestS3ReadRetriesTransientFailures(t *testing.T) {
	fake := newFakeS3()
	st := newTestS3Store(fake)
	ctx := context.Background()
	require.NoError(t, st.WriteChunk(ctx, geom.ChunkCoord{1, 1, 1}, [3]int32{1, 1, 1}, []uint32{3}))

	fake.failNextGets = 2
	got, err := st.ReadSlab(ctx, geom.ChunkCoord{1, 1, 1}, geom.LocalBox{Max: [3]int32{1, 1, 1}})
	require.NoError(t, err)
	assert.Equal(t, []uint32{3}, got)
}

func TestS3ResetDeletesAllObjectsUnderPrefix(t *testing.T) {
	fake := newFakeS3()
	st := newTestS3Store(fake)
	ctx := context.Background()
	require.NoError(t, st.WriteChunk(ctx, geom.ChunkCoord{0, 0, 0}, [3]int32{1, 1, 1}, []uint32{1}))
	require.NoError(t, st.WriteChunk(ctx, geom.ChunkCoord{1, 0, 0}, [3]int32{1, 1, 1}, []uint32{2}))

	require.NoError(t, st.Reset(ctx))

	ok, err := st.Has(ctx, geom.ChunkCoord{0, 0, 0})
	require.NoError(t, err)
	assert.False(t, ok)
}
