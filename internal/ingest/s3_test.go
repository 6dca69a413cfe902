// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package ingest

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// fakeObjects serves objects from memory keyed by "bucket/key".
type fakeObjects struct {
	objects map[string]string
	err     error
	got     []string
}

func (f *fakeObjects) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	name := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.got = append(f.got, name)
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.objects[name]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestParseS3URI(t *testing.T) {
	t.Parallel()

	tests := []struct {
		uri        string
		wantBucket string
		wantKey    string
		wantErr    bool
	}{
		{uri: "s3://baskets/2026/orders.csv", wantBucket: "baskets", wantKey: "2026/orders.csv"},
		{uri: "s3://baskets/orders.jsonl", wantBucket: "baskets", wantKey: "orders.jsonl"},
		{uri: "s3://baskets", wantErr: true},
		{uri: "s3://baskets/", wantErr: true},
		{uri: "s3:///orders.csv", wantErr: true},
		{uri: "orders.csv", wantErr: true},
	}

	for _, tt := range tests {
		bucket, key, err := ParseS3URI(tt.uri)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseS3URI(%q) error = %v, wantErr %v", tt.uri, err, tt.wantErr)
			continue
		}
		if bucket != tt.wantBucket || key != tt.wantKey {
			t.Errorf("ParseS3URI(%q) = %q, %q, want %q, %q", tt.uri, bucket, key, tt.wantBucket, tt.wantKey)
		}
	}

	if !IsS3URI("s3://b/k") || IsS3URI("/data/s3/orders.csv") {
		t.Error("IsS3URI misclassifies inputs")
	}
}

func TestOpenS3Object_FeedsCSVSource(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	objects := &fakeObjects{objects: map[string]string{"baskets/2026/orders.csv": ordersCSV}}
	body, err := OpenS3Object(ctx, objects, "s3://baskets/2026/orders.csv")
	if err != nil {
		t.Fatalf("OpenS3Object() error = %v", err)
	}
	defer body.Close()

	txs, err := Collect(ctx, NewCSVSource(body, SimpleMapping(0, 1, 2), WithClock(fixedClock)))
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(txs) != 3 || txs[0].ID != "tx1" {
		t.Errorf("transactions = %+v, want tx1, tx2, tx4", txs)
	}
	if len(objects.got) != 1 || objects.got[0] != "baskets/2026/orders.csv" {
		t.Errorf("requested objects = %v", objects.got)
	}
}

func TestOpenS3Object_Errors(t *testing.T) {
	t.Parallel()

	denied := errors.New("AccessDenied")
	tests := []struct {
		name    string
		uri     string
		client  *fakeObjects
		wantErr error
	}{
		{name: "bad uri", uri: "s3://only-bucket", client: &fakeObjects{}},
		{name: "get fails", uri: "s3://b/orders.csv", client: &fakeObjects{err: denied}, wantErr: denied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := OpenS3Object(context.Background(), tt.client, tt.uri)
			if err == nil {
				t.Fatal("OpenS3Object() error = nil, want error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("OpenS3Object() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewS3Client(t *testing.T) {
	t.Parallel()

	client, err := NewS3Client(context.Background(), S3Config{
		Region:          "eu-central-1",
		Endpoint:        "http://minio.local:9000",
		UsePathStyle:    true,
		AccessKeyID:     "rulemine",
		SecretAccessKey: "secret",
	})
	if err != nil {
		t.Fatalf("NewS3Client() error = %v", err)
	}
	opts := client.Options()
	if opts.Region != "eu-central-1" || aws.ToString(opts.BaseEndpoint) != "http://minio.local:9000" || !opts.UsePathStyle {
		t.Errorf("options region = %q, endpoint = %q, path style = %v",
			opts.Region, aws.ToString(opts.BaseEndpoint), opts.UsePathStyle)
	}

	if _, err := NewS3Client(context.Background(), S3Config{AccessKeyID: "only-id"}); err == nil {
		t.Error("NewS3Client(partial credentials) error = nil, want error")
	}
}
