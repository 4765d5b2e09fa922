package storage

import (
	"context"
	"fmt"
	"io"
	"sort"

	aliyunoss "github.com/aliyun/aliyun-oss-go-sdk/oss"
)

// OSS is a namespace backed by the objects directly under an Aliyun OSS
// bucket prefix
type OSS struct {
	bucket *aliyunoss.Bucket
	name   string
	prefix string
}

// NewOSS returns an OSS namespace. The region is part of the endpoint.
func NewOSS(endpoint, accessKey, secretKey, bucket, prefix string) (*OSS, error) {
	client, err := aliyunoss.New(endpoint, accessKey, secretKey)
	if err != nil {
		return nil, fmt.Errorf("new oss client failed: %w", err)
	}

	b, err := client.Bucket(bucket)
	if err != nil {
		return nil, fmt.Errorf("open oss bucket %s: %w", bucket, err)
	}

	return &OSS{
		bucket: b,
		name:   bucket,
		prefix: normalizePrefix(prefix),
	}, nil
}

func (o *OSS) List(ctx context.Context) ([]string, error) {
	var names []string
	marker := ""
	for {
		resp, err := o.bucket.ListObjects(aliyunoss.Prefix(o.prefix), aliyunoss.Marker(marker))
		if err != nil {
			return nil, fmt.Errorf("list oss://%s/%s: %w", o.name, o.prefix, err)
		}

		for _, object := range resp.Objects {
			if name, ok := relativeKey(o.prefix, object.Key); ok {
				names = append(names, name)
			}
		}

		if !resp.IsTruncated {
			break
		}
		marker = resp.NextMarker
	}

	sort.Strings(names)
	return names, nil
}

func (o *OSS) Exists(ctx context.Context, name string) (bool, error) {
	if err := validName(name); err != nil {
		return false, err
	}
	return o.bucket.IsObjectExist(o.prefix + name)
}

func (o *OSS) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	body, err := o.bucket.GetObject(o.prefix + name)
	if err != nil {
		if serr, ok := err.(aliyunoss.ServiceError); ok && serr.Code == "NoSuchKey" {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return nil, err
	}
	return body, nil
}

func (o *OSS) Close() error {
	return nil
}

func (o *OSS) String() string {
	return fmt.Sprintf("oss://%s/%s", o.name, o.prefix)
}
