package loader

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"jobmart/services/pipeline/internal/errors"
)

// Source opens source files by slash-separated path relative to the data
// root.
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Close() error
}

type FSSource struct {
	fsys fs.FS
}

func NewFSSource(fsys fs.FS) *FSSource {
	return &FSSource{fsys: fsys}
}

func NewDirSource(dir string) *FSSource {
	return NewFSSource(os.DirFS(dir))
}

func (s *FSSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	f, err := s.fsys.Open(name)
	if err != nil {
		return nil, errors.Structural(fmt.Sprintf("opening source file %s", name), err)
	}
	return f, nil
}

func (s *FSSource) Close() error {
	return nil
}

type GCSSource struct {
	client *gcs.Client
	bucket string
	prefix string
}

// NewGCSSource reads from a gs://bucket/prefix location. Credentials come
// from credentialsFile when set, otherwise from the default chain.
func NewGCSSource(ctx context.Context, location, credentialsFile string) (*GCSSource, error) {
	bucket, prefix, err := parseGCSLocation(location)
	if err != nil {
		return nil, err
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	c, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Unavailable("creating storage client", err)
	}
	return &GCSSource{client: c, bucket: bucket, prefix: prefix}, nil
}

func parseGCSLocation(location string) (bucket, prefix string, err error) {
	rest, ok := strings.CutPrefix(location, "gs://")
	if !ok {
		return "", "", errors.InvalidInput(fmt.Sprintf("not a gs:// location: %q", location), nil)
	}
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", errors.InvalidInput(fmt.Sprintf("missing bucket in %q", location), nil)
	}
	return bucket, strings.Trim(prefix, "/"), nil
}

func (s *GCSSource) objectName(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

func (s *GCSSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	r, err := s.client.Bucket(s.bucket).Object(s.objectName(name)).NewReader(ctx)
	if err != nil {
		if err == gcs.ErrObjectNotExist {
			return nil, errors.Structural(fmt.Sprintf("opening source file gs://%s/%s", s.bucket, s.objectName(name)), err)
		}
		return nil, errors.Unavailable(fmt.Sprintf("reading gs://%s/%s", s.bucket, s.objectName(name)), err)
	}
	return r, nil
}

func (s *GCSSource) Close() error {
	return s.client.Close()
}

// NewSource picks the source implementation for a DATA_SOURCE value.
func NewSource(ctx context.Context, location, credentialsFile string) (Source, error) {
	if strings.HasPrefix(location, "gs://") {
		return NewGCSSource(ctx, location, credentialsFile)
	}
	if location == "" {
		return nil, errors.InvalidInput("DATA_SOURCE is empty", nil)
	}
	return NewDirSource(location), nil
}
