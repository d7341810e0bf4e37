package capability

import (
	"context"
	"fmt"

	"google.golang.org/api/storage/v1"
)

// storageFactory constructs Cloud Storage capability instances.
type storageFactory struct {
	cred *Credential
}

func (f *storageFactory) Name() string { return "storage" }

func (f *storageFactory) New(ctx context.Context, env Env) (Instance, error) {
	svc, err := storage.NewService(ctx, f.cred.Options()...)
	if err != nil {
		return nil, fmt.Errorf("constructing storage client: %w", err)
	}
	return &storageInstance{svc: svc, project: env.ProjectID}, nil
}

type storageInstance struct {
	svc     *storage.Service
	project string
}

func (s *storageInstance) Methods() []string {
	return []string{"listBuckets", "listObjects"}
}

func (s *storageInstance) Call(ctx context.Context, method string, args []any) (any, error) {
	switch method {
	case "listBuckets":
		return s.listBuckets(ctx)
	case "listObjects":
		bucket, err := stringArg(args, 0, "bucket")
		if err != nil {
			return nil, err
		}
		return s.listObjects(ctx, bucket)
	default:
		return nil, errNoMethod("storage", method)
	}
}

func (s *storageInstance) listBuckets(ctx context.Context) (any, error) {
	resp, err := s.svc.Buckets.List(s.project).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("listing buckets in %s: %w", s.project, err)
	}
	buckets := make([]any, 0, len(resp.Items))
	for _, b := range resp.Items {
		buckets = append(buckets, map[string]any{
			"name":         b.Name,
			"location":     b.Location,
			"storageClass": b.StorageClass,
			"created":      b.TimeCreated,
		})
	}
	return buckets, nil
}

func (s *storageInstance) listObjects(ctx context.Context, bucket string) (any, error) {
	resp, err := s.svc.Objects.List(bucket).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("listing objects in bucket %s: %w", bucket, err)
	}
	objects := make([]any, 0, len(resp.Items))
	for _, o := range resp.Items {
		objects = append(objects, map[string]any{
			"name":        o.Name,
			"size":        o.Size,
			"contentType": o.ContentType,
			"updated":     o.Updated,
		})
	}
	return objects, nil
}
