package hospital

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of *s3.Client the repository needs.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config selects the bucket and endpoint. Credentials come from the
// default AWS chain.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string // optional, e.g. MinIO
	Prefix    string
	PathStyle bool
}

// S3Repository writes doctors.json and patients.json as objects under
// Prefix. The two objects are written one after the other, doctors first.
type S3Repository struct {
	client S3API
	bucket string
	prefix string
}

func NewS3Repository(ctx context.Context, cfg S3Config) (*S3Repository, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewS3RepositoryWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

func NewS3RepositoryWithClient(client S3API, bucket, prefix string) *S3Repository {
	return &S3Repository{client: client, bucket: bucket, prefix: prefix}
}

func (r *S3Repository) LoadDoctors(ctx context.Context) ([]Doctor, error) {
	var doctors []Doctor
	if err := r.get(ctx, doctorsFile, &doctors); err != nil {
		return nil, err
	}
	return nonNilDoctors(doctors), nil
}

func (r *S3Repository) LoadPatients(ctx context.Context) ([]Patient, error) {
	var patients []Patient
	if err := r.get(ctx, patientsFile, &patients); err != nil {
		return nil, err
	}
	return nonNilPatients(patients), nil
}

func (r *S3Repository) Save(ctx context.Context, doctors []Doctor, patients []Patient) error {
	if err := r.put(ctx, doctorsFile, nonNilDoctors(doctors)); err != nil {
		return err
	}
	return r.put(ctx, patientsFile, nonNilPatients(patients))
}

func (r *S3Repository) key(name string) string { return r.prefix + name }

func (r *S3Repository) get(ctx context.Context, name string, v interface{}) error {
	key := r.key(name)
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &r.bucket, Key: &key})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return ErrSnapshotNotFound
		}
		return fmt.Errorf("get %s: %w", key, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (r *S3Repository) put(ctx context.Context, name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	key := r.key(name)
	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &r.bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}
