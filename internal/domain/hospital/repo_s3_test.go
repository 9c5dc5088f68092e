package hospital

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[key] = data
	f.types[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Repository(t *testing.T) {
	exerciseRepository(t, NewS3RepositoryWithClient(newFakeS3(), "hsm", "roster/"))
}

func TestS3Repository_ObjectLayout(t *testing.T) {
	fake := newFakeS3()
	repo := NewS3RepositoryWithClient(fake, "hsm", "prod/")
	if err := repo.Save(context.Background(), DefaultDoctors(), nil); err != nil {
		t.Fatalf("save: %v", err)
	}

	doc, ok := fake.objects["hsm/prod/doctors.json"]
	if !ok {
		t.Fatalf("expected prod/doctors.json, have %v", fake.objects)
	}
	if !strings.HasPrefix(string(doc), "[\n    {\n        \"ID\": \"D001\"") {
		t.Errorf("expected 4-space indented JSON, got %s", doc)
	}
	if fake.types["hsm/prod/doctors.json"] != "application/json" {
		t.Errorf("unexpected content type %q", fake.types["hsm/prod/doctors.json"])
	}
	if string(fake.objects["hsm/prod/patients.json"]) != "[]" {
		t.Errorf("expected empty patients array, got %s", fake.objects["hsm/prod/patients.json"])
	}
}

func TestS3Repository_PutError(t *testing.T) {
	fake := newFakeS3()
	fake.putErr = errors.New("access denied")
	repo := NewS3RepositoryWithClient(fake, "hsm", "")

	err := repo.Save(context.Background(), DefaultDoctors(), nil)
	if err == nil || !strings.Contains(err.Error(), "access denied") {
		t.Errorf("expected wrapped put error, got %v", err)
	}
}

func TestS3Repository_Malformed(t *testing.T) {
	fake := newFakeS3()
	fake.objects["hsm/patients.json"] = []byte("{not json")
	repo := NewS3RepositoryWithClient(fake, "hsm", "")

	_, err := repo.LoadPatients(context.Background())
	if err == nil || errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("expected decode error, got %v", err)
	}
}

func TestNewS3Repository_RequiresBucket(t *testing.T) {
	if _, err := NewS3Repository(context.Background(), S3Config{}); err == nil {
		t.Error("expected error without bucket")
	}
}
