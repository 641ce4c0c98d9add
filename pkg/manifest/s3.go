package manifest

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	verrors "github.com/vango-dev/vango-mixed/internal/errors"
	"github.com/vango-dev/vango-mixed/pkg/mixed"
)

// MaxManifestSize bounds the manifest object read from S3.
const MaxManifestSize = 1 << 20

// GetObjectAPI is the subset of *s3.Client used by S3Source.
type GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

var _ GetObjectAPI = (*s3.Client)(nil)

// S3Source reads a manifest object from S3.
type S3Source struct {
	Client GetObjectAPI
	Bucket string
	Key    string
}

// Load implements Source.
func (s S3Source) Load(ctx context.Context) ([]mixed.Definition, error) {
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, verrors.New("E204").WithDetail("No manifest at " + s.String())
		}
		return nil, verrors.New("E205").WithDetailf("manifest %s", s).Wrap(err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, MaxManifestSize+1))
	if err != nil {
		return nil, verrors.New("E205").WithDetailf("manifest %s", s).Wrap(err)
	}
	if len(data) > MaxManifestSize {
		return nil, verrors.New("E205").WithDetailf("manifest %s exceeds %d bytes", s, MaxManifestSize)
	}
	return Parse(data, s.String())
}

func (s S3Source) String() string {
	return "s3://" + s.Bucket + "/" + s.Key
}

// S3Options configures NewS3Client.
type S3Options struct {
	Region string

	// Endpoint overrides the service endpoint, for S3-compatible stores.
	Endpoint string

	// PathStyle addresses buckets as path segments instead of subdomains.
	PathStyle bool
}

// NewS3Client builds an S3 client. Credentials come from the standard
// AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and AWS_SESSION_TOKEN variables;
// without them requests are anonymous.
func NewS3Client(opts S3Options) *s3.Client {
	o := s3.Options{
		Region:       opts.Region,
		UsePathStyle: opts.PathStyle,
		Credentials:  envCredentials(),
	}
	if opts.Endpoint != "" {
		o.BaseEndpoint = aws.String(opts.Endpoint)
	}
	return s3.New(o)
}

func envCredentials() aws.CredentialsProvider {
	id, secret := os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY")
	if id == "" || secret == "" {
		return aws.AnonymousCredentials{}
	}
	token := os.Getenv("AWS_SESSION_TOKEN")
	return aws.NewCredentialsCache(aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		return aws.Credentials{
			AccessKeyID:     id,
			SecretAccessKey: secret,
			SessionToken:    token,
			Source:          "Environment",
		}, nil
	}))
}
