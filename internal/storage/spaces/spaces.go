package spaces

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/SergeyBurlaka/muzei/internal/storage"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// Provider implements a digitalocean spaces based artwork storage
type Provider struct {
	spaces *s3.S3
	space  string
}

// New returns a new Provider instance
func New(space, endpoint, accessKey, secretKey string, forcePathStyle bool) (*Provider, error) {
	spacesSession := session.New(&aws.Config{
		Credentials:      credentials.NewStaticCredentials(accessKey, secretKey, ""),
		Endpoint:         aws.String(endpoint),
		Region:           aws.String("us-east-1"), // Needs to be us-east-1 for Spaces, or it'll fail
		S3ForcePathStyle: aws.Bool(forcePathStyle),
	})

	return &Provider{
		spaces: s3.New(spacesSession),
		space:  space,
	}, nil
}

// Get returns the artwork bytes for an artwork id
func (p *Provider) Get(ctx context.Context, id string) ([]byte, error) {
	object := s3.GetObjectInput{
		Bucket: &p.space,
		Key:    aws.String(key(id)),
	}

	output, err := p.spaces.GetObjectWithContext(ctx, &object)
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, storage.ErrNotFound
		}

		return nil, err
	}
	defer output.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, output.Body); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Put stores the artwork bytes for an artwork id
func (p *Provider) Put(ctx context.Context, id string, data []byte) error {
	object := s3.PutObjectInput{
		Bucket: &p.space,
		Key:    aws.String(key(id)),
		Body:   bytes.NewReader(data),
	}

	_, err := p.spaces.PutObjectWithContext(ctx, &object)
	return err
}

// Delete removes the artwork bytes for an artwork id
func (p *Provider) Delete(ctx context.Context, id string) error {
	object := s3.DeleteObjectInput{
		Bucket: &p.space,
		Key:    aws.String(key(id)),
	}

	_, err := p.spaces.DeleteObjectWithContext(ctx, &object)
	return err
}

func key(id string) string {
	return fmt.Sprintf("artwork/%s", id)
}
