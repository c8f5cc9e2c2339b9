package awsutil

import (
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/kiteco/retriever/kite-golib/envutil"
)

// region used when none is configured and the bucket location cannot be discovered
var defaultRegion = envutil.GetenvDefault("AWS_REGION", "us-west-1")

// IsS3URI returns true if the path is an s3 uri.
func IsS3URI(path string) bool {
	return strings.HasPrefix(path, "s3://")
}

// NewS3 creates an s3 client.
func NewS3(region string) (*s3.S3, error) {
	sess, err := session.NewSession()
	if err != nil {
		return nil, err
	}

	return s3.New(sess, aws.NewConfig().WithRegion(region)), nil
}

// ValidateURI checks whether the given uri points to an S3 bucket.
func ValidateURI(uri string) (*url.URL, error) {
	s3url, err := url.Parse(uri)
	if err != nil {
		return nil, err
	}
	if s3url.Scheme != "s3" {
		return nil, fmt.Errorf("%s: url is not a s3 path", uri)
	}
	if s3url.Host == "" {
		return nil, fmt.Errorf("%s: url has no bucket", uri)
	}
	return s3url, nil
}

// Join appends slash-separated elements to the path of an s3 uri
func Join(uri string, elem ...string) (string, error) {
	s3url, err := ValidateURI(uri)
	if err != nil {
		return "", err
	}
	s3url.Path = path.Join(append([]string{"/", s3url.Path}, elem...)...)
	return s3url.String(), nil
}

// S3PutObject writes the contents of the specified reader
// to the specified s3 URI.
func S3PutObject(r io.ReadSeeker, uri string) error {
	s3URL, err := ValidateURI(uri)
	if err != nil {
		return err
	}

	region, err := objectRegion(s3URL)
	if err != nil {
		return fmt.Errorf("unable to determine region: %s", err)
	}

	s3client, err := NewS3(region)
	if err != nil {
		return err
	}

	key := strings.TrimPrefix(s3URL.Path, "/")
	_, err = s3client.PutObject(&s3.PutObjectInput{
		Bucket: aws.String(s3URL.Host),
		Key:    aws.String(key),
		Body:   r,
	})

	return err
}

// Exists returns whether an object exists at the provided URI. Errors other than a missing object are
// returned.
func Exists(uri string) (bool, error) {
	s3URL, err := ValidateURI(uri)
	if err != nil {
		return false, err
	}

	region, err := objectRegion(s3URL)
	if err != nil {
		return false, fmt.Errorf("unable to determine region: %s", err)
	}

	s3client, err := NewS3(region)
	if err != nil {
		return false, err
	}

	key := strings.TrimPrefix(s3URL.Path, "/")
	_, err = s3client.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(s3URL.Host),
		Key:    aws.String(key),
	})
	if reqErr, ok := err.(awserr.RequestFailure); ok && reqErr.StatusCode() == 404 {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// --

func objectRegion(uri *url.URL) (string, error) {
	s3client, err := NewS3(defaultRegion)
	if err != nil {
		return "", err
	}

	// Discover the region that this bucket is located in
	bucketLocOutput, err := s3client.GetBucketLocation(&s3.GetBucketLocationInput{
		Bucket: aws.String(uri.Host),
	})
	if err != nil {
		return "", err
	}

	if bucketLocOutput.LocationConstraint == nil {
		return "us-east-1", nil
	}
	return *bucketLocOutput.LocationConstraint, nil
}
