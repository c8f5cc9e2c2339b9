package warden

import "flag"

// Tests against a real docker daemon are not part of the CI process; run them with "go test -docker".

var (
	dockerTests bool
	dockerImage string
)

func init() {
	flag.BoolVar(&dockerTests, "docker", false, "run tests that require a docker daemon")
	flag.StringVar(&dockerImage, "docker-image", "alpine:3.12", "image used by container jail tests")
}
