package testutil

import (
	"context"
	"fmt"
	"time"

	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// InfluxEnv describes a running InfluxDB instance provisioned with one
// organisation and bucket.
type InfluxEnv struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// StartInflux starts an InfluxDB 2.7 container in setup mode and returns its
// connection settings together with a cleanup function.
func StartInflux(ctx context.Context) (InfluxEnv, func(), error) {
	env := InfluxEnv{Token: "loadshift-token", Org: "loadshift", Bucket: "loadshift"}
	req := tc.ContainerRequest{
		Image:        "influxdb:2.7",
		ExposedPorts: []string{"8086/tcp"},
		Env: map[string]string{
			"DOCKER_INFLUXDB_INIT_MODE":        "setup",
			"DOCKER_INFLUXDB_INIT_USERNAME":    "loadshift",
			"DOCKER_INFLUXDB_INIT_PASSWORD":    "loadshift-password",
			"DOCKER_INFLUXDB_INIT_ORG":         env.Org,
			"DOCKER_INFLUXDB_INIT_BUCKET":      env.Bucket,
			"DOCKER_INFLUXDB_INIT_ADMIN_TOKEN": env.Token,
		},
		WaitingFor: wait.ForHTTP("/health").WithPort("8086/tcp").WithStartupTimeout(60 * time.Second),
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		return InfluxEnv{}, nil, err
	}
	cleanup := func() { _ = cont.Terminate(context.Background()) }

	host, err := cont.Host(ctx)
	if err != nil {
		cleanup()
		return InfluxEnv{}, nil, err
	}
	port, err := cont.MappedPort(ctx, "8086")
	if err != nil {
		cleanup()
		return InfluxEnv{}, nil, err
	}
	env.URL = fmt.Sprintf("http://%s:%s", host, port.Port())
	return env, cleanup, nil
}
