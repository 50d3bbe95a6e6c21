package storage

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/oklog/ulid/v2"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"

	"github.com/dbcdk/rawrepo-record-service/pkg/logger"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage/sqlcommon"
)

// waitForDatabase pings db until it's ready or a timeout occurs.
func waitForDatabase(db *sql.DB) error {
	backoffPolicy := backoff.NewExponentialBackOff(backoff.WithMaxElapsedTime(60 * time.Second))
	if err := backoff.Retry(db.Ping, backoffPolicy); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// containerSpec describes a database container started for a single test.
type containerSpec struct {
	image string
	env   []string
	port  string
}

// runContainer pulls spec.image when needed, starts it and returns the host address of spec.port.
// The container is stopped when the test finishes.
func runContainer(t testing.TB, spec containerSpec) string {
	dockerClient, err := client.NewClientWithOpts(
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		dockerClient.Close()
	})

	ctx := context.Background()
	allImages, err := dockerClient.ImageList(ctx, image.ListOptions{All: true})
	require.NoError(t, err)

	found := false
AllImages:
	for _, img := range allImages {
		for _, tag := range img.RepoTags {
			if strings.Contains(tag, spec.image) {
				found = true
				break AllImages
			}
		}
	}

	if !found {
		t.Logf("Pulling image %s", spec.image)
		reader, err := dockerClient.ImagePull(ctx, spec.image, image.PullOptions{})
		require.NoError(t, err)

		_, err = io.Copy(io.Discard, reader) // consume the image pull output to make sure it's done
		require.NoError(t, err)
	}

	port := nat.Port(spec.port + "/tcp")
	containerCfg := container.Config{
		Env:          spec.env,
		ExposedPorts: nat.PortSet{port: {}},
		Image:        spec.image,
	}
	hostCfg := container.HostConfig{
		AutoRemove:      true,
		PublishAllPorts: true,
	}

	name := "rawrepo-" + strings.NewReplacer(":", "-", "/", "-").Replace(spec.image) + "-" + ulid.Make().String()

	cont, err := dockerClient.ContainerCreate(ctx, &containerCfg, &hostCfg, nil, nil, name)
	require.NoError(t, err, "failed to create %s container", spec.image)

	t.Cleanup(func() {
		timeoutSec := 5
		err := dockerClient.ContainerStop(context.Background(), cont.ID, container.StopOptions{Timeout: &timeoutSec})
		if err != nil && !errdefs.IsNotFound(err) {
			t.Logf("failed to stop container %s: %v", name, err)
		}
	})

	err = dockerClient.ContainerStart(ctx, cont.ID, container.StartOptions{})
	require.NoError(t, err, "failed to start %s container", spec.image)

	containerJSON, err := dockerClient.ContainerInspect(ctx, cont.ID)
	require.NoError(t, err)

	m, ok := containerJSON.NetworkSettings.Ports[port]
	if !ok || len(m) == 0 {
		require.Fail(t, "failed to get host port mapping from container", name)
	}

	return "localhost:" + m[0].HostPort
}

// migrate opens uri with driver, waits for it and applies every migration in dir.
// It returns the resulting schema revision.
func migrate(t testing.TB, driver, uri string, dialect goose.Dialect, migrations fs.FS) int64 {
	db, err := goose.OpenDBWithDriver(driver, uri)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, waitForDatabase(db))

	err = sqlcommon.RunMigrations(context.Background(), db, dialect, migrations, 0, false, logger.NewNoopLogger())
	require.NoError(t, err)

	version, err := goose.GetDBVersionContext(context.Background(), db)
	require.NoError(t, err)
	return version
}
