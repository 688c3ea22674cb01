//go:build e2e

package e2e

import (
	"time"

	"github.com/shopmonkeyus/go-common/logger"
)

type postgresProviderRunner struct {
	logger            logger.Logger
	dockerContainerID string
}

var _ TestProviderRunner = (*postgresProviderRunner)(nil)

func NewPostgresTestProviderRunner(logger logger.Logger) TestProviderRunner {
	return &postgresProviderRunner{logger, ""}
}

func (r *postgresProviderRunner) Name() string {
	return "postgres"
}

func (r *postgresProviderRunner) Start() error {
	id, err := runDockerContainer("postgres", nil, []int{15432, 5432}, "POSTGRES_PASSWORD=password", "POSTGRES_DB=test", "POSTGRES_HOST_AUTH_METHOD=trust")
	if err != nil {
		return err
	}
	r.dockerContainerID = id
	if err := waitForDockerExec(id, 30*time.Second, "psql", "-U", "postgres", "-d", "test", "-c", "SELECT 1"); err != nil {
		return err
	}
	r.logger.Trace("postgres is ready")
	return nil
}

func (r *postgresProviderRunner) Stop() error {
	if r.dockerContainerID != "" {
		err := runDockerDestroy(r.dockerContainerID)
		r.dockerContainerID = ""
		return err
	}
	return nil
}

func (r *postgresProviderRunner) URL() string {
	return "postgresql://postgres@127.0.0.1:15432/test?sslmode=disable"
}

func (r *postgresProviderRunner) Exec(sql string) error {
	return runDockerExec(r.dockerContainerID, "psql", "-v", "ON_ERROR_STOP=1", "-U", "postgres", "-d", "test", "-c", sql)
}

func (r *postgresProviderRunner) Schema() string {
	return sampleSchema("VARCHAR(36)", "TEXT", "BOOLEAN", `"`)
}
