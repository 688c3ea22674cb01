//go:build e2e

package e2e

import (
	"fmt"
	"time"

	"github.com/shopmonkeyus/go-common/logger"
)

type cockroachProviderRunner struct {
	logger            logger.Logger
	dockerContainerID string
}

var _ TestProviderRunner = (*cockroachProviderRunner)(nil)

func NewCockroachTestProviderRunner(logger logger.Logger) TestProviderRunner {
	return &cockroachProviderRunner{logger, ""}
}

func (r *cockroachProviderRunner) Name() string {
	return "cockroach"
}

func (r *cockroachProviderRunner) Start() error {
	id, err := runDockerContainer("cockroachdb/cockroach", []string{"start-single-node", "--insecure", "--store=crdb-single"}, []int{46257, 26257})
	if err != nil {
		return err
	}
	r.dockerContainerID = id
	if err := waitForDockerExec(id, 30*time.Second, "cockroach", "sql", "--insecure", "-e", "SELECT 1"); err != nil {
		return err
	}
	if err := runDockerExec(id, "cockroach", "sql", "--insecure", "-e", "CREATE DATABASE test"); err != nil {
		return fmt.Errorf("error creating cockroach test db: %w", err)
	}
	r.logger.Trace("cockroach is ready")
	return nil
}

func (r *cockroachProviderRunner) Stop() error {
	if r.dockerContainerID != "" {
		err := runDockerDestroy(r.dockerContainerID)
		r.dockerContainerID = ""
		return err
	}
	return nil
}

func (r *cockroachProviderRunner) URL() string {
	return "postgresql://root@127.0.0.1:46257/test?sslmode=disable"
}

func (r *cockroachProviderRunner) Exec(sql string) error {
	return runDockerExec(r.dockerContainerID, "cockroach", "sql", "--insecure", "-d", "test", "-e", sql)
}

func (r *cockroachProviderRunner) Schema() string {
	return sampleSchema("STRING", "STRING", "BOOL", `"`)
}
