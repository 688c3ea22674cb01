//go:build e2e

package e2e

import (
	"time"

	"github.com/shopmonkeyus/go-common/logger"
)

type mysqlProviderRunner struct {
	logger            logger.Logger
	dockerContainerID string
}

var _ TestProviderRunner = (*mysqlProviderRunner)(nil)

func NewMySQLTestProviderRunner(logger logger.Logger) TestProviderRunner {
	return &mysqlProviderRunner{logger, ""}
}

func (r *mysqlProviderRunner) Name() string {
	return "mysql"
}

func (r *mysqlProviderRunner) Start() error {
	id, err := runDockerContainer("mysql:8", nil, []int{13306, 3306}, "MYSQL_ALLOW_EMPTY_PASSWORD=yes", "MYSQL_DATABASE=test")
	if err != nil {
		return err
	}
	r.dockerContainerID = id
	if err := waitForDockerExec(id, 90*time.Second, "mysql", "-h", "127.0.0.1", "-u", "root", "test", "-e", "SELECT 1"); err != nil {
		return err
	}
	r.logger.Trace("mysql is ready")
	return nil
}

func (r *mysqlProviderRunner) Stop() error {
	if r.dockerContainerID != "" {
		err := runDockerDestroy(r.dockerContainerID)
		r.dockerContainerID = ""
		return err
	}
	return nil
}

func (r *mysqlProviderRunner) URL() string {
	return "mysql://root@127.0.0.1:13306/test"
}

func (r *mysqlProviderRunner) Exec(sql string) error {
	return runDockerExec(r.dockerContainerID, "mysql", "-h", "127.0.0.1", "-u", "root", "test", "-e", sql)
}

func (r *mysqlProviderRunner) Schema() string {
	return sampleSchema("VARCHAR(36)", "TEXT", "BOOLEAN", "`")
}
