//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

type TestProviderRunner interface {
	// Name of the database
	Name() string
	// Start the database
	Start() error
	// Stop the database
	Stop() error
	// URL will return the url for testing against this runner
	URL() string
	// Exec runs the sql statements in the test database
	Exec(sql string) error
	// Schema returns the DDL of the sample snapshot for this database
	Schema() string
}

type DockerState struct {
	Status  string `json:"status"`
	Running bool   `json:"running"`
}

type DockerStatus struct {
	State DockerState
}

// runDockerDestroy will stop and remove the docker container specified by id
func runDockerDestroy(id string) error {
	cmd := exec.Command("docker", "rm", "-f", id)
	if err := cmd.Run(); err != nil {
		return err
	}
	return nil
}

// runDockerContainer will run a docker container in the background with the command arguments, publish the
// host port ports[0] to the container port ports[1] and set optional environment variables and return the
// docker container id if successful
func runDockerContainer(image string, cmdArgs []string, ports []int, env ...string) (string, error) {
	args := []string{
		"run", "-d", "-p", fmt.Sprintf("%d:%d", ports[0], ports[1]),
	}
	for _, e := range env {
		args = append(args, "-e", e)
	}
	args = append(args, image)
	args = append(args, cmdArgs...)
	var out bytes.Buffer
	cmd := exec.Command("docker", args...)
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("error starting docker container: %s", err)
	}
	id := strings.TrimSpace(out.String())
	out.Reset()
	for {
		cmd2 := exec.Command("docker", "inspect", id)
		cmd2.Stdout = &out
		if err := cmd2.Run(); err != nil {
			runDockerDestroy(id)
			return "", fmt.Errorf("error getting docker container status: %s", err)
		}
		status := make([]DockerStatus, 0)
		if err := json.Unmarshal(out.Bytes(), &status); err != nil {
			runDockerDestroy(id)
			return "", fmt.Errorf("error parsing docker container status: %s", err)
		}
		if len(status) > 0 && status[0].State.Running {
			break
		}
		out.Reset()
		time.Sleep(2 * time.Second)
	}
	return id, nil
}

// waitForDockerExec runs the command in the container until it succeeds or the timeout expires.
func waitForDockerExec(id string, timeout time.Duration, args ...string) error {
	started := time.Now()
	for {
		cmd := exec.Command("docker", append([]string{"exec", id}, args...)...)
		if err := cmd.Run(); err == nil {
			return nil
		}
		if time.Since(started) > timeout {
			return fmt.Errorf("timed out waiting for %s", args[0])
		}
		time.Sleep(time.Second)
	}
}

// runDockerExec runs the command in the container and returns stderr in the error.
func runDockerExec(id string, args ...string) error {
	var stderr bytes.Buffer
	cmd := exec.Command("docker", append([]string{"exec", id}, args...)...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// sampleSchema returns the DDL of the sample shop snapshot.
func sampleSchema(key, text, boolean, quote string) string {
	q := func(name string) string { return quote + name + quote }
	return strings.Join([]string{
		fmt.Sprintf(`CREATE TABLE customer (id %[1]s PRIMARY KEY, first_name %[2]s, last_name %[2]s, email %[2]s, phone %[2]s, address1 %[2]s, city %[2]s, country %[2]s, balance NUMERIC(12,2), tax_exempt %[3]s, referred_by_id %[1]s, created_date %[2]s, FOREIGN KEY (referred_by_id) REFERENCES customer (id))`, key, text, boolean),
		fmt.Sprintf(`CREATE TABLE vehicle (id %[1]s PRIMARY KEY, customer_id %[1]s NOT NULL, vin %[2]s, %[3]s %[2]s, %[4]s BIGINT, FOREIGN KEY (customer_id) REFERENCES customer (id))`, key, text, q("make"), q("year")),
		fmt.Sprintf(`CREATE TABLE work_order (id BIGINT PRIMARY KEY, customer_id %[1]s NOT NULL, vehicle_id %[1]s NOT NULL, status %[2]s, total_cost NUMERIC(12,2), created_date %[2]s, FOREIGN KEY (customer_id) REFERENCES customer (id), FOREIGN KEY (vehicle_id) REFERENCES vehicle (id))`, key, text),
		fmt.Sprintf(`CREATE TABLE payment (id %[1]s PRIMARY KEY, work_order_id BIGINT NOT NULL, amount NUMERIC(12,2), card_last4 %[2]s, FOREIGN KEY (work_order_id) REFERENCES work_order (id))`, key, text),
	}, ";\n") + ";"
}
