// Package monitor is the transport to a running Cloud Hypervisor process:
// an HTTP client over the VMM's API unix socket, the process launcher,
// and live thread introspection.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const apiBase = "http://localhost/api/v1"

// Monitor wraps the Cloud Hypervisor API socket of one VMM process.
type Monitor struct {
	client     *http.Client
	socketPath string
	pid        int
	procDir    string
}

// metricsRoundTripper wraps an http.RoundTripper to record metrics
type metricsRoundTripper struct {
	base http.RoundTripper
}

func (m *metricsRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := m.base.RoundTrip(req)

	if MonitorMetrics != nil {
		operation := req.Method + " " + req.URL.Path
		status := "success"
		if err != nil || (resp != nil && resp.StatusCode >= 400) {
			status = "error"
			MonitorMetrics.APIErrorsTotal.Add(req.Context(), 1,
				metric.WithAttributes(attribute.String("operation", operation)))
		}
		MonitorMetrics.APIDuration.Record(req.Context(), time.Since(start).Seconds(),
			metric.WithAttributes(
				attribute.String("operation", operation),
				attribute.String("status", status),
			))
	}

	return resp, err
}

// New creates a monitor for an existing VMM socket and process id.
func New(socketPath string, pid int) *Monitor {
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			return net.Dial("unix", socketPath)
		},
		// Disable keep-alives to prevent connection leaks. Each monitor
		// creates its own transport, so pooled connections would just
		// accumulate until cloud-hypervisor hits its connection limit.
		DisableKeepAlives: true,
	}

	return &Monitor{
		client: &http.Client{
			Transport: &metricsRoundTripper{base: transport},
			Timeout:   30 * time.Second,
		},
		socketPath: socketPath,
		pid:        pid,
		procDir:    "/proc",
	}
}

// PID returns the VMM process id, 0 when unknown.
func (m *Monitor) PID() int {
	return m.pid
}

// SocketPath returns the API socket this monitor talks to.
func (m *Monitor) SocketPath() string {
	return m.socketPath
}

// VMInfo is the subset of the vm.info response this driver consumes.
type VMInfo struct {
	State string `json:"state"`
}

// Ping checks the VMM API is responsive.
func (m *Monitor) Ping(ctx context.Context) error {
	resp, err := m.do(ctx, http.MethodGet, "/vmm.ping", nil)
	if err != nil {
		return fmt.Errorf("ping vmm: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ping vmm failed with status %d", resp.StatusCode)
	}
	return nil
}

// GetVMInfo returns current VM state information.
func (m *Monitor) GetVMInfo(ctx context.Context) (*VMInfo, error) {
	resp, err := m.do(ctx, http.MethodGet, "/vm.info", nil)
	if err != nil {
		return nil, fmt.Errorf("get vm info: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get vm info failed with status %d", resp.StatusCode)
	}

	var info VMInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode vm info: %w", err)
	}
	return &info, nil
}

// ShutdownVMM stops the VMM process gracefully.
func (m *Monitor) ShutdownVMM(ctx context.Context) error {
	resp, err := m.do(ctx, http.MethodPut, "/vmm.shutdown", nil)
	if err != nil {
		return fmt.Errorf("shutdown vmm: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("shutdown vmm failed with status %d", resp.StatusCode)
	}
	return nil
}

func (m *Monitor) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, apiBase+path, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return m.client.Do(req)
}
