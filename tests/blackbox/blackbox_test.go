package blackbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"testing"
	"time"
)

// findFreePort picks an available TCP port on localhost.
func findFreePort(t *testing.T) (int, func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	return port, func() { _ = ln.Close() }
}

func projectRootFromThisFile(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	// this file: <root>/tests/blackbox/blackbox_test.go
	return filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
}

func buildBinary(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("builds the binary; skipped in -short mode")
	}
	root := projectRootFromThisFile(t)
	binPath := filepath.Join(t.TempDir(), "accelrt")
	if runtime.GOOS == "windows" {
		binPath += ".exe"
	}
	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/accelrt")
	cmd.Dir = root
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("go build failed: %v\n%s", err, string(out))
	}
	return binPath
}

func sharedLibExt() string {
	switch runtime.GOOS {
	case "darwin", "ios":
		return ".dylib"
	case "windows":
		return ".dll"
	default:
		return ".so"
	}
}

// createPluginDir writes empty files, which the dynamic linker rejects.
func createPluginDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		p := filepath.Join(dir, n)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte(""), 0o644); err != nil {
			t.Fatalf("write temp plugin %s: %v", p, err)
		}
	}
	return dir
}

type serverProc struct {
	cmd  *exec.Cmd
	base string // http base URL, e.g. http://127.0.0.1:19464
}

func startServer(t *testing.T, bin, pluginDir string, port int) *serverProc {
	t.Helper()
	cfg := filepath.Join(t.TempDir(), "accelrt.yaml")
	if err := os.WriteFile(cfg, []byte(fmt.Sprintf("plugin_roots: [%q]\nlog_load_failures: false\n", pluginDir)), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	cmd := exec.Command(bin, "--config", cfg, "--log-level", "warn", "serve", "--addr", addr)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	base := "http://" + addr
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(base + "/healthz")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				break
			}
		}
		if time.Now().After(deadline) {
			_ = cmd.Process.Kill()
			t.Fatalf("server did not become healthy in time")
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Cleanup(func() { _ = cmd.Process.Kill() })
	return &serverProc{cmd: cmd, base: base}
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, b
}

func TestBlackbox_Flow(t *testing.T) {
	bin := buildBinary(t)
	ext := sharedLibExt()
	dir := createPluginDir(t, "fooCompilerPlugin"+ext, "vendor/barCompilerPlugin"+ext, "readme.txt")
	port, release := findFreePort(t)
	release()
	sp := startServer(t, bin, dir, port)

	// /plugins lists both binaries; neither loads
	resp, body := get(t, sp.base+"/plugins")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/plugins %d %s", resp.StatusCode, string(body))
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("/plugins content-type=%s", ct)
	}
	var plugins struct {
		Plugins []struct {
			ID    string `json:"id"`
			State string `json:"state"`
		} `json:"plugins"`
		Loaded int `json:"loaded"`
	}
	if err := json.Unmarshal(body, &plugins); err != nil {
		t.Fatalf("/plugins json: %v body=%s", err, string(body))
	}
	if len(plugins.Plugins) != 2 || plugins.Loaded != 0 {
		t.Fatalf("unexpected /plugins: %s", string(body))
	}
	for _, p := range plugins.Plugins {
		if p.State != "failed" {
			t.Fatalf("plugin %s state=%s, want failed", p.ID, p.State)
		}
	}

	resp, body = get(t, sp.base+"/readyz")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("/readyz %d %s", resp.StatusCode, string(body))
	}

	resp, body = get(t, sp.base+"/plugins/fooCompilerPlugin"+ext)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/plugins/{id} %d %s", resp.StatusCode, string(body))
	}
	resp, body = get(t, sp.base+"/plugins/missing"+ext)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d, body=%s", resp.StatusCode, string(body))
	}

	resp, body = get(t, sp.base+"/metrics")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "accelrt_plugin_discovered_total 2") {
		t.Fatalf("/metrics %d missing discovery counter", resp.StatusCode)
	}

	if runtime.GOOS == "windows" {
		return
	}
	if err := sp.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		t.Fatalf("signal: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- sp.cmd.Wait() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("server exit: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestBlackbox_FindAndVersion(t *testing.T) {
	bin := buildBinary(t)
	ext := sharedLibExt()
	dir := createPluginDir(t, "fooCompilerPlugin"+ext, "deep/er/barCompilerPlugin"+ext)

	out, err := exec.Command(bin, "plugins", "find", "--root", dir, "--log-level", "off").Output()
	if err != nil {
		t.Fatalf("plugins find: %v", err)
	}
	if lines := strings.Fields(string(out)); len(lines) != 2 {
		t.Fatalf("expected 2 plugins, got %q", string(out))
	}

	out, err = exec.Command(bin, "version").Output()
	if err != nil || !strings.HasPrefix(string(out), "accelrt version ") {
		t.Fatalf("version: %v %q", err, string(out))
	}

	err = exec.Command(bin, "plugins", "load", filepath.Join(dir, "fooCompilerPlugin"+ext), "--log-level", "off").Run()
	if ee, ok := err.(*exec.ExitError); !ok || ee.ExitCode() != 1 {
		t.Fatalf("expected exit 1 for unloadable plugin, got %v", err)
	}
}
