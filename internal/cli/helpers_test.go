package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

const sampleCollection = `{
  "info": {"name": "Siakad"},
  "item": [
    {"name": "Dosen", "item": [
      {"name": "List Dosen", "request": {"method": "GET", "url": {"path": ["v1", "dosen"], "query": [{"key": "page"}]}}},
      {"name": "Get Dosen", "request": {"method": "GET", "url": {"path": ["v1", "dosen", ":id"]}}}
    ]},
    {"name": "Create Mahasiswa", "request": {"method": "POST", "url": "{{baseUrl}}/v1/mahasiswa", "body": {"mode": "raw", "raw": "{\"nim\": \"1\"}"}}}
  ]
}`

// noEnv isolates a test from APISHAPE_* variables on the host.
func noEnv(t *testing.T) {
	t.Helper()
	environ = func() []string { return nil }
	t.Cleanup(func() { environ = os.Environ })
}

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

// execute runs the CLI with args and returns what it printed to stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}
