package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/postbench/internal/compute"
	"github.com/roach88/postbench/internal/harness"
	"github.com/roach88/postbench/internal/labels"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestResult creates a failed cross-validation result with one
// matching and one mismatching comparison.
func createTestResult() *harness.Result {
	cpu := compute.Provider{ID: 0, Class: compute.ClassCPU, Model: "cpu"}
	gpu := compute.Provider{ID: 1, Class: compute.ClassCUDA, Model: "gpu"}
	vk := compute.Provider{ID: 2, Class: compute.ClassVulkan, Model: "vk"}

	r := harness.NewResult("test")
	r.Started = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	r.Elapsed = 3 * time.Second
	r.LabelSize = 8
	r.LabelsCount = 100
	r.Providers = []compute.Provider{cpu, gpu, vk}
	r.Measurements = []harness.Measurement{
		{ProviderIndex: 0, Provider: cpu, Role: harness.RoleReference, LabelSize: 8, Labels: 100, Hashes: 100, HashesPerSec: 100, Elapsed: time.Second, Digest: "aa"},
		{ProviderIndex: 1, Provider: gpu, Role: harness.RoleCandidate, LabelSize: 8, Labels: 100, Hashes: 100, HashesPerSec: 5000, Elapsed: time.Second, Digest: "bb"},
		{ProviderIndex: 2, Provider: vk, Role: harness.RoleCandidate, LabelSize: 8, Labels: 100, Hashes: 100, HashesPerSec: 4000, Elapsed: time.Second, Digest: "aa"},
	}
	r.AddComparison(harness.Comparison{
		ProviderIndex: 1,
		Provider:      gpu,
		Against:       "provider 0",
		LabelSize:     8,
		Diff:          labels.Diff{Compared: 100, FirstMismatch: 40, MismatchedBytes: 1, Blocks: []int{1}},
		Expected:      []byte{1, 2, 3, 4},
		Actual:        []byte{1, 2, 0xff, 4},
	})
	r.AddComparison(harness.Comparison{
		ProviderIndex: 2,
		Provider:      vk,
		Against:       "provider 0",
		LabelSize:     8,
		Diff:          labels.Diff{Compared: 100, FirstMismatch: -1},
	})
	return r
}
