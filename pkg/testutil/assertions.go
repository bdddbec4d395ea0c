package testutil

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/vanderheijden86/beanwork/pkg/model"
)

// AssertNoDuplicateIDs verifies all bean ids are unique.
func AssertNoDuplicateIDs(t *testing.T, beans []model.Bean) {
	t.Helper()
	seen := make(map[string]bool)
	for _, b := range beans {
		if seen[b.ID] {
			t.Errorf("duplicate bean ID: %s", b.ID)
		}
		seen[b.ID] = true
	}
}

// AssertIDs verifies beans carry exactly the given ids in order.
func AssertIDs(t *testing.T, beans []model.Bean, want ...string) {
	t.Helper()
	got := GetIDs(beans)
	if len(got) == 0 && len(want) == 0 {
		return
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ids = %v, want %v", got, want)
	}
}

// GetIDs returns the ids of beans in order.
func GetIDs(beans []model.Bean) []string {
	ids := make([]string, len(beans))
	for i, b := range beans {
		ids[i] = b.ID
	}
	return ids
}

// FindBean returns the bean with the given id, or nil.
func FindBean(beans []model.Bean, id string) *model.Bean {
	for i := range beans {
		if beans[i].ID == id {
			return &beans[i]
		}
	}
	return nil
}

// CountByStatus returns status → count.
func CountByStatus(beans []model.Bean) map[model.Status]int {
	counts := make(map[model.Status]int)
	for _, b := range beans {
		counts[b.Status]++
	}
	return counts
}

// TempBeansDir creates a temporary project with an empty .beans directory and
// returns the .beans path.
func TempBeansDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), ".beans")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create .beans dir: %v", err)
	}
	return dir
}

// WriteFile writes content to dir/name, creating parents.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}
