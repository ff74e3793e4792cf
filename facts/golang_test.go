package facts

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goSample = `package payment

import (
	"fmt"
	"net/http"

	audit "example.com/audit-log"
)

// Charger bills customers.
type Charger interface {
	Handler
	Charge(amount int) error
}

// Service is the payment entry point.
type Service struct {
	BaseService
	client *http.Client
}

// Charge bills one customer.
func (s *Service) Charge(amount int) error {
	audit.Record("charge", amount)
	res, err := s.client.Get("https://bank.example")
	if err != nil {
		return fmt.Errorf("charge: %w", err)
	}
	defer res.Body.Close()
	return nil
}

func (s *Service) refund(amount int) error {
	s.client.Get("https://bank.example/refund")
	return nil
}

const maxRetries = 3

var Debug = false
`

func extractGo(t *testing.T, path, src string) *Bundle {
	t.Helper()
	b, err := (&GoExtractor{}).Extract(context.Background(), path, []byte(src))
	require.NoError(t, err)
	return b
}

func TestGoExtractor_Imports(t *testing.T) {
	b := extractGo(t, "service.go", goSample)
	assert.Equal(t, []string{"fmt", "net/http", "example.com/audit-log"}, b.Imports)
	assert.True(t, b.HasImport("net/http"))
	assert.False(t, b.HasImport("lodash"))
}

func TestGoExtractor_Declarations(t *testing.T) {
	b := extractGo(t, "service.go", goSample)

	byName := make(map[string]Declaration)
	for _, d := range b.Declarations {
		byName[d.Name] = d
	}

	charger := byName["Charger"]
	assert.Equal(t, "interface", charger.Kind)
	assert.Equal(t, []string{"Handler"}, charger.Extends)

	service := byName["Service"]
	assert.Equal(t, "struct", service.Kind)
	assert.Equal(t, []string{"BaseService"}, service.Extends)

	assert.Equal(t, "method", byName["Charge"].Kind)
	assert.Equal(t, "const", byName["maxRetries"].Kind)
	assert.Equal(t, "var", byName["Debug"].Kind)
}

func TestGoExtractor_ExportsAndPublicMethods(t *testing.T) {
	b := extractGo(t, "service.go", goSample)

	assert.ElementsMatch(t, []string{"Charger", "Service", "Charge", "Debug"}, b.Exports)
	// refund is unexported and does not count.
	assert.Equal(t, 1, b.PublicMethods)
}

func TestGoExtractor_CallsAndHandling(t *testing.T) {
	b := extractGo(t, "service.go", goSample)

	var names []string
	for _, c := range b.Calls {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "audit.Record")
	assert.Contains(t, names, "fmt.Errorf")

	// The Get inside Charge is followed by an err check; the one in refund
	// is not.
	assert.True(t, b.CallHandled("Get"))
	assert.Contains(t, b.HandledCalls, "Get")
}

func TestGoExtractor_LineCounts(t *testing.T) {
	b := extractGo(t, "x.go", "package x\n\n// comment\nvar A = 1\n")
	assert.Equal(t, 4, b.TotalLines)
	assert.Equal(t, 2, b.CodeLines)
}

func TestGoExtractor_TestCompanion(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "svc.go")
	require.NoError(t, os.WriteFile(src, []byte("package x\n"), 0o644))

	b := extractGo(t, src, "package x\n")
	assert.False(t, b.HasTestCompanion)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "svc_test.go"), []byte("package x\n"), 0o644))
	b = extractGo(t, src, "package x\n")
	assert.True(t, b.HasTestCompanion)
}

func TestGoExtractor_ParseError(t *testing.T) {
	_, err := (&GoExtractor{}).Extract(context.Background(), "bad.go", []byte("package {"))
	assert.Error(t, err)
}

func TestRegistry_ForPath(t *testing.T) {
	ext := DefaultRegistry.ForPath("svc.go")
	_, ok := ext.(*GoExtractor)
	assert.True(t, ok)

	// Unknown extensions fall back to text-only extraction.
	b, err := DefaultRegistry.ForPath("notes.txt").Extract(context.Background(), "notes.txt", []byte("hello\nworld\n"))
	require.NoError(t, err)
	assert.Equal(t, "text", b.Language)
	assert.Equal(t, 2, b.TotalLines)
}
