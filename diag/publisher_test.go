package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubject(t *testing.T) {
	tests := []struct {
		name  string
		runID string
		path  string
		want  string
	}{
		{"simple", "run1", "src/charge.ts", "archlint.diag.run1.src.charge.ts"},
		{"windows separators", "run1", `src\charge.ts`, "archlint.diag.run1.src.charge.ts"},
		{"spaces", "run1", "my file.ts", "archlint.diag.run1.my_file.ts"},
		{"leading separator", "run1", "/src/charge.ts", "archlint.diag.run1.src.charge.ts"},
		{"empty path", "run1", "", "archlint.diag.run1._"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Subject(tt.runID, tt.path))
		})
	}
}
