package calc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReferences(t *testing.T) {
	tests := []struct {
		formula string
		want    []string
	}{
		{"=SUM(A1:B2, Data!C3) + A1 + a1", []string{"A1:B2", "Data!C3", "A1"}},
		{`=IF(TRUE, "A1", $B$7)`, []string{"$B$7"}},
		{"=FOO(1) + 2", nil},
		{"=1+2", nil},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.formula, func(t *testing.T) {
			assert.Equal(t, tt.want, References(tt.formula))
		})
	}
}
