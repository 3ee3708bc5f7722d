package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFoldSearchTerm(t *testing.T) {
	cases := map[string]string{
		"Café":         "cafe",
		"AÇÚCAR":       "acucar",
		"Feijão Preto": "feijao preto",
		"detergente":   "detergente",
		"":             "",
	}
	for input, want := range cases {
		require.Equal(t, want, FoldSearchTerm(input), "input %q", input)
	}
}
