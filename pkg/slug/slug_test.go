package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMake(t *testing.T) {
	cases := map[string]string{
		"Prestasi Terbaru":             "prestasi-terbaru",
		"  Juara 1 Olimpiade Sains!  ": "juara-1-olimpiade-sains",
		"Pentas Seni & Budaya 2024":    "pentas-seni-budaya-2024",
		"Café Ekspresi":                "cafe-ekspresi",
		"---":                          "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Make(in), in)
	}
}
