package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateBusinessID(t *testing.T) {
	id := GenerateBusinessID("KFC Richmond", "260 Bridge Rd, Richmond VIC 3121")

	assert.Len(t, id, 40)
	assert.Equal(t, id, GenerateBusinessID("KFC Richmond", "260 Bridge Rd, Richmond VIC 3121"),
		"same inputs must produce the same ID")
	assert.Equal(t, id, GenerateBusinessID("  kfc richmond  ", "260 BRIDGE RD, Richmond VIC 3121 "),
		"case and surrounding whitespace must not change the ID")
	assert.NotEqual(t, id, GenerateBusinessID("KFC Richmond", "1 Other St, Richmond VIC 3121"))
}

func TestUniqueStrings(t *testing.T) {
	testCases := []struct {
		name     string
		input    []string
		expected []string
	}{
		{"No Duplicates", []string{"a", "b", "c"}, []string{"a", "b", "c"}},
		{"With Duplicates", []string{"a", "b", "a", "c", "b"}, []string{"a", "b", "c"}},
		{"All Same", []string{"x", "x", "x"}, []string{"x"}},
		{"Empty", []string{}, []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, UniqueStrings(tc.input))
		})
	}
}

func TestCleanURL(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"Query Params", "https://www.kfc.com.au/store?id=42&x=1", "https://www.kfc.com.au/store"},
		{"Fragment", "https://www.kfc.com.au/store#hours", "https://www.kfc.com.au/store"},
		{"Trailing Slash", "https://www.kfc.com.au/store/", "https://www.kfc.com.au/store"},
		{"Already Clean", "https://www.kfc.com.au/store", "https://www.kfc.com.au/store"},
		{"Empty", "", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, CleanURL(tc.input))
		})
	}
}
