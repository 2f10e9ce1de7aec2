package values

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitAtoms(t *testing.T) {
	assert.Equal(t, []string{"Acme", "Beta"}, SplitAtoms(" Acme ,Beta, nan,,Acme"))
	assert.Equal(t, []string{"EU"}, SplitAtoms("EU"))
	assert.Empty(t, SplitAtoms(" None , NaN, "))
	assert.Empty(t, SplitAtoms(""))
}

func TestIsPlaceholder(t *testing.T) {
	for _, token := range []string{"", "  ", "nan", "NaN", "None", " none "} {
		assert.True(t, IsPlaceholder(token), token)
	}
	for _, token := range []string{"N/A", "null", "0", "Nancy"} {
		assert.False(t, IsPlaceholder(token), token)
	}
}

func TestDetectMultiValue(t *testing.T) {
	assert.False(t, DetectMultiValue(nil))
	assert.False(t, DetectMultiValue([]string{"EU", "US"}))
	assert.True(t, DetectMultiValue([]string{"EU", "US, APAC"}))
}

func TestCollect(t *testing.T) {
	raws := []string{"US, EU", "EU", "nan", "APAC,US", ""}
	assert.Equal(t, []string{"APAC", "EU", "US"}, Collect(raws))
	assert.Empty(t, Collect(nil))
}
