package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummaryNoProduct(t *testing.T) {
	assert.Equal(t, "No product specified yet.", NewProductCandidate().Summary())
}

func TestSummaryNameOnly(t *testing.T) {
	c := NewProductCandidate()
	c.Name = "Pyrus calleryana"

	assert.Equal(t, "Product: Pyrus calleryana", c.Summary())
}

func TestSummaryWithSpecifications(t *testing.T) {
	c := NewProductCandidate()
	c.Name = "Pyrus calleryana"
	c.AddSpecification("size", "90-120cm")
	c.AddSpecification("size", "150cm")
	c.AddSpecification("container", "container grown")

	assert.Equal(t,
		"Product: Pyrus calleryana. Specifications: size: 90-120cm, 150cm; container: container grown",
		c.Summary())
}

func TestAddSpecificationDeduplicates(t *testing.T) {
	c := NewProductCandidate()
	c.AddSpecification("size", "90-120cm")
	c.AddSpecification("size", "90-120cm")

	assert.Equal(t, []string{"90-120cm"}, c.SpecificationValues("size"))
}

func TestAddSpecificationNormalizesKind(t *testing.T) {
	c := NewProductCandidate()
	c.AddSpecification("Color", "red")

	assert.Equal(t, []string{"red"}, c.SpecificationValues("color"))
	assert.Equal(t, []string{"color"}, c.SpecificationKinds())
}

func TestAddSpecificationIgnoresEmpty(t *testing.T) {
	c := NewProductCandidate()
	c.AddSpecification("", "value")
	c.AddSpecification("kind", "  ")

	assert.Empty(t, c.SpecificationKinds())
}
