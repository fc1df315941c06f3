package osmerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrMunicipalityNotFoundMessage(t *testing.T) {
	err := &ErrMunicipalityNotFound{Query: "Nowhere"}
	assert.Equal(t, `municipality not found: "Nowhere"`, err.Error())
}

func TestErrAmbiguousMunicipalityListsMatches(t *testing.T) {
	err := &ErrAmbiguousMunicipality{Query: "Bø", Matches: []string{"1867 Bø", "3813 Bø"}}
	assert.Contains(t, err.Error(), "1867 Bø")
	assert.Contains(t, err.Error(), "3813 Bø")
}

func TestErrUnknownCategoryListsKnown(t *testing.T) {
	err := &ErrUnknownCategory{Query: "Xyz", Known: []string{"Arealdekke", "Samferdsel"}}
	assert.Contains(t, err.Error(), "Xyz")
	assert.Contains(t, err.Error(), "Arealdekke")
	assert.Contains(t, err.Error(), "Samferdsel")
}

func TestErrTransportWrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := &ErrTransport{Service: "geonorge", URL: "https://example.test/wfs", Cause: cause}

	assert.Contains(t, err.Error(), "geonorge")
	assert.Contains(t, err.Error(), "connection reset")
	assert.ErrorIs(t, err, cause)
}

func TestErrTransportUnwrapSupportsErrorsAs(t *testing.T) {
	cause := fmt.Errorf("boom")
	wrapped := &ErrTransport{Service: "ssr", URL: "https://example.test", Cause: cause}

	var target *ErrTransport
	assert.True(t, errors.As(error(wrapped), &target))
	assert.Equal(t, cause, target.Cause)
}

func TestErrInvalidRingMessage(t *testing.T) {
	err := &ErrInvalidRing{FeatureID: "abc.1", Reason: "ring not closed"}
	assert.Equal(t, "invalid ring in feature abc.1: ring not closed", err.Error())
}
