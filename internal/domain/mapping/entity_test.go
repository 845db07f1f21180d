package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlongevity/longmap/pkg/types/common"
)

func TestNewProblemCapability(t *testing.T) {
	m, err := NewProblemCapability(common.NewID(), common.NewID(), 0.8, true)
	require.NoError(t, err)
	assert.Equal(t, 0.8, m.ConfidenceScore)
	assert.True(t, m.IsRequired)

	_, err = NewProblemCapability("", common.NewID(), 0.8, true)
	assert.Error(t, err)

	_, err = NewProblemCapability(common.NewID(), common.NewID(), 1.2, true)
	assert.Error(t, err)
}

func TestNewCapabilityResource(t *testing.T) {
	m, err := NewCapabilityResource(common.NewID(), common.NewID(), 0.91)
	require.NoError(t, err)
	assert.Equal(t, 0.91, m.MatchScore)

	_, err = NewCapabilityResource(common.NewID(), "", 0.5)
	assert.Error(t, err)

	_, err = NewCapabilityResource(common.NewID(), common.NewID(), -0.5)
	assert.Error(t, err)
}
