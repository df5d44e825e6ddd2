package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrategyValidate(t *testing.T) {
	valid := Strategy{Assets: []string{"BTC"}, MaxOpenPositions: 1, EntryLogic: EntryLogicAny1}
	assert.NoError(t, valid.Validate())

	noAssets := valid
	noAssets.Assets = nil
	assert.Error(t, noAssets.Validate())

	tooManyOpen := valid
	tooManyOpen.MaxOpenPositions = 2
	assert.Error(t, tooManyOpen.Validate())

	badAsset := valid
	badAsset.Assets = []string{"b"}
	assert.Error(t, badAsset.Validate())

	badLogic := valid
	badLogic.EntryLogic = "not_a_logic"
	assert.Error(t, badLogic.Validate())
}

// TestAssetsSet_DetectsOverlap_BoundaryScenario6 reproduces spec §8 boundary
// scenario 6: strategy A active with {BTC}, strategy B with {BTC, ETH}
// toggled to active must be rejected for overlapping on BTC.
func TestAssetsSet_DetectsOverlap_BoundaryScenario6(t *testing.T) {
	a := Strategy{ID: 1, Assets: []string{"BTC"}, IsActive: true}
	b := Strategy{ID: 2, Assets: []string{"BTC", "ETH"}}

	bSet := b.AssetsSet()
	var conflict string
	for _, asset := range a.Assets {
		if _, ok := bSet[asset]; ok {
			conflict = asset
		}
	}
	assert.Equal(t, "BTC", conflict)
}
