package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestCatalog_Resolve(t *testing.T) {
	c := DefaultCatalog()

	r := c.Resolve(props(
		"PARCEL_NUM", "12-34",
		"OWNER1", "SMITH JOHN",
		"MAIL_ADDRESS", "PO BOX 964 LYNCHBURG, VA 24505",
		"CITY", "FOREST",
		"COUNTY", "Bedford County, VA",
		"ACRES", "12.5",
		"Legal Description", "LOT 7 SMITH SUBDIVISION",
		"Deed Book", "1234/56",
	))

	assert.Equal(t, strPtr("12-34"), r.ParcelNumber)
	assert.Nil(t, r.PIN)
	assert.Equal(t, strPtr("SMITH JOHN"), r.Owner)
	assert.Equal(t, strPtr("PO BOX 964 LYNCHBURG, VA 24505"), r.OwnerAddress)
	assert.Equal(t, strPtr("LYNCHBURG"), r.OwnerCity, "parsed address overrides the city column")
	assert.Equal(t, strPtr("VA"), r.OwnerState)
	assert.Equal(t, strPtr("24505"), r.OwnerZip)
	assert.Equal(t, strPtr("Bedford County"), r.County)
	require.NotNil(t, r.Acreage)
	assert.Equal(t, 12.5, *r.Acreage)
	assert.Equal(t, strPtr("Legal: LOT 7 SMITH SUBDIVISION | Deed Book: 1234/56"), r.LegalDesc)
}

func TestCatalog_Resolve_Fallbacks(t *testing.T) {
	c := DefaultCatalog()

	t.Run("state from county split", func(t *testing.T) {
		r := c.Resolve(props("county", "Campbell County, VA", "address", "Rt 1 Box 2"))
		assert.Equal(t, strPtr("Campbell County"), r.County)
		assert.Equal(t, strPtr("VA"), r.OwnerState)
		assert.Nil(t, r.OwnerCity)
		assert.Nil(t, r.OwnerZip)
	})

	t.Run("declared state beats county split", func(t *testing.T) {
		r := c.Resolve(props("county", "Campbell County, VA", "state", "NC"))
		assert.Equal(t, strPtr("NC"), r.OwnerState)
	})

	t.Run("unparsed address keeps independent fields", func(t *testing.T) {
		r := c.Resolve(props("owner_address", "123 Main St", "owner_city", "Forest", "owner_state", "VA", "zip", 24551))
		assert.Equal(t, strPtr("Forest"), r.OwnerCity)
		assert.Equal(t, strPtr("VA"), r.OwnerState)
		assert.Equal(t, strPtr("24551"), r.OwnerZip)
	})

	t.Run("non numeric acreage is null", func(t *testing.T) {
		r := c.Resolve(props("acres", "unknown"))
		assert.Nil(t, r.Acreage)
	})

	t.Run("kml name is the parcel number of last resort", func(t *testing.T) {
		r := c.Resolve(props("name", "TM 45-A-12"))
		assert.Equal(t, strPtr("TM 45-A-12"), r.ParcelNumber)
	})
}

func TestCatalog_Resolve_Empty(t *testing.T) {
	r := DefaultCatalog().Resolve(props())
	assert.Equal(t, Resolved{}, r)
}
