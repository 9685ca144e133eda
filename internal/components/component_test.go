package components

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponentID_String(t *testing.T) {
	assert.Equal(t, "CharacterEquipment", CharacterEquipment.String())
	assert.Equal(t, "ComponentID(42)", ComponentID(42).String())
}

func TestParseComponentID(t *testing.T) {
	tests := []struct {
		in      string
		want    ComponentID
		wantErr bool
	}{
		{in: "Profiles", want: Profiles},
		{in: "itemsockets", want: ItemSockets},
		{in: " 402 ", want: VendorSales},
		{in: "42", wantErr: true},
		{in: "Sparrows", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseComponentID(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "100,200,205", Join([]ComponentID{Profiles, Characters, CharacterEquipment}))
	assert.Equal(t, "", Join(nil))
}

func TestEndpoints(t *testing.T) {
	e := Endpoints{BaseURL: "https://api.example.com/Platform/"}

	assert.Equal(t, "https://api.example.com/Platform/Destiny2/3/Profile/4611/", e.Profile(3, "4611"))
	assert.Equal(t, "https://api.example.com/Platform/Destiny2/3/Profile/4611/Character/2305/", e.Character(3, "4611", "2305"))
	assert.Equal(t, "https://api.example.com/Platform/Destiny2/3/Profile/4611/Item/6917/", e.Item(3, "4611", "6917"))
	assert.Equal(t, "https://api.example.com/Platform/Destiny2/3/Profile/4611/Character/2305/Vendors/", e.Vendors(3, "4611", "2305"))
	assert.Equal(t, "https://api.example.com/Platform/Destiny2/3/Profile/4611/Character/2305/Vendors/350061650/", e.Vendor(3, "4611", "2305", 350061650))

	assert.Equal(t, DefaultBaseURL+"/Destiny2/1/Profile/1/", Endpoints{}.Profile(1, "1"))
}

func TestRequire(t *testing.T) {
	n := 3
	got, err := Require(&n, "count")
	require.NoError(t, err)
	assert.Equal(t, 3, got)

	_, err = Require[int](nil, "count")
	assert.ErrorIs(t, err, ErrMissingAttribute)
	assert.EqualError(t, err, "response missing expected attribute: count")

	v, err := RequireKey(map[string]int{"a": 1}, "a", "data")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	_, err = RequireKey(map[string]int{}, "b", "data")
	assert.EqualError(t, err, "response missing expected attribute: data[b]")
}
