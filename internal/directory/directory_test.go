package directory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStaticDirectory(t *testing.T) {
	entries := map[string]string{"1000000001": "Front desk"}
	d := NewStatic(entries)
	entries["1000000001"] = "mutated"

	name, ok := d.DisplayName("1000000001")
	require.True(t, ok)
	require.Equal(t, "Front desk", name)

	_, ok = d.DisplayName("2000000002")
	require.False(t, ok)

	d.Set("2000000002", "Billing")
	require.Equal(t, []string{"1000000001", "2000000002"}, d.Desks())
}

func TestLabel(t *testing.T) {
	d := NewStatic(map[string]string{"1000000001": "Front desk"})
	require.Equal(t, "Front desk (1000000001)", Label(d, "1000000001"))
	require.Equal(t, "2000000002", Label(d, "2000000002"))
	require.Equal(t, "2000000002", Label(nil, "2000000002"))

	var nilStatic *Static
	require.Equal(t, "2000000002", Label(nilStatic, "2000000002"))
}
