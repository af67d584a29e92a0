package sqlgen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"energylabel-log-server/internal/schema"
)

func TestChildKeyColumnPanicsOnMissingKey(t *testing.T) {
	broken := &schema.Table{Name: "Broken"}

	require.PanicsWithValue(t, &SchemaMisuseError{Msg: "table Broken has no child_key column"}, func() {
		childKeyColumn(broken)
	})
}

func TestLookupPanicsOnDimensionWithoutChildKey(t *testing.T) {
	broken := &schema.Table{Name: "Broken"}
	root := &schema.Table{
		Name: "Fact",
		Columns: []schema.Node{
			{Kind: schema.KindFK, Column: "broken_id", Target: broken},
		},
	}

	require.Panics(t, func() {
		Lookup(root, sampleRecord())
	})
}
