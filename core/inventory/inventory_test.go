package inventory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/document"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/inventory"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/tenancy"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/storage/database/inmem"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/tests"
)

func TestService(t *testing.T) {
	ctx := context.Background()
	admin1 := tenancy.Actor{UserID: "a1", Role: tenancy.RoleAdmin, BranchID: "b1"}
	svc := inventory.NewService(inmemdb.NewDocumentRepository(inventory.Collection, inventory.New), testutil.NewDeps("b1"))

	items := []inventory.Item{
		{Name: "Chalk", Category: "Stationery", Quantity: 3, MinQuantity: 10},
		{Name: "Desks", Category: "furniture", Quantity: 40, MinQuantity: 5},
		{Name: "Markers", Category: "stationery", Quantity: 10, MinQuantity: 10},
	}
	for _, it := range items {
		it := it
		_, err := svc.Create(ctx, admin1, &it)
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, admin1, &inventory.Item{Name: "Ghost", Quantity: -1})
	assert.Contains(t, testutil.FieldErrors(err), "quantity")

	low, err := svc.Query(ctx, admin1, document.Params{
		Compare:  []document.Comparison{inventory.LowStock},
		Ordering: []core.DBOrdering{{Field: "name", Ascending: true}},
	})
	require.NoError(t, err)
	require.Len(t, low, 2)
	assert.Equal(t, "Chalk", low[0].Name)
	assert.Equal(t, "Markers", low[1].Name)
	assert.True(t, low[1].IsLowStock())

	stationery, err := svc.Count(ctx, admin1, "", map[string]string{"category": "stationery"})
	require.NoError(t, err)
	assert.Equal(t, 2, stationery)
}
