// Package inventory keeps the stock of school supplies per branch.
package inventory

import (
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/document"
)

var (
	Collection = document.Collection{
		Name:      "inventory",
		Filters:   []string{"category", "location"},
		Search:    []string{"name", "category", "location"},
		Orderings: []string{"name", "category"},
	}

	// LowStock selects the items at or below their minimum quantity.
	LowStock = document.Comparison{Field: "quantity", Op: "<=", Other: "min_quantity"}
)

type Item struct {
	document.Base
	Name        string `json:"name" validate:"required,max=100"`
	Category    string `json:"category" validate:"max=50"`
	Quantity    int    `json:"quantity" validate:"gte=0"`
	Unit        string `json:"unit" validate:"max=20"`
	Location    string `json:"location" validate:"max=100"`
	MinQuantity int    `json:"min_quantity" validate:"gte=0"`
}

func New() *Item { return new(Item) }

func (i *Item) Clean() {
	i.Name = core.CleanString(i.Name)
	i.Category = core.CleanString(i.Category, true /* lower */)
	i.Unit = core.CleanString(i.Unit)
	i.Location = core.CleanString(i.Location)
}

func (i *Item) IsLowStock() bool { return i.Quantity <= i.MinQuantity }

func NewService(repo document.Repository[*Item], deps document.Deps) *document.Service[*Item] {
	return document.NewService(Collection, repo, deps, New)
}
