package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Unit string

const (
	UnitKg    Unit = "kg"
	UnitPiece Unit = "piece"
	UnitBunch Unit = "bunch"
	UnitDozen Unit = "dozen"
)

var validUnits = map[Unit]struct{}{
	UnitKg:    {},
	UnitPiece: {},
	UnitBunch: {},
	UnitDozen: {},
}

func ToUnit(s string) (Unit, error) {
	unit := Unit(s)
	if _, ok := validUnits[unit]; ok {
		return unit, nil
	}
	return "", errors.New("invalid product unit")
}

// Product is the catalog entry the order workflow resolves against.
// A soft-deleted or unpublished product disappears from public reads but
// stays in the table so historical order items keep a valid reference.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Unit        Unit            `json:"unit"`
	Category    string          `json:"category"`
	Stock       int             `json:"stock"`
	IsPublished bool            `json:"isPublished"`
	IsDeleted   bool            `json:"isDeleted"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}
