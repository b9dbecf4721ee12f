package domain

import (
	"time"
)

// UserType enumerates the principal kinds known to the platform.
type UserType string

const (
	// UserTypeShop marks suppliers allowed to publish catalogs.
	UserTypeShop UserType = "shop"
	// UserTypeBuyer marks purchasing principals.
	UserTypeBuyer UserType = "buyer"
	// UserTypeAdmin marks staff principals with full read access.
	UserTypeAdmin UserType = "admin"
)

// User is the authenticated principal behind every import request.
type User struct {
	ID        int64
	Email     string
	Type      UserType
	Active    bool
	CreatedAt time.Time
}

// Shop binds a supplier catalog to its owning principal. Ownership is fixed
// at first creation and enforced on every subsequent import.
type Shop struct {
	ID        int64
	Name      string
	UserID    int64
	URL       string
	Accepting bool
	CreatedAt time.Time
}

// Category carries the supplier-assigned identifier, stable across imports.
// The name bound to an id on first sight is never overwritten.
type Category struct {
	ID   int64
	Name string
}

// Product is a catalog entry shared across shops, matched by name.
type Product struct {
	ID         int64
	Name       string
	CategoryID int64
}

// ProductInfo is the per-shop offer for a product. The full set for a shop is
// replaced on every successful import; rows have no identity across imports.
type ProductInfo struct {
	ID         int64
	ProductID  int64
	ShopID     int64
	Model      string
	ExternalID int64
	Price      int64
	PriceRRC   int64
	Quantity   int64
}

// Parameter is a product attribute name shared across all shops.
type Parameter struct {
	ID   int64
	Name string
}

// ProductParameter attaches a parameter value to one ProductInfo row and is
// recreated alongside it on every import.
type ProductParameter struct {
	ID            int64
	ProductInfoID int64
	ParameterID   int64
	Value         string
}
