package inventory

import "context"

// ProductInfo carries the display fields supplied by the external catalog.
type ProductInfo struct {
	Name string
	SKU  string
}

// Directory is the inbound dependency on the external product catalog and
// location registry. It only supplies denormalized display names; the engine
// works entirely in raw identifiers and must tolerate the directory being
// unavailable (see Service.decorate).
type Directory interface {
	Product(ctx context.Context, productID string) (ProductInfo, error)
	Location(ctx context.Context, locationID string) (string, error)
}

// StaticDirectory is a map-backed Directory for tests and demos.
type StaticDirectory struct {
	Products  map[string]ProductInfo
	Locations map[string]string
}

func (d *StaticDirectory) Product(_ context.Context, productID string) (ProductInfo, error) {
	if info, ok := d.Products[productID]; ok {
		return info, nil
	}
	return ProductInfo{}, errUnknownEntry
}

func (d *StaticDirectory) Location(_ context.Context, locationID string) (string, error) {
	if name, ok := d.Locations[locationID]; ok {
		return name, nil
	}
	return "", errUnknownEntry
}
