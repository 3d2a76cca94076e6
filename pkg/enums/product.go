package enums

// ProductCategory is one of the fixed catalog collections. Values are
// title-cased because they are displayed as-is by the storefront.
type ProductCategory string

const (
	ProductCategoryEssential ProductCategory = "Essential"
	ProductCategoryPremium   ProductCategory = "Premium"
	ProductCategoryLimited   ProductCategory = "Limited"
	ProductCategorySeasonal  ProductCategory = "Seasonal"
)

var productCategories = []ProductCategory{
	ProductCategoryEssential,
	ProductCategoryPremium,
	ProductCategoryLimited,
	ProductCategorySeasonal,
}

// DefaultProductSizes is used when a product is created without sizes.
var DefaultProductSizes = []string{"XS", "S", "M", "L", "XL", "XXL"}

func (c ProductCategory) String() string { return string(c) }
func (c ProductCategory) IsValid() bool  { return member(productCategories, c) }

// ParseProductCategory accepts any casing, so "premium" and "PREMIUM" both
// resolve to ProductCategoryPremium.
func ParseProductCategory(raw string) (ProductCategory, error) {
	return lookup(productCategories, raw, "product category", true)
}
