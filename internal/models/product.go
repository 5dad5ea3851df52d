package models

import "time"

// Product is the in-memory representation of a sellable plant product.
// Price is a display string (e.g. "4.50€/kg"); no arithmetic is done on it.
type Product struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Seller    string    `json:"seller"`
	Location  string    `json:"location"`
	Price     string    `json:"price"`
	Rating    float64   `json:"rating"`
	Reviews   int       `json:"reviews"`
	Image     string    `json:"image"`
	Category  string    `json:"category"`
	Organic   bool      `json:"organic"`
	Badge     string    `json:"badge,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProductRow is the wire/database representation of a product.
type ProductRow struct {
	ID        string    `json:"id,omitempty" gorm:"primaryKey;type:varchar(36)"`
	Name      string    `json:"name" gorm:"not null"`
	Seller    string    `json:"seller"`
	Location  string    `json:"location"`
	Price     string    `json:"price" gorm:"not null"`
	Rating    float64   `json:"rating"`
	Reviews   int       `json:"reviews"`
	ImageURL  string    `json:"image_url"`
	Category  string    `json:"category" gorm:"index"`
	Organic   bool      `json:"organic"`
	Badge     *string   `json:"badge"`
	CreatedAt time.Time `json:"created_at,omitempty" gorm:"index"`
}

// TableName pins the gateway table name.
func (ProductRow) TableName() string {
	return "products"
}

// ToProduct maps a row onto the in-memory product.
func (r ProductRow) ToProduct() Product {
	p := Product{
		ID:        r.ID,
		Name:      r.Name,
		Seller:    r.Seller,
		Location:  r.Location,
		Price:     r.Price,
		Rating:    r.Rating,
		Reviews:   r.Reviews,
		Image:     r.ImageURL,
		Category:  r.Category,
		Organic:   r.Organic,
		CreatedAt: r.CreatedAt,
	}
	if r.Badge != nil {
		p.Badge = *r.Badge
	}
	return p
}

// NewProductRow maps an in-memory product onto its row.
func NewProductRow(p Product) ProductRow {
	row := ProductRow{
		ID:        p.ID,
		Name:      p.Name,
		Seller:    p.Seller,
		Location:  p.Location,
		Price:     p.Price,
		Rating:    p.Rating,
		Reviews:   p.Reviews,
		ImageURL:  p.Image,
		Category:  p.Category,
		Organic:   p.Organic,
		CreatedAt: p.CreatedAt,
	}
	if p.Badge != "" {
		badge := p.Badge
		row.Badge = &badge
	}
	return row
}

// NewProduct is the seller submission for a new product.
type NewProduct struct {
	Name     string  `json:"name" validate:"required,min=2,max=120"`
	Seller   string  `json:"seller" validate:"required,max=120"`
	Location string  `json:"location" validate:"max=120"`
	Price    string  `json:"price" validate:"required,max=40"`
	Rating   float64 `json:"rating" validate:"gte=0,lte=5"`
	Reviews  int     `json:"reviews" validate:"gte=0"`
	Image    string  `json:"image" validate:"omitempty,max=2048"`
	Category string  `json:"category" validate:"required,max=60"`
	Organic  bool    `json:"organic"`
	Badge    string  `json:"badge" validate:"max=40"`
}

// Product converts the submission into an unsaved product.
func (n NewProduct) Product() Product {
	return Product{
		Name:     n.Name,
		Seller:   n.Seller,
		Location: n.Location,
		Price:    n.Price,
		Rating:   n.Rating,
		Reviews:  n.Reviews,
		Image:    n.Image,
		Category: n.Category,
		Organic:  n.Organic,
		Badge:    n.Badge,
	}
}

// ProductPatch is a partial product update. Nil fields are left untouched.
type ProductPatch struct {
	Name     *string  `json:"name,omitempty" validate:"omitempty,min=2,max=120"`
	Seller   *string  `json:"seller,omitempty" validate:"omitempty,max=120"`
	Location *string  `json:"location,omitempty" validate:"omitempty,max=120"`
	Price    *string  `json:"price,omitempty" validate:"omitempty,min=1,max=40"`
	Rating   *float64 `json:"rating,omitempty" validate:"omitempty,gte=0,lte=5"`
	Reviews  *int     `json:"reviews,omitempty" validate:"omitempty,gte=0"`
	Image    *string  `json:"image,omitempty" validate:"omitempty,max=2048"`
	Category *string  `json:"category,omitempty" validate:"omitempty,max=60"`
	Organic  *bool    `json:"organic,omitempty"`
	Badge    *string  `json:"badge,omitempty" validate:"omitempty,max=40"`
}

// Columns returns the patch keyed by wire column name.
func (p ProductPatch) Columns() map[string]any {
	cols := make(map[string]any)
	if p.Name != nil {
		cols["name"] = *p.Name
	}
	if p.Seller != nil {
		cols["seller"] = *p.Seller
	}
	if p.Location != nil {
		cols["location"] = *p.Location
	}
	if p.Price != nil {
		cols["price"] = *p.Price
	}
	if p.Rating != nil {
		cols["rating"] = *p.Rating
	}
	if p.Reviews != nil {
		cols["reviews"] = *p.Reviews
	}
	if p.Image != nil {
		cols["image_url"] = *p.Image
	}
	if p.Category != nil {
		cols["category"] = *p.Category
	}
	if p.Organic != nil {
		cols["organic"] = *p.Organic
	}
	if p.Badge != nil {
		cols["badge"] = *p.Badge
	}
	return cols
}

// Apply returns product with the patch merged in.
func (p ProductPatch) Apply(product Product) Product {
	if p.Name != nil {
		product.Name = *p.Name
	}
	if p.Seller != nil {
		product.Seller = *p.Seller
	}
	if p.Location != nil {
		product.Location = *p.Location
	}
	if p.Price != nil {
		product.Price = *p.Price
	}
	if p.Rating != nil {
		product.Rating = *p.Rating
	}
	if p.Reviews != nil {
		product.Reviews = *p.Reviews
	}
	if p.Image != nil {
		product.Image = *p.Image
	}
	if p.Category != nil {
		product.Category = *p.Category
	}
	if p.Organic != nil {
		product.Organic = *p.Organic
	}
	if p.Badge != nil {
		product.Badge = *p.Badge
	}
	return product
}

// Empty reports whether the patch changes nothing.
func (p ProductPatch) Empty() bool {
	return len(p.Columns()) == 0
}
