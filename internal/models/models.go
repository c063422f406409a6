package models

// User is the profile record returned by /usuarios/{id} and the auth endpoints.
type User struct {
	ID     int64  `json:"idCuentaUser"`
	Name   string `json:"nombreUser,omitempty"`
	Email  string `json:"emailUser"`
	Phone  string `json:"tlfUser,omitempty"`
	Role   string `json:"roleUser,omitempty"`
	Status string `json:"estatus,omitempty"`
}

const RoleAdmin = "admin"

// ProfilePatch carries only the fields being changed.
type ProfilePatch struct {
	Name  *string `json:"nombreUser,omitempty"`
	Email *string `json:"emailUser,omitempty"`
	Phone *string `json:"tlfUser,omitempty"`
}

func (p ProfilePatch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Phone == nil
}

// Apply merges the patch into u.
func (p ProfilePatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
}

type CartLine struct {
	ID           int64  `json:"idCarrito"`
	ProductID    int64  `json:"fkProducto"`
	Quantity     int    `json:"cantProducto"`
	LineTotal    Money  `json:"montoTotal"`
	UserID       int64  `json:"fkCuentaUser"`
	Status       string `json:"estatusCarrito,omitempty"`
	ProductName  string `json:"nombreProducto,omitempty"`
	UnitPrice    Money  `json:"precio,omitempty"`
	CategoryName string `json:"nombreCategoria,omitempty"`
}

// CartResponse is the aggregate returned by GET /carrito/usuario/{id}.
type CartResponse struct {
	Items     []CartLine `json:"items"`
	Total     Money      `json:"total"`
	ItemCount int        `json:"cantidadItems"`
}

const CartStatusActive = "ACTIVO"

type Product struct {
	ID              int64  `json:"idProducto,omitempty"`
	Name            string `json:"nombreProducto"`
	Description     string `json:"descProducto,omitempty"`
	Price           Money  `json:"precio"`
	Stock           int    `json:"cantInventario"`
	ModelID         int64  `json:"fkModelo"`
	SubcategoryID   int64  `json:"fkSubCategoria"`
	Status          string `json:"estatus"`
	BrandName       string `json:"nombreMarca,omitempty"`
	ModelName       string `json:"nombreModelo,omitempty"`
	CategoryName    string `json:"nombreCategoria,omitempty"`
	SubcategoryName string `json:"nombreSubCategoria,omitempty"`
}

type Category struct {
	ID          int64  `json:"idCategoria"`
	Description string `json:"descCategoria"`
}

type Subcategory struct {
	ID          int64  `json:"idSubCategoria"`
	Description string `json:"descSubCategoria"`
	CategoryID  int64  `json:"fkCategoria"`
}

type Brand struct {
	ID          int64  `json:"idMarca"`
	Description string `json:"descMarca"`
}

type Model struct {
	ID          int64  `json:"idModelo"`
	Description string `json:"descModelo"`
	BrandID     int64  `json:"fkMarca"`
	BrandName   string `json:"nombreMarca,omitempty"`
}

type ProductImage struct {
	ID          int64  `json:"idImagen,omitempty"`
	Description string `json:"descImagen"`
	URL         string `json:"imagen"`
	Thumbnail   int    `json:"miniatura"`
	Main        int    `json:"principal"`
	ProductID   int64  `json:"fkProducto,omitempty"`
}

func (i ProductImage) IsMain() bool      { return i.Main == 1 }
func (i ProductImage) IsThumbnail() bool { return i.Thumbnail == 1 }

type WishlistItem struct {
	ID           int64  `json:"idLista"`
	UserID       int64  `json:"fkCuentaUser"`
	ProductID    int64  `json:"fkProducto"`
	AddedAt      string `json:"fechaRegsitro,omitempty"`
	ProductName  string `json:"nombreProducto,omitempty"`
	Price        Money  `json:"precio,omitempty"`
	CategoryName string `json:"nombreCategoria,omitempty"`
}

type SaleHeader struct {
	UserID        int64  `json:"fkCuentaUser"`
	Total         Money  `json:"montoTotalVenta"`
	PaymentMethod string `json:"metodoPago,omitempty"`
}

type SaleDetail struct {
	ProductID int64 `json:"fkProducto"`
	UnitPrice Money `json:"precioUnitario"`
	Quantity  int   `json:"cantProducto"`
	Subtotal  Money `json:"subTotal"`
}

type SaleRequest struct {
	Sale    SaleHeader   `json:"venta"`
	Details []SaleDetail `json:"detalles"`
}

type SaleResponse struct {
	ID int64 `json:"id"`
}

// Order is one row of the profile order history.
type Order struct {
	ID     int64  `json:"idVenta"`
	Date   string `json:"fechaVenta"`
	Total  Money  `json:"montoTotalVenta"`
	Status string `json:"estatusVenta"`
}
