// Package domain defines the core quotation types, the metadata snapshot
// stored with every indexed vector, and validation for records entering the
// pipeline. It acts as the validation gate at pipeline entry points.
package domain

// QuotationRecord is one row of the quotation corpus: a customer, a
// quotation, and a single line item. ID is the only required field; every
// other field is optional and a zero value means "absent".
type QuotationRecord struct {
	ID int64 `json:"id"`

	// Customer
	CustomerName  string `json:"customername,omitempty"`
	CustomerPhone string `json:"customerphone,omitempty"`
	CustomerEmail string `json:"customeremail,omitempty"`
	CustomerID    int64  `json:"customerid,omitempty"`
	CustomerCode  string `json:"customercode,omitempty"`

	// Quotation
	QuotationID              int64   `json:"quotationid,omitempty"`
	QuotationCode            string  `json:"quotationcode,omitempty"`
	QuotationStatus          string  `json:"quotationstatus,omitempty"`
	QuotationTotalAmount     float64 `json:"quotationtotalamount,omitempty"`
	QuotationTermsConditions string  `json:"quotationtermsconditions,omitempty"`
	QuotationSellerRemarks   string  `json:"quotationsellerremarks,omitempty"`
	QuotationIssuedBy        string  `json:"quotationissuedby,omitempty"`
	QuotationCreatedAt       string  `json:"quotationcreatedat,omitempty"`

	// Item
	ItemName           string  `json:"itemname,omitempty"`
	ItemSpecifications string  `json:"itemspecifications,omitempty"`
	ItemBrand          string  `json:"itembrand,omitempty"`
	ItemQuantity       int64   `json:"itemquantity,omitempty"`
	ItemDeliveryDate   string  `json:"itemdeliverydate,omitempty"`
	ItemListingPrice   float64 `json:"itemlistingprice,omitempty"`
	ItemSellerDiscount float64 `json:"itemsellerdiscount,omitempty"`
	ItemPurchasePrice  float64 `json:"itempurchaseprice,omitempty"`
	ItemSellingPrice   float64 `json:"itemsellingprice,omitempty"`
	ItemProductID      int64   `json:"itemproductid,omitempty"`
	ItemHSNCode        string  `json:"itemhsncode,omitempty"`
	ItemUOM            string  `json:"itemuom,omitempty"`
	ItemTaxPercent     string  `json:"itemtaxpercent,omitempty"`

	// Seller
	SellerName  string `json:"sellername,omitempty"`
	SellerPhone string `json:"sellerphone,omitempty"`
}

// Metadata is the closed set of display/filter fields snapshotted into the
// vector store alongside each embedding. It is deliberately an enumerated
// struct, not an open map, so store filter predicates stay well-typed.
type Metadata struct {
	CustomerName  string  `json:"customer_name,omitempty"`
	CustomerEmail string  `json:"customer_email,omitempty"`
	QuotationCode string  `json:"quotation_code,omitempty"`
	Status        string  `json:"status,omitempty"`
	TotalAmount   float64 `json:"total_amount,omitempty"`
	ItemName      string  `json:"item_name,omitempty"`
	ItemBrand     string  `json:"item_brand,omitempty"`
	Quantity      int64   `json:"quantity,omitempty"`
	SellingPrice  float64 `json:"selling_price,omitempty"`
	SellerName    string  `json:"seller_name,omitempty"`
}

// QuotationStatus values recognised by validation and the stats scan.
const (
	StatusDraft    = "draft"
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusClosed   = "closed"
	StatusExpired  = "expired"
)

// ValidStatuses is the set of recognised quotation statuses.
var ValidStatuses = map[string]bool{
	StatusDraft: true, StatusPending: true, StatusApproved: true,
	StatusRejected: true, StatusClosed: true, StatusExpired: true,
}
