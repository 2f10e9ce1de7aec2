package schema

import (
	"gorm.io/datatypes"
)

const (
	AdminRole    = "admin"
	StandardRole = "standard"
)

type User struct {
	Id           uint   `gorm:"primaryKey"`
	Username     string `gorm:"size:80;not null;uniqueIndex"`
	PasswordHash string `gorm:"size:256;not null"`
	Role         string `gorm:"size:20;not null;default:'standard'"`
}

func (u *User) IsAdmin() bool {
	return u.Role == AdminRole
}

// DataProduct is one cataloged dataset. The json tags are the public column names and
// must match the entries in Columns.
type DataProduct struct {
	Id uint `gorm:"primaryKey" json:"id"`

	DataId           *string `gorm:"column:data_ID;size:200;uniqueIndex" json:"data_ID"`
	ShortDesc        *string `gorm:"size:500" json:"short_desc"`
	LongDesc         *string `gorm:"type:text" json:"long_desc"`
	Stage            *string `gorm:"size:100" json:"stage"`
	Status           *string `gorm:"size:100" json:"status"`
	VendorType       *string `gorm:"size:100" json:"vendor_type"`
	Datatype         *string `gorm:"size:200" json:"datatype"`
	SubDatatype      *string `gorm:"size:200" json:"sub_datatype"`
	AssetClass       *string `gorm:"size:200" json:"asset_class"`
	CoverageDetails  *string `gorm:"size:500" json:"coverage_details"`
	Sector           *string `gorm:"size:200" json:"sector"`
	Region           *string `gorm:"size:100" json:"region"`
	SubRegion        *string `gorm:"size:100" json:"sub_region"`
	S3Location       *string `gorm:"size:500" json:"s3_location"`
	InternalLocation *string `gorm:"size:500" json:"internal_location"`
	DeliveryFreq     *string `gorm:"column:delivery_frequency;size:100" json:"delivery_frequency"`
	DeliveryLag      *string `gorm:"size:100" json:"delivery_lag"`
	Vendor           *string `gorm:"size:200" json:"vendor"`

	ProdDate     *datatypes.Date `json:"prod_date"`
	TrialDate    *datatypes.Date `json:"trial_date"`
	CreatedDate  *datatypes.Date `json:"created_date"`
	EndDate      *datatypes.Date `json:"end_date"`
	PitDate      *datatypes.Date `json:"pit_date"`
	HistoryStart *datatypes.Date `json:"history_start"`

	DeliveryMethod *string `gorm:"size:200" json:"delivery_method"`
	LinkedDocs     *string `gorm:"type:text" json:"linked_docs"`

	User           *string         `gorm:"size:100" json:"user"`
	ContractStart  *datatypes.Date `json:"contract_start"`
	ContractEnd    *datatypes.Date `json:"contract_end"`
	Term           *string         `gorm:"size:100" json:"term"`
	AnnualCost     *string         `gorm:"size:100" json:"annual_cost"`
	PriceCap       *string         `gorm:"size:100" json:"price_cap"`
	UsePermissions *string         `gorm:"type:text" json:"use_permissions"`
	Notes          *string         `gorm:"type:text" json:"notes"`
}

type ColumnOption struct {
	Id           uint   `gorm:"primaryKey" json:"id"`
	ColumnName   string `gorm:"size:100;not null;uniqueIndex:idx_column_option_value" json:"column_name"`
	Value        string `gorm:"size:500;not null;uniqueIndex:idx_column_option_value" json:"value"`
	IsMultiValue bool   `gorm:"not null;default:false" json:"is_multi_value"`
}

// Models lists every table owned by the catalog, in creation order.
func Models() []interface{} {
	return []interface{}{&User{}, &DataProduct{}, &ColumnOption{}}
}
