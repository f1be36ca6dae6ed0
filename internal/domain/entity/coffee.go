// Package entity holds the records processed by the coffee jobs.
package entity

import "fmt"

// CoffeeTableName is the table holding coffee rows.
const CoffeeTableName = "coffee"

// Coffee is one coffee record. ID is assigned by storage on insert and never changes afterwards;
// it is zero for records that have not been stored yet.
// The parquet tags describe the export schema of exportCoffeeJob.
type Coffee struct {
	ID              int64  `gorm:"column:id;primaryKey;autoIncrement" parquet:"name=id,type=INT64"`
	Brand           string `gorm:"column:brand" parquet:"name=brand,type=BYTE_ARRAY,convertedtype=UTF8"`
	Origin          string `gorm:"column:origin" parquet:"name=origin,type=BYTE_ARRAY,convertedtype=UTF8"`
	Characteristics string `gorm:"column:characteristics" parquet:"name=characteristics,type=BYTE_ARRAY,convertedtype=UTF8"`
}

// TableName specifies the table name for Coffee.
func (Coffee) TableName() string {
	return CoffeeTableName
}

func (c Coffee) String() string {
	return fmt.Sprintf("Coffee{id=%d, brand=%s, origin=%s, characteristics=%s}", c.ID, c.Brand, c.Origin, c.Characteristics)
}

// CoffeeRecord is a coffee as read from an input source, before normalization.
// A nil field is absent from the input; an empty string is a present, empty value.
type CoffeeRecord struct {
	Brand           *string
	Origin          *string
	Characteristics *string
}

// NewCoffeeRecord returns a record with every field present.
func NewCoffeeRecord(brand, origin, characteristics string) *CoffeeRecord {
	return &CoffeeRecord{Brand: &brand, Origin: &origin, Characteristics: &characteristics}
}

// RecordOf returns c as an input record, so that stored coffees can be normalized again.
func RecordOf(c Coffee) CoffeeRecord {
	return *NewCoffeeRecord(c.Brand, c.Origin, c.Characteristics)
}

func (r CoffeeRecord) String() string {
	show := func(s *string) string {
		if s == nil {
			return "<absent>"
		}
		return *s
	}
	return fmt.Sprintf("CoffeeRecord{brand=%s, origin=%s, characteristics=%s}", show(r.Brand), show(r.Origin), show(r.Characteristics))
}
